package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/middleware"
	"github.com/noah-isme/horario-api/internal/models"
	appErrors "github.com/noah-isme/horario-api/pkg/errors"
	"github.com/noah-isme/horario-api/pkg/response"
)

type timetableService interface {
	View(ctx context.Context, studentID string) (*dto.TimetableView, bool, error)
	Config(ctx context.Context, studentID string) (*dto.TimeConfigResponse, error)
	UpdateConfig(ctx context.Context, studentID string, cfg models.TimeConfig) (*dto.TimeConfigResponse, error)
	ResetConfig(ctx context.Context, studentID string) (*dto.TimeConfigResponse, error)
	SetCareer(ctx context.Context, studentID string, req dto.UpdateCareerRequest) (*models.StudentTimetable, error)
	SelectSubjects(ctx context.Context, studentID string, req dto.UpdateSubjectSelectionRequest) (*models.StudentTimetable, error)
	SelectGroup(ctx context.Context, studentID string, req dto.UpdateGroupRequest) (*models.StudentTimetable, error)
	Options(ctx context.Context, studentID string) ([]dto.SubjectGroupOptions, error)
	Export(ctx context.Context, studentID, format string) (*dto.ExportFile, error)
}

// TimetableHandler serves a student's timetable and selection endpoints.
type TimetableHandler struct {
	service timetableService
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(service timetableService) *TimetableHandler {
	return &TimetableHandler{service: service}
}

// View godoc
// @Summary Student timetable
// @Description Slots, entries and conflicts of the student's current selection.
// @Tags Timetable
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/timetable [get]
func (h *TimetableHandler) View(c *gin.Context) {
	start := time.Now()
	view, cacheHit, err := h.service.View(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, view, nil, meta)
}

// SetCareer godoc
// @Summary Choose career
// @Tags Timetable
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.UpdateCareerRequest true "Career"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/career [put]
func (h *TimetableHandler) SetCareer(c *gin.Context) {
	var req dto.UpdateCareerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	timetable, err := h.service.SetCareer(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Config godoc
// @Summary Effective time configuration
// @Tags Timetable
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/timetable/config [get]
func (h *TimetableHandler) Config(c *gin.Context) {
	cfg, err := h.service.Config(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cfg, nil)
}

// UpdateConfig godoc
// @Summary Override time configuration
// @Tags Timetable
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body models.TimeConfig true "Time configuration"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{studentId}/timetable/config [put]
func (h *TimetableHandler) UpdateConfig(c *gin.Context) {
	var cfg models.TimeConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.UpdateConfig(c.Request.Context(), c.Param("studentId"), cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ResetConfig godoc
// @Summary Drop time configuration override
// @Tags Timetable
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/timetable/config [delete]
func (h *TimetableHandler) ResetConfig(c *gin.Context) {
	result, err := h.service.ResetConfig(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// SelectSubjects godoc
// @Summary Replace subject selection
// @Tags Timetable
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.UpdateSubjectSelectionRequest true "Subject ids"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/timetable/subjects [put]
func (h *TimetableHandler) SelectSubjects(c *gin.Context) {
	var req dto.UpdateSubjectSelectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	timetable, err := h.service.SelectSubjects(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// SelectGroup godoc
// @Summary Pick a group
// @Tags Timetable
// @Accept json
// @Produce json
// @Param studentId path string true "Student ID"
// @Param payload body dto.UpdateGroupRequest true "Group pick"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/timetable/groups [put]
func (h *TimetableHandler) SelectGroup(c *gin.Context) {
	var req dto.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	timetable, err := h.service.SelectGroup(c.Request.Context(), c.Param("studentId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Options godoc
// @Summary Group options with collision hints
// @Tags Timetable
// @Produce json
// @Param studentId path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{studentId}/timetable/options [get]
func (h *TimetableHandler) Options(c *gin.Context) {
	options, err := h.service.Options(c.Request.Context(), c.Param("studentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, options, nil)
}

// Export godoc
// @Summary Download timetable
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param studentId path string true "Student ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /students/{studentId}/timetable/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	file, err := h.service.Export(c.Request.Context(), c.Param("studentId"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/models"
	appErrors "github.com/noah-isme/horario-api/pkg/errors"
	"github.com/noah-isme/horario-api/pkg/response"
)

type engineService interface {
	Slots(cfg models.TimeConfig) ([]models.TimeSlot, error)
	Evaluate(req dto.EvaluateRequest) (*dto.EvaluateResponse, error)
	Proposal(req dto.ProposalRequest) (models.GroupSelection, error)
	WouldConflict(req dto.WouldConflictRequest) (*dto.WouldConflictResponse, error)
}

// EngineHandler exposes the stateless timetable engine.
type EngineHandler struct {
	service engineService
}

// NewEngineHandler constructs the handler.
func NewEngineHandler(service engineService) *EngineHandler {
	return &EngineHandler{service: service}
}

// Slots godoc
// @Summary Generate day slots
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body models.TimeConfig true "Time configuration"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /engine/slots [post]
func (h *EngineHandler) Slots(c *gin.Context) {
	var cfg models.TimeConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slots, err := h.service.Slots(cfg)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}

// Evaluate godoc
// @Summary Build entries and detect conflicts
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body dto.EvaluateRequest true "Catalog and selection"
// @Success 200 {object} response.Envelope
// @Router /engine/evaluate [post]
func (h *EngineHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.Evaluate(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Proposal godoc
// @Summary Default group proposal
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body dto.ProposalRequest true "Catalog and subject selection"
// @Success 200 {object} response.Envelope
// @Router /engine/proposal [post]
func (h *EngineHandler) Proposal(c *gin.Context) {
	var req dto.ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	selection, err := h.service.Proposal(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, selection, nil)
}

// WouldConflict godoc
// @Summary What-if check for one group choice
// @Tags Engine
// @Accept json
// @Produce json
// @Param payload body dto.WouldConflictRequest true "Hypothetical choice"
// @Success 200 {object} response.Envelope
// @Router /engine/would-conflict [post]
func (h *EngineHandler) WouldConflict(c *gin.Context) {
	var req dto.WouldConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.service.WouldConflict(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

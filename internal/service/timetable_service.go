package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/models"
	appErrors "github.com/noah-isme/horario-api/pkg/errors"
	"github.com/noah-isme/horario-api/pkg/export"
)

// Export formats accepted by TimetableService.Export.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type timetableStore interface {
	Get(ctx context.Context, studentID string) (*models.StudentTimetable, error)
	Upsert(ctx context.Context, timetable *models.StudentTimetable) error
}

type careerSubjectLister interface {
	ListByCareer(ctx context.Context, careerID string) ([]models.Subject, error)
}

type datasetRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// TimetableServiceConfig tunes the student timetable workflows.
type TimetableServiceConfig struct {
	Defaults        models.TimeConfig
	DefaultCareerID string
	MaxSubjects     int
	CacheTTL        time.Duration
}

// TimetableServiceParams groups constructor dependencies.
type TimetableServiceParams struct {
	Timetables timetableStore
	Careers    careerLookup
	Subjects   careerSubjectLister
	Cache      *CacheService
	Metrics    *MetricsService
	CSV        datasetRenderer
	PDF        datasetRenderer
	Validator  *validator.Validate
	Logger     *zap.Logger
	Config     TimetableServiceConfig
}

// TimetableService manages a student's career, subject and group selection and renders
// the resulting week.
type TimetableService struct {
	timetables timetableStore
	careers    careerLookup
	subjects   careerSubjectLister
	cache      *CacheService
	metrics    *MetricsService
	csv        datasetRenderer
	pdf        datasetRenderer
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig
}

// NewTimetableService constructs a TimetableService with sane defaults.
func NewTimetableService(params TimetableServiceParams) *TimetableService {
	cfg := params.Config
	if cfg.Defaults.FirstStart == "" {
		cfg.Defaults = DefaultTimeConfig()
	}
	if cfg.MaxSubjects <= 0 {
		cfg.MaxSubjects = 12
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	csvExporter := params.CSV
	if csvExporter == nil {
		csvExporter = export.NewCSVExporter()
	}
	pdfExporter := params.PDF
	if pdfExporter == nil {
		pdfExporter = export.NewPDFExporter()
	}
	return &TimetableService{
		timetables: params.Timetables,
		careers:    params.Careers,
		subjects:   params.Subjects,
		cache:      params.Cache,
		metrics:    params.Metrics,
		csv:        csvExporter,
		pdf:        pdfExporter,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
	}
}

// View returns the rendered week of a student and whether it came from cache.
func (s *TimetableService) View(ctx context.Context, studentID string) (*dto.TimetableView, bool, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, false, err
	}
	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	key := TimetableViewKey(studentID, timetable.Version)

	var cached dto.TimetableView
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	view, err := s.compose(ctx, timetable)
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, key, view, s.cfg.CacheTTL)
	return view, false, nil
}

// Config returns the effective time configuration of a student.
func (s *TimetableService) Config(ctx context.Context, studentID string) (*dto.TimeConfigResponse, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, err
	}
	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	cfg, source, err := s.resolveConfig(ctx, timetable)
	if err != nil {
		return nil, err
	}
	return &dto.TimeConfigResponse{Config: cfg, Source: source}, nil
}

// UpdateConfig stores a full personal time configuration for the student.
func (s *TimetableService) UpdateConfig(ctx context.Context, studentID string, cfg models.TimeConfig) (*dto.TimeConfigResponse, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, err
	}
	if err := ValidateTimeConfig(cfg); err != nil {
		return nil, err
	}
	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	timetable.ConfigOverride = OverrideFromConfig(cfg)
	if err := s.save(ctx, timetable, "config"); err != nil {
		return nil, err
	}
	return &dto.TimeConfigResponse{Config: cfg, Source: dto.ConfigSourceOverride}, nil
}

// ResetConfig drops the personal override and returns the configuration now in effect.
func (s *TimetableService) ResetConfig(ctx context.Context, studentID string) (*dto.TimeConfigResponse, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, err
	}
	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	timetable.ConfigOverride = nil
	if err := s.save(ctx, timetable, "config"); err != nil {
		return nil, err
	}
	cfg, source, err := s.resolveConfig(ctx, timetable)
	if err != nil {
		return nil, err
	}
	return &dto.TimeConfigResponse{Config: cfg, Source: source}, nil
}

// SetCareer switches the career a student plans for. Changing career clears the
// subject and group selection because subjects belong to a single career.
func (s *TimetableService) SetCareer(ctx context.Context, studentID string, req dto.UpdateCareerRequest) (*models.StudentTimetable, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid career payload")
	}
	career, err := s.careers.FindByID(ctx, req.CareerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}

	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if timetable.CareerID != career.ID {
		timetable.CareerID = career.ID
		timetable.SubjectIDs = []string{}
		timetable.GroupSelection = models.GroupSelection{}
	}
	if err := s.save(ctx, timetable, "career"); err != nil {
		return nil, err
	}
	return timetable, nil
}

// SelectSubjects replaces the subject selection. Subjects that end up without a GT
// pick are seeded from the default proposal; picks of dropped subjects are removed.
func (s *TimetableService) SelectSubjects(ctx context.Context, studentID string, req dto.UpdateSubjectSelectionRequest) (*models.StudentTimetable, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject selection")
	}
	ids := uniqueIDs(req.SubjectIDs)
	if len(ids) > s.cfg.MaxSubjects {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("at most %d subjects can be selected", s.cfg.MaxSubjects))
	}

	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if timetable.CareerID == "" && len(ids) > 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "select a career before choosing subjects")
	}
	subjects, err := s.catalog(ctx, timetable.CareerID)
	if err != nil {
		return nil, err
	}
	offered := indexSubjects(subjects)
	for _, id := range ids {
		if _, ok := offered[id]; !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("subject %s is not offered by the career", id))
		}
	}

	selection := timetable.GroupSelection
	if NeedsDefaultProposal(ids, selection) {
		selection = ReseedSelection(subjects, ids, selection)
		s.logger.Debug("group selection reseeded", zap.String("student_id", studentID), zap.Int("subjects", len(ids)))
	} else {
		selection = pruneSelection(ids, selection)
	}

	timetable.SubjectIDs = ids
	timetable.GroupSelection = selection
	if err := s.save(ctx, timetable, "subjects"); err != nil {
		return nil, err
	}
	return timetable, nil
}

// SelectGroup sets one group pick of a selected subject.
func (s *TimetableService) SelectGroup(ctx context.Context, studentID string, req dto.UpdateGroupRequest) (*models.StudentTimetable, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid group payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group type %q", req.Type))
	}

	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !containsID(timetable.SubjectIDs, req.SubjectID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "subject is not part of the selection")
	}
	subjects, err := s.catalog(ctx, timetable.CareerID)
	if err != nil {
		return nil, err
	}
	subject, ok := indexSubjects(subjects)[req.SubjectID]
	if !ok || findGroup(subject, req.Type, req.Number) == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("group %s%d does not exist for the subject", req.Type, req.Number))
	}

	selection := timetable.GroupSelection.Clone()
	selection[req.SubjectID] = selection[req.SubjectID].With(req.Type, req.Number)
	timetable.GroupSelection = selection
	if err := s.save(ctx, timetable, "group"); err != nil {
		return nil, err
	}
	return timetable, nil
}

// Options lists the selectable groups of every selected subject with collision hints.
func (s *TimetableService) Options(ctx context.Context, studentID string) ([]dto.SubjectGroupOptions, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, err
	}
	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.catalog(ctx, timetable.CareerID)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	options := GroupOptions(subjects, timetable.SubjectIDs, timetable.GroupSelection)
	s.metrics.ObserveCompute("options", time.Since(start))
	return options, nil
}

// Export renders the student's entries as a CSV or PDF attachment.
func (s *TimetableService) Export(ctx context.Context, studentID, format string) (*dto.ExportFile, error) {
	if err := requireStudent(studentID); err != nil {
		return nil, err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	view, _, err := s.View(ctx, studentID)
	if err != nil {
		return nil, err
	}
	timetable, err := s.load(ctx, studentID)
	if err != nil {
		return nil, err
	}
	subjects, err := s.catalog(ctx, timetable.CareerID)
	if err != nil {
		return nil, err
	}
	dataset := buildExportDataset(studentID, view, indexSubjects(subjects))

	file := &dto.ExportFile{Filename: fmt.Sprintf("timetable-%s.%s", studentID, format)}
	switch format {
	case ExportFormatPDF:
		file.ContentType = "application/pdf"
		file.Payload, err = s.pdf.Render(dataset)
	default:
		file.ContentType = "text/csv"
		file.Payload, err = s.csv.Render(dataset)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}
	return file, nil
}

func (s *TimetableService) compose(ctx context.Context, timetable *models.StudentTimetable) (*dto.TimetableView, error) {
	cfg, _, err := s.resolveConfig(ctx, timetable)
	if err != nil {
		return nil, err
	}
	slots, err := GenerateSlots(cfg)
	if err != nil {
		return nil, err
	}
	subjects, err := s.catalog(ctx, timetable.CareerID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	entries := BuildEntries(subjects, timetable.SubjectIDs, timetable.GroupSelection)
	conflicts := DetectConflicts(entries)
	s.metrics.ObserveCompute("view", time.Since(start))
	s.metrics.ObserveConflicts(len(conflicts))
	if len(conflicts) > 0 {
		s.logger.Debug("timetable has conflicts", zap.String("student_id", timetable.StudentID), zap.Int("conflicts", len(conflicts)))
	}
	unaligned := []models.ScheduleEntry{}
	for _, entry := range entries {
		if !IsAlignedSlot(entry.Start, entry.End, slots) {
			unaligned = append(unaligned, entry)
		}
	}
	if len(unaligned) > 0 {
		s.logger.Debug("timetable entries fall between slot rows", zap.String("student_id", timetable.StudentID), zap.Int("unaligned", len(unaligned)))
	}

	return &dto.TimetableView{
		StudentID:      timetable.StudentID,
		CareerID:       timetable.CareerID,
		Config:         cfg,
		Slots:          slots,
		Days:           models.Weekdays,
		SubjectIDs:     timetable.SubjectIDs,
		GroupSelection: timetable.GroupSelection,
		Colors:         SubjectColors(timetable.SubjectIDs),
		Entries:        entries,
		Conflicts:      conflicts,
		Unaligned:      unaligned,
	}, nil
}

// load returns the stored timetable or a fresh one bound to the default career.
func (s *TimetableService) load(ctx context.Context, studentID string) (*models.StudentTimetable, error) {
	timetable, err := s.timetables.Get(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.StudentTimetable{
				StudentID:      studentID,
				CareerID:       s.cfg.DefaultCareerID,
				SubjectIDs:     []string{},
				GroupSelection: models.GroupSelection{},
			}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if timetable.GroupSelection == nil {
		timetable.GroupSelection = models.GroupSelection{}
	}
	if timetable.SubjectIDs == nil {
		timetable.SubjectIDs = []string{}
	}
	return timetable, nil
}

func (s *TimetableService) save(ctx context.Context, timetable *models.StudentTimetable, kind string) error {
	previous := timetable.Version
	if err := s.timetables.Upsert(ctx, timetable); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save timetable")
	}
	s.metrics.IncSelectionUpdate(kind)
	_ = s.cache.InvalidateStudent(ctx, timetable.StudentID, previous)
	s.logger.Info("timetable updated",
		zap.String("student_id", timetable.StudentID),
		zap.String("kind", kind),
		zap.Int("subjects", len(timetable.SubjectIDs)),
	)
	return nil
}

// resolveConfig treats a career that no longer exists like a student without career.
func (s *TimetableService) resolveConfig(ctx context.Context, timetable *models.StudentTimetable) (models.TimeConfig, string, error) {
	var career *models.Career
	if timetable.CareerID != "" {
		found, err := s.careers.FindByID(ctx, timetable.CareerID)
		switch {
		case err == nil:
			career = found
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Warn("career of timetable not found", zap.String("student_id", timetable.StudentID), zap.String("career_id", timetable.CareerID))
		default:
			return models.TimeConfig{}, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
		}
	}
	cfg, source := ResolveTimeConfig(s.cfg.Defaults, career, timetable.ConfigOverride)
	return cfg, source, nil
}

func (s *TimetableService) catalog(ctx context.Context, careerID string) ([]models.Subject, error) {
	if careerID == "" {
		return []models.Subject{}, nil
	}
	subjects, err := s.subjects.ListByCareer(ctx, careerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	return subjects, nil
}

func buildExportDataset(studentID string, view *dto.TimetableView, subjects map[string]*models.Subject) export.Dataset {
	entries := append([]models.ScheduleEntry(nil), view.Entries...)
	dayOrder := make(map[models.Weekday]int, len(models.Weekdays))
	for i, day := range models.Weekdays {
		dayOrder[day] = i
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if dayOrder[entries[i].Day] != dayOrder[entries[j].Day] {
			return dayOrder[entries[i].Day] < dayOrder[entries[j].Day]
		}
		return entries[i].Start < entries[j].Start
	})

	data := export.Dataset{
		Title:   fmt.Sprintf("Timetable %s", studentID),
		Headers: []string{"Day", "Start", "End", "Code", "Subject", "Group", "Room", "Conflict"},
		Rows:    make([][]string, 0, len(entries)),
		Flagged: make([]bool, 0, len(entries)),
	}
	for _, entry := range entries {
		name := ""
		if subject, ok := subjects[entry.SubjectID]; ok {
			name = subject.Name
		}
		conflict := IsEntryInConflict(entry, view.Conflicts)
		flag := ""
		if conflict {
			flag = "yes"
		}
		data.Rows = append(data.Rows, []string{
			string(entry.Day),
			entry.Start,
			entry.End,
			entry.Code,
			name,
			string(entry.Type) + strconv.Itoa(entry.Number),
			entry.Room,
			flag,
		})
		data.Flagged = append(data.Flagged, conflict)
	}
	return data
}

func requireStudent(studentID string) error {
	if strings.TrimSpace(studentID) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "studentId is required")
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func pruneSelection(ids []string, selection models.GroupSelection) models.GroupSelection {
	out := make(models.GroupSelection, len(ids))
	for _, id := range ids {
		if pick, ok := selection[id]; ok {
			out[id] = pick
		}
	}
	return out
}

package service

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/models"
	appErrors "github.com/noah-isme/horario-api/pkg/errors"
)

// EngineService evaluates caller-supplied catalogs and selections without touching
// storage.
type EngineService struct {
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewEngineService creates a new engine service.
func NewEngineService(validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *EngineService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EngineService{validator: validate, metrics: metrics, logger: logger}
}

// Slots generates the slots of a day for cfg.
func (s *EngineService) Slots(cfg models.TimeConfig) ([]models.TimeSlot, error) {
	return GenerateSlots(cfg)
}

// Evaluate builds the entries of a selection and detects their collisions.
func (s *EngineService) Evaluate(req dto.EvaluateRequest) (*dto.EvaluateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid evaluation payload")
	}
	start := time.Now()
	entries := BuildEntries(req.Subjects, req.SubjectIDs, req.GroupSelection)
	conflicts := DetectConflicts(entries)
	s.metrics.ObserveCompute("evaluate", time.Since(start))
	s.metrics.ObserveConflicts(len(conflicts))
	s.logger.Debug("selection evaluated", zap.Int("entries", len(entries)), zap.Int("conflicts", len(conflicts)))
	return &dto.EvaluateResponse{Entries: entries, Conflicts: conflicts}, nil
}

// Proposal returns the default group selection of the given subjects.
func (s *EngineService) Proposal(req dto.ProposalRequest) (models.GroupSelection, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid proposal payload")
	}
	return DefaultProposal(req.Subjects, req.SubjectIDs), nil
}

// WouldConflict answers whether picking the requested group collides with anything.
func (s *EngineService) WouldConflict(req dto.WouldConflictRequest) (*dto.WouldConflictResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid what-if payload")
	}
	if !req.Type.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group type %q", req.Type))
	}
	start := time.Now()
	result := WouldConflict(req.Subjects, req.SubjectIDs, req.GroupSelection, req.SubjectID, req.Type, req.Number)
	s.metrics.ObserveCompute("would_conflict", time.Since(start))
	return &dto.WouldConflictResponse{WouldConflict: result}, nil
}

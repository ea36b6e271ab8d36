package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/models"
	appErrors "github.com/noah-isme/horario-api/pkg/errors"
)

type subjectRepository interface {
	List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error)
	FindByID(ctx context.Context, id string) (*models.Subject, error)
	ExistsByCode(ctx context.Context, careerID, code, excludeID string) (bool, error)
	Create(ctx context.Context, subject *models.Subject) error
	Update(ctx context.Context, subject *models.Subject) error
	Delete(ctx context.Context, id string) error
}

type careerLookup interface {
	FindByID(ctx context.Context, id string) (*models.Career, error)
}

// SubjectServiceParams groups constructor dependencies.
type SubjectServiceParams struct {
	Repo      subjectRepository
	Careers   careerLookup
	Cache     *CacheService
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
	Defaults  models.TimeConfig
}

// SubjectService manages the subject catalog of each career.
type SubjectService struct {
	repo      subjectRepository
	careers   careerLookup
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	defaults  models.TimeConfig
}

// NewSubjectService creates a new subject service.
func NewSubjectService(params SubjectServiceParams) *SubjectService {
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := params.Defaults
	if defaults.FirstStart == "" {
		defaults = DefaultTimeConfig()
	}
	return &SubjectService{
		repo:      params.Repo,
		careers:   params.Careers,
		cache:     params.Cache,
		metrics:   params.Metrics,
		validator: validate,
		logger:    logger,
		defaults:  defaults,
	}
}

// List returns paginated subjects of a career.
func (s *SubjectService) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, *models.Pagination, error) {
	if strings.TrimSpace(filter.CareerID) == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "careerId is required")
	}
	subjects, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list subjects")
	}
	if subjects == nil {
		subjects = []models.Subject{}
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return subjects, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns subject by identifier.
func (s *SubjectService) Get(ctx context.Context, id string) (*models.Subject, error) {
	subject, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "subject not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}
	return subject, nil
}

// Create adds a subject to a career after checking code uniqueness and slot alignment.
func (s *SubjectService) Create(ctx context.Context, careerID string, req dto.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	slots, err := s.careerSlots(ctx, careerID)
	if err != nil {
		return nil, err
	}
	if err := ValidateSubjectGroups(req.Groups, slots); err != nil {
		return nil, err
	}

	code := normalizeCode(req.Code)
	if err := s.ensureUniqueCode(ctx, careerID, code, ""); err != nil {
		return nil, err
	}

	subject := &models.Subject{
		CareerID:   careerID,
		Code:       code,
		Name:       strings.TrimSpace(req.Name),
		Instructor: strings.TrimSpace(req.Instructor),
		Groups:     models.Groups(req.Groups),
	}
	if err := s.repo.Create(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create subject")
	}

	s.afterMutation(ctx, "create", subject.ID)
	return subject, nil
}

// Update replaces the editable fields and groups of a subject.
func (s *SubjectService) Update(ctx context.Context, id string, req dto.SubjectRequest) (*models.Subject, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, err := s.careerSlots(ctx, subject.CareerID)
	if err != nil {
		return nil, err
	}
	if err := ValidateSubjectGroups(req.Groups, slots); err != nil {
		return nil, err
	}

	code := normalizeCode(req.Code)
	if err := s.ensureUniqueCode(ctx, subject.CareerID, code, id); err != nil {
		return nil, err
	}

	subject.Code = code
	subject.Name = strings.TrimSpace(req.Name)
	subject.Instructor = strings.TrimSpace(req.Instructor)
	subject.Groups = models.Groups(req.Groups)
	if err := s.repo.Update(ctx, subject); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update subject")
	}

	s.afterMutation(ctx, "update", subject.ID)
	return subject, nil
}

// Delete removes a subject. Student selections that still reference it simply stop
// producing entries for it.
func (s *SubjectService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete subject")
	}
	s.afterMutation(ctx, "delete", id)
	return nil
}

// Preview lays out every group of an unsaved subject and reports the overlaps between
// them, so an editor can spot a group scheduled on top of another.
func (s *SubjectService) Preview(careerID string, req dto.SubjectRequest) (*dto.EvaluateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subject payload")
	}
	subject := models.Subject{
		CareerID: careerID,
		Code:     normalizeCode(req.Code),
		Name:     req.Name,
		Groups:   models.Groups(req.Groups),
	}

	start := time.Now()
	entries := PreviewEntries(subject)
	conflicts := DetectConflicts(entries)
	s.metrics.ObserveCompute("preview", time.Since(start))
	s.metrics.ObserveConflicts(len(conflicts))

	return &dto.EvaluateResponse{Entries: entries, Conflicts: conflicts}, nil
}

// ValidateSubjectGroups checks group types, unique (type, number) pairs, weekdays and
// that every occurrence sits exactly on one of the generated slots.
func ValidateSubjectGroups(groups []models.Group, slots []models.TimeSlot) error {
	type groupKey struct {
		groupType models.GroupType
		number    int
	}
	seen := make(map[groupKey]struct{}, len(groups))

	for _, group := range groups {
		if !group.Type.Valid() {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown group type %q", group.Type))
		}
		if group.Number < 1 {
			return appErrors.Clone(appErrors.ErrValidation, "group number must be at least 1")
		}
		key := groupKey{group.Type, group.Number}
		if _, dup := seen[key]; dup {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("duplicate group %s%d", group.Type, group.Number))
		}
		seen[key] = struct{}{}

		for _, occ := range group.Occurrences {
			if !occ.Day.Valid() {
				return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", occ.Day))
			}
			if !IsAlignedSlot(occ.Start, occ.End, slots) {
				return appErrors.Clone(appErrors.ErrValidation,
					fmt.Sprintf("%s%d on %s %s-%s does not match a time slot", group.Type, group.Number, occ.Day, occ.Start, occ.End))
			}
		}
	}
	return nil
}

func (s *SubjectService) careerSlots(ctx context.Context, careerID string) ([]models.TimeSlot, error) {
	if strings.TrimSpace(careerID) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "careerId is required")
	}
	career, err := s.careers.FindByID(ctx, careerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "career not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load career")
	}
	cfg, _ := ResolveTimeConfig(s.defaults, career, nil)
	return GenerateSlots(cfg)
}

func (s *SubjectService) ensureUniqueCode(ctx context.Context, careerID, code, excludeID string) error {
	exists, err := s.repo.ExistsByCode(ctx, careerID, code, excludeID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check subject code")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrConflict, "subject code already exists")
	}
	return nil
}

func (s *SubjectService) afterMutation(ctx context.Context, action, subjectID string) {
	s.metrics.IncSubjectMutation(action)
	// Cache errors are already logged by the cache service.
	_ = s.cache.InvalidateViews(ctx)
	s.logger.Info("subject catalog changed", zap.String("action", action), zap.String("subject_id", subjectID))
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

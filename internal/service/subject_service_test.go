package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/horario-api/internal/dto"
	"github.com/noah-isme/horario-api/internal/models"
	appErrors "github.com/noah-isme/horario-api/pkg/errors"
)

type subjectRepoStub struct {
	subjects   map[string]*models.Subject
	exists     bool
	lastFilter models.SubjectFilter
	existsArgs []string
	created    []*models.Subject
	updated    []*models.Subject
	deleted    []string
}

func (s *subjectRepoStub) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, int, error) {
	s.lastFilter = filter
	out := []models.Subject{}
	for _, subject := range s.subjects {
		if subject.CareerID == filter.CareerID {
			out = append(out, *subject)
		}
	}
	return out, len(out), nil
}

func (s *subjectRepoStub) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if subject, ok := s.subjects[id]; ok {
		clone := *subject
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (s *subjectRepoStub) ExistsByCode(ctx context.Context, careerID, code, excludeID string) (bool, error) {
	s.existsArgs = []string{careerID, code, excludeID}
	return s.exists, nil
}

func (s *subjectRepoStub) Create(ctx context.Context, subject *models.Subject) error {
	subject.ID = "new-subject"
	s.created = append(s.created, subject)
	return nil
}

func (s *subjectRepoStub) Update(ctx context.Context, subject *models.Subject) error {
	s.updated = append(s.updated, subject)
	return nil
}

func (s *subjectRepoStub) Delete(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type careerRepoStub struct {
	careers map[string]*models.Career
	err     error
}

func (s careerRepoStub) FindByID(ctx context.Context, id string) (*models.Career, error) {
	if s.err != nil {
		return nil, s.err
	}
	if career, ok := s.careers[id]; ok {
		return career, nil
	}
	return nil, sql.ErrNoRows
}

// Engineering runs 90 minute blocks from 07:00 with 10 minute breaks.
func engineeringCareers() careerRepoStub {
	return careerRepoStub{careers: map[string]*models.Career{
		"eng": {ID: "eng", Name: "Engineering", FirstStart: "07:00", DurationMin: 90, BreakMin: 10},
		"law": {ID: "law", Name: "Law"},
	}}
}

func newSubjectServiceUnderTest(repo *subjectRepoStub, cache *CacheService) *SubjectService {
	return NewSubjectService(SubjectServiceParams{
		Repo:    repo,
		Careers: engineeringCareers(),
		Cache:   cache,
	})
}

func TestSubjectServiceCreate(t *testing.T) {
	repo := &subjectRepoStub{}
	cacheRepo := newCacheRepoStub()
	cacheRepo.store["timetable:view:stu-1"] = []byte(`{}`)
	svc := newSubjectServiceUnderTest(repo, NewCacheService(cacheRepo, nil, 0, nil, true))

	subject, err := svc.Create(context.Background(), "eng", dto.SubjectRequest{
		Code: " mat115 ",
		Name: "Calculus I",
		Groups: []models.Group{
			grp(models.GroupTypeLecture, 1, "B-11", occ(models.WeekdayMonday, "07:00", "08:30")),
			grp(models.GroupTypeLab, 1, "LAB", occ(models.WeekdayFriday, "08:40", "10:10")),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "new-subject", subject.ID)
	assert.Equal(t, "MAT115", subject.Code)
	assert.Equal(t, "eng", subject.CareerID)
	require.Len(t, repo.created, 1)
	assert.Equal(t, []string{"eng", "MAT115", ""}, repo.existsArgs)
	assert.Empty(t, cacheRepo.store, "catalog changes drop cached views")
}

func TestSubjectServiceCreateRejectsMisalignedGroup(t *testing.T) {
	repo := &subjectRepoStub{}
	svc := newSubjectServiceUnderTest(repo, nil)

	_, err := svc.Create(context.Background(), "eng", dto.SubjectRequest{
		Code:   "MAT115",
		Name:   "Calculus I",
		Groups: []models.Group{grp(models.GroupTypeLecture, 1, "", occ(models.WeekdayMonday, "06:20", "08:00"))},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.created)
}

func TestSubjectServiceCreateFallsBackToDefaultsForCareerWithoutConfig(t *testing.T) {
	repo := &subjectRepoStub{}
	svc := newSubjectServiceUnderTest(repo, nil)

	_, err := svc.Create(context.Background(), "law", dto.SubjectRequest{
		Code:   "LAW101",
		Name:   "Roman Law",
		Groups: []models.Group{grp(models.GroupTypeLecture, 1, "", occ(models.WeekdayMonday, "06:20", "08:00"))},
	})
	require.NoError(t, err)
}

func TestSubjectServiceCreateErrors(t *testing.T) {
	aligned := []models.Group{grp(models.GroupTypeLecture, 1, "", occ(models.WeekdayMonday, "07:00", "08:30"))}

	cases := []struct {
		name     string
		career   string
		exists   bool
		req      dto.SubjectRequest
		wantCode string
	}{
		{name: "missing name", career: "eng", req: dto.SubjectRequest{Code: "X1"}, wantCode: appErrors.ErrValidation.Code},
		{name: "unknown career", career: "med", req: dto.SubjectRequest{Code: "X1", Name: "X", Groups: aligned}, wantCode: appErrors.ErrNotFound.Code},
		{name: "duplicate code", career: "eng", exists: true, req: dto.SubjectRequest{Code: "X1", Name: "X", Groups: aligned}, wantCode: appErrors.ErrConflict.Code},
		{
			name:   "duplicate group",
			career: "eng",
			req: dto.SubjectRequest{Code: "X1", Name: "X", Groups: []models.Group{
				grp(models.GroupTypeLecture, 1, "", occ(models.WeekdayMonday, "07:00", "08:30")),
				grp(models.GroupTypeLecture, 1, "", occ(models.WeekdayTuesday, "07:00", "08:30")),
			}},
			wantCode: appErrors.ErrValidation.Code,
		},
		{
			name:     "unknown group type",
			career:   "eng",
			req:      dto.SubjectRequest{Code: "X1", Name: "X", Groups: []models.Group{grp("GX", 1, "", occ(models.WeekdayMonday, "07:00", "08:30"))}},
			wantCode: appErrors.ErrValidation.Code,
		},
		{
			name:     "sunday",
			career:   "eng",
			req:      dto.SubjectRequest{Code: "X1", Name: "X", Groups: []models.Group{grp(models.GroupTypeLecture, 1, "", occ("SUNDAY", "07:00", "08:30"))}},
			wantCode: appErrors.ErrValidation.Code,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &subjectRepoStub{exists: tc.exists}
			svc := newSubjectServiceUnderTest(repo, nil)
			_, err := svc.Create(context.Background(), tc.career, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.wantCode, appErrors.FromError(err).Code)
			assert.Empty(t, repo.created)
		})
	}
}

func TestSubjectServiceUpdate(t *testing.T) {
	repo := &subjectRepoStub{subjects: map[string]*models.Subject{
		"s1": {ID: "s1", CareerID: "eng", Code: "MAT115", Name: "Calculus"},
	}}
	svc := newSubjectServiceUnderTest(repo, nil)

	subject, err := svc.Update(context.Background(), "s1", dto.SubjectRequest{
		Code:   "mat116",
		Name:   "Calculus II",
		Groups: []models.Group{grp(models.GroupTypeLecture, 2, "", occ(models.WeekdayTuesday, "08:40", "10:10"))},
	})
	require.NoError(t, err)
	assert.Equal(t, "MAT116", subject.Code)
	assert.Equal(t, []string{"eng", "MAT116", "s1"}, repo.existsArgs)
	require.Len(t, repo.updated, 1)

	_, err = svc.Update(context.Background(), "missing", dto.SubjectRequest{Code: "A", Name: "B"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceDelete(t *testing.T) {
	repo := &subjectRepoStub{subjects: map[string]*models.Subject{"s1": {ID: "s1", CareerID: "eng"}}}
	cacheRepo := newCacheRepoStub()
	svc := newSubjectServiceUnderTest(repo, NewCacheService(cacheRepo, nil, 0, nil, true))

	require.NoError(t, svc.Delete(context.Background(), "s1"))
	assert.Equal(t, []string{"s1"}, repo.deleted)
	assert.Equal(t, []string{"timetable:view:*"}, cacheRepo.patterns)

	err := svc.Delete(context.Background(), "missing")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSubjectServiceList(t *testing.T) {
	repo := &subjectRepoStub{subjects: map[string]*models.Subject{"s1": {ID: "s1", CareerID: "eng"}}}
	svc := newSubjectServiceUnderTest(repo, nil)

	subjects, pagination, err := svc.List(context.Background(), models.SubjectFilter{CareerID: "eng", PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, subjects, 1)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = svc.List(context.Background(), models.SubjectFilter{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSubjectServicePreview(t *testing.T) {
	svc := newSubjectServiceUnderTest(&subjectRepoStub{}, nil)

	result, err := svc.Preview("eng", dto.SubjectRequest{
		Code: "mat115",
		Name: "Calculus I",
		Groups: []models.Group{
			grp(models.GroupTypeLecture, 1, "", occ(models.WeekdayMonday, "07:00", "08:30")),
			grp(models.GroupTypeLab, 1, "", occ(models.WeekdayMonday, "07:00", "08:30")),
			grp(models.GroupTypeLab, 2, "", occ(models.WeekdayTuesday, "07:00", "08:30")),
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Entries, 3)
	assert.Equal(t, "MAT115", result.Entries[0].Code)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.WeekdayMonday, result.Conflicts[0].Day)
	assert.Len(t, result.Conflicts[0].Entries, 2)
}

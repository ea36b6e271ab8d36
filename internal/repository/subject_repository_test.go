package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/horario-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "postgres"), mock, func() { db.Close() }
}

var subjectRowColumns = []string{"id", "career_id", "code", "name", "instructor", "groups", "created_at", "updated_at"}

const calcGroupsJSON = `[{"type":"GT","number":1,"room":"A1","occurrences":[{"day":"MONDAY","start":"06:20","end":"08:00"}]}]`

func TestSubjectRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(subjectRowColumns).
		AddRow("s1", "eng", "CALC", "Calculus", "Dr. A", []byte(calcGroupsJSON), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, career_id, code, name, instructor, groups, created_at, updated_at FROM subjects WHERE career_id = $1 AND (LOWER(code) LIKE $2 OR LOWER(name) LIKE $2) ORDER BY code ASC LIMIT 20 OFFSET 0")).
		WithArgs("eng", "%calc%").
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM subjects WHERE career_id = $1 AND (LOWER(code) LIKE $2 OR LOWER(name) LIKE $2)")).
		WithArgs("eng", "%calc%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := repo.List(context.Background(), models.SubjectFilter{CareerID: "eng", Search: "Calc"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, total)
	require.Len(t, list[0].Groups, 1)
	assert.Equal(t, models.GroupTypeLecture, list[0].Groups[0].Type)
	assert.Equal(t, models.WeekdayMonday, list[0].Groups[0].Occurrences[0].Day)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryListByCareer(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE career_id = $1 ORDER BY code ASC")).
		WithArgs("eng").
		WillReturnRows(sqlmock.NewRows(subjectRowColumns).
			AddRow("s1", "eng", "CALC", "Calculus", "", []byte(calcGroupsJSON), now, now).
			AddRow("s2", "eng", "PHYS", "Physics", "", nil, now, now))

	subjects, err := repo.ListByCareer(context.Background(), "eng")
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Empty(t, subjects[1].Groups)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM subjects WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryExistsByCode(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM subjects WHERE career_id = $1 AND LOWER(code) = LOWER($2) AND id <> $3 LIMIT 1")).
		WithArgs("eng", "CALC", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}))

	exists, err := repo.ExistsByCode(context.Background(), "eng", "CALC", "s1")
	require.NoError(t, err)
	assert.False(t, exists)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM subjects WHERE career_id = $1 AND LOWER(code) = LOWER($2) LIMIT 1")).
		WithArgs("eng", "CALC").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))

	exists, err = repo.ExistsByCode(context.Background(), "eng", "CALC", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubjectRepositoryCreateUpdateDelete(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewSubjectRepository(db)

	subject := &models.Subject{
		CareerID: "eng",
		Code:     "CALC",
		Name:     "Calculus",
		Groups: models.Groups{{
			Type:        models.GroupTypeLecture,
			Number:      1,
			Occurrences: []models.Occurrence{{Day: models.WeekdayMonday, Start: "06:20", End: "08:00"}},
		}},
	}

	mock.ExpectExec("INSERT INTO subjects").
		WithArgs(sqlmock.AnyArg(), "eng", "CALC", "Calculus", "", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.Create(context.Background(), subject))
	assert.NotEmpty(t, subject.ID)
	assert.False(t, subject.CreatedAt.IsZero())

	mock.ExpectExec("UPDATE subjects SET").
		WithArgs("CALC", "Calculus I", "", sqlmock.AnyArg(), sqlmock.AnyArg(), subject.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	subject.Name = "Calculus I"
	require.NoError(t, repo.Update(context.Background(), subject))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM subjects WHERE id = $1")).
		WithArgs(subject.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), subject.ID))

	assert.NoError(t, mock.ExpectationsWereMet())
}

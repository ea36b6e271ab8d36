package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/horario-api/internal/models"
)

func TestTimetableRepositoryGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "career_id", "subject_ids", "group_selection", "config_override", "version", "updated_at"}).
		AddRow("stu-1", "eng", []byte("{s1,s2}"), []byte(`{"s1":{"GT":2,"GL":1}}`), []byte(`{"duration_min":90}`), int64(3), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_timetables WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	timetable, err := repo.Get(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, timetable.SubjectIDs)
	assert.Equal(t, int64(3), timetable.Version)

	gt, ok := timetable.GroupSelection["s1"].Number(models.GroupTypeLecture)
	require.True(t, ok)
	assert.Equal(t, 2, gt)
	_, ok = timetable.GroupSelection["s1"].Number(models.GroupTypeDiscussion)
	assert.False(t, ok)

	require.NotNil(t, timetable.ConfigOverride)
	require.NotNil(t, timetable.ConfigOverride.DurationMin)
	assert.Equal(t, 90, *timetable.ConfigOverride.DurationMin)
	assert.Nil(t, timetable.ConfigOverride.FirstStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryGetEmptyColumns(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "career_id", "subject_ids", "group_selection", "config_override", "version", "updated_at"}).
		AddRow("stu-1", "eng", []byte("{}"), nil, nil, int64(1), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM student_timetables WHERE student_id = $1")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	timetable, err := repo.Get(context.Background(), "stu-1")
	require.NoError(t, err)
	assert.NotNil(t, timetable.SubjectIDs)
	assert.Empty(t, timetable.SubjectIDs)
	assert.NotNil(t, timetable.GroupSelection)
	assert.Nil(t, timetable.ConfigOverride)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM student_timetables WHERE student_id = $1")).
		WithArgs("stu-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "stu-2")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpsert(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	gt := 1
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student_timetables")).
		WithArgs("stu-1", "eng", "{\"s1\"}", sqlmock.AnyArg(), nil, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(4)))

	timetable := &models.StudentTimetable{
		StudentID:      "stu-1",
		CareerID:       "eng",
		SubjectIDs:     []string{"s1"},
		GroupSelection: models.GroupSelection{"s1": {GT: &gt}},
		Version:        3,
	}
	require.NoError(t, repo.Upsert(context.Background(), timetable))
	assert.False(t, timetable.UpdatedAt.IsZero())
	assert.Equal(t, int64(4), timetable.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpsertError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO student_timetables")).
		WillReturnError(sql.ErrConnDone)

	timetable := &models.StudentTimetable{StudentID: "stu-1", CareerID: "eng", Version: 2}
	err := repo.Upsert(context.Background(), timetable)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, int64(2), timetable.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/horario-api/internal/models"
)

// TimetableRepository persists the per-student subject and group selection.
type TimetableRepository struct {
	db *sqlx.DB
}

// NewTimetableRepository builds repository.
func NewTimetableRepository(db *sqlx.DB) *TimetableRepository {
	return &TimetableRepository{db: db}
}

type studentTimetableRow struct {
	StudentID      string                     `db:"student_id"`
	CareerID       string                     `db:"career_id"`
	SubjectIDs     pq.StringArray             `db:"subject_ids"`
	GroupSelection models.GroupSelection      `db:"group_selection"`
	ConfigOverride *models.TimeConfigOverride `db:"config_override"`
	Version        int64                      `db:"version"`
	UpdatedAt      time.Time                  `db:"updated_at"`
}

// Get returns the stored timetable of a student or sql.ErrNoRows.
func (r *TimetableRepository) Get(ctx context.Context, studentID string) (*models.StudentTimetable, error) {
	const query = `SELECT student_id, career_id, subject_ids, group_selection, config_override, version, updated_at FROM student_timetables WHERE student_id = $1`
	var row studentTimetableRow
	if err := r.db.GetContext(ctx, &row, query, studentID); err != nil {
		return nil, err
	}
	subjectIDs := []string(row.SubjectIDs)
	if subjectIDs == nil {
		subjectIDs = []string{}
	}
	selection := row.GroupSelection
	if selection == nil {
		selection = models.GroupSelection{}
	}
	return &models.StudentTimetable{
		StudentID:      row.StudentID,
		CareerID:       row.CareerID,
		SubjectIDs:     subjectIDs,
		GroupSelection: selection,
		ConfigOverride: row.ConfigOverride,
		Version:        row.Version,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// Upsert replaces the whole timetable row of a student and stores the new version on it.
func (r *TimetableRepository) Upsert(ctx context.Context, timetable *models.StudentTimetable) error {
	timetable.UpdatedAt = time.Now().UTC()
	row := studentTimetableRow{
		StudentID:      timetable.StudentID,
		CareerID:       timetable.CareerID,
		SubjectIDs:     pq.StringArray(timetable.SubjectIDs),
		GroupSelection: timetable.GroupSelection,
		ConfigOverride: timetable.ConfigOverride,
		UpdatedAt:      timetable.UpdatedAt,
	}
	if row.SubjectIDs == nil {
		row.SubjectIDs = pq.StringArray{}
	}

	const query = `INSERT INTO student_timetables (student_id, career_id, subject_ids, group_selection, config_override, version, updated_at)
VALUES (:student_id, :career_id, :subject_ids, :group_selection, :config_override, 1, :updated_at)
ON CONFLICT (student_id)
DO UPDATE SET career_id = EXCLUDED.career_id, subject_ids = EXCLUDED.subject_ids, group_selection = EXCLUDED.group_selection,
              config_override = EXCLUDED.config_override, version = student_timetables.version + 1, updated_at = EXCLUDED.updated_at
RETURNING version`
	bound, args, err := r.db.BindNamed(query, row)
	if err != nil {
		return fmt.Errorf("bind student timetable: %w", err)
	}
	if err := r.db.QueryRowxContext(ctx, bound, args...).Scan(&timetable.Version); err != nil {
		return fmt.Errorf("upsert student timetable: %w", err)
	}
	return nil
}

package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/horario-api/internal/models"
)

// CareerRepository reads careers and their time configuration.
type CareerRepository struct {
	db *sqlx.DB
}

// NewCareerRepository creates a new repository instance.
func NewCareerRepository(db *sqlx.DB) *CareerRepository {
	return &CareerRepository{db: db}
}

// FindByID returns a career by id.
func (r *CareerRepository) FindByID(ctx context.Context, id string) (*models.Career, error) {
	const query = `SELECT id, name, first_start, duration_min, break_min FROM careers WHERE id = $1`
	var career models.Career
	if err := r.db.GetContext(ctx, &career, query, id); err != nil {
		return nil, err
	}
	return &career, nil
}

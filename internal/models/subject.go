package models

import "time"

// Subject represents a course offered by a career together with its groups.
type Subject struct {
	ID         string    `db:"id" json:"id"`
	CareerID   string    `db:"career_id" json:"career_id"`
	Code       string    `db:"code" json:"code"`
	Name       string    `db:"name" json:"name"`
	Instructor string    `db:"instructor" json:"instructor"`
	Groups     Groups    `db:"groups" json:"groups"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectFilter captures supported filters for listing subjects.
type SubjectFilter struct {
	CareerID string
	Search   string
	Page     int
	PageSize int
}

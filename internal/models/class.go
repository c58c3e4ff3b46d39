package models

import "time"

// Class represents a course instance that owns a schedule and a roster.
type Class struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description"`
	InstructorID   *string   `db:"instructor_id" json:"instructor_id,omitempty"`
	OrganizationID *string   `db:"organization_id" json:"organization_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

package dto

import "github.com/noah-isme/lms-class-api/internal/models"

// Ingestion modes.
const (
	IngestModeAtomic         = "atomic"
	IngestModePartialOnError = "partial_on_error"
)

// SessionInput is one session row submitted for ingestion. Timestamps are RFC 3339.
type SessionInput struct {
	Title           string  `json:"title" validate:"required,max=200"`
	StartTime       string  `json:"start_time" validate:"required"`
	EndTime         string  `json:"end_time" validate:"required"`
	DurationMinutes int     `json:"duration_minutes" validate:"omitempty,min=1"`
	LocationType    string  `json:"location_type" validate:"omitempty,oneof=ONLINE PHYSICAL"`
	Location        *string `json:"location" validate:"omitempty,max=255"`
	Status          string  `json:"status" validate:"omitempty,oneof=SCHEDULED CANCELLED"`
}

// CreateSessionsRequest is the payload of POST /classes/:id/sessions.
type CreateSessionsRequest struct {
	Mode     string         `json:"mode" validate:"omitempty,oneof=atomic partial_on_error"`
	Sessions []SessionInput `json:"sessions" validate:"required,min=1,max=500"`
}

// RecurringSessionsRequest is the payload of POST /classes/:id/sessions/recurring.
type RecurringSessionsRequest struct {
	Title           string   `json:"title" validate:"required,max=200"`
	RRule           string   `json:"rrule" validate:"required"`
	FirstStart      string   `json:"first_start" validate:"required"`
	DurationMinutes int      `json:"duration_minutes" validate:"required,min=1,max=1440"`
	LocationType    string   `json:"location_type" validate:"omitempty,oneof=ONLINE PHYSICAL"`
	Location        *string  `json:"location" validate:"omitempty,max=255"`
	ExDates         []string `json:"exdates"`
}

// RejectedSession explains why an input row was not stored.
type RejectedSession struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// IngestResult reports stored and rejected rows.
type IngestResult struct {
	Created   []models.ScheduleSession `json:"created"`
	Rejected  []RejectedSession        `json:"rejected"`
	Truncated bool                     `json:"truncated,omitempty"`
}

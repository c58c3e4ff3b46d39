package dto

import (
	"time"

	"github.com/noah-isme/lms-class-api/internal/models"
)

// MarkAttendanceRequest is the payload of PATCH /enrollments/:id/attendance.
type MarkAttendanceRequest struct {
	Attended *bool `json:"attended" validate:"required"`
}

// AttendanceMarkResult echoes the enrollment after a successful mark.
type AttendanceMarkResult struct {
	Enrollment models.Enrollment `json:"enrollment"`
	Session    SessionView       `json:"session"`
}

// FeedLink is a signed subscription URL for the schedule feed.
type FeedLink struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

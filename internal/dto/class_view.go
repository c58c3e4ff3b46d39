package dto

import (
	"time"

	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/roster"
)

// SessionView is a schedule session annotated with its lifecycle state.
type SessionView struct {
	ID              string                       `json:"id"`
	Title           string                       `json:"title"`
	StartTime       time.Time                    `json:"start_time"`
	EndTime         time.Time                    `json:"end_time"`
	DurationMinutes int                          `json:"duration_minutes"`
	LocationType    models.LocationType          `json:"location_type"`
	Location        *string                      `json:"location,omitempty"`
	Status          models.SessionStatus         `json:"status"`
	State           models.SessionLifecycleState `json:"state"`
}

// NewSessionView copies the displayable fields of a session.
func NewSessionView(s models.ScheduleSession, state models.SessionLifecycleState) SessionView {
	return SessionView{
		ID:              s.ID,
		Title:           s.Title,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		DurationMinutes: s.DurationMinutes,
		LocationType:    s.LocationType,
		Location:        s.Location,
		Status:          s.Status,
		State:           state,
	}
}

// CalendarDay is one cell of the month grid.
type CalendarDay struct {
	Date     string        `json:"date"`
	InMonth  bool          `json:"in_month"`
	IsToday  bool          `json:"is_today"`
	Sessions []SessionView `json:"sessions"`
}

// CalendarView is the month calendar of a class.
type CalendarView struct {
	ClassID    string                 `json:"class_id"`
	Month      string                 `json:"month"`
	Timezone   string                 `json:"timezone"`
	Window     models.CalendarWindow  `json:"window"`
	Navigation models.NavigationState `json:"navigation"`
	PrevMonth  *string                `json:"prev_month,omitempty"`
	NextMonth  *string                `json:"next_month,omitempty"`
	Days       []CalendarDay          `json:"days"`
}

// RosterView aggregates rosters, student summaries and progress for a class.
type RosterView struct {
	ClassID  string                     `json:"class_id"`
	Sessions []roster.SessionRoster     `json:"sessions"`
	Students []models.AttendanceSummary `json:"students"`
	Progress models.ClassProgress       `json:"progress"`
}

// InviteSummary is the public landing information of a class.
type InviteSummary struct {
	ClassID          string                `json:"class_id"`
	Name             string                `json:"name"`
	Description      string                `json:"description"`
	EnrolledStudents int                   `json:"enrolled_students"`
	TotalSessions    int                   `json:"total_sessions"`
	Window           models.CalendarWindow `json:"window"`
	Progress         models.ClassProgress  `json:"progress"`
	NextSession      *SessionView          `json:"next_session,omitempty"`
}

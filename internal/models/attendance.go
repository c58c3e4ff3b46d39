package models

// SessionLifecycleState classifies a session relative to the current moment.
type SessionLifecycleState string

const (
	SessionCompleted SessionLifecycleState = "COMPLETED"
	SessionActive    SessionLifecycleState = "ACTIVE"
	SessionUpcoming  SessionLifecycleState = "UPCOMING"
)

// AttendanceSummary aggregates a student's attendance across a class schedule.
type AttendanceSummary struct {
	StudentID      string  `json:"student_id"`
	StudentName    string  `json:"student_name,omitempty"`
	TotalSessions  int     `json:"total_sessions"`
	MarkedSessions int     `json:"marked_sessions"`
	PresentCount   int     `json:"present_count"`
	Percentage     float64 `json:"percentage"`
}

// ClassProgress reports how many of a class's sessions are completed.
type ClassProgress struct {
	Completed  int     `json:"completed"`
	Total      int     `json:"total"`
	Percentage float64 `json:"percentage"`
}

package models

import "time"

// Enrollment is a student's registration against one scheduled session of a class.
type Enrollment struct {
	ID                  string    `db:"id" json:"id"`
	StudentID           string    `db:"student_id" json:"student_id"`
	StudentName         string    `db:"student_name" json:"student_name,omitempty"`
	ClassID             string    `db:"class_id" json:"class_id"`
	ScheduledInstanceID string    `db:"scheduled_instance_id" json:"scheduled_instance_id"`
	DidAttend           *bool     `db:"did_attend" json:"did_attend"`
	IsAttendanceMarked  bool      `db:"is_attendance_marked" json:"is_attendance_marked"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Consistent reports whether a marked enrollment carries an attendance value.
func (e Enrollment) Consistent() bool {
	return !e.IsAttendanceMarked || e.DidAttend != nil
}

// Attended is true only when attendance was recorded as present.
func (e Enrollment) Attended() bool {
	return e.DidAttend != nil && *e.DidAttend
}

package models

import (
	"fmt"
	"time"
)

// LocationType describes where a session takes place.
type LocationType string

const (
	LocationOnline   LocationType = "ONLINE"
	LocationPhysical LocationType = "PHYSICAL"
)

// Valid returns true when the location type is supported.
func (l LocationType) Valid() bool {
	return l == LocationOnline || l == LocationPhysical
}

// SessionStatus is the scheduling status of a session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "SCHEDULED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// Valid returns true when the status is supported.
func (s SessionStatus) Valid() bool {
	return s == SessionScheduled || s == SessionCancelled
}

// ScheduleSession is one timestamped occurrence of a class meeting.
type ScheduleSession struct {
	ID              string        `db:"id" json:"id"`
	ClassID         string        `db:"class_id" json:"class_id"`
	Title           string        `db:"title" json:"title"`
	StartTime       time.Time     `db:"start_time" json:"start_time"`
	EndTime         time.Time     `db:"end_time" json:"end_time"`
	DurationMinutes int           `db:"duration_minutes" json:"duration_minutes"`
	LocationType    LocationType  `db:"location_type" json:"location_type"`
	Location        *string       `db:"location" json:"location,omitempty"`
	Status          SessionStatus `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at" json:"updated_at"`
}

// Validate checks the timestamp and enum invariants of a session.
// A zero DurationMinutes is accepted and filled in by Normalize.
func (s ScheduleSession) Validate() error {
	if s.StartTime.IsZero() {
		return fmt.Errorf("session %q: start_time missing or unparsable", s.ID)
	}
	if s.EndTime.IsZero() {
		return fmt.Errorf("session %q: end_time missing or unparsable", s.ID)
	}
	if !s.StartTime.Before(s.EndTime) {
		return fmt.Errorf("session %q: start_time must be before end_time", s.ID)
	}
	if s.DurationMinutes != 0 && s.DurationMinutes != s.computedDuration() {
		return fmt.Errorf("session %q: duration_minutes %d does not match %d", s.ID, s.DurationMinutes, s.computedDuration())
	}
	if s.LocationType != "" && !s.LocationType.Valid() {
		return fmt.Errorf("session %q: unknown location_type %q", s.ID, s.LocationType)
	}
	if s.Status != "" && !s.Status.Valid() {
		return fmt.Errorf("session %q: unknown status %q", s.ID, s.Status)
	}
	return nil
}

// Normalize fills derived and defaulted fields.
func (s *ScheduleSession) Normalize() {
	if s.DurationMinutes == 0 && !s.StartTime.IsZero() && !s.EndTime.IsZero() {
		s.DurationMinutes = s.computedDuration()
	}
	if s.LocationType == "" {
		s.LocationType = LocationOnline
	}
	if s.Status == "" {
		s.Status = SessionScheduled
	}
}

func (s ScheduleSession) computedDuration() int {
	return int(s.EndTime.Sub(s.StartTime) / time.Minute)
}

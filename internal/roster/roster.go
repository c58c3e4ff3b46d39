// Package roster aggregates enrollments and sessions into per-session rosters,
// per-student attendance summaries and class progress.
package roster

import (
	"time"

	"github.com/noah-isme/lms-class-api/internal/calendar"
	"github.com/noah-isme/lms-class-api/internal/models"
)

// SessionRoster is the roster view of a single scheduled session.
type SessionRoster struct {
	Session      models.ScheduleSession       `json:"session"`
	State        models.SessionLifecycleState `json:"state"`
	Eligible     bool                         `json:"eligible_for_marking"`
	Enrollments  []models.Enrollment          `json:"enrollments"`
	MarkedCount  int                          `json:"marked_count"`
	PresentCount int                          `json:"present_count"`
}

// GroupBySession groups enrollments by scheduled instance. Duplicates are kept.
func GroupBySession(enrollments []models.Enrollment) map[string][]models.Enrollment {
	grouped := make(map[string][]models.Enrollment)
	for _, e := range enrollments {
		grouped[e.ScheduledInstanceID] = append(grouped[e.ScheduledInstanceID], e)
	}
	return grouped
}

// GroupByStudent groups enrollments by student. Duplicates are kept.
func GroupByStudent(enrollments []models.Enrollment) map[string][]models.Enrollment {
	grouped := make(map[string][]models.Enrollment)
	for _, e := range enrollments {
		grouped[e.StudentID] = append(grouped[e.StudentID], e)
	}
	return grouped
}

// UniqueByStudent keeps the first enrollment of every student in input order.
func UniqueByStudent(enrollments []models.Enrollment) []models.Enrollment {
	seen := make(map[string]struct{}, len(enrollments))
	unique := make([]models.Enrollment, 0, len(enrollments))
	for _, e := range enrollments {
		if _, ok := seen[e.StudentID]; ok {
			continue
		}
		seen[e.StudentID] = struct{}{}
		unique = append(unique, e)
	}
	return unique
}

// ClassifySession places a session relative to now. Day and week boundaries
// (weeks run Sunday to Saturday) are taken in now's location.
func ClassifySession(session models.ScheduleSession, now time.Time) models.SessionLifecycleState {
	cal := calendar.New(now.Location())
	start := session.StartTime
	if start.Before(cal.StartOfDay(now)) {
		return models.SessionCompleted
	}
	if start.After(cal.EndOfWeek(now)) {
		return models.SessionUpcoming
	}
	return models.SessionActive
}

// EligibleForMarking is true only for sessions that are ACTIVE at now.
func EligibleForMarking(session models.ScheduleSession, now time.Time) bool {
	return ClassifySession(session, now) == models.SessionActive
}

// Partition splits sessions by lifecycle state, preserving input order.
func Partition(sessions []models.ScheduleSession, now time.Time) map[models.SessionLifecycleState][]models.ScheduleSession {
	parts := map[models.SessionLifecycleState][]models.ScheduleSession{
		models.SessionCompleted: {},
		models.SessionActive:    {},
		models.SessionUpcoming:  {},
	}
	for _, s := range sessions {
		state := ClassifySession(s, now)
		parts[state] = append(parts[state], s)
	}
	return parts
}

// StudentAttendance summarises one student's attendance. The denominator is
// every scheduled session of the class, not only the marked ones.
func StudentAttendance(studentID string, sessions []models.ScheduleSession, byStudent map[string][]models.Enrollment) models.AttendanceSummary {
	summary := models.AttendanceSummary{StudentID: studentID, TotalSessions: len(sessions)}
	for _, e := range byStudent[studentID] {
		if summary.StudentName == "" {
			summary.StudentName = e.StudentName
		}
		if e.IsAttendanceMarked {
			summary.MarkedSessions++
		}
		if e.Attended() {
			summary.PresentCount++
		}
	}
	summary.Percentage = percentage(summary.PresentCount, summary.TotalSessions)
	return summary
}

// StudentSummaries returns a summary for every enrolled student, ordered by
// each student's first enrollment.
func StudentSummaries(sessions []models.ScheduleSession, enrollments []models.Enrollment) []models.AttendanceSummary {
	byStudent := GroupByStudent(enrollments)
	unique := UniqueByStudent(enrollments)
	summaries := make([]models.AttendanceSummary, 0, len(unique))
	for _, e := range unique {
		summaries = append(summaries, StudentAttendance(e.StudentID, sessions, byStudent))
	}
	return summaries
}

// ClassProgress counts completed sessions against the full schedule.
func ClassProgress(sessions []models.ScheduleSession, now time.Time) models.ClassProgress {
	progress := models.ClassProgress{Total: len(sessions)}
	for _, s := range sessions {
		if ClassifySession(s, now) == models.SessionCompleted {
			progress.Completed++
		}
	}
	progress.Percentage = percentage(progress.Completed, progress.Total)
	return progress
}

// SessionRosters builds the roster of every session in input order.
func SessionRosters(sessions []models.ScheduleSession, enrollments []models.Enrollment, now time.Time) []SessionRoster {
	bySession := GroupBySession(enrollments)
	rosters := make([]SessionRoster, 0, len(sessions))
	for _, s := range sessions {
		state := ClassifySession(s, now)
		r := SessionRoster{
			Session:     s,
			State:       state,
			Eligible:    state == models.SessionActive,
			Enrollments: bySession[s.ID],
		}
		if r.Enrollments == nil {
			r.Enrollments = []models.Enrollment{}
		}
		for _, e := range r.Enrollments {
			if e.IsAttendanceMarked {
				r.MarkedCount++
			}
			if e.Attended() {
				r.PresentCount++
			}
		}
		rosters = append(rosters, r)
	}
	return rosters
}

// percentage is part/total*100, 0 for an empty total. Duplicate enrollment
// rows can make part exceed total, so the result is capped at 100.
func percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	pct := float64(part) / float64(total) * 100
	if pct > 100 {
		return 100
	}
	return pct
}

// Package calendar derives display windows, day buckets and month grids from
// class schedule sessions. Every function is pure: inputs are never mutated and
// the current time is always passed in explicitly.
package calendar

import (
	"sort"
	"time"

	"github.com/noah-isme/lms-class-api/internal/models"
)

// PadWeeks is the navigational context added before the first and after the
// last session when computing a window.
const PadWeeks = 2

// DayKeyLayout formats bucket keys.
const DayKeyLayout = "2006-01-02"

// Engine performs calendar arithmetic in a fixed display location.
type Engine struct {
	loc *time.Location
}

// New returns an engine for loc. A nil location means time.Local.
func New(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{loc: loc}
}

// Location returns the display location.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Bounds computes the navigable window for a set of sessions. With no usable
// sessions the window is the month containing now.
func (e *Engine) Bounds(sessions []models.ScheduleSession, now time.Time) models.CalendarWindow {
	starts := make([]time.Time, 0, len(sessions))
	for _, s := range sessions {
		if s.StartTime.IsZero() {
			continue
		}
		starts = append(starts, s.StartTime)
	}
	if len(starts) == 0 {
		return models.CalendarWindow{MinMonth: e.StartOfMonth(now), MaxMonth: e.EndOfMonth(now)}
	}
	sort.SliceStable(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	earliest := starts[0].In(e.loc).AddDate(0, 0, -7*PadWeeks)
	latest := starts[len(starts)-1].In(e.loc).AddDate(0, 0, 7*PadWeeks)
	return models.CalendarWindow{MinMonth: e.StartOfMonth(earliest), MaxMonth: e.EndOfMonth(latest)}
}

// BucketByDay indexes sessions by the calendar day of their start time.
// Each bucket keeps input order. Sessions without a start time are left out;
// they are expected to be rejected at ingestion.
func (e *Engine) BucketByDay(sessions []models.ScheduleSession) map[string][]models.ScheduleSession {
	buckets := make(map[string][]models.ScheduleSession)
	for _, s := range sessions {
		if s.StartTime.IsZero() {
			continue
		}
		key := e.DayKey(s.StartTime)
		buckets[key] = append(buckets[key], s)
	}
	return buckets
}

// SortedDayKeys returns bucket keys in chronological order.
func SortedDayKeys(buckets map[string][]models.ScheduleSession) []string {
	keys := make([]string, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GridDays returns the Sunday-first grid for the month containing month,
// padded with neighbouring days to whole weeks.
func (e *Engine) GridDays(month time.Time) []time.Time {
	first := e.StartOfMonth(month)
	last := e.StartOfDay(e.EndOfMonth(month))
	start := e.StartOfWeek(first)
	end := e.StartOfWeek(last).AddDate(0, 0, 6)

	days := make([]time.Time, 0, 42)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Navigate moves one month in direction when the window allows it. When it
// does not, current is returned unchanged with ok=false.
func (e *Engine) Navigate(direction models.NavDirection, current time.Time, window models.CalendarWindow) (time.Time, bool) {
	candidate, ok := e.candidate(direction, current)
	if !ok || !e.within(direction, candidate, window) {
		return current, false
	}
	return candidate, true
}

// Navigation reports which directions Navigate would accept from current.
func (e *Engine) Navigation(current time.Time, window models.CalendarWindow) models.NavigationState {
	_, prev := e.Navigate(models.NavPrev, current, window)
	_, next := e.Navigate(models.NavNext, current, window)
	return models.NavigationState{CanGoPrev: prev, CanGoNext: next}
}

// ClampMonth pins a requested month inside the window.
func (e *Engine) ClampMonth(month time.Time, window models.CalendarWindow) time.Time {
	m := e.StartOfMonth(month)
	if m.Before(window.MinMonth) {
		return e.StartOfMonth(window.MinMonth)
	}
	if m.After(window.MaxMonth) {
		return e.StartOfMonth(window.MaxMonth)
	}
	return m
}

func (e *Engine) candidate(direction models.NavDirection, current time.Time) (time.Time, bool) {
	switch direction {
	case models.NavPrev:
		return e.StartOfMonth(e.StartOfMonth(current).AddDate(0, 0, -1)), true
	case models.NavNext:
		lastDay := e.StartOfDay(e.EndOfMonth(current))
		return e.StartOfMonth(lastDay.AddDate(0, 0, 1)), true
	default:
		return time.Time{}, false
	}
}

func (e *Engine) within(direction models.NavDirection, candidate time.Time, window models.CalendarWindow) bool {
	if direction == models.NavPrev {
		return !candidate.Before(window.MinMonth)
	}
	return !candidate.After(window.MaxMonth)
}

// DayKey formats t as YYYY-MM-DD in the display location.
func (e *Engine) DayKey(t time.Time) string {
	return t.In(e.loc).Format(DayKeyLayout)
}

// ParseDayKey parses a YYYY-MM-DD key in the display location.
func (e *Engine) ParseDayKey(key string) (time.Time, error) {
	return time.ParseInLocation(DayKeyLayout, key, e.loc)
}

// StartOfDay returns midnight of t's day in the engine location.
func (e *Engine) StartOfDay(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.loc)
}

// StartOfWeek returns the Sunday that starts t's week.
func (e *Engine) StartOfWeek(t time.Time) time.Time {
	day := e.StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// EndOfWeek returns the last instant of the Saturday ending t's week.
func (e *Engine) EndOfWeek(t time.Time) time.Time {
	return e.StartOfWeek(t).AddDate(0, 0, 7).Add(-time.Nanosecond)
}

// StartOfMonth returns midnight of the first day of t's month.
func (e *Engine) StartOfMonth(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, e.loc)
}

// EndOfMonth returns the last instant of t's month.
func (e *Engine) EndOfMonth(t time.Time) time.Time {
	return e.StartOfMonth(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

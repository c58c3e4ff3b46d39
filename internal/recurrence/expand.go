// Package recurrence turns a recurring class meeting rule into concrete
// schedule sessions.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/noah-isme/lms-class-api/internal/models"
)

const defaultMaxOccurrences = 500

// Pattern describes a recurring meeting of a class.
type Pattern struct {
	ClassID      string
	Title        string
	RRule        string
	FirstStart   time.Time
	Duration     time.Duration
	LocationType models.LocationType
	Location     *string
	ExDates      []time.Time
}

// Result wraps the expanded sessions. Truncated is set when the rule produced
// more occurrences than the configured cap.
type Result struct {
	Sessions  []models.ScheduleSession
	Truncated bool
}

// Expander expands patterns with an occurrence cap.
type Expander struct {
	maxOccurrences int
}

// NewExpander builds an expander. A non-positive cap falls back to 500.
func NewExpander(maxOccurrences int) *Expander {
	if maxOccurrences <= 0 {
		maxOccurrences = defaultMaxOccurrences
	}
	return &Expander{maxOccurrences: maxOccurrences}
}

// Expand produces one SCHEDULED session per occurrence, in chronological order.
func (e *Expander) Expand(p Pattern) (Result, error) {
	var result Result
	if p.FirstStart.IsZero() {
		return result, errors.New("recurrence: first start is required")
	}
	if p.Duration <= 0 {
		return result, errors.New("recurrence: duration must be positive")
	}

	r, err := rrule.StrToRRule(strings.TrimPrefix(strings.TrimSpace(p.RRule), "RRULE:"))
	if err != nil {
		return result, fmt.Errorf("recurrence: parse rule: %w", err)
	}
	r.DTStart(p.FirstStart)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range p.ExDates {
		set.ExDate(ex.In(p.FirstStart.Location()))
	}

	next := set.Iterator()
	for {
		start, ok := next()
		if !ok {
			break
		}
		if len(result.Sessions) == e.maxOccurrences {
			result.Truncated = true
			break
		}
		session := models.ScheduleSession{
			ClassID:      p.ClassID,
			Title:        p.Title,
			StartTime:    start,
			EndTime:      start.Add(p.Duration),
			LocationType: p.LocationType,
			Location:     p.Location,
			Status:       models.SessionScheduled,
		}
		session.Normalize()
		result.Sessions = append(result.Sessions, session)
	}
	return result, nil
}

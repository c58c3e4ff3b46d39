package models

import "time"

// CalendarWindow is the inclusive month range a calendar view may navigate within.
type CalendarWindow struct {
	MinMonth time.Time `json:"min_month"`
	MaxMonth time.Time `json:"max_month"`
}

// NavDirection selects the month to move to.
type NavDirection string

const (
	NavPrev NavDirection = "prev"
	NavNext NavDirection = "next"
)

// NavigationState tells callers which month controls are enabled.
type NavigationState struct {
	CanGoPrev bool `json:"can_go_prev"`
	CanGoNext bool `json:"can_go_next"`
}

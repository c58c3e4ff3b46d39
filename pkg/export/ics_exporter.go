package export

import (
	"fmt"
	"time"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//lms-class-api//schedule feed//EN"

// CalendarEvent is a single VEVENT in a schedule feed.
type CalendarEvent struct {
	UID         string
	Summary     string
	Description string
	Location    string
	URL         string
	Start       time.Time
	End         time.Time
	Cancelled   bool
	Created     time.Time
	Modified    time.Time
}

// Feed is a named collection of calendar events.
type Feed struct {
	Name     string
	Timezone string
	Events   []CalendarEvent
}

// ICSExporter renders schedule feeds as RFC 5545 iCalendar documents.
type ICSExporter struct {
	now func() time.Time
}

// NewICSExporter constructs an iCalendar exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{now: time.Now}
}

// ContentType reports the MIME type of rendered output.
func (e *ICSExporter) ContentType() string { return "text/calendar; charset=utf-8" }

// Render serialises the feed. Events are written in UTC; cancelled events keep their UID so subscribers drop them.
func (e *ICSExporter) Render(feed Feed) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if feed.Name != "" {
		cal.SetXWRCalName(feed.Name)
	}
	if feed.Timezone != "" {
		cal.SetXWRTimezone(feed.Timezone)
	}

	stamp := e.now().UTC()
	for _, ev := range feed.Events {
		if ev.UID == "" {
			return nil, fmt.Errorf("ics event requires a uid")
		}
		if !ev.End.After(ev.Start) {
			return nil, fmt.Errorf("ics event %s ends before it starts", ev.UID)
		}

		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.Start.UTC())
		vevent.SetEndAt(ev.End.UTC())
		vevent.SetSummary(ev.Summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if ev.URL != "" {
			vevent.SetURL(ev.URL)
		}
		if !ev.Created.IsZero() {
			vevent.SetCreatedTime(ev.Created.UTC())
		}
		if !ev.Modified.IsZero() {
			vevent.SetModifiedAt(ev.Modified.UTC())
		}
		status := "CONFIRMED"
		if ev.Cancelled {
			status = "CANCELLED"
		}
		vevent.SetProperty(ical.ComponentPropertyStatus, status)
	}

	return []byte(cal.Serialize()), nil
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/lms-class-api/internal/calendar"
	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/recurrence"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

func newScheduleServiceFixture(sessions []models.ScheduleSession, cache *CacheService) (*ScheduleService, *fakeSessionRepo) {
	repo := &fakeSessionRepo{sessions: sessions}
	svc := NewScheduleService(newFakeClassRepo(), repo, calendar.New(time.UTC), recurrence.NewExpander(10), cache, nil, nil, nil)
	svc.now = clockAt(fixedNow)
	return svc, repo
}

func findDay(t *testing.T, view *dto.CalendarView, key string) dto.CalendarDay {
	t.Helper()
	for _, d := range view.Days {
		if d.Date == key {
			return d
		}
	}
	t.Fatalf("day %s not in grid", key)
	return dto.CalendarDay{}
}

func TestCalendarViewCurrentMonth(t *testing.T) {
	svc, _ := newScheduleServiceFixture(fixtureSessions(), nil)

	view, hit, err := svc.CalendarView(context.Background(), "class-1", "")
	require.NoError(t, err)
	assert.False(t, hit)

	assert.Equal(t, "2024-03", view.Month)
	assert.Equal(t, "UTC", view.Timezone)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), view.Window.MinMonth)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond), view.Window.MaxMonth)
	assert.Equal(t, models.NavigationState{CanGoPrev: true, CanGoNext: true}, view.Navigation)
	require.NotNil(t, view.PrevMonth)
	require.NotNil(t, view.NextMonth)
	assert.Equal(t, "2024-02", *view.PrevMonth)
	assert.Equal(t, "2024-04", *view.NextMonth)

	require.Len(t, view.Days, 42)
	assert.Equal(t, "2024-02-25", view.Days[0].Date)
	assert.Equal(t, "2024-04-06", view.Days[41].Date)

	inMonth := 0
	for _, d := range view.Days {
		if d.InMonth {
			inMonth++
		}
	}
	assert.Equal(t, 31, inMonth)

	today := findDay(t, view, "2024-03-13")
	assert.True(t, today.IsToday)
	require.Len(t, today.Sessions, 1)
	assert.Equal(t, models.SessionActive, today.Sessions[0].State)

	past := findDay(t, view, "2024-03-05")
	require.Len(t, past.Sessions, 1)
	assert.Equal(t, models.SessionCompleted, past.Sessions[0].State)

	upcoming := findDay(t, view, "2024-03-20")
	require.Len(t, upcoming.Sessions, 1)
	assert.Equal(t, models.SessionUpcoming, upcoming.Sessions[0].State)

	assert.Empty(t, findDay(t, view, "2024-03-01").Sessions)
}

func TestCalendarViewClampsRequestedMonth(t *testing.T) {
	svc, _ := newScheduleServiceFixture(fixtureSessions(), nil)

	view, _, err := svc.CalendarView(context.Background(), "class-1", "2023-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", view.Month)
	assert.False(t, view.Navigation.CanGoPrev)
	assert.True(t, view.Navigation.CanGoNext)
	assert.Nil(t, view.PrevMonth)

	view, _, err = svc.CalendarView(context.Background(), "class-1", "2030-12")
	require.NoError(t, err)
	assert.Equal(t, "2024-04", view.Month)
	assert.False(t, view.Navigation.CanGoNext)
	assert.Nil(t, view.NextMonth)
}

func TestCalendarViewEmptySchedule(t *testing.T) {
	svc, _ := newScheduleServiceFixture(nil, nil)

	view, _, err := svc.CalendarView(context.Background(), "class-1", "")
	require.NoError(t, err)
	assert.Equal(t, "2024-03", view.Month)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), view.Window.MinMonth)
	assert.False(t, view.Navigation.CanGoPrev)
	assert.False(t, view.Navigation.CanGoNext)
}

func TestCalendarViewSkipsInvalidStoredSessions(t *testing.T) {
	broken := session("s-broken", time.Time{}, models.SessionScheduled)
	svc, _ := newScheduleServiceFixture(append(fixtureSessions(), broken), nil)

	view, _, err := svc.CalendarView(context.Background(), "class-1", "")
	require.NoError(t, err)
	for _, d := range view.Days {
		for _, s := range d.Sessions {
			assert.NotEqual(t, "s-broken", s.ID)
		}
	}
}

func TestCalendarViewBucketsInCalendarLocation(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	late := session("s-late", time.Date(2024, 3, 12, 20, 0, 0, 0, time.UTC), models.SessionScheduled)
	repo := &fakeSessionRepo{sessions: []models.ScheduleSession{late}}
	svc := NewScheduleService(newFakeClassRepo(), repo, calendar.New(jakarta), nil, nil, nil, nil, nil)
	svc.now = clockAt(fixedNow)

	view, _, err := svc.CalendarView(context.Background(), "class-1", "2024-03")
	require.NoError(t, err)
	assert.Len(t, findDay(t, view, "2024-03-13").Sessions, 1)
	assert.Empty(t, findDay(t, view, "2024-03-12").Sessions)
}

func TestCalendarViewErrors(t *testing.T) {
	svc, repo := newScheduleServiceFixture(fixtureSessions(), nil)

	_, _, err := svc.CalendarView(context.Background(), "class-1", "March")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = svc.CalendarView(context.Background(), "missing", "")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	repo.listErr = errors.New("db down")
	_, _, err = svc.CalendarView(context.Background(), "class-1", "")
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestCalendarViewUsesCache(t *testing.T) {
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc, repo := newScheduleServiceFixture(fixtureSessions(), cache)

	_, hit, err := svc.CalendarView(context.Background(), "class-1", "2024-03")
	require.NoError(t, err)
	assert.False(t, hit)

	repo.sessions = nil
	view, hit, err := svc.CalendarView(context.Background(), "class-1", "2024-03")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Len(t, findDay(t, view, "2024-03-13").Sessions, 1)
}

func TestIngestSessionsAtomicRejectsBatch(t *testing.T) {
	svc, repo := newScheduleServiceFixture(nil, nil)

	result, err := svc.IngestSessions(context.Background(), "class-1", dto.CreateSessionsRequest{
		Sessions: []dto.SessionInput{
			{Title: "Cells", StartTime: "2024-03-18T09:00:00Z", EndTime: "2024-03-18T10:00:00Z"},
			{Title: "Broken", StartTime: "not-a-date", EndTime: "2024-03-18T10:00:00Z"},
			{Title: "Inverted", StartTime: "2024-03-18T11:00:00Z", EndTime: "2024-03-18T10:00:00Z"},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrInvalidSession)
	require.NotNil(t, result)
	require.Len(t, result.Rejected, 2)
	assert.Equal(t, 1, result.Rejected[0].Index)
	assert.Equal(t, 2, result.Rejected[1].Index)
	assert.Empty(t, repo.created)
}

func TestIngestSessionsPartialStoresValidRows(t *testing.T) {
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc, repo := newScheduleServiceFixture(nil, cache)

	result, err := svc.IngestSessions(context.Background(), "class-1", dto.CreateSessionsRequest{
		Mode: dto.IngestModePartialOnError,
		Sessions: []dto.SessionInput{
			{Title: "Cells", StartTime: "2024-03-18T09:00:00Z", EndTime: "2024-03-18T10:30:00Z", LocationType: "PHYSICAL", Location: strPtr("Lab 2")},
			{Title: "Mismatch", StartTime: "2024-03-19T09:00:00Z", EndTime: "2024-03-19T10:00:00Z", DurationMinutes: 45},
		},
	})
	require.NoError(t, err)
	require.Len(t, result.Created, 1)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, 1, result.Rejected[0].Index)

	created := repo.created[0]
	assert.Equal(t, 90, created.DurationMinutes)
	assert.Equal(t, models.SessionScheduled, created.Status)
	assert.Equal(t, models.LocationPhysical, created.LocationType)
	assert.Contains(t, cacheRepo.deleted, "lms:class:class-1:*")
}

func TestIngestSessionsValidatesPayload(t *testing.T) {
	svc, _ := newScheduleServiceFixture(nil, nil)

	_, err := svc.IngestSessions(context.Background(), "class-1", dto.CreateSessionsRequest{})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.IngestSessions(context.Background(), "class-1", dto.CreateSessionsRequest{Mode: "sometimes", Sessions: []dto.SessionInput{{Title: "x", StartTime: "a", EndTime: "b"}}})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.IngestSessions(context.Background(), "missing", dto.CreateSessionsRequest{Sessions: []dto.SessionInput{{Title: "x", StartTime: "2024-03-18T09:00:00Z", EndTime: "2024-03-18T10:00:00Z"}}})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestIngestSessionsStoreFailure(t *testing.T) {
	svc, repo := newScheduleServiceFixture(nil, nil)
	repo.createErr = errors.New("tx aborted")

	_, err := svc.IngestSessions(context.Background(), "class-1", dto.CreateSessionsRequest{
		Sessions: []dto.SessionInput{{Title: "Cells", StartTime: "2024-03-18T09:00:00Z", EndTime: "2024-03-18T10:00:00Z"}},
	})
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestGenerateRecurring(t *testing.T) {
	svc, repo := newScheduleServiceFixture(nil, nil)

	result, err := svc.GenerateRecurring(context.Background(), "class-1", dto.RecurringSessionsRequest{
		Title:           "Lab",
		RRule:           "RRULE:FREQ=WEEKLY;COUNT=4",
		FirstStart:      "2024-04-01T09:00:00Z",
		DurationMinutes: 90,
		ExDates:         []string{"2024-04-08T09:00:00Z"},
	})
	require.NoError(t, err)
	assert.False(t, result.Truncated)
	require.Len(t, result.Created, 3)
	assert.Len(t, repo.created, 3)
	for _, s := range result.Created {
		assert.Equal(t, 90, s.DurationMinutes)
		assert.Equal(t, "class-1", s.ClassID)
		assert.NoError(t, s.Validate())
	}
	assert.Equal(t, time.Date(2024, 4, 15, 9, 0, 0, 0, time.UTC), result.Created[1].StartTime.UTC())
}

func TestGenerateRecurringTruncates(t *testing.T) {
	svc, _ := newScheduleServiceFixture(nil, nil)

	result, err := svc.GenerateRecurring(context.Background(), "class-1", dto.RecurringSessionsRequest{
		Title:           "Daily standup",
		RRule:           "FREQ=DAILY",
		FirstStart:      "2024-04-01T09:00:00Z",
		DurationMinutes: 15,
	})
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Len(t, result.Created, 10)
}

func TestGenerateRecurringRejectsBadRule(t *testing.T) {
	svc, _ := newScheduleServiceFixture(nil, nil)

	_, err := svc.GenerateRecurring(context.Background(), "class-1", dto.RecurringSessionsRequest{
		Title:           "Lab",
		RRule:           "FREQ=SOMETIMES",
		FirstStart:      "2024-04-01T09:00:00Z",
		DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.GenerateRecurring(context.Background(), "class-1", dto.RecurringSessionsRequest{
		Title:           "Lab",
		RRule:           "FREQ=WEEKLY;COUNT=2",
		FirstStart:      "yesterday",
		DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

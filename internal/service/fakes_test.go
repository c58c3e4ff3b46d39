package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/lms-class-api/internal/models"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

// fixedNow is a Wednesday; its week runs Sunday 10 March to Saturday 16 March.
var fixedNow = time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)

func boolPtr(v bool) *bool                 { return &v }
func strPtr(v string) *string              { return &v }
func clockAt(t time.Time) func() time.Time { return func() time.Time { return t } }

func session(id string, start time.Time, status models.SessionStatus) models.ScheduleSession {
	return models.ScheduleSession{
		ID:              id,
		ClassID:         "class-1",
		Title:           "Session " + id,
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		DurationMinutes: 60,
		LocationType:    models.LocationOnline,
		Status:          status,
	}
}

func fixtureSessions() []models.ScheduleSession {
	return []models.ScheduleSession{
		session("s-past", time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), models.SessionScheduled),
		session("s-today", time.Date(2024, 3, 13, 8, 0, 0, 0, time.UTC), models.SessionScheduled),
		session("s-cancel", time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC), models.SessionCancelled),
		session("s-week", time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC), models.SessionScheduled),
		session("s-next", time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC), models.SessionScheduled),
	}
}

func enrollment(id, student, sessionID string, attended *bool) models.Enrollment {
	return models.Enrollment{
		ID:                  id,
		StudentID:           student,
		StudentName:         strings.ToUpper(student),
		ClassID:             "class-1",
		ScheduledInstanceID: sessionID,
		DidAttend:           attended,
		IsAttendanceMarked:  attended != nil,
	}
}

func fixtureEnrollments() []models.Enrollment {
	return []models.Enrollment{
		enrollment("e1", "ana", "s-past", boolPtr(true)),
		enrollment("e2", "budi", "s-past", boolPtr(false)),
		enrollment("e3", "ana", "s-today", nil),
		enrollment("e4", "budi", "s-today", nil),
		enrollment("e5", "ana", "s-next", nil),
		enrollment("e6", "ana", "s-cancel", nil),
	}
}

type fakeClassRepo struct {
	classes map[string]models.Class
	err     error
}

func newFakeClassRepo() *fakeClassRepo {
	return &fakeClassRepo{classes: map[string]models.Class{
		"class-1": {ID: "class-1", Name: "Biology 101", Description: "Cells and genes", InstructorID: strPtr("inst-1")},
	}}
}

func (f *fakeClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type fakeSessionRepo struct {
	sessions  []models.ScheduleSession
	created   []models.ScheduleSession
	listErr   error
	createErr error
}

func (f *fakeSessionRepo) ListByClass(ctx context.Context, classID string) ([]models.ScheduleSession, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]models.ScheduleSession, 0, len(f.sessions))
	for _, s := range f.sessions {
		if s.ClassID == classID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) FindByID(ctx context.Context, id string) (*models.ScheduleSession, error) {
	for _, s := range f.sessions {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSessionRepo) CreateBatch(ctx context.Context, sessions []models.ScheduleSession) error {
	if f.createErr != nil {
		return f.createErr
	}
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = "new-" + sessions[i].StartTime.Format("20060102T1504")
		}
	}
	f.created = append(f.created, sessions...)
	f.sessions = append(f.sessions, sessions...)
	return nil
}

type fakeEnrollmentRepo struct {
	enrollments []models.Enrollment
	marked      map[string]bool
	markErr     error
	markCalls   int
}

func (f *fakeEnrollmentRepo) ListByClass(ctx context.Context, classID string) ([]models.Enrollment, error) {
	out := []models.Enrollment{}
	for _, e := range f.enrollments {
		if e.ClassID == classID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) ListByStudent(ctx context.Context, classID, studentID string) ([]models.Enrollment, error) {
	out := []models.Enrollment{}
	for _, e := range f.enrollments {
		if e.ClassID == classID && e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	for _, e := range f.enrollments {
		if e.ID == id {
			return &e, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeEnrollmentRepo) MarkAttendance(ctx context.Context, id string, attended bool) error {
	f.markCalls++
	if f.markErr != nil {
		return f.markErr
	}
	if f.marked == nil {
		f.marked = make(map[string]bool)
	}
	f.marked[id] = attended
	return nil
}

type fakeCacheRepo struct {
	store   map[string][]byte
	deleted []string
	getErr  error
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{store: make(map[string][]byte)}
}

func (f *fakeCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	if f.getErr != nil {
		return f.getErr
	}
	raw, ok := f.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (f *fakeCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.store[key] = raw
	return nil
}

func (f *fakeCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	if !strings.HasSuffix(pattern, "*") {
		return errors.New("unsupported pattern")
	}
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range f.store {
		if strings.HasPrefix(key, prefix) {
			delete(f.store, key)
		}
	}
	f.deleted = append(f.deleted, pattern)
	return nil
}

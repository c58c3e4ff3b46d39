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
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

func newAttendanceFixture(cache *CacheService) (*AttendanceService, *fakeEnrollmentRepo) {
	enrollments := &fakeEnrollmentRepo{enrollments: fixtureEnrollments()}
	svc := NewAttendanceService(newFakeClassRepo(), &fakeSessionRepo{sessions: fixtureSessions()}, enrollments, calendar.New(time.UTC), cache, nil, nil, nil)
	svc.now = clockAt(fixedNow)
	return svc, enrollments
}

var (
	instructor = &models.JWTClaims{UserID: "inst-1", Role: models.RoleInstructor}
	admin      = &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin}
)

func TestRequestAttendanceMarkActiveSession(t *testing.T) {
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	require.NoError(t, cache.Set(context.Background(), ClassViewKey("class-1", ViewRoster), map[string]int{"stale": 1}, 0))
	svc, repo := newAttendanceFixture(cache)

	result, err := svc.RequestAttendanceMark(context.Background(), "e3", dto.MarkAttendanceRequest{Attended: boolPtr(true)}, instructor)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.markCalls)
	assert.True(t, repo.marked["e3"])
	assert.True(t, result.Enrollment.IsAttendanceMarked)
	require.NotNil(t, result.Enrollment.DidAttend)
	assert.True(t, *result.Enrollment.DidAttend)
	assert.Equal(t, models.SessionActive, result.Session.State)
	assert.Empty(t, cacheRepo.store)
}

func TestRequestAttendanceMarkRefusesInactiveSessions(t *testing.T) {
	svc, repo := newAttendanceFixture(nil)

	for _, id := range []string{"e1", "e5"} {
		_, err := svc.RequestAttendanceMark(context.Background(), id, dto.MarkAttendanceRequest{Attended: boolPtr(true)}, admin)
		require.Error(t, err, id)
		appErr := appErrors.FromError(err)
		assert.Equal(t, "ATTENDANCE_NOT_ELIGIBLE", appErr.Code)
		assert.Equal(t, 403, appErr.Status)
		assert.Equal(t, "attendance marking is only open for active sessions", appErr.Message)
	}
	assert.Zero(t, repo.markCalls)
}

func TestRequestAttendanceMarkRefusesCancelledSession(t *testing.T) {
	svc, repo := newAttendanceFixture(nil)

	_, err := svc.RequestAttendanceMark(context.Background(), "e6", dto.MarkAttendanceRequest{Attended: boolPtr(false)}, admin)
	assert.ErrorIs(t, err, appErrors.ErrNotEligible)
	assert.Zero(t, repo.markCalls)
}

func TestRequestAttendanceMarkRoles(t *testing.T) {
	svc, repo := newAttendanceFixture(nil)
	req := dto.MarkAttendanceRequest{Attended: boolPtr(true)}

	_, err := svc.RequestAttendanceMark(context.Background(), "e3", req, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	_, err = svc.RequestAttendanceMark(context.Background(), "e3", req, &models.JWTClaims{UserID: "stu", Role: models.RoleStudent})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.RequestAttendanceMark(context.Background(), "e3", req, &models.JWTClaims{UserID: "other", Role: models.RoleInstructor})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	assert.Zero(t, repo.markCalls)
}

func TestRequestAttendanceMarkUnassignedClass(t *testing.T) {
	classes := newFakeClassRepo()
	unassigned := classes.classes["class-1"]
	unassigned.InstructorID = nil
	classes.classes["class-1"] = unassigned
	enrollments := &fakeEnrollmentRepo{enrollments: fixtureEnrollments()}
	svc := NewAttendanceService(classes, &fakeSessionRepo{sessions: fixtureSessions()}, enrollments, calendar.New(time.UTC), nil, nil, nil, nil)
	svc.now = clockAt(fixedNow)
	req := dto.MarkAttendanceRequest{Attended: boolPtr(true)}

	_, err := svc.RequestAttendanceMark(context.Background(), "e3", req, &models.JWTClaims{UserID: "stranger", Role: models.RoleInstructor})
	assert.ErrorIs(t, err, appErrors.ErrForbidden)
	assert.Zero(t, enrollments.markCalls)

	_, err = svc.RequestAttendanceMark(context.Background(), "e3", req, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, enrollments.markCalls)
}

func TestRequestAttendanceMarkValidation(t *testing.T) {
	svc, _ := newAttendanceFixture(nil)

	_, err := svc.RequestAttendanceMark(context.Background(), "e3", dto.MarkAttendanceRequest{}, admin)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.RequestAttendanceMark(context.Background(), "missing", dto.MarkAttendanceRequest{Attended: boolPtr(true)}, admin)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestRequestAttendanceMarkWriteFailureIsNotRetried(t *testing.T) {
	cacheRepo := newFakeCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	require.NoError(t, cache.Set(context.Background(), ClassViewKey("class-1", ViewRoster), map[string]int{"view": 1}, 0))
	svc, repo := newAttendanceFixture(cache)
	repo.markErr = errors.New("connection reset")

	_, err := svc.RequestAttendanceMark(context.Background(), "e4", dto.MarkAttendanceRequest{Attended: boolPtr(false)}, admin)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
	assert.Equal(t, 1, repo.markCalls)
	assert.Len(t, cacheRepo.store, 1)
}

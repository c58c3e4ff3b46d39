package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleSessionValidate(t *testing.T) {
	start := time.Date(2025, time.June, 18, 9, 0, 0, 0, time.UTC)
	valid := ScheduleSession{ID: "s1", StartTime: start, EndTime: start.Add(90 * time.Minute), DurationMinutes: 90}
	require.NoError(t, valid.Validate())

	cases := map[string]ScheduleSession{
		"missing start":     {ID: "s1", EndTime: start},
		"missing end":       {ID: "s1", StartTime: start},
		"inverted":          {ID: "s1", StartTime: start, EndTime: start.Add(-time.Minute)},
		"empty range":       {ID: "s1", StartTime: start, EndTime: start},
		"duration mismatch": {ID: "s1", StartTime: start, EndTime: start.Add(time.Hour), DurationMinutes: 45},
		"bad location":      {ID: "s1", StartTime: start, EndTime: start.Add(time.Hour), LocationType: "MOON"},
		"bad status":        {ID: "s1", StartTime: start, EndTime: start.Add(time.Hour), Status: "POSTPONED"},
	}
	for name, session := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, session.Validate())
		})
	}
}

func TestScheduleSessionNormalize(t *testing.T) {
	start := time.Date(2025, time.June, 18, 9, 0, 0, 0, time.UTC)
	session := ScheduleSession{StartTime: start, EndTime: start.Add(50 * time.Minute)}

	session.Normalize()

	assert.Equal(t, 50, session.DurationMinutes)
	assert.Equal(t, LocationOnline, session.LocationType)
	assert.Equal(t, SessionScheduled, session.Status)
	assert.NoError(t, session.Validate())
}

func TestEnrollmentConsistency(t *testing.T) {
	present := true
	assert.True(t, Enrollment{}.Consistent())
	assert.False(t, Enrollment{IsAttendanceMarked: true}.Consistent())
	assert.True(t, Enrollment{IsAttendanceMarked: true, DidAttend: &present}.Consistent())
	assert.True(t, Enrollment{DidAttend: &present}.Attended())
	assert.False(t, Enrollment{}.Attended())
}

func TestUserRoleCanMarkAttendance(t *testing.T) {
	assert.True(t, RoleInstructor.CanMarkAttendance())
	assert.True(t, RoleAdmin.CanMarkAttendance())
	assert.False(t, RoleStudent.CanMarkAttendance())
	assert.False(t, RoleCourseCreator.CanMarkAttendance())
}

package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-class-api/internal/calendar"
	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/roster"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

// RosterService aggregates enrollments into rosters, attendance summaries and progress.
type RosterService struct {
	classes     classReader
	sessions    sessionReader
	enrollments enrollmentReader
	engine      *calendar.Engine
	cache       *CacheService
	logger      *zap.Logger
	now         func() time.Time
}

// NewRosterService constructs the roster service.
func NewRosterService(classes classReader, sessions sessionReader, enrollments enrollmentReader, engine *calendar.Engine, cache *CacheService, logger *zap.Logger) *RosterService {
	if engine == nil {
		engine = calendar.New(time.UTC)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{
		classes:     classes,
		sessions:    sessions,
		enrollments: enrollments,
		engine:      engine,
		cache:       cache,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *RosterService) clock() time.Time {
	return s.now().In(s.engine.Location())
}

// RosterView returns the per-session rosters, per-student summaries and class progress.
func (s *RosterService) RosterView(ctx context.Context, classID string) (*dto.RosterView, bool, error) {
	cacheKey := ClassViewKey(classID, ViewRoster)
	var cached dto.RosterView
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	sessions, enrollments, err := s.load(ctx, classID)
	if err != nil {
		return nil, false, err
	}

	now := s.clock()
	view := &dto.RosterView{
		ClassID:  classID,
		Sessions: roster.SessionRosters(sessions, enrollments, now),
		Students: roster.StudentSummaries(sessions, enrollments),
		Progress: roster.ClassProgress(sessions, now),
	}
	_ = s.cache.Set(ctx, cacheKey, view, 0)
	return view, false, nil
}

// StudentAttendance summarises one student's attendance across the whole class schedule.
func (s *RosterService) StudentAttendance(ctx context.Context, classID, studentID string) (*models.AttendanceSummary, error) {
	if _, err := loadClass(ctx, s.classes, classID); err != nil {
		return nil, err
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, classID, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if len(enrollments) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student is not enrolled in this class")
	}
	sessions, err := loadSessions(ctx, s.sessions, classID, s.logger)
	if err != nil {
		return nil, err
	}

	summary := roster.StudentAttendance(studentID, sessions, roster.GroupByStudent(enrollments))
	return &summary, nil
}

// Progress reports completed sessions against the full schedule.
func (s *RosterService) Progress(ctx context.Context, classID string) (*models.ClassProgress, bool, error) {
	cacheKey := ClassViewKey(classID, ViewProgress)
	var cached models.ClassProgress
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	if _, err := loadClass(ctx, s.classes, classID); err != nil {
		return nil, false, err
	}
	sessions, err := loadSessions(ctx, s.sessions, classID, s.logger)
	if err != nil {
		return nil, false, err
	}

	progress := roster.ClassProgress(sessions, s.clock())
	_ = s.cache.Set(ctx, cacheKey, progress, 0)
	return &progress, false, nil
}

// InviteSummary returns the public landing information of a class.
func (s *RosterService) InviteSummary(ctx context.Context, classID string) (*dto.InviteSummary, bool, error) {
	cacheKey := ClassViewKey(classID, ViewInvite)
	var cached dto.InviteSummary
	if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
		return &cached, true, nil
	}

	class, err := loadClass(ctx, s.classes, classID)
	if err != nil {
		return nil, false, err
	}
	sessions, err := loadSessions(ctx, s.sessions, classID, s.logger)
	if err != nil {
		return nil, false, err
	}
	enrollments, err := s.enrollments.ListByClass(ctx, classID)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}

	now := s.clock()
	summary := &dto.InviteSummary{
		ClassID:          class.ID,
		Name:             class.Name,
		Description:      class.Description,
		EnrolledStudents: len(roster.UniqueByStudent(enrollments)),
		TotalSessions:    len(sessions),
		Window:           s.engine.Bounds(sessions, now),
		Progress:         roster.ClassProgress(sessions, now),
	}
	for _, session := range sessions {
		if session.Status == models.SessionCancelled || session.StartTime.Before(now) {
			continue
		}
		if summary.NextSession == nil || session.StartTime.Before(summary.NextSession.StartTime) {
			view := dto.NewSessionView(session, roster.ClassifySession(session, now))
			summary.NextSession = &view
		}
	}

	_ = s.cache.Set(ctx, cacheKey, summary, 0)
	return summary, false, nil
}

func (s *RosterService) load(ctx context.Context, classID string) ([]models.ScheduleSession, []models.Enrollment, error) {
	if _, err := loadClass(ctx, s.classes, classID); err != nil {
		return nil, nil, err
	}
	sessions, err := loadSessions(ctx, s.sessions, classID, s.logger)
	if err != nil {
		return nil, nil, err
	}
	enrollments, err := s.enrollments.ListByClass(ctx, classID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	for _, e := range enrollments {
		if !e.Consistent() {
			s.logger.Warn("enrollment marked without attendance value", zap.String("enrollment_id", e.ID))
		}
	}
	return sessions, enrollments, nil
}

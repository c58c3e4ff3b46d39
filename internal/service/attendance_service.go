package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-class-api/internal/calendar"
	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/roster"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

type attendanceEnrollmentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	MarkAttendance(ctx context.Context, id string, attended bool) error
}

type attendanceSessionRepository interface {
	FindByID(ctx context.Context, id string) (*models.ScheduleSession, error)
}

// AttendanceService gates attendance marking and hands accepted marks to persistence.
type AttendanceService struct {
	classes     classReader
	sessions    attendanceSessionRepository
	enrollments attendanceEnrollmentRepository
	engine      *calendar.Engine
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(classes classReader, sessions attendanceSessionRepository, enrollments attendanceEnrollmentRepository, engine *calendar.Engine, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if engine == nil {
		engine = calendar.New(time.UTC)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		classes:     classes,
		sessions:    sessions,
		enrollments: enrollments,
		engine:      engine,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         time.Now,
	}
}

// RequestAttendanceMark records attendance for one enrollment. Marks are accepted only from
// administrators and the class instructor, and only while the session is ACTIVE. The write is a
// single call without retry; on failure nothing is committed and the error is returned.
func (s *AttendanceService) RequestAttendanceMark(ctx context.Context, enrollmentID string, req dto.MarkAttendanceRequest, claims *models.JWTClaims) (*dto.AttendanceMarkResult, error) {
	if claims == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !claims.Role.CanMarkAttendance() {
		s.metrics.RecordAttendanceMark("forbidden")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors and administrators can mark attendance")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "attended is required")
	}

	enrollment, err := s.enrollments.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	class, err := loadClass(ctx, s.classes, enrollment.ClassID)
	if err != nil {
		return nil, err
	}
	if claims.Role == models.RoleInstructor && (class.InstructorID == nil || *class.InstructorID != claims.UserID) {
		s.metrics.RecordAttendanceMark("forbidden")
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the class instructor can mark attendance")
	}

	session, err := s.sessions.FindByID(ctx, enrollment.ScheduledInstanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	now := s.now().In(s.engine.Location())
	if session.Status == models.SessionCancelled {
		s.metrics.RecordAttendanceMark("not_eligible")
		return nil, appErrors.Clone(appErrors.ErrNotEligible, "attendance cannot be marked for a cancelled session")
	}
	state := roster.ClassifySession(*session, now)
	if state != models.SessionActive {
		s.metrics.RecordAttendanceMark("not_eligible")
		return nil, appErrors.ErrNotEligible
	}

	attended := *req.Attended
	if err := s.enrollments.MarkAttendance(ctx, enrollment.ID, attended); err != nil {
		s.metrics.RecordAttendanceMark("failed")
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		s.logger.Error("attendance mark failed", zap.String("enrollment_id", enrollment.ID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark attendance")
	}
	s.metrics.RecordAttendanceMark("marked")

	enrollment.DidAttend = &attended
	enrollment.IsAttendanceMarked = true
	_ = s.cache.InvalidateClass(ctx, enrollment.ClassID, "attendance_marked")

	s.logger.Info("attendance marked",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("session_id", session.ID),
		zap.Bool("attended", attended),
		zap.String("marked_by", claims.UserID),
	)

	return &dto.AttendanceMarkResult{Enrollment: *enrollment, Session: dto.NewSessionView(*session, state)}, nil
}

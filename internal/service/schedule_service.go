package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-class-api/internal/calendar"
	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/recurrence"
	"github.com/noah-isme/lms-class-api/internal/roster"
	appErrors "github.com/noah-isme/lms-class-api/pkg/errors"
)

// MonthLayout is the query format of calendar months.
const MonthLayout = "2006-01"

type scheduleSessionRepository interface {
	sessionReader
	CreateBatch(ctx context.Context, sessions []models.ScheduleSession) error
}

// ScheduleService builds calendar views and ingests class sessions.
type ScheduleService struct {
	classes   classReader
	sessions  scheduleSessionRepository
	engine    *calendar.Engine
	expander  *recurrence.Expander
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewScheduleService constructs the schedule service.
func NewScheduleService(classes classReader, sessions scheduleSessionRepository, engine *calendar.Engine, expander *recurrence.Expander, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if engine == nil {
		engine = calendar.New(time.UTC)
	}
	if expander == nil {
		expander = recurrence.NewExpander(0)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		classes:   classes,
		sessions:  sessions,
		engine:    engine,
		expander:  expander,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// CalendarView renders the month grid of a class. An empty month selects the current one;
// months outside the navigable window are clamped into it. The bool reports a cache hit.
func (s *ScheduleService) CalendarView(ctx context.Context, classID, month string) (*dto.CalendarView, bool, error) {
	now := s.now().In(s.engine.Location())

	var requested time.Time
	if month != "" {
		parsed, err := time.ParseInLocation(MonthLayout, month, s.engine.Location())
		if err != nil {
			return nil, false, appErrors.Clone(appErrors.ErrValidation, "month must use YYYY-MM")
		}
		requested = parsed
	}

	cacheKey := ClassViewKey(classID, ViewCalendar, month)
	var cached dto.CalendarView
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

	window := s.engine.Bounds(sessions, now)
	current := s.engine.StartOfMonth(now)
	if !requested.IsZero() {
		current = requested
	}
	current = s.engine.ClampMonth(current, window)

	view := &dto.CalendarView{
		ClassID:    classID,
		Month:      current.Format(MonthLayout),
		Timezone:   s.engine.Location().String(),
		Window:     window,
		Navigation: s.engine.Navigation(current, window),
	}
	if prev, ok := s.engine.Navigate(models.NavPrev, current, window); ok {
		label := prev.Format(MonthLayout)
		view.PrevMonth = &label
	}
	if next, ok := s.engine.Navigate(models.NavNext, current, window); ok {
		label := next.Format(MonthLayout)
		view.NextMonth = &label
	}

	buckets := s.engine.BucketByDay(sessions)
	today := s.engine.DayKey(now)
	for _, day := range s.engine.GridDays(current) {
		key := s.engine.DayKey(day)
		cell := dto.CalendarDay{
			Date:     key,
			InMonth:  day.Month() == current.Month(),
			IsToday:  key == today,
			Sessions: []dto.SessionView{},
		}
		for _, session := range buckets[key] {
			cell.Sessions = append(cell.Sessions, dto.NewSessionView(session, roster.ClassifySession(session, now)))
		}
		view.Days = append(view.Days, cell)
	}

	_ = s.cache.Set(ctx, cacheKey, view, 0)
	return view, false, nil
}

// IngestSessions validates and stores submitted sessions. In atomic mode (the default) any
// rejected row fails the whole request; in partial mode valid rows are stored and rejects reported.
func (s *ScheduleService) IngestSessions(ctx context.Context, classID string, req dto.CreateSessionsRequest) (*dto.IngestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if _, err := loadClass(ctx, s.classes, classID); err != nil {
		return nil, err
	}

	result := &dto.IngestResult{Created: []models.ScheduleSession{}, Rejected: []dto.RejectedSession{}}
	accepted := make([]models.ScheduleSession, 0, len(req.Sessions))
	for i, input := range req.Sessions {
		session, err := s.sessionFromInput(classID, input)
		if err != nil {
			s.logger.Warn("rejected session row", zap.String("class_id", classID), zap.Int("index", i), zap.Error(err))
			result.Rejected = append(result.Rejected, dto.RejectedSession{Index: i, Reason: err.Error()})
			continue
		}
		accepted = append(accepted, session)
	}

	if len(result.Rejected) > 0 && req.Mode != dto.IngestModePartialOnError {
		s.metrics.RecordIngestion(0, len(result.Rejected))
		return result, appErrors.Clone(appErrors.ErrInvalidSession, fmt.Sprintf("%d of %d sessions rejected", len(result.Rejected), len(req.Sessions)))
	}

	if err := s.store(ctx, classID, accepted); err != nil {
		return nil, err
	}
	result.Created = accepted
	s.metrics.RecordIngestion(len(accepted), len(result.Rejected))
	return result, nil
}

// GenerateRecurring expands a recurrence rule into sessions and stores them.
func (s *ScheduleService) GenerateRecurring(ctx context.Context, classID string, req dto.RecurringSessionsRequest) (*dto.IngestResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurrence payload")
	}
	if _, err := loadClass(ctx, s.classes, classID); err != nil {
		return nil, err
	}

	firstStart, err := s.parseTime(req.FirstStart)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "first_start must be RFC 3339")
	}
	exDates := make([]time.Time, 0, len(req.ExDates))
	for _, raw := range req.ExDates {
		ex, err := s.parseTime(raw)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "exdates must be RFC 3339")
		}
		exDates = append(exDates, ex)
	}

	expanded, err := s.expander.Expand(recurrence.Pattern{
		ClassID:      classID,
		Title:        req.Title,
		RRule:        req.RRule,
		FirstStart:   firstStart,
		Duration:     time.Duration(req.DurationMinutes) * time.Minute,
		LocationType: models.LocationType(req.LocationType),
		Location:     req.Location,
		ExDates:      exDates,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid recurrence rule")
	}
	if len(expanded.Sessions) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "recurrence rule produced no sessions")
	}
	if expanded.Truncated {
		s.logger.Warn("recurrence truncated", zap.String("class_id", classID), zap.Int("kept", len(expanded.Sessions)))
	}

	if err := s.store(ctx, classID, expanded.Sessions); err != nil {
		return nil, err
	}
	s.metrics.RecordIngestion(len(expanded.Sessions), 0)
	return &dto.IngestResult{Created: expanded.Sessions, Rejected: []dto.RejectedSession{}, Truncated: expanded.Truncated}, nil
}

func (s *ScheduleService) store(ctx context.Context, classID string, sessions []models.ScheduleSession) error {
	if len(sessions) == 0 {
		return nil
	}
	if err := s.sessions.CreateBatch(ctx, sessions); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store sessions")
	}
	_ = s.cache.InvalidateClass(ctx, classID, "schedule_changed")
	return nil
}

func (s *ScheduleService) sessionFromInput(classID string, input dto.SessionInput) (models.ScheduleSession, error) {
	var session models.ScheduleSession
	if err := s.validator.Struct(input); err != nil {
		return session, err
	}
	start, err := s.parseTime(input.StartTime)
	if err != nil {
		return session, fmt.Errorf("start_time: %w", err)
	}
	end, err := s.parseTime(input.EndTime)
	if err != nil {
		return session, fmt.Errorf("end_time: %w", err)
	}
	session = models.ScheduleSession{
		ClassID:         classID,
		Title:           input.Title,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: input.DurationMinutes,
		LocationType:    models.LocationType(input.LocationType),
		Location:        input.Location,
		Status:          models.SessionStatus(input.Status),
	}
	if err := session.Validate(); err != nil {
		return session, err
	}
	session.Normalize()
	return session, nil
}

// parseTime accepts RFC 3339 timestamps. Values without an offset are read in the calendar location.
func (s *ScheduleService) parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", raw, s.engine.Location())
}

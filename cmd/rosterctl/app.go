package main

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-class-api/internal/calendar"
	"github.com/noah-isme/lms-class-api/internal/dto"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/recurrence"
	"github.com/noah-isme/lms-class-api/internal/repository"
	"github.com/noah-isme/lms-class-api/internal/service"
	"github.com/noah-isme/lms-class-api/pkg/cache"
	"github.com/noah-isme/lms-class-api/pkg/config"
	"github.com/noah-isme/lms-class-api/pkg/database"
	"github.com/noah-isme/lms-class-api/pkg/feedtoken"
	"github.com/noah-isme/lms-class-api/pkg/logger"
)

type calendarViewer interface {
	CalendarView(ctx context.Context, classID, month string) (*dto.CalendarView, bool, error)
}

type rosterViewer interface {
	RosterView(ctx context.Context, classID string) (*dto.RosterView, bool, error)
	StudentAttendance(ctx context.Context, classID, studentID string) (*models.AttendanceSummary, error)
	Progress(ctx context.Context, classID string) (*models.ClassProgress, bool, error)
}

type rosterExporter interface {
	RosterExport(ctx context.Context, classID, format string) (*service.ExportFile, error)
}

type cacheFlusher interface {
	Rollover(ctx context.Context) error
}

// app bundles the services the CLI drives.
type app struct {
	schedule calendarViewer
	roster   rosterViewer
	exports  rosterExporter
	cache    cacheFlusher
	close    func()
}

func (a *app) Close() {
	if a != nil && a.close != nil {
		a.close()
	}
}

// loadApp wires services against the configured database. Views are computed
// uncached; the cache connection is opened only to flush it.
func loadApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return nil, err
	}
	closers := []func(){func() { _ = db.Close() }, func() { _ = logr.Sync() }}

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		if redisClient, err = cache.NewRedis(cfg.Redis); err != nil {
			logr.Warn("redis unavailable", zap.Error(err))
			redisClient = nil
		} else {
			closers = append(closers, func() { _ = redisClient.Close() })
		}
	}

	return newApp(cfg, db, redisClient, logr, closers), nil
}

func newApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger, closers []func()) *app {
	engine := calendar.New(cfg.Calendar.Location)
	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewScheduleSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	viewCache := service.NewCacheService(nil, nil, cfg.Cache.TTL, logr, false)
	flushCache := viewCache
	if redisClient != nil {
		flushCache = service.NewCacheService(repository.NewCacheRepository(redisClient, logr), nil, cfg.Cache.TTL, logr, true)
	}

	return &app{
		schedule: service.NewScheduleService(classRepo, sessionRepo, engine, recurrence.NewExpander(cfg.Recurrence.MaxOccurrences), viewCache, nil, validator.New(), logr),
		roster:   service.NewRosterService(classRepo, sessionRepo, enrollmentRepo, engine, viewCache, logr),
		exports: service.NewExportService(classRepo, sessionRepo, enrollmentRepo, engine,
			feedtoken.NewSigner(cfg.Exports.FeedSigningSecret, cfg.Exports.FeedTokenTTL),
			service.ExportConfig{Enabled: true, APIPrefix: cfg.APIPrefix}, nil, logr),
		cache: flushCache,
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}
}

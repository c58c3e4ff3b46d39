package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/lms-class-api/api/swagger"
	"github.com/noah-isme/lms-class-api/internal/calendar"
	"github.com/noah-isme/lms-class-api/internal/handler"
	"github.com/noah-isme/lms-class-api/internal/recurrence"
	"github.com/noah-isme/lms-class-api/internal/repository"
	"github.com/noah-isme/lms-class-api/internal/service"
	"github.com/noah-isme/lms-class-api/pkg/cache"
	"github.com/noah-isme/lms-class-api/pkg/config"
	"github.com/noah-isme/lms-class-api/pkg/database"
	"github.com/noah-isme/lms-class-api/pkg/feedtoken"
	"github.com/noah-isme/lms-class-api/pkg/jobs"
	"github.com/noah-isme/lms-class-api/pkg/logger"
)

// @title LMS Class API
// @version 1.0.0
// @description Class calendars, rosters, attendance marking and schedule exports.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, class view cache disabled", "error", err)
			redisClient = nil
		}
	}

	metricsSvc := service.NewMetricsService()
	engine := calendar.New(cfg.Calendar.Location)
	validate := validator.New()

	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewScheduleSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
		defer cacheRepo.Close() //nolint:errcheck
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, cacheRepo != nil)

	scheduleSvc := service.NewScheduleService(classRepo, sessionRepo, engine, recurrence.NewExpander(cfg.Recurrence.MaxOccurrences), cacheSvc, metricsSvc, validate, logr)
	rosterSvc := service.NewRosterService(classRepo, sessionRepo, enrollmentRepo, engine, cacheSvc, logr)
	attendanceSvc := service.NewAttendanceService(classRepo, sessionRepo, enrollmentRepo, engine, cacheSvc, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(classRepo, sessionRepo, enrollmentRepo, engine,
		feedtoken.NewSigner(cfg.Exports.FeedSigningSecret, cfg.Exports.FeedTokenTTL),
		service.ExportConfig{Enabled: cfg.Exports.Enabled, APIPrefix: cfg.APIPrefix},
		metricsSvc, logr)

	checks := map[string]handler.Pinger{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := newRouter(cfg, logr, routerDeps{
		verifier:   service.NewTokenVerifier(cfg.JWT.Secret, cfg.JWT.Issuer),
		metrics:    metricsSvc,
		schedule:   handler.NewScheduleHandler(scheduleSvc),
		roster:     handler.NewRosterHandler(rosterSvc),
		attendance: handler.NewAttendanceHandler(attendanceSvc),
		exports:    handler.NewExportHandler(exportSvc),
		health:     handler.NewMetricsHandler(metricsSvc, checks),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := jobs.NewScheduler(jobs.SchedulerConfig{Location: cfg.Calendar.Location, Timeout: time.Minute, Logger: logr})
	if cacheSvc.Enabled() {
		if err := scheduler.Register("class_view_rollover", cfg.Cache.RolloverCron, cacheSvc.Rollover); err != nil {
			logr.Sugar().Fatalw("invalid CACHE_ROLLOVER_CRON", "spec", cfg.Cache.RolloverCron, "error", err)
		}
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "cache", cacheSvc.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down", zap.Duration("grace", 10*time.Second))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/lms-class-api/internal/handler"
	"github.com/noah-isme/lms-class-api/internal/middleware"
	"github.com/noah-isme/lms-class-api/internal/models"
	"github.com/noah-isme/lms-class-api/internal/service"
	"github.com/noah-isme/lms-class-api/pkg/config"
	"github.com/noah-isme/lms-class-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lms-class-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/lms-class-api/pkg/middleware/requestid"
)

type routerDeps struct {
	verifier   middleware.TokenValidator
	metrics    *service.MetricsService
	schedule   *handler.ScheduleHandler
	roster     *handler.RosterHandler
	attendance *handler.AttendanceHandler
	exports    *handler.ExportHandler
	health     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.health.Health)
	r.GET("/ready", deps.health.Ready)
	r.GET("/metrics", deps.health.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	// Signed feed links authenticate calendar clients that cannot send headers.
	api.GET("/classes/:id/schedule.ics", deps.exports.ScheduleFeed)
	api.GET("/classes/:id/invite", deps.roster.Invite)

	secured := api.Group("")
	secured.Use(middleware.JWT(deps.verifier))

	staff := middleware.RequireRoles(models.RoleInstructor, models.RoleAdmin)

	classes := secured.Group("/classes/:id")
	classes.GET("/calendar", deps.schedule.Calendar)
	classes.GET("/progress", deps.roster.Progress)
	classes.GET("/students/:studentId/attendance", deps.roster.StudentAttendance)
	classes.GET("/schedule/feed-link", deps.exports.FeedLink)
	classes.GET("/roster", staff, deps.roster.Roster)
	classes.GET("/roster/export", staff, deps.exports.RosterExport)
	classes.POST("/sessions", staff, deps.schedule.CreateSessions)
	classes.POST("/sessions/recurring", staff, deps.schedule.CreateRecurring)

	secured.PATCH("/enrollments/:id/attendance", staff, deps.attendance.Mark)

	return r
}

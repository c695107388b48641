package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/univ-exams/exam-planner-api/api/swagger"
	"github.com/univ-exams/exam-planner-api/internal/handler"
	"github.com/univ-exams/exam-planner-api/internal/middleware"
	"github.com/univ-exams/exam-planner-api/internal/models"
	"github.com/univ-exams/exam-planner-api/internal/repository"
	"github.com/univ-exams/exam-planner-api/internal/service"
	"github.com/univ-exams/exam-planner-api/pkg/cache"
	"github.com/univ-exams/exam-planner-api/pkg/config"
	"github.com/univ-exams/exam-planner-api/pkg/database"
	"github.com/univ-exams/exam-planner-api/pkg/logger"
	corsmiddleware "github.com/univ-exams/exam-planner-api/pkg/middleware/cors"
	reqidmiddleware "github.com/univ-exams/exam-planner-api/pkg/middleware/requestid"
)

// @title Exam Planner API
// @version 1.0.0
// @description Exam scheduling engine: session preparation, automatic placement, supervision and conflict audit.
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	sessionRepo := repository.NewSessionRepository(db)
	examRepo := repository.NewExamRepository(db)
	moduleRepo := repository.NewModuleRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	professorRepo := repository.NewProfessorRepository(db)
	supervisorRepo := repository.NewSupervisorRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	sessionSvc := service.NewSessionService(sessionRepo, validate, logr)
	schedulerSvc, err := service.NewSchedulerService(
		sessionRepo, examRepo, enrollmentRepo, roomRepo, moduleRepo,
		supervisorRepo, professorRepo, db, cacheRepo, metricsSvc,
		cfg.Scheduler, logr,
	)
	if err != nil {
		logr.Sugar().Fatalw("failed to build scheduler", "error", err)
	}
	supervisorSvc := service.NewSupervisorService(
		sessionRepo, examRepo, supervisorRepo, professorRepo, moduleRepo,
		db, cacheRepo, metricsSvc, cfg.Scheduler, logr,
	)
	conflictSvc := service.NewConflictService(
		sessionRepo, examRepo, enrollmentRepo, supervisorRepo,
		cacheRepo, metricsSvc, cfg.Scheduler, logr,
	)
	statsSvc := service.NewStatsService(sessionRepo, examRepo, cacheRepo, metricsSvc, cfg.Scheduler, logr)
	exportSvc := service.NewExportService(sessionRepo, examRepo, supervisorRepo, nil, nil, logr)

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	schedulingHandler := handler.NewSchedulingHandler(schedulerSvc)
	supervisorHandler := handler.NewSupervisorHandler(supervisorSvc)
	conflictHandler := handler.NewConflictHandler(conflictSvc, statsSvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(cfg.JWT.Secret))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleViceDean)
	readers := middleware.RequireRoles(models.RoleAdmin, models.RoleViceDean, models.RoleDeptHead, models.RoleProfessor)

	sessions := api.Group("/sessions")
	{
		sessions.GET("", readers, sessionHandler.List)
		sessions.POST("", staff, sessionHandler.Create)
		sessions.GET("/:id", readers, sessionHandler.Get)
		sessions.PATCH("/:id/status", staff, sessionHandler.UpdateStatus)

		sessions.POST("/:id/prepare", staff, schedulingHandler.PrepareSession)
		sessions.POST("/:id/schedule", staff, schedulingHandler.AutoSchedule)
		sessions.DELETE("/:id/schedule", staff, schedulingHandler.ClearSchedule)
		sessions.POST("/:id/supervisors", staff, supervisorHandler.Assign)

		sessions.GET("/:id/conflicts", readers, conflictHandler.Report)
		sessions.GET("/:id/stats", readers, conflictHandler.Stats)
		if cfg.Export.Enabled {
			sessions.GET("/:id/export", readers, exportHandler.Timetable)
		}
	}
	api.GET("/exams/:id/available-slots", readers, schedulingHandler.AvailableSlots)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

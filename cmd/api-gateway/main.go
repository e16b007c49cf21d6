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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/projectklase/comunika-nexus-64-78-sub004/api/swagger"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/handler"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/middleware"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/models"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/repository"
	"github.com/projectklase/comunika-nexus-64-78-sub004/internal/service"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/bus"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/cache"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/config"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/database"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/jobs"
	"github.com/projectklase/comunika-nexus-64-78-sub004/pkg/logger"
	corsmiddleware "github.com/projectklase/comunika-nexus-64-78-sub004/pkg/middleware/cors"
	reqidmiddleware "github.com/projectklase/comunika-nexus-64-78-sub004/pkg/middleware/requestid"
)

const shutdownTimeout = 15 * time.Second

// @title Comunika Posts API
// @version 0.1.0
// @description Post lifecycle, scheduling and calendar derivation
// @BasePath /api/v1
// @schemes http
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheRepo service.CacheRepository
	if cfg.Calendar.CacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, calendar cache disabled", zap.Error(err))
		} else {
			redisRepo := repository.NewCacheRepository(redisClient)
			defer redisRepo.Close() //nolint:errcheck
			cacheRepo = redisRepo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Calendar.CacheTTL, logr)

	postRepo := repository.NewPostRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	classRepo := repository.NewClassRepository(db)

	auditSvc := service.NewAuditService(auditRepo, classRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	worker := service.NewSideEffectWorker(auditSvc, notificationSvc, metricsSvc, logr)
	sideEffects := jobs.NewQueue("post-side-effects", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.SideEffects.Workers,
		BufferSize: cfg.SideEffects.BufferSize,
		MaxRetries: cfg.SideEffects.MaxRetries,
		RetryDelay: cfg.SideEffects.RetryDelay,
		Logger:     logr,
	})
	sideEffects.Start(context.Background())

	changes := bus.New(logr)
	postSvc := service.NewPostService(postRepo, changes, sideEffects, validator.New(), metricsSvc, logr, service.PostServiceConfig{
		CopyPrefix: cfg.Posts.CopyPrefix,
	})
	calendarSvc := service.NewCalendarService(postSvc, cacheSvc, logr, service.CalendarServiceConfig{
		CacheTTL: cfg.Calendar.CacheTTL,
	})
	scheduler := service.NewSchedulerService(postSvc, metricsSvc, logr, service.SchedulerConfig{
		Interval: cfg.Scheduler.Interval,
		Jitter:   cfg.Scheduler.Jitter,
	})
	if cfg.Scheduler.Enabled {
		scheduler.Start(ctx)
	}

	tokenSvc := service.NewTokenService(cfg.JWT.Secret)
	postHandler := handler.NewPostHandler(postSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db, scheduler)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(tokenSvc))
	writers := middleware.RequireRoles(models.RoleSuperAdmin, models.RoleAdmin, models.RoleTeacher)

	posts := api.Group("/posts")
	posts.GET("", postHandler.List)
	posts.GET("/changes", postHandler.Changes)
	posts.GET("/:id", postHandler.Get)
	posts.POST("", writers, postHandler.Create)
	posts.PATCH("/:id", writers, postHandler.Update)
	posts.DELETE("/:id", writers, postHandler.Delete)
	posts.POST("/:id/archive", writers, postHandler.Archive)
	posts.POST("/:id/duplicate", writers, postHandler.Duplicate)

	api.GET("/calendar/events", calendarHandler.Events)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	scheduler.Stop()
	postSvc.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	calendarSvc.Close()
	if err := sideEffects.Drain(shutdownCtx); err != nil {
		logr.Warn("side effects not fully drained", zap.Error(err))
	}
	sideEffects.Stop()
}

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

	_ "github.com/CETS-Org/cets-worker/api/swagger"
	"github.com/CETS-Org/cets-worker/internal/handler"
	"github.com/CETS-Org/cets-worker/internal/middleware"
	"github.com/CETS-Org/cets-worker/internal/repository"
	"github.com/CETS-Org/cets-worker/internal/service"
	"github.com/CETS-Org/cets-worker/internal/worker"
	"github.com/CETS-Org/cets-worker/pkg/cache"
	"github.com/CETS-Org/cets-worker/pkg/config"
	"github.com/CETS-Org/cets-worker/pkg/database"
	"github.com/CETS-Org/cets-worker/pkg/dedup"
	"github.com/CETS-Org/cets-worker/pkg/logger"
	"github.com/CETS-Org/cets-worker/pkg/mail"
	reqidmiddleware "github.com/CETS-Org/cets-worker/pkg/middleware/requestid"
)

// @title CETS Lifecycle Worker Ops API
// @version 0.1.0
// @description Operational surface of the enrollment lifecycle worker
// @BasePath /ops
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	var dedupStore dedup.Store = dedup.NewMemoryStore()
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect redis", "error", err)
		}
		defer redisClient.Close()
		dedupStore = dedup.NewRedisStore(redisClient)
	}

	requestRepo := repository.NewRequestRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	lookupRepo := repository.NewLookupRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	refs, err := service.NewLookupService(lookupRepo, logr).Resolve(ctx)
	if err != nil {
		logr.Sugar().Fatalw("failed to resolve lookup codes", "error", err)
	}

	var mailer service.Mailer
	if cfg.Mail.Enabled {
		mailer = mail.NewSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.From)
	}

	var summaries *service.SummaryService
	if cfg.Summary.Enabled {
		summaries = service.NewSummaryService(cfg.Summary.StorageDir, cfg.Summary.Retries, logr)
		summaries.Start(ctx)
		defer summaries.Stop()
	}

	queries := service.NewQueryService(requestRepo, refs, service.QueryConfig{
		GraceDays:        cfg.Lifecycle.GraceDays,
		ReminderLeadDays: cfg.Lifecycle.ReminderLeadDays,
		BatchLimit:       cfg.Lifecycle.BatchLimit,
	}, logr)
	transitions := service.NewTransitionService(requestRepo, enrollmentRepo, refs, logr)
	notifications := service.NewNotificationService(notificationRepo, mailer, logr)

	lifecycle := service.NewLifecycleService(queries, transitions, notifications, nil, logr)
	if summaries != nil {
		lifecycle = service.NewLifecycleService(queries, transitions, notifications, summaries, logr)
	}
	warnings := service.NewWarningService(attendanceRepo, refs, dedupStore, notifications, service.WarningConfig{
		Cooldown: cfg.Warnings.DedupCooldown,
		TermID:   cfg.Warnings.TermID,
	}, logr)

	triggerAt, err := worker.ParseTimeOfDay(cfg.Lifecycle.TriggerTime)
	if err != nil {
		logr.Sugar().Fatalw("invalid trigger time", "error", err)
	}

	metrics := worker.NewMetrics()
	manager := worker.NewManager(logr)
	for _, kind := range service.LifecycleKinds {
		kind := kind
		manager.Register(worker.NewRunner(string(kind), worker.DailySchedule{At: triggerAt},
			func(ctx context.Context, now time.Time) error {
				summary, err := lifecycle.RunKind(ctx, kind, now)
				metrics.ObserveBatch(string(kind), summary.Transitioned, summary.NotificationsSent, summary.NotificationErrors)
				return err
			},
			worker.SystemClock{}, cfg.Lifecycle.RetryBackoff, metrics, logr))
	}
	manager.Register(worker.NewRunner("attendance-warnings", worker.IntervalSchedule{Every: cfg.Warnings.CheckInterval},
		func(ctx context.Context, now time.Time) error {
			result, err := warnings.Sweep(ctx)
			metrics.ObserveSweep("attendance-warnings", result.Warned, result.SendErrors)
			return err
		},
		worker.SystemClock{}, cfg.Lifecycle.RetryBackoff, metrics, logr))

	manager.Start(ctx)
	defer manager.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))

	ops := handler.NewOpsHandler(manager, metrics, summaries, db, validator.New())

	api := r.Group(cfg.APIPrefix)
	api.GET("/health", ops.Health)
	api.GET("/ready", ops.Ready)
	api.GET("/metrics", ops.Prometheus)

	protected := api.Group("")
	protected.Use(middleware.JWT(cfg.JWT.Secret))
	protected.GET("/jobs", ops.ListJobs)
	protected.POST("/jobs/:name/run", ops.TriggerJob)
	protected.GET("/summaries", ops.ListSummaries)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("ops server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("ops server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("ops server shutdown failed", zap.Error(err))
	}
}

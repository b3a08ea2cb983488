package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/syllabus-workflow-api/api/swagger"
	"github.com/noah-isme/syllabus-workflow-api/internal/handler"
	"github.com/noah-isme/syllabus-workflow-api/internal/repository"
	"github.com/noah-isme/syllabus-workflow-api/internal/service"
	"github.com/noah-isme/syllabus-workflow-api/pkg/cache"
	"github.com/noah-isme/syllabus-workflow-api/pkg/config"
	"github.com/noah-isme/syllabus-workflow-api/pkg/database"
	"github.com/noah-isme/syllabus-workflow-api/pkg/jobs"
	"github.com/noah-isme/syllabus-workflow-api/pkg/logger"
)

// @title Syllabus Workflow API
// @version 1.0.0
// @description Syllabus lifecycle, multi-level approval and collaborative review.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Fatal("server exited", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(
		repository.NewCacheRepository(redisClient),
		metricsSvc,
		cfg.Notifications.UnreadCacheTTL,
		logr,
		cfg.Notifications.UnreadCacheEnable,
	)

	var notificationSvc *service.NotificationService
	queue := jobs.NewQueue("notifications", func(jobCtx context.Context, job jobs.Job) error {
		return notificationSvc.HandleJob(jobCtx, job)
	}, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
		OnExhausted: func(job jobs.Job, err error) {
			notificationSvc.HandleExhausted(job, err)
		},
	})
	notificationSvc = service.NewNotificationService(
		repository.NewNotificationRepository(db),
		cacheSvc,
		metricsSvc,
		logr,
		service.WithNotificationQueue(queue),
		service.WithUnreadCacheTTL(cfg.Notifications.UnreadCacheTTL),
	)
	queue.Start(ctx)
	defer queue.Stop()

	gate := service.NewRoleGate(repository.NewUserRepository(db))
	tokens := service.NewTokenService(service.TokenConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	versionRepo := repository.NewSyllabusVersionRepository(db)
	versionSvc := service.NewSyllabusVersionService(versionRepo, gate, validate, logr)
	workflowSvc := service.NewWorkflowService(repository.NewWorkflowRepository(db), versionRepo, gate, notificationSvc, metricsSvc, validate, logr)
	reviewSvc := service.NewReviewService(repository.NewReviewCommentRepository(db), versionRepo, gate, notificationSvc, validate, logr, cfg.Review.RecentLimit)

	router := newRouter(cfg, logr, routerDeps{
		tokens:      tokens,
		gate:        gate,
		redis:       redisClient,
		metrics:     metricsSvc,
		syllabus:    handler.NewSyllabusHandler(versionSvc),
		workflow:    handler.NewWorkflowHandler(workflowSvc),
		comments:    handler.NewCommentHandler(reviewSvc),
		inbox:       handler.NewNotificationHandler(notificationSvc),
		diagnostics: handler.NewMetricsHandler(metricsSvc, map[string]handler.ReadinessCheck{
			"postgres": db.PingContext,
			"redis": func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		}),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logr.Info("server stopped")
	return nil
}

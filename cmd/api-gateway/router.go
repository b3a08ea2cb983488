package main

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-workflow-api/internal/handler"
	"github.com/noah-isme/syllabus-workflow-api/internal/middleware"
	"github.com/noah-isme/syllabus-workflow-api/internal/service"
	"github.com/noah-isme/syllabus-workflow-api/pkg/config"
	"github.com/noah-isme/syllabus-workflow-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/syllabus-workflow-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/syllabus-workflow-api/pkg/middleware/requestid"
)

type routerDeps struct {
	tokens      *service.TokenService
	gate        *service.RoleGate
	redis       *redis.Client
	metrics     *service.MetricsService
	syllabus    *handler.SyllabusHandler
	workflow    *handler.WorkflowHandler
	comments    *handler.CommentHandler
	inbox       *handler.NotificationHandler
	diagnostics *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metrics))

	r.GET("/health", deps.diagnostics.Health)
	r.GET("/ready", deps.diagnostics.Ready)
	r.GET("/metrics", deps.diagnostics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(deps.tokens))
	if cfg.Idempotency.Enabled {
		api.Use(middleware.Idempotency(deps.redis, middleware.IdempotencyConfig{
			TTL:     cfg.Idempotency.TTL,
			Logger:  logr,
			Metrics: deps.metrics,
		}))
	}

	api.POST("/syllabuses", deps.syllabus.Create)
	api.POST("/syllabus-versions", deps.syllabus.CreateVersion)

	syllabuses := api.Group("/syllabuses/:versionId")
	syllabuses.GET("", deps.syllabus.Get)
	syllabuses.PUT("", deps.syllabus.Update)
	syllabuses.GET("/versions", deps.syllabus.Lineage)

	comments := syllabuses.Group("/comments")
	comments.POST("", deps.comments.Post)
	comments.GET("/count", deps.comments.Count)
	comments.GET("/recent", deps.comments.Recent)
	comments.GET("/all", deps.comments.All)
	comments.POST("/finalize", deps.comments.Finalize)
	comments.GET("/summary", deps.comments.Summary)
	comments.PUT("/:commentId", deps.comments.Update)
	comments.DELETE("/:commentId", deps.comments.Delete)
	comments.POST("/:commentId/replies", deps.comments.Reply)
	comments.GET("/:commentId/replies", deps.comments.Replies)
	comments.POST("/:commentId/resolve", deps.comments.Resolve)

	workflow := api.Group("/workflow")
	workflow.POST("/submit/:versionId", deps.workflow.Submit)
	workflow.POST("/approve/:versionId", deps.workflow.Approve)
	workflow.POST("/reject/:versionId", deps.workflow.Reject)
	workflow.GET("/history/:versionId", deps.workflow.History)
	workflow.GET("/pending", middleware.RequireRoles(deps.gate, middleware.Reviewers...), deps.workflow.Pending)

	notifications := api.Group("/notifications")
	notifications.GET("", deps.inbox.List)
	notifications.GET("/unread-count", deps.inbox.UnreadCount)
	notifications.GET("/stats", deps.inbox.Stats)
	notifications.PUT("/read-all", deps.inbox.MarkAllRead)
	notifications.PUT("/:id/read", deps.inbox.MarkRead)

	return r
}

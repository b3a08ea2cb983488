package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/syllabus-workflow-api/internal/dto"
	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	"github.com/noah-isme/syllabus-workflow-api/pkg/response"
)

type notificationService interface {
	List(ctx context.Context, actorID string, page, size int) ([]models.Notification, *models.Pagination, error)
	MarkRead(ctx context.Context, id, actorID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, actorID string) (int64, error)
	UnreadCount(ctx context.Context, actorID string) (int, error)
	Stats(ctx context.Context, actorID string) (*models.NotificationStats, error)
}

// NotificationHandler serves the actor's notification inbox.
type NotificationHandler struct {
	service notificationService
}

// NewNotificationHandler builds a new handler.
func NewNotificationHandler(service notificationService) *NotificationHandler {
	return &NotificationHandler{service: service}
}

// List godoc
// @Summary List own notifications, newest first
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	items, pagination, err := h.service.List(c.Request.Context(), actorID(c), queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// MarkRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	notification, err := h.service.MarkRead(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, notification)
}

// MarkAllRead godoc
// @Summary Mark every notification as read
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	updated, err := h.service.MarkAllRead(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.MarkAllReadResponse{Updated: updated})
}

// UnreadCount godoc
// @Summary Number of unread notifications
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	count, err := h.service.UnreadCount(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.UnreadCountResponse{UnreadCount: count})
}

// Stats godoc
// @Summary Unread notifications grouped by category
// @Tags Notifications
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /notifications/stats [get]
func (h *NotificationHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

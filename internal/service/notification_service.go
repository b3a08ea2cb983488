package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	"github.com/noah-isme/syllabus-workflow-api/pkg/cache"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
	"github.com/noah-isme/syllabus-workflow-api/pkg/jobs"
)

const (
	defaultNotificationPageSize = 20
	maxNotificationPageSize     = 100
)

type notificationStore interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]models.Notification, int, error)
	MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	Stats(ctx context.Context, recipientID string) (*models.NotificationStats, error)
}

type notificationQueue interface {
	Enqueue(job jobs.Job) error
}

// NotificationEmitter accepts events for asynchronous fan-out.
type NotificationEmitter interface {
	Emit(ctx context.Context, event models.NotificationEvent)
}

// NotificationService stores notification events and serves recipients' inboxes.
type NotificationService struct {
	repo     notificationStore
	cache    *CacheService
	metrics  *MetricsService
	logger   *zap.Logger
	queue    notificationQueue
	cacheTTL time.Duration
	now      func() time.Time
}

// NotificationServiceOption configures the service.
type NotificationServiceOption func(*NotificationService)

// WithNotificationQueue routes Emit through a background queue instead of writing inline.
func WithNotificationQueue(queue notificationQueue) NotificationServiceOption {
	return func(s *NotificationService) {
		s.queue = queue
	}
}

// WithUnreadCacheTTL overrides the unread counter cache TTL.
func WithUnreadCacheTTL(ttl time.Duration) NotificationServiceOption {
	return func(s *NotificationService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// NewNotificationService constructs the service.
func NewNotificationService(repo notificationStore, cacheSvc *CacheService, metrics *MetricsService, logger *zap.Logger, opts ...NotificationServiceOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		repo:     repo,
		cache:    cacheSvc,
		metrics:  metrics,
		logger:   logger,
		cacheTTL: 5 * time.Minute,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Emit hands the event to the queue, or delivers inline when no queue is configured.
// Failures are logged and counted but never returned.
func (s *NotificationService) Emit(ctx context.Context, event models.NotificationEvent) {
	event.Recipients = distinctRecipients(event.Recipients)
	if len(event.Recipients) == 0 {
		return
	}

	if s.queue == nil {
		if err := s.Deliver(context.WithoutCancel(ctx), event); err != nil {
			s.metrics.RecordNotification(string(event.Kind), "failed", len(event.Recipients))
			s.logger.Warn("notification delivery failed", zap.String("kind", string(event.Kind)), zap.Error(err))
		}
		return
	}

	job := jobs.Job{ID: uuid.NewString(), Type: string(event.Kind), Payload: event}
	if err := s.queue.Enqueue(job); err != nil {
		s.metrics.RecordNotification(string(event.Kind), "dropped", len(event.Recipients))
		s.logger.Error("notification enqueue failed",
			zap.String("kind", string(event.Kind)),
			zap.Int("recipients", len(event.Recipients)),
			zap.Error(err))
	}
}

// HandleJob is the queue handler; returned errors trigger a retry.
func (s *NotificationService) HandleJob(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.NotificationEvent)
	if !ok {
		s.logger.Error("unexpected notification job payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	return s.Deliver(ctx, event)
}

// HandleExhausted records a notification job that ran out of retries.
func (s *NotificationService) HandleExhausted(job jobs.Job, err error) {
	kind := job.Type
	recipients := 1
	if event, ok := job.Payload.(models.NotificationEvent); ok {
		recipients = len(event.Recipients)
	}
	s.metrics.RecordNotification(kind, "failed", recipients)
	s.logger.Error("notification fan-out abandoned", zap.String("job_id", job.ID), zap.String("kind", kind), zap.Error(err))
}

// Deliver persists one notification per distinct recipient and refreshes unread counters.
func (s *NotificationService) Deliver(ctx context.Context, event models.NotificationEvent) error {
	recipients := distinctRecipients(event.Recipients)
	if len(recipients) == 0 {
		return nil
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		s.metrics.RecordNotification(string(event.Kind), "failed", len(recipients))
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	createdAt := s.now()
	batch := make([]models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		batch = append(batch, models.Notification{
			RecipientID: recipient,
			Kind:        event.Kind,
			Title:       event.Title,
			Message:     event.Message,
			Payload:     payload,
			CreatedAt:   createdAt,
		})
	}
	if err := s.repo.CreateBatch(ctx, batch); err != nil {
		return err
	}
	s.metrics.RecordNotification(string(event.Kind), "delivered", len(recipients))

	keys := make([]string, 0, len(recipients))
	for _, recipient := range recipients {
		keys = append(keys, unreadCacheKey(recipient))
	}
	_ = s.cache.Invalidate(ctx, keys...)
	return nil
}

// List returns a page of the actor's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, actorID string, page, size int) ([]models.Notification, *models.Pagination, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultNotificationPageSize
	}
	if size > maxNotificationPageSize {
		size = maxNotificationPageSize
	}
	items, total, err := s.repo.ListByRecipient(ctx, actorID, size, (page-1)*size)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list notifications")
	}
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkRead sets read_at on a notification owned by the actor.
func (s *NotificationService) MarkRead(ctx context.Context, id, actorID string) (*models.Notification, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Internal(err, "failed to load notification")
	}
	if existing.RecipientID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another recipient")
	}
	updated, err := s.repo.MarkRead(ctx, id, actorID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Internal(err, "failed to mark notification read")
	}
	_ = s.cache.Invalidate(ctx, unreadCacheKey(actorID))
	return updated, nil
}

// MarkAllRead marks every unread notification of the actor.
func (s *NotificationService) MarkAllRead(ctx context.Context, actorID string) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, actorID, s.now())
	if err != nil {
		return 0, appErrors.Internal(err, "failed to mark notifications read")
	}
	_ = s.cache.Invalidate(ctx, unreadCacheKey(actorID))
	return updated, nil
}

// UnreadCount returns the number of unread notifications, cached per recipient.
func (s *NotificationService) UnreadCount(ctx context.Context, actorID string) (int, error) {
	key := unreadCacheKey(actorID)
	var cached int
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return cached, nil
	}
	count, err := s.repo.CountUnread(ctx, actorID)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to count unread notifications")
	}
	_ = s.cache.Set(ctx, key, count, s.cacheTTL)
	return count, nil
}

// Stats reports unread notifications grouped into reviews to start, approvals to
// continue and rejections to address.
func (s *NotificationService) Stats(ctx context.Context, actorID string) (*models.NotificationStats, error) {
	stats, err := s.repo.Stats(ctx, actorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load notification stats")
	}
	return stats, nil
}

func unreadCacheKey(recipientID string) string {
	return cache.Key("notifications", "unread", recipientID)
}

func distinctRecipients(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

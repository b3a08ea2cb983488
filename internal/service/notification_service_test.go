package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	"github.com/noah-isme/syllabus-workflow-api/internal/repository"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
	"github.com/noah-isme/syllabus-workflow-api/pkg/jobs"
)

type notificationMemory struct {
	mu         sync.Mutex
	items      []models.Notification
	failures   int
	countCalls int
}

func (m *notificationMemory) CreateBatch(_ context.Context, batch []models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("insert failed")
	}
	for _, n := range batch {
		n.ID = fmt.Sprintf("n-%02d", len(m.items)+1)
		m.items = append(m.items, n)
	}
	return nil
}

func (m *notificationMemory) find(id string) *models.Notification {
	for i := range m.items {
		if m.items[i].ID == id {
			return &m.items[i]
		}
	}
	return nil
}

func (m *notificationMemory) GetByID(_ context.Context, id string) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(id)
	if n == nil {
		return nil, sql.ErrNoRows
	}
	clone := *n
	return &clone, nil
}

func (m *notificationMemory) ListByRecipient(_ context.Context, recipientID string, limit, offset int) ([]models.Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range m.items {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	total := len(out)
	if offset >= total {
		return []models.Notification{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *notificationMemory) MarkRead(_ context.Context, id, recipientID string, at time.Time) (*models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.find(id)
	if n == nil || n.RecipientID != recipientID {
		return nil, sql.ErrNoRows
	}
	if n.ReadAt == nil {
		n.ReadAt = &at
	}
	clone := *n
	return &clone, nil
}

func (m *notificationMemory) MarkAllRead(_ context.Context, recipientID string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var updated int64
	for i := range m.items {
		if m.items[i].RecipientID == recipientID && m.items[i].ReadAt == nil {
			m.items[i].ReadAt = &at
			updated++
		}
	}
	return updated, nil
}

func (m *notificationMemory) CountUnread(_ context.Context, recipientID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.countCalls++
	count := 0
	for _, n := range m.items {
		if n.RecipientID == recipientID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (m *notificationMemory) Stats(_ context.Context, recipientID string) (*models.NotificationStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := func(kind models.NotificationKind, kinds []models.NotificationKind) bool {
		for _, k := range kinds {
			if k == kind {
				return true
			}
		}
		return false
	}
	stats := &models.NotificationStats{}
	for _, n := range m.items {
		if n.RecipientID != recipientID || n.ReadAt != nil {
			continue
		}
		stats.TotalUnread++
		switch {
		case n.Kind == models.NotificationSubmitted:
			stats.PendingReviews++
		case in(n.Kind, models.PendingApprovalKinds):
			stats.PendingApprovals++
		case in(n.Kind, models.RejectionKinds):
			stats.Rejections++
		}
	}
	return stats, nil
}

func (m *notificationMemory) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func newRedisCache(t *testing.T, metrics *MetricsService) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCacheService(repository.NewCacheRepository(client), metrics, time.Minute, nil, true), mr
}

func sampleEvent(recipients ...string) models.NotificationEvent {
	return models.NotificationEvent{
		Kind:       models.NotificationSubmitted,
		Recipients: recipients,
		Title:      "Syllabus submitted for review",
		Message:    "CS101 v1 was submitted.",
		Payload:    map[string]interface{}{"versionId": "v-1"},
	}
}

func TestNotificationEmitInlineDedupesRecipients(t *testing.T) {
	ctx := context.Background()
	store := &notificationMemory{}
	metrics := NewMetricsService()
	svc := NewNotificationService(store, nil, metrics, nil)

	svc.Emit(ctx, sampleEvent("hod-1", "lect-1", "hod-1", ""))

	require.Equal(t, 2, store.len())
	items, pagination, err := svc.List(ctx, "hod-1", 1, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, pagination.TotalCount)
	assert.Equal(t, defaultNotificationPageSize, pagination.PageSize)
	assert.JSONEq(t, `{"versionId":"v-1"}`, string(items[0].Payload))
	assert.Equal(t, 2.0, counterValue(t, metrics, "notifications_emitted_total", map[string]string{"result": "delivered"}))

	svc.Emit(ctx, sampleEvent())
	assert.Equal(t, 2, store.len())
}

func TestNotificationEmitFailureIsSwallowed(t *testing.T) {
	store := &notificationMemory{failures: 1}
	metrics := NewMetricsService()
	svc := NewNotificationService(store, nil, metrics, nil)

	assert.NotPanics(t, func() { svc.Emit(context.Background(), sampleEvent("lect-1")) })
	assert.Equal(t, 0, store.len())
	assert.Equal(t, 1.0, counterValue(t, metrics, "notifications_emitted_total", map[string]string{"result": "failed"}))
}

func TestNotificationMarkRead(t *testing.T) {
	ctx := context.Background()
	store := &notificationMemory{}
	svc := NewNotificationService(store, nil, nil, nil)
	svc.Emit(ctx, sampleEvent("lect-1", "hod-1"))

	items, _, err := svc.List(ctx, "lect-1", 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	id := items[0].ID

	_, err = svc.MarkRead(ctx, id, "hod-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.MarkRead(ctx, "n-99", "lect-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	read, err := svc.MarkRead(ctx, id, "lect-1")
	require.NoError(t, err)
	require.NotNil(t, read.ReadAt)
	first := *read.ReadAt

	again, err := svc.MarkRead(ctx, id, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, first, *again.ReadAt)
}

func TestNotificationUnreadCountCached(t *testing.T) {
	ctx := context.Background()
	store := &notificationMemory{}
	metrics := NewMetricsService()
	cacheSvc, mr := newRedisCache(t, metrics)
	svc := NewNotificationService(store, cacheSvc, metrics, nil, WithUnreadCacheTTL(30*time.Second))

	svc.Emit(ctx, sampleEvent("lect-1"))
	svc.Emit(ctx, sampleEvent("lect-1"))

	count, err := svc.UnreadCount(ctx, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.True(t, mr.Exists(unreadCacheKey("lect-1")))

	count, err = svc.UnreadCount(ctx, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, store.countCalls)

	updated, err := svc.MarkAllRead(ctx, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	assert.False(t, mr.Exists(unreadCacheKey("lect-1")))

	count, err = svc.UnreadCount(ctx, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	svc.Emit(ctx, sampleEvent("lect-1"))
	assert.False(t, mr.Exists(unreadCacheKey("lect-1")))

	mr.FastForward(time.Minute)
	count, err = svc.UnreadCount(ctx, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNotificationEmitThroughQueue(t *testing.T) {
	store := &notificationMemory{failures: 1}
	metrics := NewMetricsService()
	var svc *NotificationService
	queue := jobs.NewQueue("notifications", func(ctx context.Context, job jobs.Job) error {
		return svc.HandleJob(ctx, job)
	}, jobs.QueueConfig{Workers: 1, BufferSize: 4, MaxRetries: 2, RetryDelay: 10 * time.Millisecond})
	svc = NewNotificationService(store, nil, metrics, nil, WithNotificationQueue(queue))

	svc.Emit(context.Background(), sampleEvent("lect-1"))
	assert.Equal(t, 1.0, counterValue(t, metrics, "notifications_emitted_total", map[string]string{"result": "dropped"}))

	queue.Start(context.Background())
	t.Cleanup(queue.Stop)

	svc.Emit(context.Background(), sampleEvent("lect-1", "hod-1"))
	assert.Eventually(t, func() bool { return store.len() == 2 }, time.Second, 10*time.Millisecond)
}

func TestNotificationHandleExhausted(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(&notificationMemory{}, nil, metrics, nil)

	svc.HandleExhausted(jobs.Job{ID: "j-1", Type: string(models.NotificationPublished), Payload: sampleEvent("a", "b", "c")}, errors.New("db down"))
	assert.Equal(t, 3.0, counterValue(t, metrics, "notifications_emitted_total", map[string]string{"kind": string(models.NotificationPublished), "result": "failed"}))
}

func TestNotificationStats(t *testing.T) {
	ctx := context.Background()
	store := &notificationMemory{}
	svc := NewNotificationService(store, nil, nil, nil)

	for _, kind := range []models.NotificationKind{
		models.NotificationSubmitted,
		models.NotificationSubmitted,
		models.NotificationApprovedByHoD,
		models.NotificationApprovedByAA,
		models.NotificationRejectedByAA,
		models.NotificationCommentAdded,
	} {
		event := sampleEvent("hod-1")
		event.Kind = kind
		svc.Emit(ctx, event)
	}
	svc.Emit(ctx, sampleEvent("aa-1"))

	stats, err := svc.Stats(ctx, "hod-1")
	require.NoError(t, err)
	assert.Equal(t, models.NotificationStats{TotalUnread: 6, PendingReviews: 2, PendingApprovals: 2, Rejections: 1}, *stats)

	_, err = svc.MarkAllRead(ctx, "hod-1")
	require.NoError(t, err)
	stats, err = svc.Stats(ctx, "hod-1")
	require.NoError(t, err)
	assert.Zero(t, stats.TotalUnread)

	stats, err = svc.Stats(ctx, "aa-1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingReviews)
}

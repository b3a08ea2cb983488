package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
)

const notificationColumns = `id, recipient_id, kind, title, message, payload, created_at, read_at`

// NotificationRepository stores notification events.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateBatch inserts all notifications with a single statement.
func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	now := time.Now().UTC()
	for i := range notifications {
		if notifications[i].ID == "" {
			notifications[i].ID = uuid.NewString()
		}
		if notifications[i].CreatedAt.IsZero() {
			notifications[i].CreatedAt = now
		}
		if len(notifications[i].Payload) == 0 {
			notifications[i].Payload = []byte(`{}`)
		}
	}
	const query = `INSERT INTO notification_events (id, recipient_id, kind, title, message, payload, created_at)
	VALUES (:id, :recipient_id, :kind, :title, :message, :payload, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notifications); err != nil {
		return fmt.Errorf("create notifications: %w", err)
	}
	return nil
}

// GetByID fetches a notification by identifier.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_events WHERE id = $1`
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &notification, nil
}

// ListByRecipient returns a page of notifications, newest first, with the total count.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]models.Notification, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM notification_events WHERE recipient_id = $1`, recipientID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}
	notifications := make([]models.Notification, 0)
	query := `SELECT ` + notificationColumns + ` FROM notification_events WHERE recipient_id = $1
	ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &notifications, query, recipientID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead stamps read_at once; repeated calls keep the first timestamp.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string, at time.Time) (*models.Notification, error) {
	query := `UPDATE notification_events SET read_at = COALESCE(read_at, $3)
	WHERE id = $1 AND recipient_id = $2
	RETURNING ` + notificationColumns
	var notification models.Notification
	if err := r.db.GetContext(ctx, &notification, query, id, recipientID, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return &notification, nil
}

// MarkAllRead stamps every unread notification of the recipient.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	const query = `UPDATE notification_events SET read_at = $2 WHERE recipient_id = $1 AND read_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, recipientID, at)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check mark all rows: %w", err)
	}
	return rows, nil
}

// CountUnread counts notifications without read_at.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	const query = `SELECT COUNT(*) FROM notification_events WHERE recipient_id = $1 AND read_at IS NULL`
	if err := r.db.GetContext(ctx, &count, query, recipientID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// Stats counts the recipient's unread notifications per category.
func (r *NotificationRepository) Stats(ctx context.Context, recipientID string) (*models.NotificationStats, error) {
	const query = `SELECT COUNT(*) AS total_unread,
	       COUNT(*) FILTER (WHERE kind = $2) AS pending_reviews,
	       COUNT(*) FILTER (WHERE kind = ANY($3)) AS pending_approvals,
	       COUNT(*) FILTER (WHERE kind = ANY($4)) AS rejections
	FROM notification_events WHERE recipient_id = $1 AND read_at IS NULL`
	var stats models.NotificationStats
	err := r.db.GetContext(ctx, &stats, query, recipientID, models.NotificationSubmitted,
		pq.Array(kindStrings(models.PendingApprovalKinds)), pq.Array(kindStrings(models.RejectionKinds)))
	if err != nil {
		return nil, fmt.Errorf("notification stats: %w", err)
	}
	return &stats, nil
}

func kindStrings(kinds []models.NotificationKind) []string {
	out := make([]string, len(kinds))
	for i, kind := range kinds {
		out[i] = string(kind)
	}
	return out
}

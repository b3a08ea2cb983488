package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// NotificationKind identifies the event that produced a notification.
type NotificationKind string

const (
	NotificationSubmitted           NotificationKind = "SYLLABUS_SUBMITTED"
	NotificationApprovedByHoD       NotificationKind = "SYLLABUS_APPROVED_BY_HOD"
	NotificationRejectedByHoD       NotificationKind = "SYLLABUS_REJECTED_BY_HOD"
	NotificationApprovedByAA        NotificationKind = "SYLLABUS_APPROVED_BY_AA"
	NotificationRejectedByAA        NotificationKind = "SYLLABUS_REJECTED_BY_AA"
	NotificationPublished           NotificationKind = "SYLLABUS_PUBLISHED"
	NotificationRejectedByPrincipal NotificationKind = "SYLLABUS_REJECTED_BY_PRINCIPAL"
	NotificationArchived            NotificationKind = "SYLLABUS_ARCHIVED"
	NotificationCommentAdded        NotificationKind = "COMMENT_ADDED"
	NotificationReviewFinalized     NotificationKind = "REVIEW_FINALIZED"
)

// Notification is a stored event addressed to one recipient.
type Notification struct {
	ID          string           `db:"id" json:"id"`
	RecipientID string           `db:"recipient_id" json:"recipientId"`
	Kind        NotificationKind `db:"kind" json:"kind"`
	Title       string           `db:"title" json:"title"`
	Message     string           `db:"message" json:"message"`
	Payload     types.JSONText   `db:"payload" json:"payload" swaggertype:"object"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
	ReadAt      *time.Time       `db:"read_at" json:"readAt,omitempty"`
}

// NotificationStats breaks a recipient's unread notifications down by what they ask of them.
type NotificationStats struct {
	TotalUnread      int `db:"total_unread" json:"totalUnread"`
	PendingReviews   int `db:"pending_reviews" json:"pendingReviews"`
	PendingApprovals int `db:"pending_approvals" json:"pendingApprovals"`
	Rejections       int `db:"rejections" json:"rejections"`
}

// PendingApprovalKinds are the events that hand a syllabus to the next approver.
var PendingApprovalKinds = []NotificationKind{NotificationApprovedByHoD, NotificationApprovedByAA}

// RejectionKinds are the events that return a syllabus to its lecturer.
var RejectionKinds = []NotificationKind{NotificationRejectedByHoD, NotificationRejectedByAA, NotificationRejectedByPrincipal}

// NotificationEvent is the unit handed to the dispatcher before fan-out.
type NotificationEvent struct {
	Kind       NotificationKind       `json:"kind"`
	Recipients []string               `json:"recipients"`
	Title      string                 `json:"title"`
	Message    string                 `json:"message"`
	Payload    map[string]interface{} `json:"payload"`
}

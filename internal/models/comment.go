package models

import "time"

// CommentType classifies review comments.
type CommentType string

const CommentTypeReview CommentType = "REVIEW"

// CommentStatus tracks whether the point raised by a comment was addressed.
type CommentStatus string

const (
	CommentOpen     CommentStatus = "OPEN"
	CommentResolved CommentStatus = "RESOLVED"
	CommentClosed   CommentStatus = "CLOSED"
)

// ParseCommentStatus accepts only the exact status names.
func ParseCommentStatus(raw string) (CommentStatus, bool) {
	switch status := CommentStatus(raw); status {
	case CommentOpen, CommentResolved, CommentClosed:
		return status, true
	default:
		return "", false
	}
}

// ReviewComment is a single comment on a syllabus version. Replies point at a
// top-level comment through ParentCommentID; threads are one level deep.
type ReviewComment struct {
	ID                string        `db:"id" json:"id"`
	SyllabusVersionID string        `db:"syllabus_version_id" json:"syllabusVersionId"`
	ParentCommentID   *string       `db:"parent_comment_id" json:"parentCommentId,omitempty"`
	AuthorID          string        `db:"author_id" json:"authorId"`
	AuthorName        string        `db:"author_name" json:"authorName,omitempty"`
	Content           string        `db:"content" json:"content"`
	Type              CommentType   `db:"type" json:"type"`
	Status            CommentStatus `db:"status" json:"status"`
	ReplyCount        int           `db:"reply_count" json:"replyCount"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	EditedAt          *time.Time    `db:"edited_at" json:"editedAt,omitempty"`
	ResolvedBy        *string       `db:"resolved_by" json:"resolvedBy,omitempty"`
	ResolvedAt        *time.Time    `db:"resolved_at" json:"resolvedAt,omitempty"`
	ResolutionNote    *string       `db:"resolution_note" json:"resolutionNote,omitempty"`
	FinalizedAt       *time.Time    `db:"finalized_at" json:"finalizedAt,omitempty"`
}

// IsReply reports whether the comment belongs to another comment's thread.
func (c ReviewComment) IsReply() bool {
	return c.ParentCommentID != nil
}

// CommentStats aggregates comment activity for one version.
type CommentStats struct {
	CommentCount     int `db:"comment_count" json:"commentCount"`
	ParticipantCount int `db:"participant_count" json:"participantCount"`
	MyCommentCount   int `db:"my_comment_count" json:"myCommentCount"`
	OpenThreadCount  int `db:"open_thread_count" json:"openThreadCount"`
}

// ReviewSummary is the compiled, append-only result of finalizing review comments.
type ReviewSummary struct {
	ID                string        `db:"id" json:"id"`
	SyllabusVersionID string        `db:"syllabus_version_id" json:"syllabusVersionId"`
	Level             ApprovalLevel `db:"level" json:"level"`
	FinalizedBy       string        `db:"finalized_by" json:"finalizedBy"`
	Summary           string        `db:"summary" json:"summary"`
	CommentCount      int           `db:"comment_count" json:"commentCount"`
	ParticipantCount  int           `db:"participant_count" json:"participantCount"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
}

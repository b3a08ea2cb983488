package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	"github.com/noah-isme/syllabus-workflow-api/pkg/database"
)

const reviewCommentSelect = `SELECT c.id, c.syllabus_version_id, c.parent_comment_id, c.author_id,
       COALESCE(u.full_name, '') AS author_name, c.content, c.type, c.status,
       (SELECT COUNT(*) FROM review_comments r WHERE r.parent_comment_id = c.id) AS reply_count,
       c.created_at, c.edited_at, c.resolved_by, c.resolved_at, c.resolution_note, c.finalized_at
	FROM review_comments c
	LEFT JOIN users u ON u.id = c.author_id`

const reviewSummaryColumns = `id, syllabus_version_id, level, finalized_by, summary, comment_count, participant_count, created_at`

// ReviewCommentRepository persists review comments and compiled summaries.
type ReviewCommentRepository struct {
	db *sqlx.DB
}

// NewReviewCommentRepository constructs the repository.
func NewReviewCommentRepository(db *sqlx.DB) *ReviewCommentRepository {
	return &ReviewCommentRepository{db: db}
}

// Create appends a comment.
func (r *ReviewCommentRepository) Create(ctx context.Context, comment *models.ReviewComment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if comment.Type == "" {
		comment.Type = models.CommentTypeReview
	}
	if comment.Status == "" {
		comment.Status = models.CommentOpen
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO review_comments (id, syllabus_version_id, parent_comment_id, author_id, content, type, status, created_at)
	VALUES (:id, :syllabus_version_id, :parent_comment_id, :author_id, :content, :type, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, comment); err != nil {
		return fmt.Errorf("create review comment: %w", err)
	}
	return nil
}

// GetByID fetches a comment by identifier.
func (r *ReviewCommentRepository) GetByID(ctx context.Context, id string) (*models.ReviewComment, error) {
	var comment models.ReviewComment
	if err := r.db.GetContext(ctx, &comment, reviewCommentSelect+` WHERE c.id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get review comment: %w", err)
	}
	return &comment, nil
}

// ListByVersion returns every comment in ascending (created_at, id) order.
func (r *ReviewCommentRepository) ListByVersion(ctx context.Context, versionID string) ([]models.ReviewComment, error) {
	comments := make([]models.ReviewComment, 0)
	query := reviewCommentSelect + ` WHERE c.syllabus_version_id = $1 ORDER BY c.created_at ASC, c.id ASC`
	if err := r.db.SelectContext(ctx, &comments, query, versionID); err != nil {
		return nil, fmt.Errorf("list review comments: %w", err)
	}
	return comments, nil
}

// ListReplies returns the replies of a top-level comment in ascending (created_at, id) order.
func (r *ReviewCommentRepository) ListReplies(ctx context.Context, parentID string) ([]models.ReviewComment, error) {
	replies := make([]models.ReviewComment, 0)
	query := reviewCommentSelect + ` WHERE c.parent_comment_id = $1 ORDER BY c.created_at ASC, c.id ASC`
	if err := r.db.SelectContext(ctx, &replies, query, parentID); err != nil {
		return nil, fmt.Errorf("list comment replies: %w", err)
	}
	return replies, nil
}

// ListRecent returns the newest comments first.
func (r *ReviewCommentRepository) ListRecent(ctx context.Context, versionID string, limit int) ([]models.ReviewComment, error) {
	comments := make([]models.ReviewComment, 0)
	query := reviewCommentSelect + ` WHERE c.syllabus_version_id = $1 ORDER BY c.created_at DESC, c.id DESC LIMIT $2`
	if err := r.db.SelectContext(ctx, &comments, query, versionID, limit); err != nil {
		return nil, fmt.Errorf("list recent review comments: %w", err)
	}
	return comments, nil
}

// Stats aggregates comment counts for the version and the given actor.
func (r *ReviewCommentRepository) Stats(ctx context.Context, versionID, actorID string) (*models.CommentStats, error) {
	const query = `SELECT COUNT(*) AS comment_count,
	       COUNT(DISTINCT author_id) AS participant_count,
	       COUNT(*) FILTER (WHERE author_id = $2) AS my_comment_count,
       COUNT(*) FILTER (WHERE parent_comment_id IS NULL AND status = $3) AS open_thread_count
	FROM review_comments WHERE syllabus_version_id = $1`
	var stats models.CommentStats
	if err := r.db.GetContext(ctx, &stats, query, versionID, actorID, models.CommentOpen); err != nil {
		return nil, fmt.Errorf("count review comments: %w", err)
	}
	return &stats, nil
}

// Participants returns the distinct comment authors of a version.
func (r *ReviewCommentRepository) Participants(ctx context.Context, versionID string) ([]string, error) {
	participants := make([]string, 0)
	const query = `SELECT DISTINCT author_id FROM review_comments WHERE syllabus_version_id = $1 ORDER BY author_id`
	if err := r.db.SelectContext(ctx, &participants, query, versionID); err != nil {
		return nil, fmt.Errorf("list review participants: %w", err)
	}
	return participants, nil
}

// Delete removes an unfinalized comment owned by authorID that has no replies.
// sql.ErrNoRows means nothing matched.
func (r *ReviewCommentRepository) Delete(ctx context.Context, versionID, commentID, authorID string) error {
	const query = `DELETE FROM review_comments
	WHERE id = $1 AND syllabus_version_id = $2 AND author_id = $3 AND finalized_at IS NULL
	AND NOT EXISTS (SELECT 1 FROM review_comments r WHERE r.parent_comment_id = $1)`
	result, err := r.db.ExecContext(ctx, query, commentID, versionID, authorID)
	if err != nil {
		return fmt.Errorf("delete review comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check review comment delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateContent rewrites an unfinalized comment owned by authorID and stamps edited_at.
// sql.ErrNoRows means nothing matched.
func (r *ReviewCommentRepository) UpdateContent(ctx context.Context, versionID, commentID, authorID, content string, at time.Time) error {
	const query = `UPDATE review_comments SET content = $4, edited_at = $5
	WHERE id = $1 AND syllabus_version_id = $2 AND author_id = $3 AND finalized_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, commentID, versionID, authorID, content, at)
	if err != nil {
		return fmt.Errorf("update review comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check review comment update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ResolveParams describes a status change of a top-level comment. Reopening
// passes nil By, At and Note.
type ResolveParams struct {
	VersionID string
	CommentID string
	Status    models.CommentStatus
	By        *string
	At        *time.Time
	Note      *string
}

// SetStatus resolves, closes or reopens a top-level comment. sql.ErrNoRows means nothing matched.
func (r *ReviewCommentRepository) SetStatus(ctx context.Context, params ResolveParams) error {
	const query = `UPDATE review_comments SET status = $3, resolved_by = $4, resolved_at = $5, resolution_note = $6
	WHERE id = $1 AND syllabus_version_id = $2 AND parent_comment_id IS NULL`
	result, err := r.db.ExecContext(ctx, query, params.CommentID, params.VersionID, params.Status, params.By, params.At, params.Note)
	if err != nil {
		return fmt.Errorf("set review comment status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check review comment status rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FinalizeParams groups the writes of a review finalization. Open holds the
// unfinalized comments the summary was compiled from.
type FinalizeParams struct {
	Summary        *models.ReviewSummary
	ExpectedStatus models.SyllabusStatus
	Open           []models.ReviewComment
}

type frozenComment struct {
	ID      string `db:"id"`
	Content string `db:"content"`
}

// Finalize stores the summary, stamps the version review metadata and freezes the
// open comments in one transaction. ErrDuplicate means the level was already
// finalized; sql.ErrNoRows means the version left ExpectedStatus; ErrStaleComments
// means a comment was posted, edited or deleted after the summary was compiled.
func (r *ReviewCommentRepository) Finalize(ctx context.Context, params FinalizeParams) error {
	summary := params.Summary
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO review_summaries (` + reviewSummaryColumns + `)
		VALUES (:id, :syllabus_version_id, :level, :finalized_by, :summary, :comment_count, :participant_count, :created_at)`
		if _, err := tx.NamedExecContext(ctx, insert, summary); err != nil {
			if errors.Is(mapUniqueViolation(err), ErrDuplicate) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert review summary: %w", err)
		}

		const stamp = `UPDATE syllabus_versions SET review_summary = $1, review_finalized_by = $2,
		review_finalized_at = $3, review_finalized_level = $4, updated_at = $3
		WHERE id = $5 AND status = $6`
		result, err := tx.ExecContext(ctx, stamp, summary.Summary, summary.FinalizedBy, summary.CreatedAt,
			summary.Level, summary.SyllabusVersionID, params.ExpectedStatus)
		if err != nil {
			return fmt.Errorf("stamp review metadata: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check review metadata rows: %w", err)
		}
		if rows == 0 {
			return sql.ErrNoRows
		}

		const freeze = `UPDATE review_comments SET finalized_at = $1
		WHERE syllabus_version_id = $2 AND finalized_at IS NULL
		RETURNING id, content`
		frozen := make([]frozenComment, 0)
		if err := tx.SelectContext(ctx, &frozen, freeze, summary.CreatedAt, summary.SyllabusVersionID); err != nil {
			return fmt.Errorf("freeze review comments: %w", err)
		}
		if !sameComments(params.Open, frozen) {
			return ErrStaleComments
		}
		return nil
	})
}

func sameComments(open []models.ReviewComment, frozen []frozenComment) bool {
	if len(open) != len(frozen) {
		return false
	}
	want := make(map[string]string, len(open))
	for _, c := range open {
		want[c.ID] = c.Content
	}
	for _, c := range frozen {
		content, ok := want[c.ID]
		if !ok || content != c.Content {
			return false
		}
	}
	return true
}

// LatestSummary returns the most recent compiled summary of a version.
func (r *ReviewCommentRepository) LatestSummary(ctx context.Context, versionID string) (*models.ReviewSummary, error) {
	query := `SELECT ` + reviewSummaryColumns + ` FROM review_summaries WHERE syllabus_version_id = $1 ORDER BY created_at DESC, id DESC LIMIT 1`
	var summary models.ReviewSummary
	if err := r.db.GetContext(ctx, &summary, query, versionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get review summary: %w", err)
	}
	return &summary, nil
}

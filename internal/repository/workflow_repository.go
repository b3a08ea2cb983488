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

const approvalActionColumns = `id, syllabus_version_id, level, actor_id, decision, notes, from_status, to_status, created_at`

// WorkflowRepository executes status transitions and owns the approval audit log.
type WorkflowRepository struct {
	db *sqlx.DB
}

// NewWorkflowRepository constructs the repository.
func NewWorkflowRepository(db *sqlx.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

// TransitionParams describes one compare-and-set status change.
type TransitionParams struct {
	VersionID string
	From      models.SyllabusStatus
	To        models.SyllabusStatus
	Action    *models.ApprovalAction
	At        time.Time
}

// TransitionOutcome carries the updated version and any versions archived by a publish.
type TransitionOutcome struct {
	Version  *models.SyllabusVersion
	Archived []models.SyllabusVersion
}

// Transition moves a version from params.From to params.To, appending the approval action
// and applying publish side effects in the same transaction. sql.ErrNoRows means the
// version was no longer in params.From; ErrSuperseded rolls back a publish that would
// land below a newer published version.
func (r *WorkflowRepository) Transition(ctx context.Context, params TransitionParams) (*TransitionOutcome, error) {
	if params.At.IsZero() {
		params.At = time.Now().UTC()
	}
	outcome := &TransitionOutcome{}

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var publishedAt *time.Time
		if params.To == models.StatusPublished {
			publishedAt = &params.At
		}
		update := `UPDATE syllabus_versions SET status = $1, updated_at = $2, published_at = COALESCE($3, published_at)
		WHERE id = $4 AND status = $5
		RETURNING ` + syllabusVersionColumns
		var version models.SyllabusVersion
		if err := tx.GetContext(ctx, &version, update, params.To, params.At, publishedAt, params.VersionID, params.From); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			return fmt.Errorf("update syllabus status: %w", err)
		}
		outcome.Version = &version

		if params.Action != nil {
			action := params.Action
			if action.ID == "" {
				action.ID = uuid.NewString()
			}
			action.SyllabusVersionID = params.VersionID
			action.FromStatus = params.From
			action.ToStatus = params.To
			action.CreatedAt = params.At
			const insert = `INSERT INTO approval_actions (` + approvalActionColumns + `)
			VALUES (:id, :syllabus_version_id, :level, :actor_id, :decision, :notes, :from_status, :to_status, :created_at)`
			if _, err := tx.NamedExecContext(ctx, insert, action); err != nil {
				return fmt.Errorf("insert approval action: %w", err)
			}
		}

		if params.To == models.StatusPublished {
			archived, err := publishLineage(ctx, tx, &version, params.At)
			if err != nil {
				return err
			}
			outcome.Archived = archived
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// publishLineage archives older published versions of the course and hands the latest
// flag to the published version unless a newer version already heads the lineage.
// ErrSuperseded means a newer version is already published; ErrLocked means another
// transaction holds a row of the lineage.
func publishLineage(ctx context.Context, tx *sqlx.Tx, version *models.SyllabusVersion, at time.Time) ([]models.SyllabusVersion, error) {
	var locked []string
	const lockLineage = `SELECT id FROM syllabus_versions WHERE course_code = $1 AND id <> $2 ORDER BY version_no FOR UPDATE NOWAIT`
	if err := tx.SelectContext(ctx, &locked, lockLineage, version.CourseCode, version.ID); err != nil {
		if errors.Is(mapLockNotAvailable(err), ErrLocked) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lock lineage: %w", err)
	}

	var newer struct {
		Exists    bool `db:"newer"`
		Published bool `db:"newer_published"`
	}
	const checkNewer = `SELECT COUNT(*) > 0 AS newer, COUNT(*) FILTER (WHERE status = $3) > 0 AS newer_published
	FROM syllabus_versions WHERE course_code = $1 AND version_no > $2`
	if err := tx.GetContext(ctx, &newer, checkNewer, version.CourseCode, version.VersionNo, models.StatusPublished); err != nil {
		return nil, fmt.Errorf("check newer versions: %w", err)
	}
	if newer.Published {
		return nil, ErrSuperseded
	}

	archive := `UPDATE syllabus_versions SET status = $1, archived_at = $2, updated_at = $2
	WHERE course_code = $3 AND status = $4 AND version_no < $5
	RETURNING ` + syllabusVersionColumns
	var archived []models.SyllabusVersion
	if err := tx.SelectContext(ctx, &archived, archive,
		models.StatusArchived, at, version.CourseCode, models.StatusPublished, version.VersionNo); err != nil {
		return nil, fmt.Errorf("archive superseded versions: %w", err)
	}

	if newer.Exists || version.IsLatestVersion {
		return archived, nil
	}

	const clearLatest = `UPDATE syllabus_versions SET is_latest_version = FALSE, updated_at = $3
	WHERE course_code = $1 AND id <> $2 AND is_latest_version = TRUE`
	if _, err := tx.ExecContext(ctx, clearLatest, version.CourseCode, version.ID, at); err != nil {
		return nil, fmt.Errorf("clear latest flag: %w", err)
	}
	const setLatest = `UPDATE syllabus_versions SET is_latest_version = TRUE WHERE id = $1`
	if _, err := tx.ExecContext(ctx, setLatest, version.ID); err != nil {
		return nil, fmt.Errorf("set latest flag: %w", err)
	}
	version.IsLatestVersion = true
	return archived, nil
}

// HasDecision reports whether a decision was already recorded at the level.
func (r *WorkflowRepository) HasDecision(ctx context.Context, versionID string, level models.ApprovalLevel) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM approval_actions WHERE syllabus_version_id = $1 AND level = $2)`
	if err := r.db.GetContext(ctx, &exists, query, versionID, level); err != nil {
		return false, fmt.Errorf("check approval decision: %w", err)
	}
	return exists, nil
}

// History returns the approval actions of a version in chronological order.
func (r *WorkflowRepository) History(ctx context.Context, versionID string) ([]models.ApprovalAction, error) {
	query := `SELECT ` + approvalActionColumns + ` FROM approval_actions WHERE syllabus_version_id = $1 ORDER BY created_at ASC, id ASC`
	actions := make([]models.ApprovalAction, 0)
	if err := r.db.SelectContext(ctx, &actions, query, versionID); err != nil {
		return nil, fmt.Errorf("list approval history: %w", err)
	}
	return actions, nil
}

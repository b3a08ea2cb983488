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

const syllabusVersionColumns = `id, course_code, version_no, status, previous_version_id, is_latest_version, lecturer_id,
       version_notes, course_metadata, learning_outcomes, assessments, session_plan, materials,
       review_summary, review_finalized_by, review_finalized_at, review_finalized_level,
       created_at, updated_at, published_at, archived_at`

const insertSyllabusVersion = `INSERT INTO syllabus_versions
	(id, course_code, version_no, status, previous_version_id, is_latest_version, lecturer_id, version_notes,
	 course_metadata, learning_outcomes, assessments, session_plan, materials, created_at, updated_at)
	VALUES (:id, :course_code, :version_no, :status, :previous_version_id, :is_latest_version, :lecturer_id, :version_notes,
	 :course_metadata, :learning_outcomes, :assessments, :session_plan, :materials, :created_at, :updated_at)`

// SyllabusVersionRepository persists syllabus versions and their lineage.
type SyllabusVersionRepository struct {
	db *sqlx.DB
}

// NewSyllabusVersionRepository constructs the repository.
func NewSyllabusVersionRepository(db *sqlx.DB) *SyllabusVersionRepository {
	return &SyllabusVersionRepository{db: db}
}

func prepareVersion(version *models.SyllabusVersion) {
	if version.ID == "" {
		version.ID = uuid.NewString()
	}
	if version.Status == "" {
		version.Status = models.StatusDraft
	}
	now := time.Now().UTC()
	if version.CreatedAt.IsZero() {
		version.CreatedAt = now
	}
	version.UpdatedAt = version.CreatedAt
	version.SyllabusContent = version.SyllabusContent.Normalize()
}

// Create inserts the first version of a new course lineage.
func (r *SyllabusVersionRepository) Create(ctx context.Context, version *models.SyllabusVersion) error {
	prepareVersion(version)
	version.IsLatestVersion = true
	if _, err := r.db.NamedExecContext(ctx, insertSyllabusVersion, version); err != nil {
		if errors.Is(mapUniqueViolation(err), ErrDuplicate) {
			return ErrDuplicate
		}
		return fmt.Errorf("create syllabus version: %w", err)
	}
	return nil
}

// GetByID fetches a version by identifier.
func (r *SyllabusVersionRepository) GetByID(ctx context.Context, id string) (*models.SyllabusVersion, error) {
	query := `SELECT ` + syllabusVersionColumns + ` FROM syllabus_versions WHERE id = $1`
	var version models.SyllabusVersion
	if err := r.db.GetContext(ctx, &version, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get syllabus version: %w", err)
	}
	return &version, nil
}

// CourseExists reports whether any version exists for the course.
func (r *SyllabusVersionRepository) CourseExists(ctx context.Context, courseCode string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM syllabus_versions WHERE course_code = $1)`
	if err := r.db.GetContext(ctx, &exists, query, courseCode); err != nil {
		return false, fmt.Errorf("check course lineage: %w", err)
	}
	return exists, nil
}

// HasAuthored reports whether the lecturer owns any version of the course.
func (r *SyllabusVersionRepository) HasAuthored(ctx context.Context, courseCode, lecturerID string) (bool, error) {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM syllabus_versions WHERE course_code = $1 AND lecturer_id = $2)`
	if err := r.db.GetContext(ctx, &exists, query, courseCode, lecturerID); err != nil {
		return false, fmt.Errorf("check lineage authorship: %w", err)
	}
	return exists, nil
}

// ListByCourse returns the whole lineage ordered by version number.
func (r *SyllabusVersionRepository) ListByCourse(ctx context.Context, courseCode string) ([]models.SyllabusVersion, error) {
	query := `SELECT ` + syllabusVersionColumns + ` FROM syllabus_versions WHERE course_code = $1 ORDER BY version_no ASC`
	var versions []models.SyllabusVersion
	if err := r.db.SelectContext(ctx, &versions, query, courseCode); err != nil {
		return nil, fmt.Errorf("list course lineage: %w", err)
	}
	return versions, nil
}

// ListByStatus returns versions in the given status, oldest update first, with the total count.
func (r *SyllabusVersionRepository) ListByStatus(ctx context.Context, status models.SyllabusStatus, limit, offset int) ([]models.SyllabusVersion, int, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM syllabus_versions WHERE status = $1`, status); err != nil {
		return nil, 0, fmt.Errorf("count syllabus versions: %w", err)
	}
	query := `SELECT ` + syllabusVersionColumns + ` FROM syllabus_versions WHERE status = $1 ORDER BY updated_at ASC, id ASC LIMIT $2 OFFSET $3`
	var versions []models.SyllabusVersion
	if err := r.db.SelectContext(ctx, &versions, query, status, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list syllabus versions by status: %w", err)
	}
	return versions, total, nil
}

// UpdateContent replaces the payload of a draft owned by lecturerID.
func (r *SyllabusVersionRepository) UpdateContent(ctx context.Context, id, lecturerID string, content models.SyllabusContent) (*models.SyllabusVersion, error) {
	content = content.Normalize()
	query := `UPDATE syllabus_versions SET course_metadata = $1, learning_outcomes = $2, assessments = $3,
	session_plan = $4, materials = $5, updated_at = $6
	WHERE id = $7 AND lecturer_id = $8 AND status = $9
	RETURNING ` + syllabusVersionColumns
	var version models.SyllabusVersion
	err := r.db.GetContext(ctx, &version, query,
		content.CourseMetadata, content.LearningOutcomes, content.Assessments, content.SessionPlan, content.Materials,
		time.Now().UTC(), id, lecturerID, models.StatusDraft)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("update syllabus content: %w", err)
	}
	return &version, nil
}

// CreateBranch inserts a new lineage head and clears the flag on the previous head
// in one transaction. sql.ErrNoRows means the lineage head moved concurrently;
// ErrLocked means a competing branch holds the head; ErrDuplicate means the version
// number is already taken.
func (r *SyllabusVersionRepository) CreateBranch(ctx context.Context, version *models.SyllabusVersion) error {
	prepareVersion(version)
	version.IsLatestVersion = true

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var headID string
		const lockHead = `SELECT id FROM syllabus_versions WHERE course_code = $1 AND is_latest_version = TRUE FOR UPDATE NOWAIT`
		if err := tx.GetContext(ctx, &headID, lockHead, version.CourseCode); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if errors.Is(mapLockNotAvailable(err), ErrLocked) {
				return ErrLocked
			}
			return fmt.Errorf("lock lineage head: %w", err)
		}

		var taken bool
		const checkNo = `SELECT EXISTS (SELECT 1 FROM syllabus_versions WHERE course_code = $1 AND version_no = $2)`
		if err := tx.GetContext(ctx, &taken, checkNo, version.CourseCode, version.VersionNo); err != nil {
			return fmt.Errorf("check version number: %w", err)
		}
		if taken {
			return ErrDuplicate
		}

		const clearHead = `UPDATE syllabus_versions SET is_latest_version = FALSE, updated_at = $2 WHERE id = $1 AND is_latest_version = TRUE`
		result, err := tx.ExecContext(ctx, clearHead, headID, version.CreatedAt)
		if err != nil {
			return fmt.Errorf("clear lineage head: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("check lineage head rows: %w", err)
		}
		if rows == 0 {
			return sql.ErrNoRows
		}

		if _, err := tx.NamedExecContext(ctx, insertSyllabusVersion, version); err != nil {
			if errors.Is(mapUniqueViolation(err), ErrDuplicate) {
				return ErrDuplicate
			}
			return fmt.Errorf("insert branched version: %w", err)
		}
		return nil
	})
}

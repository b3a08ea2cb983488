package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-workflow-api/internal/dto"
	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	"github.com/noah-isme/syllabus-workflow-api/internal/repository"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
)

type versionStore interface {
	Create(ctx context.Context, version *models.SyllabusVersion) error
	GetByID(ctx context.Context, id string) (*models.SyllabusVersion, error)
	CourseExists(ctx context.Context, courseCode string) (bool, error)
	HasAuthored(ctx context.Context, courseCode, lecturerID string) (bool, error)
	ListByCourse(ctx context.Context, courseCode string) ([]models.SyllabusVersion, error)
	UpdateContent(ctx context.Context, id, lecturerID string, content models.SyllabusContent) (*models.SyllabusVersion, error)
	CreateBranch(ctx context.Context, version *models.SyllabusVersion) error
}

// SyllabusVersionService owns syllabus documents and their version lineage.
type SyllabusVersionService struct {
	repo      versionStore
	gate      *RoleGate
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSyllabusVersionService constructs the service.
func NewSyllabusVersionService(repo versionStore, gate *RoleGate, validate *validator.Validate, logger *zap.Logger) *SyllabusVersionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyllabusVersionService{repo: repo, gate: gate, validator: validate, logger: logger}
}

// CreateDraft starts a new course lineage with version 1.
func (s *SyllabusVersionService) CreateDraft(ctx context.Context, actorID string, req dto.CreateSyllabusRequest) (*models.SyllabusVersion, error) {
	req.CourseCode = strings.ToUpper(strings.TrimSpace(req.CourseCode))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid syllabus payload")
	}
	if _, err := s.gate.Authorize(ctx, actorID, PermissionCreateSyllabus); err != nil {
		return nil, err
	}
	exists, err := s.repo.CourseExists(ctx, req.CourseCode)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check course lineage")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course already has a syllabus lineage, create a new version instead")
	}

	version := &models.SyllabusVersion{
		CourseCode:      req.CourseCode,
		VersionNo:       1,
		Status:          models.StatusDraft,
		LecturerID:      actorID,
		SyllabusContent: req.Content,
	}
	if err := s.repo.Create(ctx, version); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "course already has a syllabus lineage")
		}
		return nil, appErrors.Internal(err, "failed to create syllabus")
	}
	s.logger.Info("syllabus lineage created", zap.String("course_code", version.CourseCode), zap.String("version_id", version.ID))
	return version, nil
}

// CreateVersion branches a new draft from any version of a lineage the actor has authored in.
func (s *SyllabusVersionService) CreateVersion(ctx context.Context, actorID string, req dto.CreateVersionRequest) (*models.SyllabusVersion, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid version payload")
	}
	source, err := s.load(ctx, req.SourceVersionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.gate.Authorize(ctx, actorID, PermissionBranchVersion); err != nil {
		return nil, err
	}
	authored, err := s.repo.HasAuthored(ctx, source.CourseCode, actorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to check lineage authorship")
	}
	if !authored {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only lecturers of this course may create a new version")
	}

	sourceID := source.ID
	version := &models.SyllabusVersion{
		CourseCode:        source.CourseCode,
		VersionNo:         source.VersionNo + 1,
		Status:            models.StatusDraft,
		PreviousVersionID: &sourceID,
		LecturerID:        actorID,
		VersionNotes:      strings.TrimSpace(req.Notes),
		SyllabusContent:   source.SyllabusContent.Branch(req.Flags()),
	}
	if err := s.repo.CreateBranch(ctx, version); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrConflict, "lineage head changed concurrently, reload and retry")
		case errors.Is(err, repository.ErrLocked):
			return nil, appErrors.Clone(appErrors.ErrConflict, "another version of this syllabus is being created, retry shortly")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "a newer version of this syllabus already exists")
		default:
			return nil, appErrors.Internal(err, "failed to create syllabus version")
		}
	}
	s.logger.Info("syllabus version branched",
		zap.String("course_code", version.CourseCode),
		zap.String("source_id", source.ID),
		zap.Int("version_no", version.VersionNo))
	return version, nil
}

// UpdateDraft replaces the payload of a draft owned by the actor.
func (s *SyllabusVersionService) UpdateDraft(ctx context.Context, versionID, actorID string, req dto.UpdateSyllabusRequest) (*models.SyllabusVersion, error) {
	version, err := s.load(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.LecturerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning lecturer can edit this syllabus")
	}
	if _, err := s.gate.Authorize(ctx, actorID, PermissionEditDraft); err != nil {
		return nil, err
	}
	if version.Status != models.StatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only drafts can be edited")
	}
	updated, err := s.repo.UpdateContent(ctx, versionID, actorID, req.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "syllabus left draft status concurrently")
		}
		return nil, appErrors.Internal(err, "failed to update syllabus")
	}
	return updated, nil
}

// Get returns one version.
func (s *SyllabusVersionService) Get(ctx context.Context, versionID, actorID string) (*models.SyllabusVersion, error) {
	if _, err := s.gate.Authorize(ctx, actorID, PermissionReadSyllabus); err != nil {
		return nil, err
	}
	return s.load(ctx, versionID)
}

// Lineage returns every version of the course the given version belongs to.
func (s *SyllabusVersionService) Lineage(ctx context.Context, versionID, actorID string) ([]models.SyllabusVersion, error) {
	version, err := s.Get(ctx, versionID, actorID)
	if err != nil {
		return nil, err
	}
	versions, err := s.repo.ListByCourse(ctx, version.CourseCode)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load syllabus lineage")
	}
	return versions, nil
}

func (s *SyllabusVersionService) load(ctx context.Context, id string) (*models.SyllabusVersion, error) {
	version, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus version not found")
		}
		return nil, appErrors.Internal(err, "failed to load syllabus version")
	}
	return version, nil
}

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

type workflowStore interface {
	Transition(ctx context.Context, params repository.TransitionParams) (*repository.TransitionOutcome, error)
	HasDecision(ctx context.Context, versionID string, level models.ApprovalLevel) (bool, error)
	History(ctx context.Context, versionID string) ([]models.ApprovalAction, error)
}

type versionReader interface {
	GetByID(ctx context.Context, id string) (*models.SyllabusVersion, error)
	ListByStatus(ctx context.Context, status models.SyllabusStatus, limit, offset int) ([]models.SyllabusVersion, int, error)
}

// WorkflowService drives syllabus versions through the approval chain.
type WorkflowService struct {
	repo      workflowStore
	versions  versionReader
	gate      *RoleGate
	notifier  NotificationEmitter
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWorkflowService constructs the service.
func NewWorkflowService(repo workflowStore, versions versionReader, gate *RoleGate, notifier NotificationEmitter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *WorkflowService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowService{repo: repo, versions: versions, gate: gate, notifier: notifier, metrics: metrics, validator: validate, logger: logger}
}

// Submit moves a draft into HoD review. Only the owning lecturer may submit.
func (s *WorkflowService) Submit(ctx context.Context, versionID, actorID string) (result *dto.TransitionResult, err error) {
	defer func() { s.record(models.ActionSubmit, "", err) }()

	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version.LecturerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the owning lecturer can submit this syllabus")
	}
	if _, err := s.gate.Authorize(ctx, actorID, PermissionSubmit); err != nil {
		return nil, err
	}
	next, ok := models.NextStatus(version.Status, models.ActionSubmit)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only draft syllabuses can be submitted")
	}

	outcome, err := s.repo.Transition(ctx, repository.TransitionParams{VersionID: version.ID, From: version.Status, To: next})
	if err != nil {
		return nil, s.mapTransitionError(err)
	}

	s.notifyTransition(ctx, outcome, actorID, "")
	return &dto.TransitionResult{Version: outcome.Version}, nil
}

// Decide records an approval decision at one level and advances the version.
func (s *WorkflowService) Decide(ctx context.Context, req dto.DecideRequest) (result *dto.TransitionResult, err error) {
	level, levelOK := models.ParseApprovalLevel(strings.TrimSpace(req.Level))
	action := models.ActionFor(req.Decision)
	defer func() { s.record(action, string(level), err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid decision payload")
	}
	if !levelOK {
		return nil, appErrors.Clone(appErrors.ErrValidation, "level must be one of HOD, AA, PRINCIPAL")
	}
	notes := strings.TrimSpace(req.Notes)
	if req.Decision == models.DecisionReject && notes == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required")
	}
	if err := s.gate.RequireLevel(ctx, req.ActorID, level); err != nil {
		return nil, err
	}

	version, err := s.loadVersion(ctx, req.VersionID)
	if err != nil {
		return nil, err
	}
	expected, _ := models.PendingStatusFor(level)
	if version.Status != expected {
		decided, err := s.repo.HasDecision(ctx, version.ID, level)
		if err != nil {
			return nil, appErrors.Internal(err, "failed to check prior decisions")
		}
		if decided {
			return nil, appErrors.Clone(appErrors.ErrConflict, "version was already decided at this level")
		}
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "version is not awaiting a decision at this level")
	}
	next, ok := models.NextStatus(expected, action)
	if !ok {
		return nil, appErrors.ErrInvalidTransition
	}

	record := &models.ApprovalAction{Level: level, ActorID: req.ActorID, Decision: req.Decision, Notes: notes}
	outcome, err := s.repo.Transition(ctx, repository.TransitionParams{
		VersionID: version.ID,
		From:      expected,
		To:        next,
		Action:    record,
	})
	if err != nil {
		return nil, s.mapTransitionError(err)
	}

	s.notifyTransition(ctx, outcome, req.ActorID, notes)
	return &dto.TransitionResult{Version: outcome.Version, Action: record}, nil
}

// Pending lists versions awaiting the given level. The actor must decide at that level.
func (s *WorkflowService) Pending(ctx context.Context, rawLevel, actorID string, page, size int) ([]models.SyllabusVersion, *models.Pagination, error) {
	level, ok := models.ParseApprovalLevel(strings.TrimSpace(rawLevel))
	if !ok {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "level must be one of HOD, AA, PRINCIPAL")
	}
	if err := s.gate.RequireLevel(ctx, actorID, level); err != nil {
		return nil, nil, err
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	status, _ := models.PendingStatusFor(level)
	versions, total, err := s.versions.ListByStatus(ctx, status, size, (page-1)*size)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list pending syllabuses")
	}
	if versions == nil {
		versions = []models.SyllabusVersion{}
	}
	return versions, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// History returns the approval audit trail of a version.
func (s *WorkflowService) History(ctx context.Context, versionID, actorID string) ([]models.ApprovalAction, error) {
	if _, err := s.gate.Authorize(ctx, actorID, PermissionReadSyllabus); err != nil {
		return nil, err
	}
	if _, err := s.loadVersion(ctx, versionID); err != nil {
		return nil, err
	}
	actions, err := s.repo.History(ctx, versionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load approval history")
	}
	return actions, nil
}

func (s *WorkflowService) loadVersion(ctx context.Context, id string) (*models.SyllabusVersion, error) {
	version, err := s.versions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus version not found")
		}
		return nil, appErrors.Internal(err, "failed to load syllabus version")
	}
	return version, nil
}

func (s *WorkflowService) mapTransitionError(err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrConflict, "syllabus status changed concurrently, reload and retry")
	case errors.Is(err, repository.ErrSuperseded):
		return appErrors.Clone(appErrors.ErrConflict, "a newer version of this syllabus is already published")
	case errors.Is(err, repository.ErrLocked):
		return appErrors.Clone(appErrors.ErrConflict, "syllabus lineage is being updated concurrently, retry shortly")
	default:
		return appErrors.Internal(err, "failed to apply workflow transition")
	}
}

func (s *WorkflowService) record(action models.WorkflowAction, level string, err error) {
	result := "ok"
	if err != nil {
		result = strings.ToLower(appErrors.FromError(err).Code)
	}
	s.metrics.RecordTransition(string(action), level, result)
}

// notifyTransition fans out to the parties that act next plus the lecturer.
func (s *WorkflowService) notifyTransition(ctx context.Context, outcome *repository.TransitionOutcome, actorID, notes string) {
	if s.notifier == nil {
		return
	}
	version := outcome.Version
	recipients := []string{}
	var nextRole models.UserRole
	switch version.Status {
	case models.StatusPendingReview:
		nextRole = models.RoleHeadOfDepartment
	case models.StatusPendingApproval:
		nextRole = models.RoleAcademicAffairs
		recipients = append(recipients, version.LecturerID)
	case models.StatusPendingFinal:
		nextRole = models.RolePrincipal
		recipients = append(recipients, version.LecturerID)
	default:
		recipients = append(recipients, version.LecturerID)
	}
	if nextRole != "" {
		ids, err := s.gate.UsersWithRole(ctx, nextRole)
		if err != nil {
			s.logger.Warn("failed to resolve notification recipients", zap.String("role", string(nextRole)), zap.Error(err))
		}
		recipients = append(recipients, ids...)
	}
	s.notifier.Emit(ctx, transitionEvent(version, actorID, notes, recipients))

	for i := range outcome.Archived {
		archived := outcome.Archived[i]
		s.notifier.Emit(ctx, transitionEvent(&archived, actorID, "", []string{archived.LecturerID}))
	}
}

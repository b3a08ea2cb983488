package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/syllabus-workflow-api/internal/dto"
	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	"github.com/noah-isme/syllabus-workflow-api/internal/repository"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
)

const maxRecentComments = 50

type commentStore interface {
	Create(ctx context.Context, comment *models.ReviewComment) error
	GetByID(ctx context.Context, id string) (*models.ReviewComment, error)
	ListByVersion(ctx context.Context, versionID string) ([]models.ReviewComment, error)
	ListReplies(ctx context.Context, parentID string) ([]models.ReviewComment, error)
	ListRecent(ctx context.Context, versionID string, limit int) ([]models.ReviewComment, error)
	Stats(ctx context.Context, versionID, actorID string) (*models.CommentStats, error)
	Participants(ctx context.Context, versionID string) ([]string, error)
	Delete(ctx context.Context, versionID, commentID, authorID string) error
	UpdateContent(ctx context.Context, versionID, commentID, authorID, content string, at time.Time) error
	SetStatus(ctx context.Context, params repository.ResolveParams) error
	Finalize(ctx context.Context, params repository.FinalizeParams) error
	LatestSummary(ctx context.Context, versionID string) (*models.ReviewSummary, error)
}

type versionGetter interface {
	GetByID(ctx context.Context, id string) (*models.SyllabusVersion, error)
}

// ReviewService aggregates collaborative review comments on syllabus versions.
type ReviewService struct {
	repo        commentStore
	versions    versionGetter
	gate        *RoleGate
	notifier    NotificationEmitter
	validator   *validator.Validate
	logger      *zap.Logger
	recentLimit int
	now         func() time.Time
}

// NewReviewService constructs the service.
func NewReviewService(repo commentStore, versions versionGetter, gate *RoleGate, notifier NotificationEmitter, validate *validator.Validate, logger *zap.Logger, recentLimit int) *ReviewService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if recentLimit <= 0 {
		recentLimit = 5
	}
	return &ReviewService{
		repo:        repo,
		versions:    versions,
		gate:        gate,
		notifier:    notifier,
		validator:   validate,
		logger:      logger,
		recentLimit: recentLimit,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// PostComment appends a review comment and notifies the lecturer and earlier participants.
func (s *ReviewService) PostComment(ctx context.Context, versionID, authorID string, req dto.PostCommentRequest) (*models.ReviewComment, error) {
	return s.post(ctx, versionID, authorID, req, nil)
}

// Reply adds a comment to the thread of parentID. Replying to a reply joins the same thread.
func (s *ReviewService) Reply(ctx context.Context, versionID, parentID, authorID string, req dto.PostCommentRequest) (*models.ReviewComment, error) {
	parent, err := s.loadComment(ctx, versionID, parentID)
	if err != nil {
		return nil, err
	}
	if parent.IsReply() {
		if parent, err = s.loadComment(ctx, versionID, *parent.ParentCommentID); err != nil {
			return nil, err
		}
	}
	return s.post(ctx, versionID, authorID, req, parent)
}

func (s *ReviewService) post(ctx context.Context, versionID, authorID string, req dto.PostCommentRequest, parent *models.ReviewComment) (*models.ReviewComment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment content is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	if _, err := s.gate.Authorize(ctx, authorID, PermissionComment); err != nil {
		return nil, err
	}
	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if !version.Status.AcceptsComments() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "comments are closed for this syllabus version")
	}

	participants, err := s.repo.Participants(ctx, versionID)
	if err != nil {
		s.logger.Warn("failed to load review participants", zap.String("version_id", versionID), zap.Error(err))
	}

	comment := &models.ReviewComment{
		SyllabusVersionID: versionID,
		AuthorID:          authorID,
		Content:           content,
		Type:              models.CommentTypeReview,
		Status:            models.CommentOpen,
		CreatedAt:         s.now(),
	}
	if parent != nil {
		parentID := parent.ID
		comment.ParentCommentID = &parentID
	}
	if err := s.repo.Create(ctx, comment); err != nil {
		return nil, appErrors.Internal(err, "failed to post comment")
	}

	if s.notifier != nil {
		candidates := append([]string{version.LecturerID}, participants...)
		if parent != nil {
			candidates = append(candidates, parent.AuthorID)
		}
		recipients := make([]string, 0, len(candidates))
		for _, id := range distinctRecipients(candidates) {
			if id != authorID {
				recipients = append(recipients, id)
			}
		}
		s.notifier.Emit(ctx, commentEvent(version, comment, recipients))
	}
	return comment, nil
}

// UpdateComment replaces the content of an own comment while it is still open for review.
func (s *ReviewService) UpdateComment(ctx context.Context, versionID, commentID, actorID string, req dto.UpdateCommentRequest) (*models.ReviewComment, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "comment content is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid comment payload")
	}
	comment, err := s.loadComment(ctx, versionID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the author can edit this comment")
	}
	if comment.FinalizedAt != nil {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "comment was compiled into a review summary")
	}
	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if !version.Status.AcceptsComments() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "comments are closed for this syllabus version")
	}

	at := s.now()
	if err := s.repo.UpdateContent(ctx, versionID, commentID, actorID, content, at); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrFinalized, "comment was compiled into a review summary")
		}
		return nil, appErrors.Internal(err, "failed to update comment")
	}
	comment.Content = content
	comment.EditedAt = &at
	return comment, nil
}

// ResolveComment resolves, closes or reopens a top-level comment. The version's
// lecturer and heads of department may change comment status.
func (s *ReviewService) ResolveComment(ctx context.Context, versionID, commentID, actorID string, req dto.ResolveCommentRequest) (*models.ReviewComment, error) {
	status, ok := models.ParseCommentStatus(req.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be one of OPEN, RESOLVED, CLOSED")
	}
	role, err := s.gate.Authorize(ctx, actorID, PermissionResolveComment)
	if err != nil {
		return nil, err
	}
	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if role == models.RoleLecturer && version.LecturerID != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the syllabus lecturer can resolve its comments")
	}
	comment, err := s.loadComment(ctx, versionID, commentID)
	if err != nil {
		return nil, err
	}
	if comment.IsReply() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "replies cannot be resolved, resolve the thread instead")
	}

	params := repository.ResolveParams{VersionID: versionID, CommentID: commentID, Status: status}
	if status != models.CommentOpen {
		at := s.now()
		params.By, params.At = &actorID, &at
		if note := strings.TrimSpace(req.ResolutionNote); note != "" {
			params.Note = &note
		}
	}
	if err := s.repo.SetStatus(ctx, params); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, appErrors.Internal(err, "failed to change comment status")
	}
	comment.Status, comment.ResolvedBy, comment.ResolvedAt, comment.ResolutionNote = status, params.By, params.At, params.Note
	return comment, nil
}

// Replies returns the thread under a top-level comment in ascending order.
func (s *ReviewService) Replies(ctx context.Context, versionID, commentID, actorID string) ([]models.ReviewComment, error) {
	if err := s.authorizeRead(ctx, versionID, actorID); err != nil {
		return nil, err
	}
	if _, err := s.loadComment(ctx, versionID, commentID); err != nil {
		return nil, err
	}
	replies, err := s.repo.ListReplies(ctx, commentID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load replies")
	}
	return replies, nil
}

// DeleteComment removes a comment. Only its author may delete it, only before finalization
// and only while nobody has replied to it.
func (s *ReviewService) DeleteComment(ctx context.Context, versionID, commentID, actorID string) error {
	comment, err := s.loadComment(ctx, versionID, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actorID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the author can delete this comment")
	}
	if comment.FinalizedAt != nil {
		return appErrors.Clone(appErrors.ErrFinalized, "comment was compiled into a review summary")
	}
	if comment.ReplyCount > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "comment has replies")
	}

	if err := s.repo.Delete(ctx, versionID, commentID, actorID); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return appErrors.Internal(err, "failed to delete comment")
		}
		current, getErr := s.repo.GetByID(ctx, commentID)
		switch {
		case errors.Is(getErr, sql.ErrNoRows):
			return appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		case getErr == nil && current.FinalizedAt == nil && current.ReplyCount > 0:
			return appErrors.Clone(appErrors.ErrConflict, "comment has replies")
		}
		return appErrors.Clone(appErrors.ErrFinalized, "comment was compiled into a review summary")
	}
	return nil
}

// Count returns comment aggregates for the version from the actor's perspective.
func (s *ReviewService) Count(ctx context.Context, versionID, actorID string) (*models.CommentStats, error) {
	if err := s.authorizeRead(ctx, versionID, actorID); err != nil {
		return nil, err
	}
	stats, err := s.repo.Stats(ctx, versionID, actorID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count comments")
	}
	return stats, nil
}

// Recent returns the newest comments, newest first.
func (s *ReviewService) Recent(ctx context.Context, versionID, actorID string, limit int) ([]models.ReviewComment, error) {
	if err := s.authorizeRead(ctx, versionID, actorID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.recentLimit
	}
	if limit > maxRecentComments {
		limit = maxRecentComments
	}
	comments, err := s.repo.ListRecent(ctx, versionID, limit)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load recent comments")
	}
	return comments, nil
}

// All returns every comment in ascending order.
func (s *ReviewService) All(ctx context.Context, versionID, actorID string) ([]models.ReviewComment, error) {
	if err := s.authorizeRead(ctx, versionID, actorID); err != nil {
		return nil, err
	}
	comments, err := s.repo.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load comments")
	}
	return comments, nil
}

// Finalize compiles the comments into a summary for the current pending level.
// It does not change the version status.
func (s *ReviewService) Finalize(ctx context.Context, versionID, actorID string) (*models.ReviewSummary, error) {
	version, err := s.loadVersion(ctx, versionID)
	if err != nil {
		return nil, err
	}
	level, ok := models.LevelForStatus(version.Status)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only versions awaiting a decision can be finalized")
	}
	if err := s.gate.RequireLevel(ctx, actorID, level); err != nil {
		return nil, err
	}

	comments, err := s.repo.ListByVersion(ctx, versionID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load comments")
	}
	text, participants := CompileReviewSummary(version, comments)
	unfrozen := make([]models.ReviewComment, 0, len(comments))
	for _, c := range comments {
		if c.FinalizedAt == nil {
			unfrozen = append(unfrozen, c)
		}
	}

	summary := &models.ReviewSummary{
		SyllabusVersionID: versionID,
		Level:             level,
		FinalizedBy:       actorID,
		Summary:           text,
		CommentCount:      len(comments),
		ParticipantCount:  participants,
		CreatedAt:         s.now(),
	}
	err = s.repo.Finalize(ctx, repository.FinalizeParams{Summary: summary, ExpectedStatus: version.Status, Open: unfrozen})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "review already finalized at this level")
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrConflict, "syllabus status changed concurrently, reload and retry")
		case errors.Is(err, repository.ErrStaleComments):
			return nil, appErrors.Clone(appErrors.ErrConflict, "comments changed while finalizing, reload and retry")
		default:
			return nil, appErrors.Internal(err, "failed to finalize review")
		}
	}

	if s.notifier != nil {
		s.notifier.Emit(ctx, reviewFinalizedEvent(version, summary))
	}
	return summary, nil
}

// Summary returns the latest compiled review summary.
func (s *ReviewService) Summary(ctx context.Context, versionID, actorID string) (*models.ReviewSummary, error) {
	if err := s.authorizeRead(ctx, versionID, actorID); err != nil {
		return nil, err
	}
	summary, err := s.repo.LatestSummary(ctx, versionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "review has not been finalized")
		}
		return nil, appErrors.Internal(err, "failed to load review summary")
	}
	return summary, nil
}

// CompileReviewSummary renders comments in ascending (createdAt, id) order and
// returns the text with the number of distinct authors.
func CompileReviewSummary(version *models.SyllabusVersion, comments []models.ReviewComment) (string, int) {
	ordered := make([]models.ReviewComment, len(comments))
	copy(ordered, comments)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	authors := make(map[string]struct{}, len(ordered))
	for _, c := range ordered {
		authors[c.AuthorID] = struct{}{}
	}

	position := make(map[string]int, len(ordered))
	var b strings.Builder
	fmt.Fprintf(&b, "Review summary for %s (%s)\n", versionLabel(version), version.Status)
	fmt.Fprintf(&b, "Comments: %d, participants: %d\n", len(ordered), len(authors))
	for i, c := range ordered {
		position[c.ID] = i + 1
		author := c.AuthorName
		if author == "" {
			author = c.AuthorID
		}
		if c.IsReply() {
			if n, ok := position[*c.ParentCommentID]; ok {
				author = fmt.Sprintf("%s (re #%d)", author, n)
			}
		}
		fmt.Fprintf(&b, "%d. [%s] %s: %s\n", i+1, c.CreatedAt.UTC().Format(time.RFC3339), author, c.Content)
	}
	return strings.TrimRight(b.String(), "\n"), len(authors)
}

func (s *ReviewService) authorizeRead(ctx context.Context, versionID, actorID string) error {
	if _, err := s.gate.Authorize(ctx, actorID, PermissionReadSyllabus); err != nil {
		return err
	}
	_, err := s.loadVersion(ctx, versionID)
	return err
}

func (s *ReviewService) loadComment(ctx context.Context, versionID, commentID string) (*models.ReviewComment, error) {
	comment, err := s.repo.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
		}
		return nil, appErrors.Internal(err, "failed to load comment")
	}
	if comment.SyllabusVersionID != versionID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "comment not found")
	}
	return comment, nil
}

func (s *ReviewService) loadVersion(ctx context.Context, id string) (*models.SyllabusVersion, error) {
	version, err := s.versions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "syllabus version not found")
		}
		return nil, appErrors.Internal(err, "failed to load syllabus version")
	}
	return version, nil
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/syllabus-workflow-api/internal/dto"
	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
	"github.com/noah-isme/syllabus-workflow-api/pkg/response"
)

type reviewService interface {
	PostComment(ctx context.Context, versionID, authorID string, req dto.PostCommentRequest) (*models.ReviewComment, error)
	Reply(ctx context.Context, versionID, parentID, authorID string, req dto.PostCommentRequest) (*models.ReviewComment, error)
	Replies(ctx context.Context, versionID, commentID, actorID string) ([]models.ReviewComment, error)
	UpdateComment(ctx context.Context, versionID, commentID, actorID string, req dto.UpdateCommentRequest) (*models.ReviewComment, error)
	ResolveComment(ctx context.Context, versionID, commentID, actorID string, req dto.ResolveCommentRequest) (*models.ReviewComment, error)
	DeleteComment(ctx context.Context, versionID, commentID, actorID string) error
	Count(ctx context.Context, versionID, actorID string) (*models.CommentStats, error)
	Recent(ctx context.Context, versionID, actorID string, limit int) ([]models.ReviewComment, error)
	All(ctx context.Context, versionID, actorID string) ([]models.ReviewComment, error)
	Finalize(ctx context.Context, versionID, actorID string) (*models.ReviewSummary, error)
	Summary(ctx context.Context, versionID, actorID string) (*models.ReviewSummary, error)
}

// CommentHandler exposes collaborative review endpoints.
type CommentHandler struct {
	service reviewService
}

// NewCommentHandler builds a new handler.
func NewCommentHandler(service reviewService) *CommentHandler {
	return &CommentHandler{service: service}
}

// Post godoc
// @Summary Post a review comment
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param payload body dto.PostCommentRequest true "Comment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments [post]
func (h *CommentHandler) Post(c *gin.Context) {
	var req dto.PostCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}
	comment, err := h.service.PostComment(c.Request.Context(), c.Param("versionId"), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, comment)
}

// Reply godoc
// @Summary Reply to a review comment
// @Description Replying to a reply joins the same thread.
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param commentId path string true "Comment ID"
// @Param payload body dto.PostCommentRequest true "Reply payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/{commentId}/replies [post]
func (h *CommentHandler) Reply(c *gin.Context) {
	var req dto.PostCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reply payload"))
		return
	}
	reply, err := h.service.Reply(c.Request.Context(), c.Param("versionId"), c.Param("commentId"), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reply)
}

// Replies godoc
// @Summary List the replies of a comment thread
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param commentId path string true "Comment ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/{commentId}/replies [get]
func (h *CommentHandler) Replies(c *gin.Context) {
	replies, err := h.service.Replies(c.Request.Context(), c.Param("versionId"), c.Param("commentId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, replies)
}

// Update godoc
// @Summary Edit an own comment before finalization
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param commentId path string true "Comment ID"
// @Param payload body dto.UpdateCommentRequest true "Comment payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/{commentId} [put]
func (h *CommentHandler) Update(c *gin.Context) {
	var req dto.UpdateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid comment payload"))
		return
	}
	comment, err := h.service.UpdateComment(c.Request.Context(), c.Param("versionId"), c.Param("commentId"), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, comment)
}

// Resolve godoc
// @Summary Resolve, close or reopen a comment thread
// @Tags Comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param commentId path string true "Comment ID"
// @Param payload body dto.ResolveCommentRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/{commentId}/resolve [post]
func (h *CommentHandler) Resolve(c *gin.Context) {
	var req dto.ResolveCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	comment, err := h.service.ResolveComment(c.Request.Context(), c.Param("versionId"), c.Param("commentId"), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, comment)
}

// Delete godoc
// @Summary Delete an own comment before finalization
// @Tags Comments
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param commentId path string true "Comment ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/{commentId} [delete]
func (h *CommentHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteComment(c.Request.Context(), c.Param("versionId"), c.Param("commentId"), actorID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Count godoc
// @Summary Comment counters for a version
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Success 200 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/count [get]
func (h *CommentHandler) Count(c *gin.Context) {
	stats, err := h.service.Count(c.Request.Context(), c.Param("versionId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Recent godoc
// @Summary Newest comments first
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param limit query int false "Maximum comments (1-50)"
// @Success 200 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/recent [get]
func (h *CommentHandler) Recent(c *gin.Context) {
	var query dto.RecentCommentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid limit"))
		return
	}
	comments, err := h.service.Recent(c.Request.Context(), c.Param("versionId"), actorID(c), query.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, comments)
}

// All godoc
// @Summary Every comment in posting order
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Success 200 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/all [get]
func (h *CommentHandler) All(c *gin.Context) {
	comments, err := h.service.All(c.Request.Context(), c.Param("versionId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, comments)
}

// Finalize godoc
// @Summary Compile review comments into a summary for the current level
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/finalize [post]
func (h *CommentHandler) Finalize(c *gin.Context) {
	summary, err := h.service.Finalize(c.Request.Context(), c.Param("versionId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, summary)
}

// Summary godoc
// @Summary Latest compiled review summary
// @Tags Comments
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabuses/{versionId}/comments/summary [get]
func (h *CommentHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), c.Param("versionId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, summary)
}

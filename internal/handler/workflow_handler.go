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

type workflowService interface {
	Submit(ctx context.Context, versionID, actorID string) (*dto.TransitionResult, error)
	Decide(ctx context.Context, req dto.DecideRequest) (*dto.TransitionResult, error)
	Pending(ctx context.Context, level, actorID string, page, size int) ([]models.SyllabusVersion, *models.Pagination, error)
	History(ctx context.Context, versionID, actorID string) ([]models.ApprovalAction, error)
}

// WorkflowHandler exposes the approval workflow endpoints.
type WorkflowHandler struct {
	service workflowService
}

// NewWorkflowHandler builds a new handler.
func NewWorkflowHandler(service workflowService) *WorkflowHandler {
	return &WorkflowHandler{service: service}
}

// Submit godoc
// @Summary Submit a draft for Head of Department review
// @Tags Workflow
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param Idempotency-Key header string false "Replay key"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /workflow/submit/{versionId} [post]
func (h *WorkflowHandler) Submit(c *gin.Context) {
	result, err := h.service.Submit(c.Request.Context(), c.Param("versionId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Approve godoc
// @Summary Approve a syllabus at one level
// @Tags Workflow
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param payload body dto.ApproveRequest true "Approval payload"
// @Param Idempotency-Key header string false "Replay key"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /workflow/approve/{versionId} [post]
func (h *WorkflowHandler) Approve(c *gin.Context) {
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid approval payload"))
		return
	}
	h.decide(c, dto.DecideRequest{
		VersionID: c.Param("versionId"),
		Level:     req.Level,
		ActorID:   actorID(c),
		Decision:  models.DecisionApprove,
		Notes:     req.Notes,
	})
}

// Reject godoc
// @Summary Reject a syllabus at one level
// @Description The reason is mandatory and is sent to the lecturer.
// @Tags Workflow
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param payload body dto.RejectRequest true "Rejection payload"
// @Param Idempotency-Key header string false "Replay key"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /workflow/reject/{versionId} [post]
func (h *WorkflowHandler) Reject(c *gin.Context) {
	var req dto.RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rejection payload"))
		return
	}
	h.decide(c, dto.DecideRequest{
		VersionID: c.Param("versionId"),
		Level:     req.Level,
		ActorID:   actorID(c),
		Decision:  models.DecisionReject,
		Notes:     req.Reason,
	})
}

func (h *WorkflowHandler) decide(c *gin.Context, req dto.DecideRequest) {
	result, err := h.service.Decide(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Pending godoc
// @Summary List syllabuses awaiting a decision at a level
// @Tags Workflow
// @Produce json
// @Security BearerAuth
// @Param level query string true "HOD, AA or PRINCIPAL"
// @Param page query int false "Page"
// @Param size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /workflow/pending [get]
func (h *WorkflowHandler) Pending(c *gin.Context) {
	items, pagination, err := h.service.Pending(c.Request.Context(), c.Query("level"), actorID(c), queryInt(c, "page", 1), queryInt(c, "size", 20))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// History godoc
// @Summary Approval history of a syllabus version
// @Tags Workflow
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Success 200 {object} response.Envelope
// @Router /workflow/history/{versionId} [get]
func (h *WorkflowHandler) History(c *gin.Context) {
	actions, err := h.service.History(c.Request.Context(), c.Param("versionId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, actions)
}

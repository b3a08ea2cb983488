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

type syllabusService interface {
	CreateDraft(ctx context.Context, actorID string, req dto.CreateSyllabusRequest) (*models.SyllabusVersion, error)
	CreateVersion(ctx context.Context, actorID string, req dto.CreateVersionRequest) (*models.SyllabusVersion, error)
	UpdateDraft(ctx context.Context, versionID, actorID string, req dto.UpdateSyllabusRequest) (*models.SyllabusVersion, error)
	Get(ctx context.Context, versionID, actorID string) (*models.SyllabusVersion, error)
	Lineage(ctx context.Context, versionID, actorID string) ([]models.SyllabusVersion, error)
}

// SyllabusHandler exposes syllabus documents and their versions.
type SyllabusHandler struct {
	service syllabusService
}

// NewSyllabusHandler builds a new handler.
func NewSyllabusHandler(service syllabusService) *SyllabusHandler {
	return &SyllabusHandler{service: service}
}

// Create godoc
// @Summary Create the first draft of a course syllabus
// @Tags Syllabuses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateSyllabusRequest true "Syllabus payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /syllabuses [post]
func (h *SyllabusHandler) Create(c *gin.Context) {
	var req dto.CreateSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid syllabus payload"))
		return
	}
	version, err := h.service.CreateDraft(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// CreateVersion godoc
// @Summary Branch a new draft version from an existing version
// @Tags Syllabuses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateVersionRequest true "Version payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /syllabus-versions [post]
func (h *SyllabusHandler) CreateVersion(c *gin.Context) {
	var req dto.CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid version payload"))
		return
	}
	version, err := h.service.CreateVersion(c.Request.Context(), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, version)
}

// Get godoc
// @Summary Get a syllabus version
// @Tags Syllabuses
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /syllabuses/{versionId} [get]
func (h *SyllabusHandler) Get(c *gin.Context) {
	version, err := h.service.Get(c.Request.Context(), c.Param("versionId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, version)
}

// Update godoc
// @Summary Replace the content of a draft
// @Tags Syllabuses
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Syllabus version ID"
// @Param payload body dto.UpdateSyllabusRequest true "Content payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /syllabuses/{versionId} [put]
func (h *SyllabusHandler) Update(c *gin.Context) {
	var req dto.UpdateSyllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid syllabus payload"))
		return
	}
	version, err := h.service.UpdateDraft(c.Request.Context(), c.Param("versionId"), actorID(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, version)
}

// Lineage godoc
// @Summary List every version of the course
// @Tags Syllabuses
// @Produce json
// @Security BearerAuth
// @Param versionId path string true "Any version ID of the course"
// @Success 200 {object} response.Envelope
// @Router /syllabuses/{versionId}/versions [get]
func (h *SyllabusHandler) Lineage(c *gin.Context) {
	versions, err := h.service.Lineage(c.Request.Context(), c.Param("versionId"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, versions)
}

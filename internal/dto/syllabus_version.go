package dto

import "github.com/noah-isme/syllabus-workflow-api/internal/models"

// CreateSyllabusRequest starts a new course lineage.
type CreateSyllabusRequest struct {
	CourseCode string                 `json:"courseCode" validate:"required,max=32"`
	Content    models.SyllabusContent `json:"content"`
}

// UpdateSyllabusRequest replaces the payload of a draft.
type UpdateSyllabusRequest struct {
	Content models.SyllabusContent `json:"content"`
}

// CreateVersionRequest branches a new draft from an existing version.
// Missing copy flags default to copying every section.
type CreateVersionRequest struct {
	SourceVersionID string            `json:"sourceVersionId" validate:"required"`
	Notes           string            `json:"notes" validate:"max=2000"`
	CopyFlags       *models.CopyFlags `json:"copyFlags"`
}

// Flags resolves the copy flags with defaults applied.
func (r CreateVersionRequest) Flags() models.CopyFlags {
	if r.CopyFlags == nil {
		return models.AllSections()
	}
	return *r.CopyFlags
}

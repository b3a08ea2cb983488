package dto

import "github.com/noah-isme/syllabus-workflow-api/internal/models"

// ApproveRequest carries an approver's decision at one level.
type ApproveRequest struct {
	Level string `json:"level" binding:"required,oneof=HOD AA PRINCIPAL"`
	Notes string `json:"notes"`
}

// RejectRequest requires a reason that becomes the decision notes.
type RejectRequest struct {
	Level  string `json:"level" binding:"required,oneof=HOD AA PRINCIPAL"`
	Reason string `json:"reason"`
}

// DecideRequest is the service-level decision command.
type DecideRequest struct {
	VersionID string          `validate:"required"`
	Level     string          `validate:"required"`
	ActorID   string          `validate:"required"`
	Decision  models.Decision `validate:"required,oneof=APPROVE REJECT"`
	Notes     string
}

// TransitionResult reports the outcome of a workflow transition.
type TransitionResult struct {
	Version *models.SyllabusVersion `json:"version"`
	Action  *models.ApprovalAction  `json:"action,omitempty"`
}

package models

import "time"

// ApprovalLevel identifies one stage of the sequential approval chain.
type ApprovalLevel string

const (
	LevelHoD       ApprovalLevel = "HOD"
	LevelAA        ApprovalLevel = "AA"
	LevelPrincipal ApprovalLevel = "PRINCIPAL"
)

// ParseApprovalLevel accepts only the exact enum spelling.
func ParseApprovalLevel(raw string) (ApprovalLevel, bool) {
	switch level := ApprovalLevel(raw); level {
	case LevelHoD, LevelAA, LevelPrincipal:
		return level, true
	default:
		return "", false
	}
}

// Decision is the outcome recorded by an approver.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// WorkflowAction labels an edge in the transition table.
type WorkflowAction string

const (
	ActionSubmit  WorkflowAction = "SUBMIT"
	ActionApprove WorkflowAction = "APPROVE"
	ActionReject  WorkflowAction = "REJECT"
	ActionArchive WorkflowAction = "ARCHIVE"
)

// ActionFor maps a decision onto its transition edge.
func ActionFor(d Decision) WorkflowAction {
	if d == DecisionReject {
		return ActionReject
	}
	return ActionApprove
}

type transitionKey struct {
	from   SyllabusStatus
	action WorkflowAction
}

var transitions = map[transitionKey]SyllabusStatus{
	{StatusDraft, ActionSubmit}:            StatusPendingReview,
	{StatusPendingReview, ActionApprove}:   StatusPendingApproval,
	{StatusPendingReview, ActionReject}:    StatusRejectedByHoD,
	{StatusPendingApproval, ActionApprove}: StatusPendingFinal,
	{StatusPendingApproval, ActionReject}:  StatusRejectedByAA,
	{StatusPendingFinal, ActionApprove}:    StatusPublished,
	{StatusPendingFinal, ActionReject}:     StatusRejectedByPrincipal,
	{StatusPublished, ActionArchive}:       StatusArchived,
}

// NextStatus looks up the transition table. Pairs outside the table are illegal.
func NextStatus(from SyllabusStatus, action WorkflowAction) (SyllabusStatus, bool) {
	to, ok := transitions[transitionKey{from: from, action: action}]
	return to, ok
}

var pendingByLevel = map[ApprovalLevel]SyllabusStatus{
	LevelHoD:       StatusPendingReview,
	LevelAA:        StatusPendingApproval,
	LevelPrincipal: StatusPendingFinal,
}

// PendingStatusFor returns the status a version holds while awaiting level.
func PendingStatusFor(level ApprovalLevel) (SyllabusStatus, bool) {
	status, ok := pendingByLevel[level]
	return status, ok
}

// LevelForStatus is the inverse of PendingStatusFor.
func LevelForStatus(status SyllabusStatus) (ApprovalLevel, bool) {
	for level, pending := range pendingByLevel {
		if pending == status {
			return level, true
		}
	}
	return "", false
}

// ApprovalAction is one append-only decision record.
type ApprovalAction struct {
	ID                string         `db:"id" json:"id"`
	SyllabusVersionID string         `db:"syllabus_version_id" json:"syllabusVersionId"`
	Level             ApprovalLevel  `db:"level" json:"level"`
	ActorID           string         `db:"actor_id" json:"actorId"`
	Decision          Decision       `db:"decision" json:"decision"`
	Notes             string         `db:"notes" json:"notes"`
	FromStatus        SyllabusStatus `db:"from_status" json:"fromStatus"`
	ToStatus          SyllabusStatus `db:"to_status" json:"toStatus"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
}

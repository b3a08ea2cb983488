package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// SyllabusStatus is the closed set of lifecycle states of a syllabus version.
type SyllabusStatus string

const (
	StatusDraft               SyllabusStatus = "DRAFT"
	StatusPendingReview       SyllabusStatus = "PENDING_REVIEW"
	StatusPendingApproval     SyllabusStatus = "PENDING_APPROVAL"
	StatusPendingFinal        SyllabusStatus = "PENDING_FINAL"
	StatusPublished           SyllabusStatus = "PUBLISHED"
	StatusRejectedByHoD       SyllabusStatus = "REJECTED_BY_HOD"
	StatusRejectedByAA        SyllabusStatus = "REJECTED_BY_AA"
	StatusRejectedByPrincipal SyllabusStatus = "REJECTED_BY_PRINCIPAL"
	StatusArchived            SyllabusStatus = "ARCHIVED"
)

var allStatuses = map[SyllabusStatus]struct{}{
	StatusDraft: {}, StatusPendingReview: {}, StatusPendingApproval: {}, StatusPendingFinal: {},
	StatusPublished: {}, StatusRejectedByHoD: {}, StatusRejectedByAA: {}, StatusRejectedByPrincipal: {},
	StatusArchived: {},
}

// ParseSyllabusStatus accepts only the exact enum spelling.
func ParseSyllabusStatus(raw string) (SyllabusStatus, bool) {
	status := SyllabusStatus(raw)
	_, ok := allStatuses[status]
	return status, ok
}

// IsPending reports whether the status awaits an approval decision.
func (s SyllabusStatus) IsPending() bool {
	_, ok := LevelForStatus(s)
	return ok
}

// AcceptsComments reports whether review comments may be posted.
func (s SyllabusStatus) AcceptsComments() bool {
	return s == StatusDraft || s.IsPending()
}

// SyllabusContent is the opaque payload carried by a version.
type SyllabusContent struct {
	CourseMetadata   types.JSONText `db:"course_metadata" json:"courseMetadata,omitempty" swaggertype:"object"`
	LearningOutcomes types.JSONText `db:"learning_outcomes" json:"learningOutcomes,omitempty" swaggertype:"array,object"`
	Assessments      types.JSONText `db:"assessments" json:"assessments,omitempty" swaggertype:"array,object"`
	SessionPlan      types.JSONText `db:"session_plan" json:"sessionPlan,omitempty" swaggertype:"array,object"`
	Materials        types.JSONText `db:"materials" json:"materials,omitempty" swaggertype:"array,object"`
}

// CopyFlags select which payload sections are carried into a new version.
type CopyFlags struct {
	Outcomes    bool `json:"outcomes"`
	Materials   bool `json:"materials"`
	SessionPlan bool `json:"sessionPlan"`
	Assessments bool `json:"assessments"`
}

// AllSections copies every payload section.
func AllSections() CopyFlags {
	return CopyFlags{Outcomes: true, Materials: true, SessionPlan: true, Assessments: true}
}

// Branch returns a deep copy of the content keeping only the flagged sections.
// Course metadata is always carried over.
func (c SyllabusContent) Branch(flags CopyFlags) SyllabusContent {
	out := SyllabusContent{CourseMetadata: cloneJSON(c.CourseMetadata)}
	if flags.Outcomes {
		out.LearningOutcomes = cloneJSON(c.LearningOutcomes)
	}
	if flags.Assessments {
		out.Assessments = cloneJSON(c.Assessments)
	}
	if flags.SessionPlan {
		out.SessionPlan = cloneJSON(c.SessionPlan)
	}
	if flags.Materials {
		out.Materials = cloneJSON(c.Materials)
	}
	return out.Normalize()
}

// Normalize fills empty sections with JSON defaults so columns are never NULL.
func (c SyllabusContent) Normalize() SyllabusContent {
	if len(c.CourseMetadata) == 0 {
		c.CourseMetadata = types.JSONText(`{}`)
	}
	for _, section := range []*types.JSONText{&c.LearningOutcomes, &c.Assessments, &c.SessionPlan, &c.Materials} {
		if len(*section) == 0 {
			*section = types.JSONText(`[]`)
		}
	}
	return c
}

func cloneJSON(src types.JSONText) types.JSONText {
	if src == nil {
		return nil
	}
	dst := make(types.JSONText, len(src))
	copy(dst, src)
	return dst
}

// SyllabusVersion is one immutable-once-submitted revision of a course syllabus.
type SyllabusVersion struct {
	ID                   string         `db:"id" json:"id"`
	CourseCode           string         `db:"course_code" json:"courseCode"`
	VersionNo            int            `db:"version_no" json:"versionNo"`
	Status               SyllabusStatus `db:"status" json:"status"`
	PreviousVersionID    *string        `db:"previous_version_id" json:"previousVersionId,omitempty"`
	IsLatestVersion      bool           `db:"is_latest_version" json:"isLatestVersion"`
	LecturerID           string         `db:"lecturer_id" json:"lecturerId"`
	VersionNotes         string         `db:"version_notes" json:"versionNotes"`
	ReviewSummary        *string        `db:"review_summary" json:"reviewSummary,omitempty"`
	ReviewFinalizedBy    *string        `db:"review_finalized_by" json:"reviewFinalizedBy,omitempty"`
	ReviewFinalizedAt    *time.Time     `db:"review_finalized_at" json:"reviewFinalizedAt,omitempty"`
	ReviewFinalizedLevel *ApprovalLevel `db:"review_finalized_level" json:"reviewFinalizedLevel,omitempty"`
	CreatedAt            time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time      `db:"updated_at" json:"updatedAt"`
	PublishedAt          *time.Time     `db:"published_at" json:"publishedAt,omitempty"`
	ArchivedAt           *time.Time     `db:"archived_at" json:"archivedAt,omitempty"`
	SyllabusContent
}

package service

import (
	"fmt"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
)

var transitionKinds = map[models.SyllabusStatus]models.NotificationKind{
	models.StatusPendingReview:       models.NotificationSubmitted,
	models.StatusPendingApproval:     models.NotificationApprovedByHoD,
	models.StatusPendingFinal:        models.NotificationApprovedByAA,
	models.StatusPublished:           models.NotificationPublished,
	models.StatusRejectedByHoD:       models.NotificationRejectedByHoD,
	models.StatusRejectedByAA:        models.NotificationRejectedByAA,
	models.StatusRejectedByPrincipal: models.NotificationRejectedByPrincipal,
	models.StatusArchived:            models.NotificationArchived,
}

func versionLabel(v *models.SyllabusVersion) string {
	return fmt.Sprintf("%s v%d", v.CourseCode, v.VersionNo)
}

func versionPayload(v *models.SyllabusVersion, actorID string) map[string]interface{} {
	return map[string]interface{}{
		"versionId":  v.ID,
		"courseCode": v.CourseCode,
		"versionNo":  v.VersionNo,
		"status":     v.Status,
		"actorId":    actorID,
		"actionUrl":  "/syllabuses/" + v.ID,
	}
}

// transitionEvent describes the notification for a version that just entered its current status.
func transitionEvent(v *models.SyllabusVersion, actorID, notes string, recipients []string) models.NotificationEvent {
	kind := transitionKinds[v.Status]
	label := versionLabel(v)
	event := models.NotificationEvent{Kind: kind, Recipients: recipients, Payload: versionPayload(v, actorID)}

	switch v.Status {
	case models.StatusPendingReview:
		event.Title = "Syllabus submitted for review"
		event.Message = fmt.Sprintf("%s was submitted and awaits Head of Department review.", label)
	case models.StatusPendingApproval:
		event.Title = "Syllabus approved by Head of Department"
		event.Message = fmt.Sprintf("%s awaits Academic Affairs approval.", label)
	case models.StatusPendingFinal:
		event.Title = "Syllabus approved by Academic Affairs"
		event.Message = fmt.Sprintf("%s awaits final approval by the Principal.", label)
	case models.StatusPublished:
		event.Title = "Syllabus published"
		event.Message = fmt.Sprintf("%s has been published.", label)
	case models.StatusRejectedByHoD, models.StatusRejectedByAA, models.StatusRejectedByPrincipal:
		event.Title = "Syllabus rejected"
		event.Message = fmt.Sprintf("%s was rejected. Reason: %s", label, notes)
		event.Payload["reason"] = notes
	case models.StatusArchived:
		event.Title = "Syllabus archived"
		event.Message = fmt.Sprintf("%s was superseded by a newly published version.", label)
	}
	if notes != "" {
		event.Payload["notes"] = notes
	}
	return event
}

func commentEvent(v *models.SyllabusVersion, comment *models.ReviewComment, recipients []string) models.NotificationEvent {
	payload := versionPayload(v, comment.AuthorID)
	payload["commentId"] = comment.ID
	title, message := "New review comment", fmt.Sprintf("A new review comment was posted on %s.", versionLabel(v))
	if comment.IsReply() {
		payload["parentCommentId"] = *comment.ParentCommentID
		title, message = "New reply to a review comment", fmt.Sprintf("A review comment on %s received a reply.", versionLabel(v))
	}
	return models.NotificationEvent{
		Kind:       models.NotificationCommentAdded,
		Recipients: recipients,
		Title:      title,
		Message:    message,
		Payload:    payload,
	}
}

func reviewFinalizedEvent(v *models.SyllabusVersion, summary *models.ReviewSummary) models.NotificationEvent {
	payload := versionPayload(v, summary.FinalizedBy)
	payload["level"] = summary.Level
	payload["commentCount"] = summary.CommentCount
	return models.NotificationEvent{
		Kind:       models.NotificationReviewFinalized,
		Recipients: []string{v.LecturerID},
		Title:      "Review comments finalized",
		Message:    fmt.Sprintf("%d review comments on %s were compiled at %s level.", summary.CommentCount, versionLabel(v), summary.Level),
		Payload:    payload,
	}
}

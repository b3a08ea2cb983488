package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/syllabus-workflow-api/internal/dto"
	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
)

func seedDraft(t *testing.T, f *workflowFixture, course, lecturer string) *models.SyllabusVersion {
	t.Helper()
	version, err := f.version.CreateDraft(context.Background(), lecturer, dto.CreateSyllabusRequest{
		CourseCode: course,
		Content: models.SyllabusContent{
			CourseMetadata:   types.JSONText(`{"title":"Intro"}`),
			LearningOutcomes: types.JSONText(`["LO1"]`),
		},
	})
	require.NoError(t, err)
	return version
}

func decide(f *workflowFixture, versionID string, level models.ApprovalLevel, actor string, decision models.Decision, notes string) (*dto.TransitionResult, error) {
	return f.workflow.Decide(context.Background(), dto.DecideRequest{
		VersionID: versionID,
		Level:     string(level),
		ActorID:   actor,
		Decision:  decision,
		Notes:     notes,
	})
}

func approveChain(t *testing.T, f *workflowFixture, versionID string) *dto.TransitionResult {
	t.Helper()
	_, err := decide(f, versionID, models.LevelHoD, "hod-1", models.DecisionApprove, "")
	require.NoError(t, err)
	_, err = decide(f, versionID, models.LevelAA, "aa-1", models.DecisionApprove, "")
	require.NoError(t, err)
	result, err := decide(f, versionID, models.LevelPrincipal, "pr-1", models.DecisionApprove, "ship it")
	require.NoError(t, err)
	return result
}

func TestWorkflowSubmit(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	draft := seedDraft(t, f, "cs101", "lect-1")

	_, err := f.workflow.Submit(ctx, draft.ID, "lect-2")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.workflow.Submit(ctx, draft.ID, "hod-1")
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.workflow.Submit(ctx, "missing", "lect-1")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	result, err := f.workflow.Submit(ctx, draft.ID, "lect-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, result.Version.Status)
	assert.Nil(t, result.Action)

	_, err = f.workflow.Submit(ctx, draft.ID, "lect-1")
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	event := f.emitter.last()
	assert.Equal(t, models.NotificationSubmitted, event.Kind)
	assert.Equal(t, []string{"hod-1"}, event.Recipients)
	assert.Equal(t, draft.ID, event.Payload["versionId"])

	assert.Equal(t, 1.0, counterValue(t, f.metrics, "workflow_transitions_total", map[string]string{"action": "SUBMIT", "level": "none", "result": "ok"}))
	assert.Equal(t, 1.0, counterValue(t, f.metrics, "workflow_transitions_total", map[string]string{"action": "SUBMIT", "level": "none", "result": "invalid_transition"}))
}

func TestWorkflowApprovalChainPublishes(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	draft := seedDraft(t, f, "CS101", "lect-1")
	_, err := f.workflow.Submit(ctx, draft.ID, "lect-1")
	require.NoError(t, err)

	result, err := decide(f, draft.ID, models.LevelHoD, "hod-1", models.DecisionApprove, "looks good")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, result.Version.Status)
	require.NotNil(t, result.Action)
	assert.Equal(t, models.StatusPendingReview, result.Action.FromStatus)
	assert.Equal(t, models.StatusPendingApproval, result.Action.ToStatus)
	assert.ElementsMatch(t, []string{"lect-1", "aa-1", "aa-2"}, f.emitter.last().Recipients)

	result, err = decide(f, draft.ID, models.LevelAA, "aa-2", models.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingFinal, result.Version.Status)
	assert.ElementsMatch(t, []string{"lect-1", "pr-1"}, f.emitter.last().Recipients)

	result, err = decide(f, draft.ID, models.LevelPrincipal, "pr-1", models.DecisionApprove, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, result.Version.Status)
	assert.True(t, result.Version.IsLatestVersion)
	assert.NotNil(t, result.Version.PublishedAt)
	assert.Equal(t, models.NotificationPublished, f.emitter.last().Kind)
	assert.Equal(t, []string{"lect-1"}, f.emitter.last().Recipients)

	history, err := f.workflow.History(ctx, draft.ID, "lect-1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, []models.ApprovalLevel{models.LevelHoD, models.LevelAA, models.LevelPrincipal},
		[]models.ApprovalLevel{history[0].Level, history[1].Level, history[2].Level})
	assert.Equal(t, "looks good", history[0].Notes)
}

func TestWorkflowPublishArchivesPreviousVersion(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	v1 := seedDraft(t, f, "CS101", "lect-1")
	_, err := f.workflow.Submit(ctx, v1.ID, "lect-1")
	require.NoError(t, err)
	approveChain(t, f, v1.ID)

	v2, err := f.version.CreateVersion(ctx, "lect-1", dto.CreateVersionRequest{SourceVersionID: v1.ID, Notes: "2027 refresh"})
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNo)

	_, err = f.workflow.Submit(ctx, v2.ID, "lect-1")
	require.NoError(t, err)
	result := approveChain(t, f, v2.ID)
	assert.Equal(t, models.StatusPublished, result.Version.Status)
	assert.True(t, result.Version.IsLatestVersion)

	old, err := f.versions.GetByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusArchived, old.Status)
	assert.False(t, old.IsLatestVersion)
	assert.NotNil(t, old.ArchivedAt)

	kinds := f.emitter.kinds()
	assert.Equal(t, models.NotificationArchived, kinds[len(kinds)-1])
	assert.Equal(t, models.NotificationPublished, kinds[len(kinds)-2])

	lineage, err := f.version.Lineage(ctx, v2.ID, "hod-1")
	require.NoError(t, err)
	published := 0
	latest := 0
	for _, v := range lineage {
		if v.Status == models.StatusPublished {
			published++
		}
		if v.IsLatestVersion {
			latest++
		}
	}
	assert.Equal(t, 1, published)
	assert.Equal(t, 1, latest)
}

func TestWorkflowOlderVersionCannotPublishOverNewer(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	v1 := seedDraft(t, f, "CS101", "lect-1")
	_, err := f.workflow.Submit(ctx, v1.ID, "lect-1")
	require.NoError(t, err)

	v2, err := f.version.CreateVersion(ctx, "lect-1", dto.CreateVersionRequest{SourceVersionID: v1.ID})
	require.NoError(t, err)
	_, err = f.workflow.Submit(ctx, v2.ID, "lect-1")
	require.NoError(t, err)
	approveChain(t, f, v2.ID)

	_, err = decide(f, v1.ID, models.LevelHoD, "hod-1", models.DecisionApprove, "")
	require.NoError(t, err)
	_, err = decide(f, v1.ID, models.LevelAA, "aa-1", models.DecisionApprove, "")
	require.NoError(t, err)
	_, err = decide(f, v1.ID, models.LevelPrincipal, "pr-1", models.DecisionApprove, "")
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	older, err := f.versions.GetByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingFinal, older.Status)
	assert.False(t, older.IsLatestVersion)

	newest, err := f.versions.GetByID(ctx, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, newest.Status)
	assert.True(t, newest.IsLatestVersion)
	assert.Nil(t, newest.ArchivedAt)
	assert.Equal(t, 1.0, counterValue(t, f.metrics, "workflow_transitions_total",
		map[string]string{"action": string(models.ActionApprove), "level": string(models.LevelPrincipal), "result": "conflict"}))
}

func TestWorkflowOlderVersionPublishesBelowNewerDraft(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	v1 := seedDraft(t, f, "CS101", "lect-1")
	_, err := f.workflow.Submit(ctx, v1.ID, "lect-1")
	require.NoError(t, err)
	v2, err := f.version.CreateVersion(ctx, "lect-1", dto.CreateVersionRequest{SourceVersionID: v1.ID})
	require.NoError(t, err)

	result := approveChain(t, f, v1.ID)
	assert.Equal(t, models.StatusPublished, result.Version.Status)
	assert.False(t, result.Version.IsLatestVersion)

	head, err := f.versions.GetByID(ctx, v2.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, head.Status)
	assert.True(t, head.IsLatestVersion)
}

func TestWorkflowRejectRequiresReason(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	draft := seedDraft(t, f, "MA201", "lect-1")
	_, err := f.workflow.Submit(ctx, draft.ID, "lect-1")
	require.NoError(t, err)

	_, err = decide(f, draft.ID, models.LevelHoD, "hod-1", models.DecisionReject, "   ")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	result, err := decide(f, draft.ID, models.LevelHoD, "hod-1", models.DecisionReject, "missing assessment weights")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejectedByHoD, result.Version.Status)
	assert.Equal(t, models.DecisionReject, result.Action.Decision)

	event := f.emitter.last()
	assert.Equal(t, models.NotificationRejectedByHoD, event.Kind)
	assert.Equal(t, []string{"lect-1"}, event.Recipients)
	assert.Contains(t, event.Message, "missing assessment weights")

	_, err = decide(f, draft.ID, models.LevelAA, "aa-1", models.DecisionApprove, "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)
}

func TestWorkflowDecideRoleChecks(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	draft := seedDraft(t, f, "PH110", "lect-1")
	_, err := f.workflow.Submit(ctx, draft.ID, "lect-1")
	require.NoError(t, err)

	cases := []struct {
		name  string
		level models.ApprovalLevel
		actor string
		want  error
	}{
		{"academic affairs at hod level", models.LevelHoD, "aa-1", appErrors.ErrForbidden},
		{"lecturer approving", models.LevelHoD, "lect-1", appErrors.ErrForbidden},
		{"inactive user", models.LevelHoD, "retired", appErrors.ErrForbidden},
		{"unknown role", models.LevelHoD, "admin-1", appErrors.ErrForbidden},
		{"unknown user", models.LevelHoD, "ghost", appErrors.ErrForbidden},
		{"anonymous", models.LevelHoD, "", appErrors.ErrValidation},
		{"bogus level", models.ApprovalLevel("DEAN"), "hod-1", appErrors.ErrValidation},
		{"lowercase level", models.ApprovalLevel("hod"), "hod-1", appErrors.ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decide(f, draft.ID, tc.level, tc.actor, models.DecisionApprove, "")
			assert.ErrorIs(t, err, tc.want)
		})
	}

	current, err := f.versions.GetByID(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingReview, current.Status)
}

func TestWorkflowRetryAfterDecisionConflicts(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	draft := seedDraft(t, f, "EE300", "lect-1")
	_, err := f.workflow.Submit(ctx, draft.ID, "lect-1")
	require.NoError(t, err)

	_, err = decide(f, draft.ID, models.LevelHoD, "hod-1", models.DecisionApprove, "")
	require.NoError(t, err)

	_, err = decide(f, draft.ID, models.LevelHoD, "hod-1", models.DecisionApprove, "")
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = decide(f, draft.ID, models.LevelPrincipal, "pr-1", models.DecisionApprove, "")
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	history, err := f.workflow.History(ctx, draft.ID, "lect-1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestWorkflowConcurrentDecisionsSingleWinner(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	draft := seedDraft(t, f, "CH150", "lect-1")
	_, err := f.workflow.Submit(ctx, draft.ID, "lect-1")
	require.NoError(t, err)
	_, err = decide(f, draft.ID, models.LevelHoD, "hod-1", models.DecisionApprove, "")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, actor := range []string{"aa-1", "aa-2"} {
		wg.Add(1)
		go func(i int, actor string) {
			defer wg.Done()
			decision := models.DecisionApprove
			notes := ""
			if i == 1 {
				decision = models.DecisionReject
				notes = "outcomes unclear"
			}
			_, errs[i] = decide(f, draft.ID, models.LevelAA, actor, decision, notes)
		}(i, actor)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, appErrors.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	history, err := f.workflow.History(ctx, draft.ID, "lect-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestWorkflowPending(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	first := seedDraft(t, f, "CS101", "lect-1")
	second := seedDraft(t, f, "CS102", "lect-2")
	seedDraft(t, f, "CS103", "lect-2")
	for _, v := range []*models.SyllabusVersion{first, second} {
		_, err := f.workflow.Submit(ctx, v.ID, v.LecturerID)
		require.NoError(t, err)
	}

	items, pagination, err := f.workflow.Pending(ctx, "hod", "hod-1", 1, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 2, pagination.TotalCount)
	assert.Equal(t, 1, pagination.PageSize)

	items, _, err = f.workflow.Pending(ctx, "AA", "aa-1", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, items)

	_, _, err = f.workflow.Pending(ctx, "HOD", "lect-1", 1, 20)
	assert.ErrorIs(t, err, appErrors.ErrForbidden)

	_, _, err = f.workflow.Pending(ctx, "REGISTRAR", "hod-1", 1, 20)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	_, _, err = f.workflow.Pending(ctx, "aa", "aa-1", 1, 20)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestWorkflowRejectedByAcademicAffairsThenBranch(t *testing.T) {
	ctx := context.Background()
	f := newWorkflowFixture()
	v1 := seedDraft(t, f, "CS101", "lect-1")

	_, err := f.workflow.Submit(ctx, v1.ID, "lect-1")
	require.NoError(t, err)
	result, err := decide(f, v1.ID, models.LevelHoD, "hod-1", models.DecisionApprove, "ok")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingApproval, result.Version.Status)
	result, err = decide(f, v1.ID, models.LevelAA, "aa-1", models.DecisionReject, "PLO mapping incomplete")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejectedByAA, result.Version.Status)
	assert.Equal(t, "PLO mapping incomplete", result.Action.Notes)

	v2, err := f.version.CreateVersion(ctx, "lect-1", dto.CreateVersionRequest{SourceVersionID: v1.ID})
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, v2.Status)
	assert.Equal(t, 2, v2.VersionNo)
	require.NotNil(t, v2.PreviousVersionID)
	assert.Equal(t, v1.ID, *v2.PreviousVersionID)

	rejected, err := f.versions.GetByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejectedByAA, rejected.Status)
}

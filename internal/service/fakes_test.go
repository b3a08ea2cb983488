package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	"github.com/noah-isme/syllabus-workflow-api/internal/repository"
)

type userStub struct {
	users map[string]*models.User
}

func newUserStub() *userStub {
	stub := &userStub{users: map[string]*models.User{}}
	add := func(id string, role string, active bool) {
		stub.users[id] = &models.User{ID: id, FullName: "User " + id, Role: role, Active: active}
	}
	add("lect-1", "LECTURER", true)
	add("lect-2", "LECTURER", true)
	add("hod-1", "HOD", true)
	add("aa-1", "AA", true)
	add("aa-2", "AA", true)
	add("pr-1", "PRINCIPAL", true)
	add("retired", "LECTURER", false)
	add("admin-1", "SUPERADMIN", true)
	return stub
}

func (s *userStub) FindByID(_ context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (s *userStub) ListActiveIDsByRole(_ context.Context, role models.UserRole) ([]string, error) {
	ids := []string{}
	for id, user := range s.users {
		if user.Role == string(role) && user.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// versionMemory implements the version and workflow stores with compare-and-set semantics.
type versionMemory struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	versions map[string]*models.SyllabusVersion
	actions  []models.ApprovalAction
}

func newVersionMemory() *versionMemory {
	return &versionMemory{versions: map[string]*models.SyllabusVersion{}, clock: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)}
}

func (m *versionMemory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *versionMemory) insert(v *models.SyllabusVersion) {
	m.seq++
	if v.ID == "" {
		v.ID = fmt.Sprintf("v-%d", m.seq)
	}
	if v.Status == "" {
		v.Status = models.StatusDraft
	}
	v.CreatedAt = m.tick()
	v.UpdatedAt = v.CreatedAt
	v.SyllabusContent = v.SyllabusContent.Normalize()
	clone := *v
	m.versions[v.ID] = &clone
}

func (m *versionMemory) Create(_ context.Context, v *models.SyllabusVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.versions {
		if existing.CourseCode == v.CourseCode && existing.VersionNo == v.VersionNo {
			return repository.ErrDuplicate
		}
	}
	v.IsLatestVersion = true
	m.insert(v)
	return nil
}

func (m *versionMemory) GetByID(_ context.Context, id string) (*models.SyllabusVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *v
	return &clone, nil
}

func (m *versionMemory) CourseExists(_ context.Context, courseCode string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.CourseCode == courseCode {
			return true, nil
		}
	}
	return false, nil
}

func (m *versionMemory) HasAuthored(_ context.Context, courseCode, lecturerID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, v := range m.versions {
		if v.CourseCode == courseCode && v.LecturerID == lecturerID {
			return true, nil
		}
	}
	return false, nil
}

func (m *versionMemory) ListByCourse(_ context.Context, courseCode string) ([]models.SyllabusVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SyllabusVersion{}
	for _, v := range m.versions {
		if v.CourseCode == courseCode {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VersionNo < out[j].VersionNo })
	return out, nil
}

func (m *versionMemory) ListByStatus(_ context.Context, status models.SyllabusStatus, limit, offset int) ([]models.SyllabusVersion, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SyllabusVersion{}
	for _, v := range m.versions {
		if v.Status == status {
			out = append(out, *v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if offset >= len(out) {
		return []models.SyllabusVersion{}, total, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *versionMemory) UpdateContent(_ context.Context, id, lecturerID string, content models.SyllabusContent) (*models.SyllabusVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[id]
	if !ok || v.LecturerID != lecturerID || v.Status != models.StatusDraft {
		return nil, sql.ErrNoRows
	}
	v.SyllabusContent = content.Normalize()
	v.UpdatedAt = m.tick()
	clone := *v
	return &clone, nil
}

func (m *versionMemory) CreateBranch(_ context.Context, v *models.SyllabusVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var head *models.SyllabusVersion
	for _, existing := range m.versions {
		if existing.CourseCode == v.CourseCode && existing.IsLatestVersion {
			head = existing
		}
		if existing.CourseCode == v.CourseCode && existing.VersionNo == v.VersionNo {
			return repository.ErrDuplicate
		}
	}
	if head == nil {
		return sql.ErrNoRows
	}
	head.IsLatestVersion = false
	v.IsLatestVersion = true
	m.insert(v)
	return nil
}

func (m *versionMemory) Transition(_ context.Context, params repository.TransitionParams) (*repository.TransitionOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.versions[params.VersionID]
	if !ok || v.Status != params.From {
		return nil, sql.ErrNoRows
	}
	newer, newerPublished := false, false
	if params.To == models.StatusPublished {
		for _, other := range m.versions {
			if other.CourseCode == v.CourseCode && other.VersionNo > v.VersionNo {
				newer = true
				newerPublished = newerPublished || other.Status == models.StatusPublished
			}
		}
		if newerPublished {
			return nil, repository.ErrSuperseded
		}
	}
	at := m.tick()
	v.Status = params.To
	v.UpdatedAt = at
	if params.Action != nil {
		params.Action.ID = fmt.Sprintf("a-%d", len(m.actions)+1)
		params.Action.SyllabusVersionID = v.ID
		params.Action.FromStatus = params.From
		params.Action.ToStatus = params.To
		params.Action.CreatedAt = at
		m.actions = append(m.actions, *params.Action)
	}
	outcome := &repository.TransitionOutcome{}
	if params.To == models.StatusPublished {
		v.PublishedAt = &at
		for _, other := range m.versions {
			if other.CourseCode == v.CourseCode && other.VersionNo < v.VersionNo && other.Status == models.StatusPublished {
				other.Status = models.StatusArchived
				other.ArchivedAt = &at
				outcome.Archived = append(outcome.Archived, *other)
			}
		}
		if !newer {
			for _, other := range m.versions {
				if other.CourseCode == v.CourseCode {
					other.IsLatestVersion = other.ID == v.ID
				}
			}
		}
	}
	clone := *v
	outcome.Version = &clone
	return outcome, nil
}

func (m *versionMemory) HasDecision(_ context.Context, versionID string, level models.ApprovalLevel) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.actions {
		if a.SyllabusVersionID == versionID && a.Level == level {
			return true, nil
		}
	}
	return false, nil
}

func (m *versionMemory) History(_ context.Context, versionID string) ([]models.ApprovalAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.ApprovalAction{}
	for _, a := range m.actions {
		if a.SyllabusVersionID == versionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// commentMemory implements the comment store on top of versionMemory.
type commentMemory struct {
	mu        sync.Mutex
	versions  *versionMemory
	seq       int
	comments  map[string]*models.ReviewComment
	summaries []models.ReviewSummary
}

func newCommentMemory(versions *versionMemory) *commentMemory {
	return &commentMemory{versions: versions, comments: map[string]*models.ReviewComment{}}
}

func (m *commentMemory) Create(_ context.Context, c *models.ReviewComment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	c.ID = fmt.Sprintf("c-%02d", m.seq)
	clone := *c
	m.comments[c.ID] = &clone
	return nil
}

func (m *commentMemory) GetByID(_ context.Context, id string) (*models.ReviewComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := m.view(c)
	return &clone, nil
}

func (m *commentMemory) view(c *models.ReviewComment) models.ReviewComment {
	clone := *c
	clone.ReplyCount = 0
	for _, other := range m.comments {
		if other.ParentCommentID != nil && *other.ParentCommentID == c.ID {
			clone.ReplyCount++
		}
	}
	return clone
}

func (m *commentMemory) sorted(versionID string) []models.ReviewComment {
	return m.sortedWhere(func(c *models.ReviewComment) bool { return c.SyllabusVersionID == versionID })
}

func (m *commentMemory) sortedWhere(keep func(*models.ReviewComment) bool) []models.ReviewComment {
	out := []models.ReviewComment{}
	for _, c := range m.comments {
		if keep(c) {
			out = append(out, m.view(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *commentMemory) ListByVersion(_ context.Context, versionID string) ([]models.ReviewComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(versionID), nil
}

func (m *commentMemory) ListRecent(_ context.Context, versionID string, limit int) ([]models.ReviewComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(versionID)
	out := []models.ReviewComment{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (m *commentMemory) Stats(_ context.Context, versionID, actorID string) (*models.CommentStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := &models.CommentStats{}
	authors := map[string]struct{}{}
	for _, c := range m.sorted(versionID) {
		stats.CommentCount++
		authors[c.AuthorID] = struct{}{}
		if c.AuthorID == actorID {
			stats.MyCommentCount++
		}
		if !c.IsReply() && c.Status == models.CommentOpen {
			stats.OpenThreadCount++
		}
	}
	stats.ParticipantCount = len(authors)
	return stats, nil
}

func (m *commentMemory) Participants(_ context.Context, versionID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	out := []string{}
	for _, c := range m.sorted(versionID) {
		if _, ok := seen[c.AuthorID]; !ok {
			seen[c.AuthorID] = struct{}{}
			out = append(out, c.AuthorID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *commentMemory) Delete(_ context.Context, versionID, commentID, authorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.SyllabusVersionID != versionID || c.AuthorID != authorID || c.FinalizedAt != nil || m.view(c).ReplyCount > 0 {
		return sql.ErrNoRows
	}
	delete(m.comments, commentID)
	return nil
}

func (m *commentMemory) ListReplies(_ context.Context, parentID string) ([]models.ReviewComment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sortedWhere(func(c *models.ReviewComment) bool {
		return c.ParentCommentID != nil && *c.ParentCommentID == parentID
	}), nil
}

func (m *commentMemory) UpdateContent(_ context.Context, versionID, commentID, authorID, content string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.SyllabusVersionID != versionID || c.AuthorID != authorID || c.FinalizedAt != nil {
		return sql.ErrNoRows
	}
	c.Content = content
	c.EditedAt = &at
	return nil
}

func (m *commentMemory) SetStatus(_ context.Context, params repository.ResolveParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[params.CommentID]
	if !ok || c.SyllabusVersionID != params.VersionID || c.IsReply() {
		return sql.ErrNoRows
	}
	c.Status, c.ResolvedBy, c.ResolvedAt, c.ResolutionNote = params.Status, params.By, params.At, params.Note
	return nil
}

func (m *commentMemory) Finalize(_ context.Context, params repository.FinalizeParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.summaries {
		if existing.SyllabusVersionID == params.Summary.SyllabusVersionID && existing.Level == params.Summary.Level {
			return repository.ErrDuplicate
		}
	}
	m.versions.mu.Lock()
	defer m.versions.mu.Unlock()
	v, ok := m.versions.versions[params.Summary.SyllabusVersionID]
	if !ok || v.Status != params.ExpectedStatus {
		return sql.ErrNoRows
	}
	want := make(map[string]string, len(params.Open))
	for _, c := range params.Open {
		want[c.ID] = c.Content
	}
	open := 0
	for _, c := range m.comments {
		if c.SyllabusVersionID != v.ID || c.FinalizedAt != nil {
			continue
		}
		open++
		if content, ok := want[c.ID]; !ok || content != c.Content {
			return repository.ErrStaleComments
		}
	}
	if open != len(want) {
		return repository.ErrStaleComments
	}

	text := params.Summary.Summary
	by := params.Summary.FinalizedBy
	at := params.Summary.CreatedAt
	level := params.Summary.Level
	v.ReviewSummary, v.ReviewFinalizedBy, v.ReviewFinalizedAt, v.ReviewFinalizedLevel = &text, &by, &at, &level

	params.Summary.ID = fmt.Sprintf("s-%d", len(m.summaries)+1)
	m.summaries = append(m.summaries, *params.Summary)
	for _, c := range m.comments {
		if c.SyllabusVersionID == v.ID && c.FinalizedAt == nil {
			c.FinalizedAt = &at
		}
	}
	return nil
}

func (m *commentMemory) LatestSummary(_ context.Context, versionID string) (*models.ReviewSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.summaries) - 1; i >= 0; i-- {
		if m.summaries[i].SyllabusVersionID == versionID {
			clone := m.summaries[i]
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []models.NotificationEvent
}

func (r *recordingEmitter) Emit(_ context.Context, event models.NotificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) last() models.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func (r *recordingEmitter) kinds() []models.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.NotificationKind, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Kind)
	}
	return out
}

// workflowFixture wires all services over in-memory stores.
type workflowFixture struct {
	versions *versionMemory
	comments *commentMemory
	emitter  *recordingEmitter
	metrics  *MetricsService
	gate     *RoleGate
	workflow *WorkflowService
	version  *SyllabusVersionService
	review   *ReviewService
}

func newWorkflowFixture() *workflowFixture {
	versions := newVersionMemory()
	comments := newCommentMemory(versions)
	emitter := &recordingEmitter{}
	metrics := NewMetricsService()
	gate := NewRoleGate(newUserStub())
	return &workflowFixture{
		versions: versions,
		comments: comments,
		emitter:  emitter,
		metrics:  metrics,
		gate:     gate,
		workflow: NewWorkflowService(versions, versions, gate, emitter, metrics, nil, nil),
		version:  NewSyllabusVersionService(versions, gate, nil, nil),
		review:   NewReviewService(comments, versions, gate, emitter, nil, nil, 5),
	}
}

// counterValue sums the counter samples of name whose labels include want.
func counterValue(t *testing.T, metrics *MetricsService, name string, want map[string]string) float64 {
	t.Helper()
	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			matched := true
			for k, v := range want {
				if labels[k] != v {
					matched = false
				}
			}
			if matched {
				total += metric.GetCounter().GetValue()
			}
		}
	}
	return total
}

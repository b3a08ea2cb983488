package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
)

// Permission names an operation guarded by the role gate.
type Permission string

const (
	PermissionCreateSyllabus Permission = "syllabus:create"
	PermissionEditDraft      Permission = "syllabus:edit"
	PermissionBranchVersion  Permission = "syllabus:branch"
	PermissionReadSyllabus   Permission = "syllabus:read"
	PermissionSubmit         Permission = "workflow:submit"
	PermissionComment        Permission = "review:comment"
	PermissionResolveComment Permission = "review:resolve"
)

var (
	allRoles       = []models.UserRole{models.RoleLecturer, models.RoleHeadOfDepartment, models.RoleAcademicAffairs, models.RolePrincipal}
	authorizations = map[Permission][]models.UserRole{
		PermissionCreateSyllabus: {models.RoleLecturer},
		PermissionEditDraft:      {models.RoleLecturer},
		PermissionBranchVersion:  {models.RoleLecturer},
		PermissionReadSyllabus:   allRoles,
		PermissionSubmit:         {models.RoleLecturer},
		PermissionComment:        allRoles,
		PermissionResolveComment: {models.RoleLecturer, models.RoleHeadOfDepartment},
	}
	levelRoles = map[models.ApprovalLevel]models.UserRole{
		models.LevelHoD:       models.RoleHeadOfDepartment,
		models.LevelAA:        models.RoleAcademicAffairs,
		models.LevelPrincipal: models.RolePrincipal,
	}
)

// Can reports whether role is granted permission.
func Can(role models.UserRole, permission Permission) bool {
	for _, allowed := range authorizations[permission] {
		if allowed == role {
			return true
		}
	}
	return false
}

// RoleForLevel returns the role that decides at an approval level.
func RoleForLevel(level models.ApprovalLevel) (models.UserRole, bool) {
	role, ok := levelRoles[level]
	return role, ok
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListActiveIDsByRole(ctx context.Context, role models.UserRole) ([]string, error)
}

// RoleGate resolves actor roles from the users store and answers authorization questions.
type RoleGate struct {
	users userLookup
}

// NewRoleGate constructs the gate.
func NewRoleGate(users userLookup) *RoleGate {
	return &RoleGate{users: users}
}

// ResolveRole looks up the actor. Unknown, inactive or unrecognised users are forbidden.
func (g *RoleGate) ResolveRole(ctx context.Context, actorID string) (models.UserRole, error) {
	if strings.TrimSpace(actorID) == "" {
		return "", appErrors.ErrUnauthorized
	}
	user, err := g.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", appErrors.Clone(appErrors.ErrForbidden, "unknown actor")
		}
		return "", appErrors.Internal(err, "failed to resolve actor role")
	}
	if !user.Active {
		return "", appErrors.Clone(appErrors.ErrForbidden, "actor is inactive")
	}
	role, ok := models.ParseUserRole(user.Role)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrForbidden, "actor has no workflow role")
	}
	return role, nil
}

// Require resolves the actor and checks membership in roles.
func (g *RoleGate) Require(ctx context.Context, actorID string, roles ...models.UserRole) (models.UserRole, error) {
	role, err := g.ResolveRole(ctx, actorID)
	if err != nil {
		return "", err
	}
	for _, allowed := range roles {
		if role == allowed {
			return role, nil
		}
	}
	return "", appErrors.ErrForbidden
}

// Authorize resolves the actor and checks the permission table.
func (g *RoleGate) Authorize(ctx context.Context, actorID string, permission Permission) (models.UserRole, error) {
	return g.Require(ctx, actorID, authorizations[permission]...)
}

// RequireLevel checks that the actor decides at the approval level.
func (g *RoleGate) RequireLevel(ctx context.Context, actorID string, level models.ApprovalLevel) error {
	role, ok := RoleForLevel(level)
	if !ok {
		return appErrors.Clone(appErrors.ErrValidation, "unknown approval level")
	}
	_, err := g.Require(ctx, actorID, role)
	return err
}

// UsersWithRole lists active users holding role.
func (g *RoleGate) UsersWithRole(ctx context.Context, role models.UserRole) ([]string, error) {
	return g.users.ListActiveIDsByRole(ctx, role)
}

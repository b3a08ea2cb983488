package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/syllabus-workflow-api/internal/models"
	appErrors "github.com/noah-isme/syllabus-workflow-api/pkg/errors"
	"github.com/noah-isme/syllabus-workflow-api/pkg/response"
)

// ContextRoleKey holds the role resolved for the current actor.
const ContextRoleKey = "actorRole"

type roleResolver interface {
	Require(ctx context.Context, actorID string, roles ...models.UserRole) (models.UserRole, error)
}

// RequireRoles rejects actors whose stored role is not listed. Token role claims are ignored.
func RequireRoles(gate roleResolver, roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID := ActorID(c)
		if actorID == "" {
			response.Abort(c, appErrors.ErrUnauthorized)
			return
		}
		role, err := gate.Require(c.Request.Context(), actorID, roles...)
		if err != nil {
			response.Abort(c, err)
			return
		}
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// ActorRole returns the role stored by RequireRoles, or empty when none was resolved.
func ActorRole(c *gin.Context) models.UserRole {
	value, exists := c.Get(ContextRoleKey)
	if !exists {
		return ""
	}
	role, _ := value.(models.UserRole)
	return role
}

// Reviewers is the set of roles that take part in approval decisions.
var Reviewers = []models.UserRole{models.RoleHeadOfDepartment, models.RoleAcademicAffairs, models.RolePrincipal}

package models

import "time"

// UserRole represents the workflow actor roles.
type UserRole string

const (
	RoleLecturer         UserRole = "LECTURER"
	RoleHeadOfDepartment UserRole = "HOD"
	RoleAcademicAffairs  UserRole = "AA"
	RolePrincipal        UserRole = "PRINCIPAL"
)

// ParseUserRole normalises a stored role string. Unknown roles are rejected.
func ParseUserRole(raw string) (UserRole, bool) {
	switch role := UserRole(raw); role {
	case RoleLecturer, RoleHeadOfDepartment, RoleAcademicAffairs, RolePrincipal:
		return role, true
	default:
		return "", false
	}
}

// User represents an application user stored in the users table.
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FullName  string    `db:"full_name" json:"fullName"`
	Role      string    `db:"role" json:"role"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

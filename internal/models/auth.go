package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims represents the verified bearer token payload. Only UserID is trusted
// for authorization; the role is always resolved through the users store.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role,omitempty"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"full_name,omitempty"`
	jwt.RegisteredClaims
}

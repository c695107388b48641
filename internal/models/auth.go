package models

import "github.com/golang-jwt/jwt/v5"

// UserRole mirrors the roles issued by the identity provider.
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleViceDean  UserRole = "vice_dean"
	RoleDeptHead  UserRole = "dept_head"
	RoleProfessor UserRole = "professor"
	RoleStudent   UserRole = "student"
)

// JWTClaims is the access-token payload this service trusts.
// Token issuance lives in the identity service; we only validate.
type JWTClaims struct {
	UserID string   `json:"sub_id"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

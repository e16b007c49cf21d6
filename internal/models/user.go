package models

import "strings"

// UserRole is the role carried by the identity provider's tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleStudent    UserRole = "STUDENT"
)

// ParseUserRole normalises raw into a known role.
func ParseUserRole(raw string) (UserRole, bool) {
	role := UserRole(strings.ToUpper(strings.TrimSpace(raw)))
	switch role {
	case RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleStudent:
		return role, true
	default:
		return "", false
	}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

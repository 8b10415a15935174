package models

import "strings"

// Role is the principal's role as reported by the API.
type Role string

const (
	RoleUser       Role = "user"
	RoleSuperAdmin Role = "super_admin"
)

// User is a denormalized snapshot of the authenticated principal. It is kept
// for display and for choosing the landing area; the server remains the only
// authority on what the principal may do.
type User struct {
	ID             int64   `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	MobileNumber   string  `json:"mobile_number"`
	Role           Role    `json:"role"`
	IsVerified     bool    `json:"is_verified"`
	ProfilePicture *string `json:"profile_picture,omitempty"`
	// CreatedAt is kept verbatim; the API emits ISO-8601 without a zone.
	CreatedAt string `json:"created_at"`
}

// IsSuperAdmin reports whether the snapshot carries the super_admin role.
func (u User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

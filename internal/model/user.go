package model

import "time"

// Role names stored in users.role and carried in token claims.
const (
	RoleAdmin     = "ADMIN"
	RoleModerator = "MODERATOR"
	RoleUser      = "USER"
)

// ValidRole reports whether s is one of the known role names.
func ValidRole(s string) bool {
	return s == RoleAdmin || s == RoleModerator || s == RoleUser
}

// User mirrors the `users` table.  The password hash never leaves the
// server; handlers respond with PublicView instead.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// PublicUser is the sanitized view of a user returned by the API.
type PublicUser struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

// PublicView strips the credential fields from a user record.
func (u User) PublicView() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, IsActive: u.IsActive}
}

// PasswordReset models an entry in the `password_resets` table.  The row ID
// doubles as the token's jti claim; marking used_at consumes the token, so a
// reset token can be redeemed at most once.
type PasswordReset struct {
	ID        string     // password_resets.id (uuid, token jti)
	UserID    uint64     // password_resets.user_id
	ExpiresAt time.Time  // password_resets.expires_at
	UsedAt    *time.Time // password_resets.used_at (nullable)
	CreatedAt time.Time  // password_resets.created_at
}

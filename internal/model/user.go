package model

import "time"

// Role values stored in users.role. Signup always assigns RoleUser; the
// other roles are granted by an admin through the user CRUD endpoints.
const (
	RoleUser      = "user"
	RoleGuide     = "guide"
	RoleLeadGuide = "lead-guide"
	RoleAdmin     = "admin"
)

// ValidRole reports whether r is one of the known role values.
func ValidRole(r string) bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// User mirrors the `users` table. PasswordHash and the reset columns are
// never serialized; handlers build response DTOs from the public fields.
//
// PasswordResetToken stores the SHA-256 hex digest of the one-time reset
// secret, never the secret itself. It is set together with
// PasswordResetExpires and both are cleared together on a successful reset.
type User struct {
	ID                   uint64     // users.id
	Name                 string     // users.name
	Email                string     // users.email (unique, lowercased)
	PasswordHash         string     // users.password_hash
	Role                 string     // users.role
	Active               bool       // users.active (false = soft deleted)
	PasswordChangedAt    *time.Time // users.password_changed_at (nullable)
	PasswordResetToken   *string    // users.password_reset_token (nullable)
	PasswordResetExpires *time.Time // users.password_reset_expires (nullable)
	CreatedAt            time.Time  // users.created_at
	UpdatedAt            time.Time  // users.updated_at
}

// PasswordChangedAfter reports whether the password was changed strictly
// after t. Tokens issued before a password change must be rejected; this is
// the only mechanism for revoking already-issued tokens.
func (u *User) PasswordChangedAfter(t time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	// JWT iat claims carry Unix seconds, so compare at second precision.
	return u.PasswordChangedAt.Unix() > t.Unix()
}

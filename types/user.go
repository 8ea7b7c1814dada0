package types

import (
	"fmt"
	"time"
)

// Role is the coarse-grained permission tier attached to a user.
// It is a closed set; anything outside the three constants is rejected
// at parse time so authorization checks never see an unknown role.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleAdmin      Role = "Admin"
	RoleUser       Role = "User"
)

// ParseRole validates a role string against the closed set.
func ParseRole(value string) (Role, error) {
	switch Role(value) {
	case RoleSuperAdmin, RoleAdmin, RoleUser:
		return Role(value), nil
	default:
		return "", fmt.Errorf("unknown role %q", value)
	}
}

// Valid reports whether the role is one of the three known tiers.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// CanAdminister reports whether the role grants access to the
// administrative endpoints.
func (r Role) CanAdminister() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// User represents an account in the portal.
// It contains identity, role, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" bson:"user_id"`

	// Username is the display identifier chosen by the user.
	Username string `json:"username" bson:"username"`

	// Email uniquely identifies the account; stored trimmed and lowercased.
	Email string `json:"email" bson:"email"`

	// FullName is the user's full display name.
	FullName string `json:"full_name" bson:"full_name"`

	// Role indicates the user's authorization tier.
	Role Role `json:"role" bson:"role"`

	// IsActive gates authentication; inactive accounts cannot log in.
	IsActive bool `json:"is_active" bson:"is_active"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" bson:"password_hash"`

	// LastLogin is the timestamp of the most recent successful login,
	// nil until the first one.
	LastLogin *time.Time `json:"last_login" bson:"last_login,omitempty"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at" bson:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the account.
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

package services

import (
	"errors"
	"fmt"
)

// Service-level error taxonomy. Handlers translate these into HTTP
// statuses and stable machine-readable kinds; anything outside the
// taxonomy surfaces as a generic internal error with no detail.
var (
	// ErrAccountExists is returned when registration or a profile update
	// collides with an existing email or username.
	ErrAccountExists = errors.New("email or username already in use")

	// ErrInvalidCredentials covers unknown email, wrong password and
	// deactivated accounts alike, so callers cannot enumerate users.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken covers missing, malformed, badly signed and
	// expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")

	// ErrNotFound is returned when the referenced user no longer exists.
	ErrNotFound = errors.New("user not found")

	// ErrForbidden is returned when the actor's role does not permit
	// the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrExportsDisabled is returned when no export storage backend is
	// configured.
	ErrExportsDisabled = errors.New("export storage not configured")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func missingField(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

package store

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a unique constraint (email or
	// username) rejects an insert or update. Uniqueness is enforced by
	// the backend itself, never by a check-then-insert in application
	// code.
	ErrDuplicate = errors.New("duplicate record")
)

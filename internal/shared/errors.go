package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a unique constraint was violated.
	ErrConflict = errors.New("already exists")
)

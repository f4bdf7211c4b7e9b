package repository

import "errors"

// Sentinel errors shared by all repository implementations.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: record not found")
	// ErrDuplicateEntry indicates a write violated a unique constraint.
	ErrDuplicateEntry = errors.New("repository: duplicate entry")
)

// Resource-specific aliases, kept so callers can match on the resource
// they asked for without introducing new error values.
var (
	ErrUserNotFound         = ErrNotFound
	ErrProjectNotFound      = ErrNotFound
	ErrVersionNotFound      = ErrNotFound
	ErrCollaboratorNotFound = ErrNotFound
)

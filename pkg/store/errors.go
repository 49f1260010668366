package store

import "errors"

// Common errors returned by the registry.
var (
	// ErrSessionNotFound is returned when a session is not found.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidHash is returned when a session hash is not 32 hex-encoded bytes.
	ErrInvalidHash = errors.New("invalid session hash")

	// ErrNameConflict is returned when a session name is already taken.
	ErrNameConflict = errors.New("session name already exists")

	// ErrEmptyName is returned when a session name is empty.
	ErrEmptyName = errors.New("session name cannot be empty")

	// ErrInvalidRecord is returned when a record is nil or has no spec.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrUnknownBackend is returned by Open for an unsupported backend.
	ErrUnknownBackend = errors.New("unknown store backend")
)

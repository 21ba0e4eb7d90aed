package storage

import "errors"

var (
	// ErrNotFound is returned when a record required to exist is absent.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned on insert when the identity already exists.
	ErrConflict = errors.New("record already exists")

	// ErrModifiedConcurrently is returned when a guarded update loses the
	// race to another writer: the conditional write matched zero rows and
	// the caller's changes were discarded.
	ErrModifiedConcurrently = errors.New("record modified concurrently")
)

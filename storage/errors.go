package storage

import "errors"

// Common storage errors.
var (
	// ErrNotFound is returned when a resource is not in the store.
	ErrNotFound = errors.New("resource not found")

	// ErrKindConflict is returned by Ensure when the identifier already
	// denotes a resource of a different kind.
	ErrKindConflict = errors.New("identifier already denotes a different kind")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store closed")
)

package catalog

import "errors"

var (
	// ErrUnauthenticated means the caller presented no valid identity.
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden means the book exists but belongs to someone else.
	ErrForbidden = errors.New("access denied")

	// ErrNotFound means no book with the given identifier exists.
	ErrNotFound = errors.New("book not found")

	// ErrStorageUnavailable wraps database faults so callers can
	// distinguish "the store said no" from "the store is broken".
	ErrStorageUnavailable = errors.New("storage unavailable")
)

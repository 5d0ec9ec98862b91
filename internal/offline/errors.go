package offline

import "errors"

var (
	// ErrNotFound is returned when no queued operation has the requested ID.
	ErrNotFound = errors.New("queued operation not found")

	// ErrDuplicateID is returned when a store already holds a record with the
	// same ID.
	ErrDuplicateID = errors.New("queued operation already exists")

	// ErrStoreUnavailable wraps failures of the underlying store (disk full,
	// database locked, store closed). Callers of Enqueue must treat it as a
	// lost write and tell the user.
	ErrStoreUnavailable = errors.New("offline store unavailable")

	// ErrInvalidOperation is returned when an operation fails validation.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrUnknownOperation is returned when decoding an unrecognized type.
	ErrUnknownOperation = errors.New("unknown operation type")

	// ErrReplayInProgress is returned by Replay when another replay is running.
	ErrReplayInProgress = errors.New("replay already in progress")

	// ErrStoreClosed is returned by stores after Close.
	ErrStoreClosed = errors.New("store closed")
)

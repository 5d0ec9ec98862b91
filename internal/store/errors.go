package store

import (
	"errors"
	"fmt"
)

// Generic store errors. Implementations wrap or return these so services can
// use errors.Is without knowing the database.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when the database rejects an entity's data
	// (check, not-null or foreign key constraints).
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update affected no rows for a
	// reason other than the entity being absent.
	ErrUpdateFailed = errors.New("update failed")

	// ErrTransactionFailed is returned when a transaction cannot begin or commit.
	ErrTransactionFailed = errors.New("transaction failed")
)

// Entity-specific variants of the generic errors.
var (
	ErrSpaceNotFound = fmt.Errorf("%w: space", ErrNotFound)
	ErrTaskNotFound  = fmt.Errorf("%w: task", ErrNotFound)
	ErrJobNotFound   = fmt.Errorf("%w: job", ErrNotFound)

	// ErrTaskExists is returned when a task with the same owner and client
	// ID was already created.
	ErrTaskExists = fmt.Errorf("%w: task", ErrDuplicate)
)

// IsNotFoundError reports whether err means an entity was missing.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is a uniqueness violation.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError describes a failed store operation. Its message is safe to log;
// the wrapped Err may contain database details.
type StoreError struct {
	Entity    string // e.g. "task"
	Operation string // e.g. "create"
	Message   string
	Err       error
}

func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation on %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

package service

import (
	"errors"
	"fmt"

	"github.com/smera-app/smera/internal/store"
)

var (
	// ErrNotOwned indicates a resource belongs to another user.
	// The API maps it to 404 so resource IDs cannot be probed.
	ErrNotOwned = errors.New("resource is owned by another user")

	// ErrSpaceNotFound indicates the space does not exist.
	ErrSpaceNotFound = errors.New("space not found")

	// ErrTaskNotFound indicates the task does not exist.
	ErrTaskNotFound = errors.New("task not found")

	// ErrNilDependency is returned by constructors given a nil dependency.
	ErrNilDependency = errors.New("required dependency is nil")
)

// ServiceError wraps an unexpected failure with the operation that hit it.
type ServiceError struct {
	Operation string
	Message   string
	Err       error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err for operation. Store not-found errors become the
// matching service sentinel and are returned unwrapped.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrSpaceNotFound), errors.Is(err, store.ErrSpaceNotFound):
		return ErrSpaceNotFound
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, store.ErrTaskNotFound):
		return ErrTaskNotFound
	}

	return &ServiceError{Operation: operation, Message: message, Err: err}
}

func nilDependency(name string) error {
	return fmt.Errorf("%w: %s", ErrNilDependency, name)
}

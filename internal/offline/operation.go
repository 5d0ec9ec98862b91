package offline

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
)

// OperationType identifies a queued write.
type OperationType string

// Supported operation types
const (
	OpCreateTask   OperationType = "create_task"
	OpUpdateTask   OperationType = "update_task"
	OpDeleteTask   OperationType = "delete_task"
	OpAppendUpdate OperationType = "append_update"
)

// Operation is a backend write that can be queued. The JSON encoding of each
// variant is the request body the backend write API accepts for it.
type Operation interface {
	Type() OperationType
	// Workspace returns the ID of the space the write targets.
	Workspace() uuid.UUID
	Validate() error
}

// CreateTask creates a task in a space. ClientID is generated when the write
// is first attempted so a replay of an already-applied create is detectable.
type CreateTask struct {
	SpaceID  uuid.UUID        `json:"space_id"`
	ClientID uuid.UUID        `json:"client_id"`
	Draft    domain.TaskDraft `json:"draft"`
}

func (CreateTask) Type() OperationType    { return OpCreateTask }
func (o CreateTask) Workspace() uuid.UUID { return o.SpaceID }

func (o CreateTask) Validate() error {
	if o.SpaceID == uuid.Nil {
		return fmt.Errorf("%w: space ID is required", ErrInvalidOperation)
	}
	if o.ClientID == uuid.Nil {
		return fmt.Errorf("%w: client ID is required", ErrInvalidOperation)
	}
	if err := o.Draft.Normalize().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	return nil
}

// UpdateTask applies a partial update to a task.
type UpdateTask struct {
	SpaceID uuid.UUID        `json:"space_id"`
	TaskID  uuid.UUID        `json:"task_id"`
	Patch   domain.TaskPatch `json:"patch"`
}

func (UpdateTask) Type() OperationType    { return OpUpdateTask }
func (o UpdateTask) Workspace() uuid.UUID { return o.SpaceID }

func (o UpdateTask) Validate() error {
	if err := validateTaskTarget(o.SpaceID, o.TaskID); err != nil {
		return err
	}
	if err := o.Patch.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}
	return nil
}

// DeleteTask removes a task.
type DeleteTask struct {
	SpaceID uuid.UUID `json:"space_id"`
	TaskID  uuid.UUID `json:"task_id"`
}

func (DeleteTask) Type() OperationType    { return OpDeleteTask }
func (o DeleteTask) Workspace() uuid.UUID { return o.SpaceID }

func (o DeleteTask) Validate() error {
	return validateTaskTarget(o.SpaceID, o.TaskID)
}

// AppendTaskUpdate appends a progress note to a task.
type AppendTaskUpdate struct {
	SpaceID uuid.UUID `json:"space_id"`
	TaskID  uuid.UUID `json:"task_id"`
	Text    string    `json:"text"`
}

func (AppendTaskUpdate) Type() OperationType    { return OpAppendUpdate }
func (o AppendTaskUpdate) Workspace() uuid.UUID { return o.SpaceID }

func (o AppendTaskUpdate) Validate() error {
	if err := validateTaskTarget(o.SpaceID, o.TaskID); err != nil {
		return err
	}
	if o.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidOperation, domain.ErrEmptyTaskUpdateText)
	}
	return nil
}

func validateTaskTarget(spaceID, taskID uuid.UUID) error {
	if spaceID == uuid.Nil {
		return fmt.Errorf("%w: space ID is required", ErrInvalidOperation)
	}
	if taskID == uuid.Nil {
		return fmt.Errorf("%w: task ID is required", ErrInvalidOperation)
	}
	return nil
}

// MarshalOperation encodes op's payload.
func MarshalOperation(op Operation) (OperationType, []byte, error) {
	if op == nil {
		return "", nil, fmt.Errorf("%w: nil operation", ErrInvalidOperation)
	}
	payload, err := json.Marshal(op)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s payload: %w", op.Type(), err)
	}
	return op.Type(), payload, nil
}

// UnmarshalOperation decodes a payload produced by MarshalOperation.
func UnmarshalOperation(typ OperationType, payload []byte) (Operation, error) {
	var (
		op  Operation
		err error
	)

	switch typ {
	case OpCreateTask:
		var v CreateTask
		err = json.Unmarshal(payload, &v)
		op = v
	case OpUpdateTask:
		var v UpdateTask
		err = json.Unmarshal(payload, &v)
		op = v
	case OpDeleteTask:
		var v DeleteTask
		err = json.Unmarshal(payload, &v)
		op = v
	case OpAppendUpdate:
		var v AppendTaskUpdate
		err = json.Unmarshal(payload, &v)
		op = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, typ)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", typ, err)
	}
	return op, nil
}

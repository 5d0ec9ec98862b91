package offline

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MaxRetries is the number of failed replays after which a queued operation
// is dropped.
const MaxRetries = 3

// QueuedOperation is a persisted pending write.
type QueuedOperation struct {
	ID        uuid.UUID
	Operation Operation
	SpaceID   uuid.UUID
	Timestamp time.Time
	Retries   int
	LastError string
}

// Type returns the type of the wrapped operation.
func (q QueuedOperation) Type() OperationType {
	if q.Operation == nil {
		return ""
	}
	return q.Operation.Type()
}

type queuedJSON struct {
	ID        uuid.UUID       `json:"id"`
	Type      OperationType   `json:"type"`
	SpaceID   uuid.UUID       `json:"space_id"`
	Timestamp time.Time       `json:"timestamp"`
	Retries   int             `json:"retries"`
	LastError string          `json:"last_error,omitempty"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the record with its operation type and payload.
func (q QueuedOperation) MarshalJSON() ([]byte, error) {
	typ, payload, err := MarshalOperation(q.Operation)
	if err != nil {
		return nil, err
	}
	return json.Marshal(queuedJSON{
		ID:        q.ID,
		Type:      typ,
		SpaceID:   q.SpaceID,
		Timestamp: q.Timestamp,
		Retries:   q.Retries,
		LastError: q.LastError,
		Payload:   payload,
	})
}

// UnmarshalJSON decodes a record written by MarshalJSON.
func (q *QueuedOperation) UnmarshalJSON(data []byte) error {
	var raw queuedJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	op, err := UnmarshalOperation(raw.Type, raw.Payload)
	if err != nil {
		return fmt.Errorf("queued operation %s: %w", raw.ID, err)
	}
	*q = QueuedOperation{
		ID:        raw.ID,
		Operation: op,
		SpaceID:   raw.SpaceID,
		Timestamp: raw.Timestamp,
		Retries:   raw.Retries,
		LastError: raw.LastError,
	}
	return nil
}

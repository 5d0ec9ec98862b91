package domain

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxSpaceNameLength is the longest allowed space name, in runes.
const MaxSpaceNameLength = 80

// Space-specific validation errors
var (
	ErrEmptySpaceID      = errors.New("space ID cannot be empty")
	ErrEmptySpaceOwnerID = errors.New("space owner ID cannot be empty")
	ErrEmptySpaceName    = errors.New("space name cannot be empty")
	ErrSpaceNameTooLong  = errors.New("space name must be at most 80 characters long")
)

// Space is a named workspace that groups a user's tasks.
type Space struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSpace creates a Space owned by ownerID.
// Surrounding whitespace is trimmed from the name.
func NewSpace(ownerID uuid.UUID, name string) (*Space, error) {
	now := time.Now().UTC()
	space := &Space{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := space.Validate(); err != nil {
		return nil, err
	}

	return space, nil
}

// Validate checks if the Space has valid data.
func (s *Space) Validate() error {
	if s.ID == uuid.Nil {
		return ErrEmptySpaceID
	}

	if s.OwnerID == uuid.Nil {
		return ErrEmptySpaceOwnerID
	}

	if s.Name == "" {
		return ErrEmptySpaceName
	}

	if utf8.RuneCountInString(s.Name) > MaxSpaceNameLength {
		return ErrSpaceNameTooLong
	}

	return nil
}

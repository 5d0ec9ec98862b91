// Package auth issues and validates the bearer tokens of the HTTP API.
//
// Smera has no password accounts. An operator mints a token for a user ID and
// plan with `smera-server token`, and the API trusts the signed claims.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/domain"
)

// JWTService defines operations for managing JWT authentication tokens.
type JWTService interface {
	// GenerateToken creates a signed access token for userID on plan.
	GenerateToken(ctx context.Context, userID uuid.UUID, plan domain.Plan) (string, error)

	// ValidateToken validates tokenString and returns its claims. It returns
	// ErrExpiredToken, ErrTokenNotYetValid or ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims are the application fields carried by a token.
type Claims struct {
	UserID    uuid.UUID
	Plan      domain.Plan
	Subject   string
	IssuedAt  time.Time
	ExpiresAt time.Time
	ID        string
}

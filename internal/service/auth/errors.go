package auth

import "errors"

// Token validation errors
var (
	// ErrInvalidToken indicates the token format is invalid or its signature doesn't match.
	ErrInvalidToken = errors.New("invalid authentication token")

	// ErrExpiredToken indicates the token has expired.
	ErrExpiredToken = errors.New("authentication token has expired")

	// ErrTokenNotYetValid indicates the token's issue time is in the future.
	ErrTokenNotYetValid = errors.New("authentication token not yet valid")

	// ErrInvalidSecret is returned by NewJWTService for a short signing secret.
	ErrInvalidSecret = errors.New("jwt secret must be at least 32 characters")
)

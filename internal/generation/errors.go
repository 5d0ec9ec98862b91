package generation

import "errors"

// Common errors returned by generation implementations.
var (
	// ErrInvalidResponse is returned when the model output cannot be parsed.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model refuses the input on safety grounds.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrInvalidConfig is returned when the generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")

	// ErrEmptyInput is returned when there is nothing to parse or summarize.
	ErrEmptyInput = errors.New("nothing to generate from")
)

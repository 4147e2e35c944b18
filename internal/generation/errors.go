package generation

import "errors"

// Common errors returned by generation collaborators.
var (
	// ErrInvalidResponse is returned when the model response cannot be parsed or is malformed
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrContentBlocked is returned when the model blocks the content due to safety filters
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might resolve on retry
	ErrTransientFailure = errors.New("transient error from language model")

	// ErrMissingAPIKey is returned when no API credential is configured; operations
	// degrade to their fallback behavior instead of calling the provider
	ErrMissingAPIKey = errors.New("generation API key is not configured")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)

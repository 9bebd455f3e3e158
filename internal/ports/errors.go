package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrConfigurationError = errors.New("invalid or missing configuration")
	ErrInsufficientData   = errors.New("not enough bars for computation")

	// Market Data Feed Errors
	ErrFeedUnavailable      = errors.New("market data API is unavailable")
	ErrConnectionFailed     = errors.New("failed to connect to the market data feed")
	ErrRateLimited          = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed = errors.New("feed authentication failed (check API keys)")
	ErrInvalidAPIKeys       = errors.New("invalid API keys or permissions")

	// Journal Specific Errors
	ErrDuplicateEntry = errors.New("journal record already exists")
	ErrDBConnection   = errors.New("journal connection error")
	ErrQueryFailed    = errors.New("journal query failed")
)

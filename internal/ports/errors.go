package ports

import "errors"

// Standard application-level errors.
// Core components and adapters wrap underlying errors with these standard
// errors so callers can branch with errors.Is.
var (
	// Core taxonomy. Validation and not-found are caller bugs and are never
	// retried; capacity is an expected admission-style rejection.
	ErrValidation = errors.New("invalid caller input")
	ErrCapacity   = errors.New("open position limit reached")
	ErrNotFound   = errors.New("position not found")
	ErrConfig     = errors.New("invalid or missing configuration")

	// Infrastructure errors (market data, ledger).
	ErrUnknown           = errors.New("unknown error occurred")
	ErrTimeout           = errors.New("operation timed out")
	ErrContextCanceled   = errors.New("operation canceled via context")
	ErrRateLimited       = errors.New("API rate limit exceeded")
	ErrSourceUnavailable = errors.New("market data source is unavailable")
	ErrQueryFailed       = errors.New("ledger query failed")
)

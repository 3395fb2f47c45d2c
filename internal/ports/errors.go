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
	ErrConfigurationError = errors.New("invalid or missing configuration")
	ErrInternal           = errors.New("internal error")

	// Ledger Errors
	ErrUserNotFound     = errors.New("user does not exist")
	ErrAccountNotFound  = errors.New("account does not exist")
	ErrAccountExists    = errors.New("user already has an account")
	ErrBelowMinimum     = errors.New("amount is below the required minimum")
	ErrPositionNotFound = errors.New("position does not exist")
	ErrPositionExists   = errors.New("account already holds a position in this symbol")
	ErrInvalidAction    = errors.New("invalid cash action")
	ErrConflict         = errors.New("concurrent update conflict")

	// Quote Provider Errors
	ErrQuoteUnavailable = errors.New("quote unavailable")
	ErrRateLimited      = errors.New("API rate limit exceeded")
	ErrConnectionFailed = errors.New("failed to connect to the quote provider")
	ErrProviderRejected = errors.New("quote provider rejected the request")

	// Database Specific Errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrDBConnection   = errors.New("database connection error")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
	ErrDeleteFailed   = errors.New("database delete failed")
)

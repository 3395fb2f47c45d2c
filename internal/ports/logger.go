package ports

import "context"

// Logger defines the logging interface the ledger and its adapters write to.
// Implementations live in internal/adapters/logger (stdlib and zerolog).
type Logger interface {
	// Debug logs a message at Debug level.
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	// Info logs a message at Info level.
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	// Warn logs a message at Warning level.
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	// Error logs an error message at Error level.
	Error(ctx context.Context, err error, msg string, fields ...map[string]interface{})
	// With returns a logger that adds fields to every line it writes.
	With(fields map[string]interface{}) Logger
}

package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stockTrader/internal/ports"
)

// ZerologConfig holds configuration for the structured logger.
type ZerologConfig struct {
	Level  LogLevel
	Pretty bool // Human-readable console output instead of JSON lines
	Out    io.Writer
}

// ZerologLogger implements ports.Logger on top of rs/zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a structured logger. JSON goes to stdout unless
// cfg.Out is set.
func NewZerologLogger(cfg ZerologConfig) *ZerologLogger {
	zerolog.TimeFieldFormat = time.RFC3339

	var output io.Writer = os.Stdout
	if cfg.Out != nil {
		output = cfg.Out
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
		}
	}

	zl := zerolog.New(output).
		Level(toZerologLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
	return &ZerologLogger{zl: zl}
}

func toZerologLevel(l LogLevel) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func withFields(e *zerolog.Event, fields []map[string]interface{}) *zerolog.Event {
	for _, f := range fields {
		if f != nil {
			e = e.Fields(f)
		}
	}
	return e
}

// Debug logs a message at Debug level.
func (l *ZerologLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.zl.Debug(), fields).Msg(msg)
}

// Info logs a message at Info level.
func (l *ZerologLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.zl.Info(), fields).Msg(msg)
}

// Warn logs a message at Warning level.
func (l *ZerologLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {
	withFields(l.zl.Warn(), fields).Msg(msg)
}

// Error logs an error message at Error level.
func (l *ZerologLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	withFields(l.zl.Error().Err(err), fields).Msg(msg)
}

// With returns a child logger carrying fields.
func (l *ZerologLogger) With(fields map[string]interface{}) ports.Logger {
	return &ZerologLogger{zl: l.zl.With().Fields(fields).Logger()}
}

// New picks the logger implementation for format: "json" and "pretty" use
// zerolog, anything else the standard library logger.
func New(format string, level LogLevel) ports.Logger {
	switch strings.ToLower(format) {
	case "json":
		return NewZerologLogger(ZerologConfig{Level: level})
	case "pretty":
		return NewZerologLogger(ZerologConfig{Level: level, Pretty: true})
	default:
		return NewStdLogger(level)
	}
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"Error", LevelError},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestStdLogger_FiltersAndFormats(t *testing.T) {
	var buf bytes.Buffer
	log := NewStdLoggerTo(&buf, LevelInfo)
	ctx := context.Background()

	log.Debug(ctx, "hidden")
	log.Info(ctx, "Account opened", map[string]interface{}{"userID": 7, "accountID": 3})
	log.Error(ctx, errors.New("disk full"), "Commit failed")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "[INFO] Account opened | accountID=3 userID=7")
	assert.Contains(t, out, "[ERROR] Commit failed | error: disk full")
}

func TestStdLogger_WithMergesFields(t *testing.T) {
	var buf bytes.Buffer
	base := NewStdLoggerTo(&buf, LevelDebug)
	child := base.With(map[string]interface{}{"component": "ledger", "op": "base"})

	child.Warn(context.Background(), "Retrying", map[string]interface{}{"op": "Buy"})
	base.Info(context.Background(), "plain")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "component=ledger op=Buy")
	assert.NotContains(t, lines[1], "component")
}

func TestZerologLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewZerologLogger(ZerologConfig{Level: LevelInfo, Out: &buf}).
		With(map[string]interface{}{"component": "quotes"})

	log.Debug(context.Background(), "hidden")
	log.Warn(context.Background(), "Quote lookup failed", map[string]interface{}{"symbols": 2})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "Quote lookup failed", entry["message"])
	assert.Equal(t, "quotes", entry["component"])
	assert.Equal(t, float64(2), entry["symbols"])
}

func TestNew_PicksImplementation(t *testing.T) {
	assert.IsType(t, &StdLogger{}, New("text", LevelInfo))
	assert.IsType(t, &ZerologLogger{}, New("json", LevelInfo))
	assert.IsType(t, &ZerologLogger{}, New("PRETTY", LevelInfo))
}

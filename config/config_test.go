package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockTrader/internal/adapters/logger"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "./data/trader.db", cfg.DBPath)
	assert.Equal(t, "sqlite3", cfg.SQLiteDriver)
	assert.Equal(t, logger.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "1.99", cfg.BrokerageFee.String())
	assert.Equal(t, "500.00", cfg.MinOpeningAmount.String())
	assert.True(t, cfg.MinCashAdjustment.IsZero())
	assert.Equal(t, 3, cfg.TxMaxRetries)
	assert.Equal(t, QuoteProviderYahoo, cfg.QuoteProvider)
	assert.Equal(t, 2*time.Second, cfg.QuoteTimeout)
	assert.Equal(t, time.Minute, cfg.QuoteCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("SQLITE_DRIVER", "sqlite")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("BROKERAGE_FEE", "4.955")
	t.Setenv("MIN_CASH_ADJUSTMENT", "20")
	t.Setenv("QUOTE_PROVIDER", "binance")
	t.Setenv("QUOTE_TIMEOUT_SECONDS", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:3000, https://trader.example.com ,")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.SQLiteDriver)
	assert.Equal(t, logger.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "4.96", cfg.BrokerageFee.String())
	assert.Equal(t, "20.00", cfg.MinCashAdjustment.String())
	assert.Equal(t, QuoteProviderBinance, cfg.QuoteProvider)
	assert.Equal(t, 5*time.Second, cfg.QuoteTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "https://trader.example.com"}, cfg.CORSAllowedOrigins)
}

func TestLoadConfig_CollectsValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantMsg []string
	}{
		{
			name:    "bad amounts",
			env:     map[string]string{"BROKERAGE_FEE": "abc", "MIN_OPENING_AMOUNT": "-1"},
			wantMsg: []string{"invalid BROKERAGE_FEE", "MIN_OPENING_AMOUNT cannot be negative"},
		},
		{
			name:    "unknown choices",
			env:     map[string]string{"QUOTE_PROVIDER": "bloomberg", "SQLITE_DRIVER": "postgres", "LOG_FORMAT": "xml"},
			wantMsg: []string{"QUOTE_PROVIDER", "SQLITE_DRIVER", "LOG_FORMAT"},
		},
		{
			name:    "bad retries",
			env:     map[string]string{"TX_MAX_RETRIES": "zero"},
			wantMsg: []string{"invalid TX_MAX_RETRIES"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := LoadConfig()
			require.Error(t, err)
			assert.Nil(t, cfg)
			for _, msg := range tt.wantMsg {
				assert.Contains(t, err.Error(), msg)
			}
		})
	}
}

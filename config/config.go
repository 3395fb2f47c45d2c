package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"stockTrader/internal/adapters/logger" // Import the logger package for LogLevel
	"stockTrader/internal/domain"
)

// Quote provider names accepted by QUOTE_PROVIDER.
const (
	QuoteProviderYahoo   = "yahoo"
	QuoteProviderBinance = "binance"
	QuoteProviderNone    = "none"
)

// Config holds all application configuration.
type Config struct {
	// Database
	DBPath       string
	SQLiteDriver string // "sqlite3" (mattn, cgo) or "sqlite" (modernc, pure Go)

	// Logging
	LogLevel  logger.LogLevel // Use the LogLevel type from the logger adapter
	LogFormat string          // text, json or pretty

	// Ledger
	BrokerageFee      domain.Money
	MinOpeningAmount  domain.Money
	MinCashAdjustment domain.Money // 0 disables the check
	TxMaxRetries      int

	// Quotes
	QuoteProvider        string
	QuoteTimeout         time.Duration
	QuoteCacheTTL        time.Duration
	QuoteRefreshSchedule string // cron spec with seconds; empty disables warming

	// Binance API (quote provider only)
	BinanceAPIKey    string
	BinanceSecretKey string
	IsTestnet        bool

	// HTTP
	HTTPAddr           string
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/trader.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.SQLiteDriver = getEnv("SQLITE_DRIVER", "sqlite3")
	if cfg.SQLiteDriver != "sqlite3" && cfg.SQLiteDriver != "sqlite" {
		errs = append(errs, "SQLITE_DRIVER must be 'sqlite3' or 'sqlite'")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package
	cfg.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "text"))
	switch cfg.LogFormat {
	case "text", "json", "pretty":
	default:
		errs = append(errs, "LOG_FORMAT must be one of text, json, pretty")
	}

	// Ledger
	cfg.BrokerageFee, err = getEnvAsMoneyRequired("BROKERAGE_FEE", "1.99")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid BROKERAGE_FEE: %v", err))
	} else if cfg.BrokerageFee.IsNegative() {
		errs = append(errs, "BROKERAGE_FEE cannot be negative")
	}

	cfg.MinOpeningAmount, err = getEnvAsMoneyRequired("MIN_OPENING_AMOUNT", "500")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_OPENING_AMOUNT: %v", err))
	} else if cfg.MinOpeningAmount.IsNegative() {
		errs = append(errs, "MIN_OPENING_AMOUNT cannot be negative")
	}

	cfg.MinCashAdjustment, err = getEnvAsMoneyRequired("MIN_CASH_ADJUSTMENT", "0")
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid MIN_CASH_ADJUSTMENT: %v", err))
	} else if cfg.MinCashAdjustment.IsNegative() {
		errs = append(errs, "MIN_CASH_ADJUSTMENT cannot be negative")
	}

	cfg.TxMaxRetries, err = getEnvAsIntRequired("TX_MAX_RETRIES", 3)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid TX_MAX_RETRIES: %v", err))
	} else if cfg.TxMaxRetries <= 0 {
		errs = append(errs, "TX_MAX_RETRIES must be positive")
	}

	// Quotes
	cfg.QuoteProvider = strings.ToLower(getEnv("QUOTE_PROVIDER", QuoteProviderYahoo))
	switch cfg.QuoteProvider {
	case QuoteProviderYahoo, QuoteProviderBinance, QuoteProviderNone:
	default:
		errs = append(errs, "QUOTE_PROVIDER must be one of yahoo, binance, none")
	}

	quoteTimeoutSeconds := getEnvAsInt("QUOTE_TIMEOUT_SECONDS", 2)
	if quoteTimeoutSeconds <= 0 {
		errs = append(errs, "QUOTE_TIMEOUT_SECONDS must be positive")
	}
	cfg.QuoteTimeout = time.Duration(quoteTimeoutSeconds) * time.Second

	cacheTTLSeconds := getEnvAsInt("QUOTE_CACHE_TTL_SECONDS", 60)
	if cacheTTLSeconds < 0 {
		errs = append(errs, "QUOTE_CACHE_TTL_SECONDS cannot be negative")
	}
	cfg.QuoteCacheTTL = time.Duration(cacheTTLSeconds) * time.Second

	cfg.QuoteRefreshSchedule = getEnv("QUOTE_REFRESH_SCHEDULE", "@every 30s")

	// Binance API
	cfg.BinanceAPIKey = getEnv("BINANCE_API_KEY", "")
	cfg.BinanceSecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", false)

	// HTTP
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	cfg.CORSAllowedOrigins = getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"})
	shutdownSeconds := getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 10)
	if shutdownSeconds <= 0 {
		errs = append(errs, "SHUTDOWN_TIMEOUT_SECONDS must be positive")
	}
	cfg.ShutdownTimeout = time.Duration(shutdownSeconds) * time.Second

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		// Use default if env var is not set at all
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Return error if env var is set but invalid
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

// getEnvAsMoneyRequired parses a decimal amount; floats never touch it.
func getEnvAsMoneyRequired(key string, defaultValue string) (domain.Money, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}
	value, err := domain.ParseMoney(strings.TrimSpace(valueStr))
	if err != nil {
		return domain.Zero, fmt.Errorf("invalid amount '%s' for key %s: %w", valueStr, key, err)
	}
	return value.Round(), nil
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

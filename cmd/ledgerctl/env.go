package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"stockTrader/config"
	"stockTrader/internal/adapters/logger"
	"stockTrader/internal/adapters/quotes"
	"stockTrader/internal/adapters/sqlite"
	"stockTrader/internal/app"
	"stockTrader/internal/calculator"
	"stockTrader/internal/ports"
)

// Where command output goes; tests swap it.
var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// ledgerEnv is everything a command needs, built from the environment the
// same way the server builds it.
type ledgerEnv struct {
	cfg    *config.Config
	log    ports.Logger
	repo   *sqlite.Repository
	calc   *calculator.Calculator
	ledger *app.LedgerService
}

func newLedgerEnv() (*ledgerEnv, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// CLI output is for people; only warnings and errors are logged.
	level := cfg.LogLevel
	if level < logger.LevelWarn {
		level = logger.LevelWarn
	}
	log := logger.New(cfg.LogFormat, level)

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Driver: cfg.SQLiteDriver, Logger: log})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	calc, err := calculator.New(calculator.Config{BrokerageFee: cfg.BrokerageFee})
	if err != nil {
		repo.Close()
		return nil, err
	}

	ledger, err := app.NewLedgerService(app.LedgerConfig{
		MinOpeningAmount:  cfg.MinOpeningAmount,
		MinCashAdjustment: cfg.MinCashAdjustment,
		MaxRetries:        cfg.TxMaxRetries,
	}, log, repo, calc)
	if err != nil {
		repo.Close()
		return nil, err
	}

	return &ledgerEnv{cfg: cfg, log: log, repo: repo, calc: calc, ledger: ledger}, nil
}

// viewer builds the read model, with live quotes unless withQuotes is false.
func (e *ledgerEnv) viewer(withQuotes bool) (*app.AccountViewer, error) {
	var provider ports.QuoteProvider
	if withQuotes {
		p, err := quotes.NewProvider(quotes.ProviderConfig{
			Kind:     e.cfg.QuoteProvider,
			Timeout:  e.cfg.QuoteTimeout,
			CacheTTL: e.cfg.QuoteCacheTTL,
			Binance: quotes.BinanceConfig{
				APIKey:     e.cfg.BinanceAPIKey,
				SecretKey:  e.cfg.BinanceSecretKey,
				UseTestnet: e.cfg.IsTestnet,
			},
			Logger: e.log,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	}
	return app.NewAccountViewer(app.ViewerConfig{QuoteTimeout: e.cfg.QuoteTimeout}, e.log, e.ledger, provider)
}

func (e *ledgerEnv) Close() {
	if err := e.repo.Close(); err != nil {
		e.log.Error(context.Background(), err, "Error closing database repository")
	}
}

package main

import (
	"context"
	"errors"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"stockTrader/config"
	"stockTrader/internal/adapters/httpapi"
	"stockTrader/internal/adapters/logger"
	"stockTrader/internal/adapters/quotes"
	"stockTrader/internal/adapters/sqlite"
	"stockTrader/internal/app"
	"stockTrader/internal/calculator"
	"stockTrader/internal/scheduler"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.New(cfg.LogFormat, cfg.LogLevel)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String(), "format": cfg.LogFormat})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Driver: cfg.SQLiteDriver,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err) // Also log to stderr
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized", map[string]interface{}{"driver": cfg.SQLiteDriver})

	// 4. Initialize Trade Calculator
	calc, err := calculator.New(calculator.Config{BrokerageFee: cfg.BrokerageFee})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trade calculator")
		log.Fatalf("FATAL: Failed to initialize trade calculator: %v", err)
	}

	// 5. Initialize Ledger Service
	ledger, err := app.NewLedgerService(app.LedgerConfig{
		MinOpeningAmount:  cfg.MinOpeningAmount,
		MinCashAdjustment: cfg.MinCashAdjustment,
		MaxRetries:        cfg.TxMaxRetries,
	}, appLogger, repo, calc)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize ledger service")
		log.Fatalf("FATAL: Failed to initialize ledger service: %v", err)
	}
	appLogger.Info(ctx, "Ledger service initialized", map[string]interface{}{"fee": cfg.BrokerageFee.String()})

	// 6. Initialize Quote Provider (Yahoo or Binance behind a cache)
	quoteCache, err := quotes.NewProvider(quotes.ProviderConfig{
		Kind:     cfg.QuoteProvider,
		Timeout:  cfg.QuoteTimeout,
		CacheTTL: cfg.QuoteCacheTTL,
		Binance: quotes.BinanceConfig{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceSecretKey,
			UseTestnet: cfg.IsTestnet,
		},
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize quote provider")
		log.Fatalf("FATAL: Failed to initialize quote provider: %v", err)
	}
	appLogger.Info(ctx, "Quote provider initialized", map[string]interface{}{"provider": cfg.QuoteProvider})

	// 7. Initialize Account Viewer
	viewer, err := app.NewAccountViewer(app.ViewerConfig{QuoteTimeout: cfg.QuoteTimeout}, appLogger, ledger, quoteCache)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize account viewer")
		log.Fatalf("FATAL: Failed to initialize account viewer: %v", err)
	}

	// 8. Schedule quote cache warming
	sched := scheduler.New(ctx, appLogger)
	if cfg.QuoteRefreshSchedule != "" && cfg.QuoteProvider != config.QuoteProviderNone {
		warmer, err := app.NewQuoteWarmer(appLogger, repo, quoteCache, cfg.QuoteTimeout)
		if err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to initialize quote warmer")
			log.Fatalf("FATAL: Failed to initialize quote warmer: %v", err)
		}
		if err := sched.AddJob(cfg.QuoteRefreshSchedule, warmer); err != nil {
			appLogger.Error(ctx, err, "FATAL: Failed to schedule quote warmer")
			log.Fatalf("FATAL: Failed to schedule quote warmer: %v", err)
		}
	}
	sched.Start()
	defer sched.Stop()

	// 9. Start the HTTP API
	server, err := httpapi.New(httpapi.Config{
		Addr:           cfg.HTTPAddr,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Logger:         appLogger,
		Ledger:         ledger,
		Viewer:         viewer,
		Users:          repo,
		Calculator:     calc,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize HTTP server")
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	// 10. Wait for a signal or a server failure, then shut down
	select {
	case <-ctx.Done():
		appLogger.Info(context.Background(), "Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			appLogger.Error(context.Background(), err, "HTTP server exited with error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "HTTP server shutdown failed")
	}

	appLogger.Info(context.Background(), "Application finished gracefully.")
}

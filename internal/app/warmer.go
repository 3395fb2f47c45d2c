package app

import (
	"context"
	"fmt"
	"time"

	"stockTrader/internal/ports"
)

// QuoteRefresher reloads prices for symbols into a cache.
type QuoteRefresher interface {
	Refresh(ctx context.Context, symbols []string) (int, error)
}

// QuoteWarmer refreshes the quote cache for every symbol held in an open
// position, so account views rarely wait on the provider.
type QuoteWarmer struct {
	symbols ports.SymbolLister
	cache   QuoteRefresher
	timeout time.Duration
	logger  ports.Logger
}

// NewQuoteWarmer creates the warmer job. timeout bounds one refresh.
func NewQuoteWarmer(logger ports.Logger, symbols ports.SymbolLister, cache QuoteRefresher, timeout time.Duration) (*QuoteWarmer, error) {
	if logger == nil || symbols == nil || cache == nil {
		return nil, fmt.Errorf("missing required dependencies for QuoteWarmer")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &QuoteWarmer{symbols: symbols, cache: cache, timeout: timeout, logger: logger}, nil
}

// Name identifies the job in scheduler logs.
func (w *QuoteWarmer) Name() string { return "quote_warmer" }

// Run performs one refresh pass.
func (w *QuoteWarmer) Run(ctx context.Context) error {
	symbols, err := w.symbols.ListOpenSymbols(ctx)
	if err != nil {
		return fmt.Errorf("failed to list open symbols: %w", err)
	}
	if len(symbols) == 0 {
		return nil
	}

	rctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	n, err := w.cache.Refresh(rctx, symbols)
	w.logger.Debug(ctx, "Quote cache refreshed", map[string]interface{}{"symbols": len(symbols), "quoted": n})
	if err != nil {
		return fmt.Errorf("failed to refresh quotes: %w", err)
	}
	return nil
}

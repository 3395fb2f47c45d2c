package ports

import (
	"context"

	"stockTrader/internal/domain"
)

// QuoteProvider supplies current prices for ticker symbols.
type QuoteProvider interface {
	// GetPrices returns a price for each symbol it could quote. Symbols missing
	// from the map are unavailable; that alone is not an error. On error the
	// map may still hold the prices that were obtained.
	GetPrices(ctx context.Context, symbols []string) (map[string]domain.Money, error)
}

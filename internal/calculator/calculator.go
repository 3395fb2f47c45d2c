// Package calculator prices trades. It has no side effects.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

// DefaultBrokerageFee is charged once per trade, regardless of share count.
var DefaultBrokerageFee = domain.MoneyFromCents(199)

// Config holds the pricing parameters.
type Config struct {
	BrokerageFee domain.Money
}

// Calculator computes trade amounts and fees with fixed-point arithmetic.
type Calculator struct {
	fee domain.Money
}

// New creates a calculator. A negative fee is rejected.
func New(cfg Config) (*Calculator, error) {
	if cfg.BrokerageFee.IsNegative() {
		return nil, fmt.Errorf("brokerage fee %s cannot be negative: %w", cfg.BrokerageFee, ports.ErrConfigurationError)
	}
	return &Calculator{fee: cfg.BrokerageFee.Round()}, nil
}

// Fee returns the per-trade brokerage fee.
func (c *Calculator) Fee() domain.Money {
	return c.fee
}

// Validate checks the trade inputs: shares must be positive and price
// non-negative.
func (c *Calculator) Validate(shares int64, price domain.Money) error {
	if shares <= 0 {
		return fmt.Errorf("shares must be positive, got %d: %w", shares, ports.ErrInvalidRequest)
	}
	if price.IsNegative() {
		return fmt.Errorf("price cannot be negative, got %s: %w", price, ports.ErrInvalidRequest)
	}
	return nil
}

// Amount is shares*price rounded half-up to 2 decimal places.
func (c *Calculator) Amount(shares int64, price domain.Money) domain.Money {
	return price.MulShares(shares).Round()
}

// CostBasis values shares at the price they were bought at. Sells remove
// this amount from equity, not the sale amount.
func (c *Calculator) CostBasis(shares int64, boughtAt domain.Money) domain.Money {
	return c.Amount(shares, boughtAt)
}

// BuyCost is the cash a buy consumes: the amount plus the fee.
func (c *Calculator) BuyCost(shares int64, price domain.Money) domain.Money {
	return c.Amount(shares, price).Add(c.fee)
}

// SellProceeds is the net cash a sell produces: the amount minus the fee.
// It can be negative for very small sales.
func (c *Calculator) SellProceeds(shares int64, price domain.Money) domain.Money {
	return c.Amount(shares, price).Sub(c.fee)
}

// AverageCost is the share-weighted cost per share after adding shares at
// price to a holding of held shares at boughtAt, rounded to 2 places.
// Equity is bought_at * shares, so after a rounded average it can differ
// from the cash actually paid by up to half a cent per share held; the
// difference settles when the position is sold.
func (c *Calculator) AverageCost(held int64, boughtAt domain.Money, added int64, price domain.Money) domain.Money {
	total := held + added
	if total <= 0 {
		return domain.Zero
	}
	sum := boughtAt.MulShares(held).Add(price.MulShares(added))
	return domain.NewMoney(sum.Decimal().DivRound(decimal.NewFromInt(total), 2))
}

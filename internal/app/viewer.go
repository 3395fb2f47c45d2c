package app

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

const defaultQuoteTimeout = 2 * time.Second

var hundred = decimal.NewFromInt(100)

// AccountReader loads an account together with its open positions.
type AccountReader interface {
	Snapshot(ctx context.Context, accountID int64) (*domain.Account, []*domain.Position, error)
}

// PositionView is an open position as shown to the account holder. Price and
// MarketValue are nil when no quote was available.
type PositionView struct {
	ID          int64         `json:"id"`
	Symbol      string        `json:"symbol"`
	Shares      int64         `json:"shares"`
	BoughtAt    domain.Money  `json:"bought_at"`
	BoughtOn    time.Time     `json:"bought_on"`
	InitialCost domain.Money  `json:"initial_cost"`
	Price       *domain.Money `json:"price,omitempty"`
	MarketValue *domain.Money `json:"market_value,omitempty"`
}

// AccountDisplay holds the currency-formatted amounts.
type AccountDisplay struct {
	Cash    string `json:"cash"`
	Equity  string `json:"equity"`
	Initial string `json:"initial"`
	Total   string `json:"total"`
	Change  string `json:"change"`
}

// AccountView is the read-only projection of an account.
type AccountView struct {
	ID              int64                   `json:"id"`
	UserID          int64                   `json:"user_id"`
	CashAmount      domain.Money            `json:"cash_amount"`
	EquityAmount    domain.Money            `json:"equity_amount"`
	InitialAmount   domain.Money            `json:"initial_amount"`
	TotalAmount     domain.Money            `json:"total_amount"`
	AmtChange       domain.Money            `json:"amt_change"`
	PctChange       decimal.Decimal         `json:"pct_change"`
	Stocks          map[string]PositionView `json:"stocks"`
	QuotesAvailable bool                    `json:"quotes_available"`
	Display         AccountDisplay          `json:"display"`
}

// BuildAccountView derives the display projection from stored balances and
// whatever prices were obtained. Nothing passed in is modified.
func BuildAccountView(acct *domain.Account, positions []*domain.Position, prices map[string]domain.Money) *AccountView {
	total := acct.TotalAmount()
	change := total.Sub(acct.InitialAmount)

	pct := decimal.Zero
	if !acct.InitialAmount.IsZero() {
		pct = change.Decimal().Mul(hundred).DivRound(acct.InitialAmount.Decimal(), 2)
	}

	view := &AccountView{
		ID:              acct.ID,
		UserID:          acct.UserID,
		CashAmount:      acct.CashAmount,
		EquityAmount:    acct.EquityAmount,
		InitialAmount:   acct.InitialAmount,
		TotalAmount:     total,
		AmtChange:       change,
		PctChange:       pct,
		Stocks:          make(map[string]PositionView, len(positions)),
		QuotesAvailable: len(prices) > 0,
		Display: AccountDisplay{
			Cash:    acct.CashAmount.Display(),
			Equity:  acct.EquityAmount.Display(),
			Initial: acct.InitialAmount.Display(),
			Total:   total.Display(),
			Change:  change.Display(),
		},
	}

	for _, p := range positions {
		pv := PositionView{
			ID:          p.ID,
			Symbol:      p.Symbol,
			Shares:      p.Shares,
			BoughtAt:    p.BoughtAt,
			BoughtOn:    p.BoughtOn,
			InitialCost: p.InitialCost,
		}
		if price, ok := prices[p.Symbol]; ok {
			price := price
			value := price.MulShares(p.Shares).Round()
			pv.Price = &price
			pv.MarketValue = &value
		}
		view.Stocks[p.Symbol] = pv
	}
	return view
}

// ViewerConfig configures the account read model.
type ViewerConfig struct {
	QuoteTimeout time.Duration // Defaults to 2s
}

// AccountViewer builds AccountViews, enriching positions with live quotes
// when the quote provider answers in time.
type AccountViewer struct {
	reader  AccountReader
	quotes  ports.QuoteProvider
	timeout time.Duration
	logger  ports.Logger
}

// NewAccountViewer creates the read model. quotes may be nil.
func NewAccountViewer(cfg ViewerConfig, logger ports.Logger, reader AccountReader, quotes ports.QuoteProvider) (*AccountViewer, error) {
	if logger == nil || reader == nil {
		return nil, fmt.Errorf("missing required dependencies for AccountViewer")
	}
	timeout := cfg.QuoteTimeout
	if timeout <= 0 {
		timeout = defaultQuoteTimeout
	}
	return &AccountViewer{
		reader:  reader,
		quotes:  quotes,
		timeout: timeout,
		logger:  logger.With(map[string]interface{}{"component": "viewer"}),
	}, nil
}

// View returns the account's projection. Quote failures are logged and
// produce a view without prices.
func (v *AccountViewer) View(ctx context.Context, accountID int64) (*AccountView, error) {
	acct, positions, err := v.reader.Snapshot(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return BuildAccountView(acct, positions, v.fetchPrices(ctx, positions)), nil
}

func (v *AccountViewer) fetchPrices(ctx context.Context, positions []*domain.Position) map[string]domain.Money {
	if v.quotes == nil || len(positions) == 0 {
		return nil
	}
	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}

	qctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	prices, err := v.quotes.GetPrices(qctx, symbols)
	if err != nil {
		v.logger.Warn(ctx, "Quote lookup failed, continuing without live prices", map[string]interface{}{
			"symbols": symbols,
			"error":   err.Error(),
			"partial": len(prices),
		})
	}
	return prices
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockTrader/internal/domain"
)

type staticReader struct {
	acct      *domain.Account
	positions []*domain.Position
	err       error
}

func (r *staticReader) Snapshot(ctx context.Context, accountID int64) (*domain.Account, []*domain.Position, error) {
	return r.acct, r.positions, r.err
}

type quoteFunc func(ctx context.Context, symbols []string) (map[string]domain.Money, error)

func (f quoteFunc) GetPrices(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
	return f(ctx, symbols)
}

func TestBuildAccountView(t *testing.T) {
	tests := []struct {
		name       string
		cash       string
		equity     string
		initial    string
		wantTotal  string
		wantChange string
		wantPct    string
	}{
		{name: "gain", cash: "1016.02", equity: "0", initial: "1000", wantTotal: "1016.02", wantChange: "16.02", wantPct: "1.60"},
		{name: "loss", cash: "898.01", equity: "0", initial: "1000", wantTotal: "898.01", wantChange: "-101.99", wantPct: "-10.20"},
		{name: "cost basis counts as value", cash: "898.01", equity: "100", initial: "1000", wantTotal: "998.01", wantChange: "-1.99", wantPct: "-0.20"},
		{name: "zero initial", cash: "10", equity: "0", initial: "0", wantTotal: "10.00", wantChange: "10.00", wantPct: "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acct := &domain.Account{
				ID:            1,
				CashAmount:    money(tt.cash),
				EquityAmount:  money(tt.equity),
				InitialAmount: money(tt.initial),
			}
			view := BuildAccountView(acct, nil, nil)
			assert.Equal(t, tt.wantTotal, view.TotalAmount.String())
			assert.Equal(t, tt.wantChange, view.AmtChange.String())
			assert.Equal(t, tt.wantPct, view.PctChange.StringFixed(2))
			assert.False(t, view.QuotesAvailable)
			assert.Empty(t, view.Stocks)
		})
	}
}

func TestBuildAccountView_PricesOnlyWhenQuoted(t *testing.T) {
	acct := &domain.Account{ID: 1, CashAmount: money("786.02"), EquityAmount: money("210.00"), InitialAmount: money("1000")}
	positions := []*domain.Position{
		{ID: 1, Symbol: "ABC", Shares: 10, BoughtAt: money("10.00"), Status: domain.StatusOpen},
		{ID: 2, Symbol: "XYZ", Shares: 11, BoughtAt: money("10.00"), Status: domain.StatusOpen},
	}

	view := BuildAccountView(acct, positions, map[string]domain.Money{"ABC": money("12.345")})
	require.Len(t, view.Stocks, 2)
	assert.True(t, view.QuotesAvailable)

	abc := view.Stocks["ABC"]
	require.NotNil(t, abc.Price)
	assert.True(t, abc.Price.Equal(money("12.345")))
	assert.Equal(t, "123.45", abc.MarketValue.String())

	xyz := view.Stocks["XYZ"]
	assert.Nil(t, xyz.Price, "price is omitted, not zero")
	assert.Nil(t, xyz.MarketValue)

	assert.Equal(t, "$996.02", view.Display.Total)

	raw, err := json.Marshal(view)
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	stocks := decoded["stocks"].(map[string]interface{})
	assert.NotContains(t, stocks["XYZ"], "price")
	assert.Equal(t, "786.02", decoded["cash_amount"])

	assert.Equal(t, "786.02", acct.CashAmount.String(), "inputs are not modified")
}

func TestAccountViewer_DegradesWithoutQuotes(t *testing.T) {
	reader := &staticReader{
		acct:      &domain.Account{ID: 7, CashAmount: money("898.01"), EquityAmount: money("100"), InitialAmount: money("1000")},
		positions: []*domain.Position{{ID: 3, Symbol: "ABC", Shares: 10, BoughtAt: money("10.00"), Status: domain.StatusOpen}},
	}

	tests := []struct {
		name   string
		quotes quoteFunc
		warned bool
	}{
		{
			name: "provider error",
			quotes: func(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
				return nil, errors.New("connection refused")
			},
			warned: true,
		},
		{
			name: "provider slower than the timeout",
			quotes: func(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			warned: true,
		},
		{
			name: "symbol not quoted",
			quotes: func(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
				return map[string]domain.Money{}, nil
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := &mockLogger{}
			viewer, err := NewAccountViewer(ViewerConfig{QuoteTimeout: 50 * time.Millisecond}, log, reader, tt.quotes)
			require.NoError(t, err)

			start := time.Now()
			view, err := viewer.View(context.Background(), 7)
			require.NoError(t, err)
			assert.Less(t, time.Since(start), time.Second)

			require.Contains(t, view.Stocks, "ABC")
			assert.Nil(t, view.Stocks["ABC"].Price)
			assert.Equal(t, "998.01", view.TotalAmount.String())
			assert.Equal(t, tt.warned, len(log.warnings()) > 0)
		})
	}
}

func TestAccountViewer_WithLedger(t *testing.T) {
	svc, _, userID := setupLedger(t)
	ctx := context.Background()
	accountID, err := svc.OpenAccount(ctx, userID, money("1000"))
	require.NoError(t, err)
	_, err = svc.Buy(ctx, accountID, "ABC", 10, money("10.00"))
	require.NoError(t, err)

	quotes := quoteFunc(func(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
		assert.Equal(t, []string{"ABC"}, symbols)
		return map[string]domain.Money{"ABC": money("12.00")}, nil
	})
	viewer, err := NewAccountViewer(ViewerConfig{}, &mockLogger{}, svc, quotes)
	require.NoError(t, err)

	view, err := viewer.View(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, "898.01", view.CashAmount.String())
	assert.Equal(t, "100.00", view.EquityAmount.String())
	assert.Equal(t, "120.00", view.Stocks["ABC"].MarketValue.String())

	_, err = viewer.View(ctx, 404)
	assert.Error(t, err)
}

type fakeSymbols struct {
	symbols []string
	err     error
}

func (f *fakeSymbols) ListOpenSymbols(ctx context.Context) ([]string, error) { return f.symbols, f.err }

type fakeRefresher struct {
	got []string
	err error
}

func (f *fakeRefresher) Refresh(ctx context.Context, symbols []string) (int, error) {
	f.got = symbols
	return len(symbols), f.err
}

func TestQuoteWarmer_Run(t *testing.T) {
	ctx := context.Background()

	refresher := &fakeRefresher{}
	w, err := NewQuoteWarmer(&mockLogger{}, &fakeSymbols{symbols: []string{"AAPL", "MSFT"}}, refresher, time.Second)
	require.NoError(t, err)
	require.NoError(t, w.Run(ctx))
	assert.Equal(t, []string{"AAPL", "MSFT"}, refresher.got)
	assert.Equal(t, "quote_warmer", w.Name())

	idle := &fakeRefresher{}
	w, err = NewQuoteWarmer(&mockLogger{}, &fakeSymbols{}, idle, time.Second)
	require.NoError(t, err)
	require.NoError(t, w.Run(ctx))
	assert.Nil(t, idle.got, "nothing to refresh")

	w, err = NewQuoteWarmer(&mockLogger{}, &fakeSymbols{err: errors.New("db closed")}, &fakeRefresher{}, time.Second)
	require.NoError(t, err)
	assert.Error(t, w.Run(ctx))

	_, err = NewQuoteWarmer(&mockLogger{}, nil, &fakeRefresher{}, time.Second)
	assert.Error(t, err)
}

package quotes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}
func (m *mockLogger) With(fields map[string]interface{}) ports.Logger { return m }

func TestYahooProvider_GetPrices(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("symbols")
		assert.Equal(t, "/v7/finance/quote", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"quoteResponse":{"result":[
			{"symbol":"AAPL","regularMarketPrice":187.444},
			{"symbol":"MSFT","regularMarketPrice":0},
			{"symbol":"TSLA"}
		],"error":null}}`)
	}))
	defer srv.Close()

	p, err := NewYahooProvider(YahooConfig{BaseURL: srv.URL, Logger: &mockLogger{}})
	require.NoError(t, err)

	prices, err := p.GetPrices(context.Background(), []string{"AAPL", "MSFT", "TSLA", "NOPE"})
	require.NoError(t, err)
	assert.Equal(t, "AAPL,MSFT,TSLA,NOPE", gotQuery)
	require.Len(t, prices, 1)
	assert.Equal(t, "187.44", prices["AAPL"].String())
	assert.True(t, prices["AAPL"].Equal(domain.MustMoney("187.444")), "quotes keep full precision")
}

func TestYahooProvider_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		delay   time.Duration
		wantErr error
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantErr: ports.ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, body: "bad gateway", wantErr: ports.ErrProviderRejected},
		{name: "api error", status: http.StatusOK, body: `{"quoteResponse":{"result":[],"error":{"code":"x"}}}`, wantErr: ports.ErrProviderRejected},
		{name: "slow provider", status: http.StatusOK, body: `{}`, delay: 300 * time.Millisecond, wantErr: ports.ErrTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.delay > 0 {
					time.Sleep(tt.delay)
				}
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			p, err := NewYahooProvider(YahooConfig{BaseURL: srv.URL, Timeout: 100 * time.Millisecond, Logger: &mockLogger{}})
			require.NoError(t, err)

			prices, err := p.GetPrices(context.Background(), []string{"AAPL"})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, prices)
		})
	}
}

func TestBinanceProvider_GetPrices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/ticker/24hr"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("symbol") {
		case "BTCUSDT":
			fmt.Fprint(w, `{"symbol":"BTCUSDT","lastPrice":"65000.10"}`)
		case "LIMITED":
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"code":-1003,"msg":"Too many requests."}`)
		default:
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
		}
	}))
	defer srv.Close()

	p, err := NewBinanceProvider(BinanceConfig{BaseURL: srv.URL, Logger: &mockLogger{}})
	require.NoError(t, err)

	prices, err := p.GetPrices(context.Background(), []string{"BTCUSDT", "AAPL"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, "65000.10", prices["BTCUSDT"].String())

	prices, err = p.GetPrices(context.Background(), []string{"BTCUSDT", "LIMITED"})
	assert.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Len(t, prices, 1, "prices fetched before the failure are kept")
}

// countingProvider records how often each symbol is requested.
type countingProvider struct {
	mu     sync.Mutex
	calls  map[string]int
	prices map[string]domain.Money
	err    error
}

func (c *countingProvider) GetPrices(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]domain.Money)
	for _, s := range symbols {
		c.calls[s]++
		if p, ok := c.prices[s]; ok && c.err == nil {
			out[s] = p
		}
	}
	return out, c.err
}

func TestCachedProvider(t *testing.T) {
	next := &countingProvider{
		calls:  map[string]int{},
		prices: map[string]domain.Money{"AAPL": domain.MustMoney("190.00"), "MSFT": domain.MustMoney("410.00")},
	}
	cache := NewCachedProvider(next, time.Minute)
	clock := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return clock }
	ctx := context.Background()

	prices, err := cache.GetPrices(ctx, []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "190.00", prices["AAPL"].String())

	prices, err = cache.GetPrices(ctx, []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Len(t, prices, 2)
	assert.Equal(t, 1, next.calls["AAPL"], "fresh entries are served from the cache")
	assert.Equal(t, 1, next.calls["MSFT"])

	clock = clock.Add(2 * time.Minute)
	next.err = errors.New("provider down")
	next.prices["AAPL"] = domain.MustMoney("191.00")
	prices, err = cache.GetPrices(ctx, []string{"AAPL"})
	assert.Error(t, err)
	assert.Empty(t, prices, "stale entries are not served")
	assert.Equal(t, 2, next.calls["AAPL"])

	next.err = nil
	n, err := cache.Refresh(ctx, []string{"AAPL", "MSFT"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	prices, err = cache.GetPrices(ctx, []string{"AAPL"})
	require.NoError(t, err)
	assert.Equal(t, "191.00", prices["AAPL"].String())
	assert.Equal(t, 3, next.calls["AAPL"])
}

func TestNoneProvider(t *testing.T) {
	prices, err := NoneProvider{}.GetPrices(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name    string
		kind    string
		wantErr error
	}{
		{name: "yahoo", kind: KindYahoo},
		{name: "default is yahoo", kind: ""},
		{name: "binance", kind: "BINANCE"},
		{name: "none", kind: KindNone},
		{name: "unknown", kind: "bloomberg", wantErr: ports.ErrConfigurationError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(ProviderConfig{Kind: tt.kind, Logger: &mockLogger{}})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, p)
		})
	}

	_, err := NewProvider(ProviderConfig{Kind: KindNone})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

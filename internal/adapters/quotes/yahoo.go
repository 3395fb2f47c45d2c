package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

const yahooDefaultBaseURL = "https://query1.finance.yahoo.com"

// YahooProvider implements ports.QuoteProvider with the Yahoo Finance quote
// endpoint. One request covers all requested symbols.
type YahooProvider struct {
	baseURL string
	client  *http.Client
	logger  ports.Logger
}

// YahooConfig holds configuration for the Yahoo quote adapter.
type YahooConfig struct {
	BaseURL string        // Defaults to the public Yahoo Finance host
	Timeout time.Duration // HTTP client timeout, defaults to 2s
	Logger  ports.Logger
}

// NewYahooProvider creates a Yahoo Finance quote adapter.
func NewYahooProvider(cfg YahooConfig) (*YahooProvider, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Yahoo quote provider")
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = yahooDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &YahooProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  cfg.Logger.With(map[string]interface{}{"component": "quotes.yahoo"}),
	}, nil
}

// yahooQuoteResponse represents the response from Yahoo Finance quote API
type yahooQuoteResponse struct {
	QuoteResponse struct {
		Result []struct {
			Symbol             string      `json:"symbol"`
			RegularMarketPrice json.Number `json:"regularMarketPrice"`
		} `json:"result"`
		Error interface{} `json:"error"`
	} `json:"quoteResponse"`
}

// GetPrices fetches regular market prices for symbols.
func (p *YahooProvider) GetPrices(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
	prices := make(map[string]domain.Money, len(symbols))
	if len(symbols) == 0 {
		return prices, nil
	}

	params := url.Values{}
	params.Add("symbols", strings.Join(symbols, ","))
	params.Add("fields", "symbol,regularMarketPrice")
	reqURL := p.baseURL + "/v7/finance/quote?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return prices, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "stockTrader/1.0")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return prices, p.transportError(ctx, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return prices, fmt.Errorf("yahoo http %d: %w", resp.StatusCode, ports.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return prices, fmt.Errorf("yahoo http %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), ports.ErrProviderRejected)
	}

	var result yahooQuoteResponse
	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return prices, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.QuoteResponse.Error != nil {
		return prices, fmt.Errorf("yahoo api error %v: %w", result.QuoteResponse.Error, ports.ErrProviderRejected)
	}

	for _, q := range result.QuoteResponse.Result {
		if q.RegularMarketPrice == "" {
			continue
		}
		price, err := domain.ParseMoney(q.RegularMarketPrice.String())
		if err != nil || !price.IsPositive() {
			p.logger.Warn(ctx, "Ignoring invalid quote", map[string]interface{}{"symbol": q.Symbol, "price": q.RegularMarketPrice.String()})
			continue
		}
		prices[strings.ToUpper(q.Symbol)] = price
	}

	p.logger.Debug(ctx, "Fetched quotes", map[string]interface{}{"requested": len(symbols), "quoted": len(prices)})
	return prices, nil
}

func (p *YahooProvider) transportError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return fmt.Errorf("yahoo request: %w: %w", ports.ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("yahoo request: %w: %w", ports.ErrContextCanceled, err)
	default:
		return fmt.Errorf("yahoo request: %w: %w", ports.ErrConnectionFailed, err)
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

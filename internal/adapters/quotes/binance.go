package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	binanceURLProduction = "https://fapi.binance.com"
	binanceURLTestnet    = "https://testnet.binancefuture.com"

	binanceInvalidSymbol = -1121
)

// BinanceProvider implements ports.QuoteProvider with Binance futures tickers.
// Symbols are Binance pairs such as BTCUSDT.
type BinanceProvider struct {
	futuresClient *futures.Client
	logger        ports.Logger
}

// BinanceConfig holds configuration specific to the Binance quote adapter.
type BinanceConfig struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	BaseURL    string // Overrides the production/testnet URL when set
	Logger     ports.Logger
}

// NewBinanceProvider creates a new Binance quote adapter.
func NewBinanceProvider(cfg BinanceConfig) (*BinanceProvider, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance quote provider")
	}
	log := cfg.Logger.With(map[string]interface{}{"component": "quotes.binance"})
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		log.Debug(context.Background(), "APIKey or SecretKey is empty, using public ticker endpoints only")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	switch {
	case cfg.BaseURL != "":
		client.BaseURL = cfg.BaseURL
	case cfg.UseTestnet:
		client.BaseURL = binanceURLTestnet
	default:
		client.BaseURL = binanceURLProduction
	}
	log.Info(context.Background(), "Binance quote provider configured", map[string]interface{}{"baseURL": client.BaseURL})

	return &BinanceProvider{futuresClient: client, logger: log}, nil
}

// GetPrices fetches the last traded price of every symbol. Unknown symbols
// are left out of the result.
func (p *BinanceProvider) GetPrices(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
	op := "GetPrices"
	prices := make(map[string]domain.Money, len(symbols))
	for _, symbol := range symbols {
		price, err := p.lastPrice(ctx, symbol)
		if err != nil {
			if errors.Is(err, ports.ErrQuoteUnavailable) {
				continue
			}
			return prices, p.handleError(ctx, err, op)
		}
		prices[symbol] = price
	}
	return prices, nil
}

func (p *BinanceProvider) lastPrice(ctx context.Context, symbol string) (domain.Money, error) {
	tickers, err := p.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == binanceInvalidSymbol {
			return domain.Zero, fmt.Errorf("symbol %s: %w", symbol, ports.ErrQuoteUnavailable)
		}
		return domain.Zero, err
	}
	if len(tickers) == 0 {
		return domain.Zero, fmt.Errorf("no ticker data returned for symbol %s: %w", symbol, ports.ErrQuoteUnavailable)
	}

	price, err := domain.ParseMoney(tickers[0].LastPrice)
	if err != nil {
		return domain.Zero, fmt.Errorf("could not parse price '%s': %w", tickers[0].LastPrice, err)
	}
	return price, nil
}

// handleError maps go-binance errors onto the quote provider errors.
func (p *BinanceProvider) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2014, -2015: // API-key format invalid / rejected
			mappedErr = ports.ErrProviderRejected
		default:
			mappedErr = ports.ErrUnknown
		}
		p.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	p.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

package quotes

import (
	"fmt"
	"strings"
	"time"

	"stockTrader/internal/ports"
)

// Provider kinds understood by NewProvider.
const (
	KindYahoo   = "yahoo"
	KindBinance = "binance"
	KindNone    = "none"
)

// ProviderConfig selects and configures the live quote source.
type ProviderConfig struct {
	Kind     string
	Timeout  time.Duration
	CacheTTL time.Duration
	Binance  BinanceConfig // Logger is taken from ProviderConfig
	Logger   ports.Logger
}

// NewProvider builds the configured quote source behind a TTL cache.
func NewProvider(cfg ProviderConfig) (*CachedProvider, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for quote provider: %w", ports.ErrConfigurationError)
	}

	var next ports.QuoteProvider
	switch strings.ToLower(cfg.Kind) {
	case KindYahoo, "":
		p, err := NewYahooProvider(YahooConfig{Timeout: cfg.Timeout, Logger: cfg.Logger})
		if err != nil {
			return nil, err
		}
		next = p
	case KindBinance:
		bcfg := cfg.Binance
		bcfg.Logger = cfg.Logger
		p, err := NewBinanceProvider(bcfg)
		if err != nil {
			return nil, err
		}
		next = p
	case KindNone:
		next = NoneProvider{}
	default:
		return nil, fmt.Errorf("unknown quote provider %q: %w", cfg.Kind, ports.ErrConfigurationError)
	}

	return NewCachedProvider(next, cfg.CacheTTL), nil
}

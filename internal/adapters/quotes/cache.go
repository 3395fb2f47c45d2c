package quotes

import (
	"context"
	"sync"
	"time"

	"stockTrader/internal/domain"
	"stockTrader/internal/ports"
)

type cachedQuote struct {
	price   domain.Money
	fetched time.Time
}

// CachedProvider serves quotes from memory for ttl and asks the wrapped
// provider only for missing or stale symbols.
type CachedProvider struct {
	next ports.QuoteProvider
	ttl  time.Duration
	now  func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedQuote
}

// NewCachedProvider wraps next with a TTL cache.
func NewCachedProvider(next ports.QuoteProvider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &CachedProvider{
		next:  next,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]cachedQuote),
	}
}

// GetPrices returns cached prices and fetches the rest. If the wrapped
// provider fails, the cached subset is returned along with the error.
func (c *CachedProvider) GetPrices(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
	prices := make(map[string]domain.Money, len(symbols))
	missing := make([]string, 0, len(symbols))

	c.mu.RLock()
	now := c.now()
	for _, s := range symbols {
		if q, ok := c.cache[s]; ok && now.Sub(q.fetched) < c.ttl {
			prices[s] = q.price
			continue
		}
		missing = append(missing, s)
	}
	c.mu.RUnlock()

	if len(missing) == 0 {
		return prices, nil
	}

	fetched, err := c.next.GetPrices(ctx, missing)
	c.store(fetched)
	for s, p := range fetched {
		prices[s] = p
	}
	return prices, err
}

// Refresh fetches symbols from the wrapped provider regardless of age.
func (c *CachedProvider) Refresh(ctx context.Context, symbols []string) (int, error) {
	if len(symbols) == 0 {
		return 0, nil
	}
	fetched, err := c.next.GetPrices(ctx, symbols)
	c.store(fetched)
	return len(fetched), err
}

func (c *CachedProvider) store(prices map[string]domain.Money) {
	if len(prices) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for s, p := range prices {
		c.cache[s] = cachedQuote{price: p, fetched: now}
	}
}

// NoneProvider quotes nothing. Views built on it never carry prices.
type NoneProvider struct{}

// GetPrices always returns an empty map.
func (NoneProvider) GetPrices(ctx context.Context, symbols []string) (map[string]domain.Money, error) {
	return map[string]domain.Money{}, nil
}

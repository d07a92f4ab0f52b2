package pricecache

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"fin_tracker/config"
	"fin_tracker/internal/externalApi"
	"fin_tracker/internal/model"
	"fin_tracker/utils"
	"github.com/shopspring/decimal"
)

// Freshness window bounds: a quote older than the window is stale and gets
// refetched; failed fetches are never cached, the next call retries.
const (
	minFreshnessWindow = time.Minute
	maxFreshnessWindow = 5 * time.Minute
)

var oneHundred = decimal.NewFromInt(100)

// QuoteProvider is one upstream price source. Providers are tried in order,
// first success wins.
type QuoteProvider interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (model.PriceQuote, error)
}

// Observer receives cache diagnostics. Optional, correctness never depends on it.
type Observer interface {
	CacheHit(symbol string)
	CacheMiss(symbol string)
	FetchFailed(symbol string, provider string, err error)
}

type noopObserver struct{}

func (noopObserver) CacheHit(string)                   {}
func (noopObserver) CacheMiss(string)                  {}
func (noopObserver) FetchFailed(string, string, error) {}

type Option func(*PriceCache)

// WithClock replaces the time source, so tests can drive freshness.
func WithClock(now func() time.Time) Option {
	return func(c *PriceCache) { c.now = now }
}

func WithObserver(observer Observer) Option {
	return func(c *PriceCache) { c.observer = observer }
}

// PriceCache memoizes quotes per symbol for a bounded freshness window. The
// store is shared by all concurrent valuation requests; quotes are not
// user-scoped. Two concurrent misses may both fetch and both store, last
// write wins, both results are valid fresh quotes.
type PriceCache struct {
	mu        sync.RWMutex
	entries   map[string]model.PriceQuote
	window    time.Duration
	now       func() time.Time
	providers []QuoteProvider
	observer  Observer
}

func New(cfg *config.Config, providers []QuoteProvider, opts ...Option) *PriceCache {
	window := cfg.Cache.QuotesExpiration
	if window == 0 {
		window = maxFreshnessWindow
	}
	if window < minFreshnessWindow {
		window = minFreshnessWindow
	}
	if window > maxFreshnessWindow {
		window = maxFreshnessWindow
	}

	c := &PriceCache{
		entries:   make(map[string]model.PriceQuote),
		window:    window,
		now:       time.Now,
		providers: providers,
		observer:  noopObserver{},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// GetPrice returns a fresh quote for the symbol, from cache when possible.
// The second result is false when no provider could supply a usable quote;
// provider failures never surface as errors.
func (c *PriceCache) GetPrice(ctx context.Context, symbol string) (model.PriceQuote, bool) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PriceCache.GetPrice"

	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return model.PriceQuote{}, false
	}

	if quote, ok := c.lookup(symbol); ok {
		slog.Debug("cache hit", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
		c.observer.CacheHit(symbol)
		return quote, true
	}

	slog.Debug("cache miss", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	c.observer.CacheMiss(symbol)

	for _, provider := range c.providers {
		quote, err := provider.FetchQuote(ctx, symbol)
		if err != nil {
			slog.Warn(
				"quote fetch failed",
				slog.String("rqID", rqID),
				slog.String("op", op),
				slog.String("symbol", symbol),
				slog.String("provider", provider.Name()),
				slog.String("err", err.Error()),
			)
			c.observer.FetchFailed(symbol, provider.Name(), err)
			continue
		}

		if quote.Price.LessThanOrEqual(decimal.Zero) {
			c.observer.FetchFailed(symbol, provider.Name(), externalApi.ErrNoData)
			continue
		}

		quote = c.finalize(symbol, provider.Name(), quote)
		c.store(symbol, quote)
		return quote, true
	}

	return model.PriceQuote{}, false
}

// GetMany fetches each symbol independently and concurrently. Symbols with no
// available price are omitted from the result.
func (c *PriceCache) GetMany(ctx context.Context, symbols []string) map[string]model.PriceQuote {
	distinct := make([]string, 0, len(symbols))
	seen := make(map[string]struct{}, len(symbols))
	for _, symbol := range symbols {
		symbol = NormalizeSymbol(symbol)
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		distinct = append(distinct, symbol)
	}

	quotes := make(map[string]model.PriceQuote, len(distinct))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, symbol := range distinct {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			quote, ok := c.GetPrice(ctx, symbol)
			if !ok {
				return
			}
			mu.Lock()
			quotes[symbol] = quote
			mu.Unlock()
		}(symbol)
	}
	wg.Wait()

	return quotes
}

// Invalidate drops every cached quote.
func (c *PriceCache) Invalidate() {
	c.mu.Lock()
	dropped := len(c.entries)
	c.entries = make(map[string]model.PriceQuote)
	c.mu.Unlock()

	slog.Info("price cache cleared", slog.Int("droppedSymbols", dropped))
}

// Stats reports cache size and per-entry age, entries sorted by symbol.
func (c *PriceCache) Stats() model.CacheStats {
	now := c.now()

	c.mu.RLock()
	entries := make([]model.CacheEntryStat, 0, len(c.entries))
	for symbol, quote := range c.entries {
		entries = append(entries, model.CacheEntryStat{
			Symbol: symbol,
			Price:  quote.Price,
			Age:    now.Sub(quote.FetchedAt),
		})
	}
	c.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })

	return model.CacheStats{
		CachedSymbols: len(entries),
		CacheDuration: c.window,
		Entries:       entries,
	}
}

func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (c *PriceCache) lookup(symbol string) (model.PriceQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	quote, ok := c.entries[symbol]
	if !ok {
		return model.PriceQuote{}, false
	}

	if c.now().Sub(quote.FetchedAt) >= c.window {
		return model.PriceQuote{}, false
	}

	return quote, true
}

func (c *PriceCache) store(symbol string, quote model.PriceQuote) {
	c.mu.Lock()
	c.entries[symbol] = quote
	c.mu.Unlock()
}

// finalize normalizes a provider response into a cache entry: day change is
// derived from previous close, the fetch timestamp is cache-insertion time.
func (c *PriceCache) finalize(symbol, providerName string, quote model.PriceQuote) model.PriceQuote {
	quote.Symbol = symbol
	quote.FetchedAt = c.now()
	if quote.Source == "" {
		quote.Source = providerName
	}

	if quote.PrevClose.IsPositive() {
		quote.DayChange = quote.Price.Sub(quote.PrevClose).Round(2)
		quote.PercentChange = quote.Price.Sub(quote.PrevClose).Div(quote.PrevClose).Mul(oneHundred).Round(2)
	} else {
		quote.DayChange = decimal.Zero
		quote.PercentChange = decimal.Zero
	}

	return quote
}

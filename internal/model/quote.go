package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a snapshot of market price for a symbol. FetchedAt is the
// cache-insertion time, not the exchange timestamp.
type PriceQuote struct {
	Symbol        string
	Price         decimal.Decimal
	PrevClose     decimal.Decimal
	DayChange     decimal.Decimal
	PercentChange decimal.Decimal
	FetchedAt     time.Time
	Source        string
}

type CacheEntryStat struct {
	Symbol string
	Price  decimal.Decimal
	Age    time.Duration
}

type CacheStats struct {
	CachedSymbols int
	CacheDuration time.Duration
	Entries       []CacheEntryStat
}

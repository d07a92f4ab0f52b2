package model

import (
	"github.com/shopspring/decimal"
)

// Holding is the aggregated position in one symbol, derived from all of a
// user's lots in that symbol. Never stored, computed per request.
type Holding struct {
	Symbol            string
	StockName         string
	TotalQuantity     decimal.Decimal
	InvestedAmount    decimal.Decimal
	AvgBuyPrice       decimal.Decimal
	CurrentPrice      decimal.Decimal
	CurrentValue      decimal.Decimal
	ProfitLoss        decimal.Decimal
	ProfitLossPercent decimal.Decimal
	LivePrice         bool // false when valued at average cost fallback
	Lots              []Investment
}

type PortfolioSummary struct {
	TotalInvested     decimal.Decimal
	CurrentValue      decimal.Decimal
	TotalProfitLoss   decimal.Decimal
	ProfitLossPercent decimal.Decimal
	Holdings          []Holding
}

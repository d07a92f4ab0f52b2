package portfolioService

import (
	"sort"

	"fin_tracker/internal/model"
	"fin_tracker/internal/pricecache"
	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

type holdingGroup struct {
	name     string
	nameLot  model.Investment
	quantity decimal.Decimal
	cost     decimal.Decimal
	lots     []model.Investment
}

// buildPortfolioSummary aggregates raw lots into per-symbol holdings valued at
// the supplied quotes. Pure: same lots and quotes always produce the same
// summary. A symbol missing from quotes is valued at its average buy price, so
// the summary is always well formed no matter how degraded pricing is.
//
// Lots with non-positive quantity or negative buy price contribute nothing to
// the sums; a symbol whose aggregate quantity is zero is not a holding.
// Holdings are ordered by symbol; the display name comes from the
// earliest-acquired lot (lowest id on equal dates).
func buildPortfolioSummary(lots []model.Investment, quotes map[string]model.PriceQuote) model.PortfolioSummary {
	groups := make(map[string]*holdingGroup)
	symbols := make([]string, 0)

	for _, lot := range lots {
		symbol := pricecache.NormalizeSymbol(lot.Symbol)
		if symbol == "" {
			continue
		}

		group, ok := groups[symbol]
		if !ok {
			group = &holdingGroup{name: lot.StockName, nameLot: lot}
			groups[symbol] = group
			symbols = append(symbols, symbol)
		} else if namePrecedes(lot, group.nameLot) {
			group.name = lot.StockName
			group.nameLot = lot
		}

		group.lots = append(group.lots, lot)

		if lot.Quantity.IsPositive() && !lot.BuyPrice.IsNegative() {
			group.quantity = group.quantity.Add(lot.Quantity)
			group.cost = group.cost.Add(lot.Quantity.Mul(lot.BuyPrice))
		}
	}

	sort.Strings(symbols)

	summary := model.PortfolioSummary{
		TotalInvested:     decimal.Zero,
		CurrentValue:      decimal.Zero,
		TotalProfitLoss:   decimal.Zero,
		ProfitLossPercent: decimal.Zero,
		Holdings:          make([]model.Holding, 0, len(symbols)),
	}

	for _, symbol := range symbols {
		group := groups[symbol]
		if !group.quantity.IsPositive() {
			continue
		}

		avgBuyPrice := group.cost.Div(group.quantity)

		quote, hasQuote := quotes[symbol]
		currentPrice := avgBuyPrice
		if hasQuote {
			currentPrice = quote.Price
		}

		currentValue := group.quantity.Mul(currentPrice)
		profitLoss := currentValue.Sub(group.cost)

		profitLossPercent := decimal.Zero
		if group.cost.IsPositive() {
			profitLossPercent = profitLoss.Div(group.cost).Mul(oneHundred)
		}

		summary.Holdings = append(summary.Holdings, model.Holding{
			Symbol:            symbol,
			StockName:         group.name,
			TotalQuantity:     group.quantity,
			InvestedAmount:    group.cost,
			AvgBuyPrice:       avgBuyPrice,
			CurrentPrice:      currentPrice,
			CurrentValue:      currentValue,
			ProfitLoss:        profitLoss,
			ProfitLossPercent: profitLossPercent,
			LivePrice:         hasQuote,
			Lots:              group.lots,
		})

		summary.TotalInvested = summary.TotalInvested.Add(group.cost)
		summary.CurrentValue = summary.CurrentValue.Add(currentValue)
	}

	summary.TotalProfitLoss = summary.CurrentValue.Sub(summary.TotalInvested)
	if summary.TotalInvested.IsPositive() {
		summary.ProfitLossPercent = summary.TotalProfitLoss.Div(summary.TotalInvested).Mul(oneHundred)
	}

	return summary
}

func namePrecedes(a, b model.Investment) bool {
	if !a.BuyDate.Equal(b.BuyDate) {
		return a.BuyDate.Before(b.BuyDate)
	}
	return a.ID < b.ID
}

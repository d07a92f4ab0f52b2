package portfolioService

import (
	"testing"
	"time"

	"fin_tracker/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func lot(id int64, symbol, name string, qty, price string, buyDate time.Time) model.Investment {
	return model.Investment{
		ID:        id,
		Symbol:    symbol,
		StockName: name,
		Quantity:  dec(qty),
		BuyPrice:  dec(price),
		BuyDate:   buyDate,
	}
}

func quoteAt(price string) model.PriceQuote {
	return model.PriceQuote{Price: dec(price)}
}

var day = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func TestBuildPortfolioSummary_Empty(t *testing.T) {
	summary := buildPortfolioSummary(nil, nil)

	assert.True(t, summary.TotalInvested.IsZero())
	assert.True(t, summary.CurrentValue.IsZero())
	assert.True(t, summary.TotalProfitLoss.IsZero())
	assert.True(t, summary.ProfitLossPercent.IsZero())
	assert.Empty(t, summary.Holdings)
}

func TestBuildPortfolioSummary_SingleLotWithQuote(t *testing.T) {
	lots := []model.Investment{lot(1, "TCS.NS", "Tata Consultancy", "10", "10", day)}
	quotes := map[string]model.PriceQuote{"TCS.NS": quoteAt("12")}

	summary := buildPortfolioSummary(lots, quotes)

	require.Len(t, summary.Holdings, 1)
	h := summary.Holdings[0]
	assert.Equal(t, "TCS.NS", h.Symbol)
	assert.True(t, h.TotalQuantity.Equal(dec("10")))
	assert.True(t, h.InvestedAmount.Equal(dec("100")))
	assert.True(t, h.AvgBuyPrice.Equal(dec("10")))
	assert.True(t, h.CurrentPrice.Equal(dec("12")))
	assert.True(t, h.CurrentValue.Equal(dec("120")))
	assert.True(t, h.ProfitLoss.Equal(dec("20")))
	assert.True(t, h.ProfitLossPercent.Equal(dec("20")))
	assert.True(t, h.LivePrice)

	assert.True(t, summary.TotalInvested.Equal(dec("100")))
	assert.True(t, summary.CurrentValue.Equal(dec("120")))
	assert.True(t, summary.TotalProfitLoss.Equal(dec("20")))
	assert.True(t, summary.ProfitLossPercent.Equal(dec("20")))
}

func TestBuildPortfolioSummary_WeightedAverage(t *testing.T) {
	lots := []model.Investment{
		lot(1, "INFY.NS", "Infosys", "10", "100", day),
		lot(2, "INFY.NS", "Infosys", "10", "200", day.AddDate(0, 1, 0)),
	}

	summary := buildPortfolioSummary(lots, nil)

	require.Len(t, summary.Holdings, 1)
	h := summary.Holdings[0]
	assert.True(t, h.TotalQuantity.Equal(dec("20")))
	assert.True(t, h.InvestedAmount.Equal(dec("3000")))
	assert.True(t, h.AvgBuyPrice.Equal(dec("150")))
	require.Len(t, h.Lots, 2)
}

func TestBuildPortfolioSummary_MissingQuoteFallsBackToAvgCost(t *testing.T) {
	lots := []model.Investment{lot(1, "INFY.NS", "Infosys", "10", "150", day)}

	summary := buildPortfolioSummary(lots, map[string]model.PriceQuote{})

	require.Len(t, summary.Holdings, 1)
	h := summary.Holdings[0]
	assert.False(t, h.LivePrice)
	assert.True(t, h.CurrentPrice.Equal(dec("150")))
	assert.True(t, h.CurrentValue.Equal(dec("1500")))
	assert.True(t, h.ProfitLoss.IsZero(), "avg cost fallback must value at break even")
	assert.True(t, h.ProfitLossPercent.IsZero())
}

func TestBuildPortfolioSummary_ZeroCostBasis(t *testing.T) {
	lots := []model.Investment{lot(1, "BONUS.NS", "Bonus Shares", "10", "0", day)}
	quotes := map[string]model.PriceQuote{"BONUS.NS": quoteAt("5")}

	summary := buildPortfolioSummary(lots, quotes)

	require.Len(t, summary.Holdings, 1)
	h := summary.Holdings[0]
	assert.True(t, h.ProfitLoss.Equal(dec("50")))
	assert.True(t, h.ProfitLossPercent.IsZero(), "percent is undefined on zero cost, must stay zero")
	assert.True(t, summary.ProfitLossPercent.IsZero())
}

func TestBuildPortfolioSummary_DegenerateLotsExcludedFromSums(t *testing.T) {
	lots := []model.Investment{
		lot(1, "TCS.NS", "Tata Consultancy", "10", "100", day),
		lot(2, "TCS.NS", "Tata Consultancy", "0", "100", day),
		lot(3, "TCS.NS", "Tata Consultancy", "-5", "100", day),
		lot(4, "TCS.NS", "Tata Consultancy", "5", "-1", day),
	}

	summary := buildPortfolioSummary(lots, nil)

	require.Len(t, summary.Holdings, 1)
	h := summary.Holdings[0]
	assert.True(t, h.TotalQuantity.Equal(dec("10")))
	assert.True(t, h.InvestedAmount.Equal(dec("1000")))
	assert.Len(t, h.Lots, 4, "degenerate lots stay visible in the lot list")
}

func TestBuildPortfolioSummary_ZeroQuantityHoldingSkipped(t *testing.T) {
	lots := []model.Investment{
		lot(1, "GONE.NS", "Gone", "0", "100", day),
		lot(2, "KEPT.NS", "Kept", "1", "100", day),
	}

	summary := buildPortfolioSummary(lots, nil)

	require.Len(t, summary.Holdings, 1)
	assert.Equal(t, "KEPT.NS", summary.Holdings[0].Symbol)
}

func TestBuildPortfolioSummary_SymbolNormalizationGroups(t *testing.T) {
	lots := []model.Investment{
		lot(1, "tcs.ns", "Tata Consultancy", "5", "100", day),
		lot(2, " TCS.NS ", "Tata Consultancy Services", "5", "100", day.AddDate(0, 0, 1)),
	}

	summary := buildPortfolioSummary(lots, nil)

	require.Len(t, summary.Holdings, 1)
	assert.Equal(t, "TCS.NS", summary.Holdings[0].Symbol)
	assert.True(t, summary.Holdings[0].TotalQuantity.Equal(dec("10")))
}

func TestBuildPortfolioSummary_DisplayNameFromEarliestLot(t *testing.T) {
	lots := []model.Investment{
		lot(3, "TCS.NS", "Newest Name", "1", "100", day.AddDate(0, 2, 0)),
		lot(2, "TCS.NS", "Oldest Name", "1", "100", day),
		lot(1, "TCS.NS", "Middle Name", "1", "100", day.AddDate(0, 1, 0)),
	}

	summary := buildPortfolioSummary(lots, nil)

	require.Len(t, summary.Holdings, 1)
	assert.Equal(t, "Oldest Name", summary.Holdings[0].StockName)
}

func TestBuildPortfolioSummary_DisplayNameTieBreaksOnLowestID(t *testing.T) {
	lots := []model.Investment{
		lot(7, "TCS.NS", "Later Insert", "1", "100", day),
		lot(3, "TCS.NS", "Earlier Insert", "1", "100", day),
	}

	summary := buildPortfolioSummary(lots, nil)

	require.Len(t, summary.Holdings, 1)
	assert.Equal(t, "Earlier Insert", summary.Holdings[0].StockName)
}

func TestBuildPortfolioSummary_HoldingsSortedBySymbol(t *testing.T) {
	lots := []model.Investment{
		lot(1, "ZOMATO.NS", "Zomato", "1", "100", day),
		lot(2, "AAPL", "Apple", "1", "100", day),
		lot(3, "INFY.NS", "Infosys", "1", "100", day),
	}

	summary := buildPortfolioSummary(lots, nil)

	require.Len(t, summary.Holdings, 3)
	assert.Equal(t, "AAPL", summary.Holdings[0].Symbol)
	assert.Equal(t, "INFY.NS", summary.Holdings[1].Symbol)
	assert.Equal(t, "ZOMATO.NS", summary.Holdings[2].Symbol)
}

func TestBuildPortfolioSummary_Deterministic(t *testing.T) {
	lots := []model.Investment{
		lot(1, "TCS.NS", "Tata Consultancy", "10", "4000", day),
		lot(2, "INFY.NS", "Infosys", "20", "1500", day),
		lot(3, "TCS.NS", "Tata Consultancy", "5", "4200", day.AddDate(0, 1, 0)),
	}
	quotes := map[string]model.PriceQuote{
		"TCS.NS": quoteAt("4100"),
	}

	first := buildPortfolioSummary(lots, quotes)
	second := buildPortfolioSummary(lots, quotes)

	assert.Equal(t, first, second)
}

func TestBuildPortfolioSummary_MixedLiveAndFallback(t *testing.T) {
	lots := []model.Investment{
		lot(1, "LIVE.NS", "Live", "10", "100", day),
		lot(2, "DEAD.NS", "Dead", "10", "200", day),
	}
	quotes := map[string]model.PriceQuote{"LIVE.NS": quoteAt("110")}

	summary := buildPortfolioSummary(lots, quotes)

	require.Len(t, summary.Holdings, 2)

	assert.True(t, summary.TotalInvested.Equal(dec("3000")))
	// live leg 1100, fallback leg at cost 2000
	assert.True(t, summary.CurrentValue.Equal(dec("3100")))
	assert.True(t, summary.TotalProfitLoss.Equal(dec("100")))
}

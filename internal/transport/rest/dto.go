package rest

import (
	"time"

	"fin_tracker/internal/model"
	"github.com/shopspring/decimal"
)

const buyDateLayout = "2006-01-02"

type createInvestmentRequest struct {
	DematAccountID int64           `json:"demat_account_id"`
	Symbol         string          `json:"symbol"`
	StockName      string          `json:"stock_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	BuyPrice       decimal.Decimal `json:"buy_price"`
	BuyDate        string          `json:"buy_date"`
}

type updateInvestmentRequest struct {
	DematAccountID *int64           `json:"demat_account_id"`
	Symbol         *string          `json:"symbol"`
	StockName      *string          `json:"stock_name"`
	Quantity       *decimal.Decimal `json:"quantity"`
	BuyPrice       *decimal.Decimal `json:"buy_price"`
	BuyDate        *string          `json:"buy_date"`
}

type investmentResponse struct {
	ID             int64     `json:"id"`
	DematAccountID int64     `json:"demat_account_id"`
	BrokerName     string    `json:"broker_name,omitempty"`
	Symbol         string    `json:"symbol"`
	StockName      string    `json:"stock_name"`
	Quantity       float64   `json:"quantity"`
	BuyPrice       float64   `json:"buy_price"`
	BuyDate        string    `json:"buy_date"`
	CreatedAt      time.Time `json:"created_at"`
}

type quoteResponse struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	PrevClose     float64   `json:"prev_close"`
	DayChange     float64   `json:"day_change"`
	PercentChange float64   `json:"percent_change"`
	FetchedAt     time.Time `json:"fetched_at"`
	Source        string    `json:"source"`
}

type holdingResponse struct {
	Symbol            string               `json:"stock_symbol"`
	StockName         string               `json:"stock_name"`
	TotalQuantity     float64              `json:"quantity"`
	InvestedAmount    float64              `json:"invested_amount"`
	AvgBuyPrice       float64              `json:"avg_buy_price"`
	CurrentPrice      float64              `json:"current_price"`
	CurrentValue      float64              `json:"current_value"`
	ProfitLoss        float64              `json:"profit_loss"`
	ProfitLossPercent float64              `json:"profit_loss_percentage"`
	LivePrice         bool                 `json:"live_price"`
	Lots              []investmentResponse `json:"investments"`
}

type portfolioSummaryResponse struct {
	TotalInvested     float64           `json:"total_invested"`
	CurrentValue      float64           `json:"current_value"`
	TotalProfitLoss   float64           `json:"total_profit_loss"`
	ProfitLossPercent float64           `json:"profit_loss_percentage"`
	Holdings          []holdingResponse `json:"holdings"`
}

type cacheEntryResponse struct {
	Symbol     string  `json:"symbol"`
	Price      float64 `json:"price"`
	AgeSeconds float64 `json:"age_seconds"`
}

type cacheStatsResponse struct {
	CachedSymbols        int                  `json:"cached_symbols"`
	CacheDurationSeconds float64              `json:"cache_duration_seconds"`
	Entries              []cacheEntryResponse `json:"entries"`
}

type stockResponse struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Series   string `json:"series,omitempty"`
	Isin     string `json:"isin,omitempty"`
}

type backupResponse struct {
	DownloadLink string `json:"download_link"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toInvestmentResponse(inv model.Investment) investmentResponse {
	return investmentResponse{
		ID:             inv.ID,
		DematAccountID: inv.DematAccountID,
		BrokerName:     inv.BrokerName,
		Symbol:         inv.Symbol,
		StockName:      inv.StockName,
		Quantity:       inv.Quantity.InexactFloat64(),
		BuyPrice:       inv.BuyPrice.InexactFloat64(),
		BuyDate:        inv.BuyDate.Format(buyDateLayout),
		CreatedAt:      inv.CreatedAt,
	}
}

func toInvestmentResponses(invs []model.Investment) []investmentResponse {
	res := make([]investmentResponse, 0, len(invs))
	for _, inv := range invs {
		res = append(res, toInvestmentResponse(inv))
	}
	return res
}

func toQuoteResponse(quote model.PriceQuote) quoteResponse {
	return quoteResponse{
		Symbol:        quote.Symbol,
		Price:         quote.Price.InexactFloat64(),
		PrevClose:     quote.PrevClose.InexactFloat64(),
		DayChange:     quote.DayChange.InexactFloat64(),
		PercentChange: quote.PercentChange.InexactFloat64(),
		FetchedAt:     quote.FetchedAt,
		Source:        quote.Source,
	}
}

func toSummaryResponse(summary model.PortfolioSummary) portfolioSummaryResponse {
	holdings := make([]holdingResponse, 0, len(summary.Holdings))
	for _, h := range summary.Holdings {
		holdings = append(holdings, holdingResponse{
			Symbol:            h.Symbol,
			StockName:         h.StockName,
			TotalQuantity:     h.TotalQuantity.InexactFloat64(),
			InvestedAmount:    h.InvestedAmount.InexactFloat64(),
			AvgBuyPrice:       h.AvgBuyPrice.InexactFloat64(),
			CurrentPrice:      h.CurrentPrice.InexactFloat64(),
			CurrentValue:      h.CurrentValue.InexactFloat64(),
			ProfitLoss:        h.ProfitLoss.InexactFloat64(),
			ProfitLossPercent: h.ProfitLossPercent.InexactFloat64(),
			LivePrice:         h.LivePrice,
			Lots:              toInvestmentResponses(h.Lots),
		})
	}

	return portfolioSummaryResponse{
		TotalInvested:     summary.TotalInvested.InexactFloat64(),
		CurrentValue:      summary.CurrentValue.InexactFloat64(),
		TotalProfitLoss:   summary.TotalProfitLoss.InexactFloat64(),
		ProfitLossPercent: summary.ProfitLossPercent.InexactFloat64(),
		Holdings:          holdings,
	}
}

func toStatsResponse(stats model.CacheStats) cacheStatsResponse {
	entries := make([]cacheEntryResponse, 0, len(stats.Entries))
	for _, e := range stats.Entries {
		entries = append(entries, cacheEntryResponse{
			Symbol:     e.Symbol,
			Price:      e.Price.InexactFloat64(),
			AgeSeconds: e.Age.Seconds(),
		})
	}

	return cacheStatsResponse{
		CachedSymbols:        stats.CachedSymbols,
		CacheDurationSeconds: stats.CacheDuration.Seconds(),
		Entries:              entries,
	}
}

func toStockResponse(stock model.StockRef) stockResponse {
	return stockResponse{
		Symbol:   stock.Symbol,
		Name:     stock.Name,
		Exchange: stock.Exchange,
		Series:   stock.Series,
		Isin:     stock.Isin,
	}
}

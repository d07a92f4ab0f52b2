package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fin_tracker/config"
	"fin_tracker/internal/model"
	"fin_tracker/internal/service"
	"fin_tracker/utils"
	"github.com/go-chi/chi/v5"
)

type PortfolioService interface {
	GetPortfolioSummary(ctx context.Context, userID int64) (model.PortfolioSummary, error)
	AddInvestment(ctx context.Context, inv model.Investment) (model.Investment, error)
	GetInvestments(ctx context.Context, userID int64, dematAccountID *int64) ([]model.Investment, error)
	UpdateInvestment(ctx context.Context, investmentID, userID int64, changes model.InvestmentChanges) (model.Investment, error)
	DeleteInvestment(ctx context.Context, investmentID, userID int64) error
	GetMarketPrice(ctx context.Context, symbol string) (model.PriceQuote, error)
	GetMarketPrices(ctx context.Context, symbols []string) []model.PriceQuote
	MarketStats() model.CacheStats
	ClearPriceCache()
	GetStockDetails(ctx context.Context, symbol string) (model.StockRef, error)
	SearchStocks(ctx context.Context, search string, limit int) ([]model.StockRef, error)
	ExportPortfolioReport(ctx context.Context, userID int64) (fileBytes []byte, filename string, err error)
	BackupPortfolioReport(ctx context.Context, userID int64) (downloadLink string, err error)
}

type Controller struct {
	service PortfolioService
	cfg     *config.Config
}

func NewController(service PortfolioService, cfg *config.Config) *Controller {
	return &Controller{service: service, cfg: cfg}
}

func (c *Controller) GetInvestments(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dematAccountID *int64
	if raw := r.URL.Query().Get("demat_account_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "demat_account_id must be an integer")
			return
		}
		dematAccountID = &id
	}

	invs, err := c.service.GetInvestments(r.Context(), userID, dematAccountID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvestmentResponses(invs))
}

func (c *Controller) AddInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	buyDate, err := parseBuyDate(req.BuyDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := c.service.AddInvestment(r.Context(), model.Investment{
		UserID:         userID,
		DematAccountID: req.DematAccountID,
		Symbol:         req.Symbol,
		StockName:      req.StockName,
		Quantity:       req.Quantity,
		BuyPrice:       req.BuyPrice,
		BuyDate:        buyDate,
	})
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toInvestmentResponse(inv))
}

func (c *Controller) UpdateInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	investmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	var req updateInvestmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	changes := model.InvestmentChanges{
		DematAccountID: req.DematAccountID,
		Symbol:         req.Symbol,
		StockName:      req.StockName,
		Quantity:       req.Quantity,
		BuyPrice:       req.BuyPrice,
	}

	if req.BuyDate != nil {
		buyDate, err := parseBuyDate(*req.BuyDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		changes.BuyDate = &buyDate
	}

	inv, err := c.service.UpdateInvestment(r.Context(), investmentID, userID, changes)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toInvestmentResponse(inv))
}

func (c *Controller) DeleteInvestment(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	investmentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}

	if err := c.service.DeleteInvestment(r.Context(), investmentID, userID); err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) GetPortfolioSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := c.service.GetPortfolioSummary(r.Context(), userID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponse(summary))
}

func (c *Controller) ExportPortfolioReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	fileBytes, filename, err := c.service.ExportPortfolioReport(r.Context(), userID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(fileBytes)
}

func (c *Controller) BackupPortfolioReport(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromCtx(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	downloadLink, err := c.service.BackupPortfolioReport(r.Context(), userID)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, backupResponse{DownloadLink: downloadLink})
}

func (c *Controller) GetMarketPrice(w http.ResponseWriter, r *http.Request) {
	quote, err := c.service.GetMarketPrice(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			writeError(w, http.StatusNotFound, "price unavailable")
			return
		}
		c.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toQuoteResponse(quote))
}

// GetMarketPrices prices up to MaxBulkSymbols comma-separated symbols.
// Unavailable symbols are silently omitted from the result.
func (c *Controller) GetMarketPrices(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("symbols")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}

	symbols := make([]string, 0)
	for _, s := range strings.Split(raw, ",") {
		if strings.TrimSpace(s) != "" {
			symbols = append(symbols, s)
		}
	}

	if len(symbols) == 0 {
		writeError(w, http.StatusBadRequest, "symbols query parameter is required")
		return
	}
	if len(symbols) > c.cfg.MaxBulkSymbols {
		writeError(w, http.StatusBadRequest, "too many symbols, max is "+strconv.Itoa(c.cfg.MaxBulkSymbols))
		return
	}

	quotes := c.service.GetMarketPrices(r.Context(), symbols)

	res := make([]quoteResponse, 0, len(quotes))
	for _, quote := range quotes {
		res = append(res, toQuoteResponse(quote))
	}

	writeJSON(w, http.StatusOK, res)
}

func (c *Controller) GetMarketStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toStatsResponse(c.service.MarketStats()))
}

func (c *Controller) ClearPriceCache(w http.ResponseWriter, r *http.Request) {
	c.service.ClearPriceCache()
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) SearchStocks(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = parsed
	}

	stocks, err := c.service.SearchStocks(r.Context(), r.URL.Query().Get("search"), limit)
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	res := make([]stockResponse, 0, len(stocks))
	for _, stock := range stocks {
		res = append(res, toStockResponse(stock))
	}

	writeJSON(w, http.StatusOK, res)
}

func (c *Controller) GetStockDetails(w http.ResponseWriter, r *http.Request) {
	stock, err := c.service.GetStockDetails(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toStockResponse(stock))
}

func (c *Controller) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrCloudStorageDisabled):
		writeError(w, http.StatusServiceUnavailable, "cloud storage is not configured")
	default:
		slog.Error(
			"unhandled service error",
			slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func parseBuyDate(raw string) (time.Time, error) {
	buyDate, err := time.Parse(buyDateLayout, raw)
	if err != nil {
		return time.Time{}, errors.New("buy_date must be in YYYY-MM-DD format")
	}
	return buyDate, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to encode response", slog.String("err", err.Error()))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

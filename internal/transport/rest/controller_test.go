package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fin_tracker/config"
	"fin_tracker/data/session"
	"fin_tracker/internal/model"
	"fin_tracker/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSessions struct {
	sessions map[string]model.Session
}

func (s *stubSessions) GetSession(_ context.Context, token string) (model.Session, error) {
	sess, ok := s.sessions[token]
	if !ok {
		return model.Session{}, session.ErrNotFound
	}
	return sess, nil
}

type stubService struct {
	summary    model.PortfolioSummary
	summaryErr error
	lots       []model.Investment
	quotes     map[string]model.PriceQuote
	addErr     error
	added      model.Investment
	backupErr  error
}

func (s *stubService) GetPortfolioSummary(_ context.Context, _ int64) (model.PortfolioSummary, error) {
	return s.summary, s.summaryErr
}

func (s *stubService) AddInvestment(_ context.Context, inv model.Investment) (model.Investment, error) {
	if s.addErr != nil {
		return model.Investment{}, s.addErr
	}
	s.added = inv
	inv.ID = 1
	return inv, nil
}

func (s *stubService) GetInvestments(_ context.Context, _ int64, _ *int64) ([]model.Investment, error) {
	return s.lots, nil
}

func (s *stubService) UpdateInvestment(_ context.Context, _, _ int64, _ model.InvestmentChanges) (model.Investment, error) {
	return model.Investment{}, service.ErrNotFound
}

func (s *stubService) DeleteInvestment(_ context.Context, _, _ int64) error {
	return service.ErrNotFound
}

func (s *stubService) GetMarketPrice(_ context.Context, symbol string) (model.PriceQuote, error) {
	quote, ok := s.quotes[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return model.PriceQuote{}, service.ErrNotFound
	}
	return quote, nil
}

func (s *stubService) GetMarketPrices(_ context.Context, symbols []string) []model.PriceQuote {
	res := make([]model.PriceQuote, 0)
	for _, symbol := range symbols {
		if quote, ok := s.quotes[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
			res = append(res, quote)
		}
	}
	return res
}

func (s *stubService) MarketStats() model.CacheStats {
	return model.CacheStats{CachedSymbols: 1, CacheDuration: 5 * time.Minute}
}

func (s *stubService) ClearPriceCache() {}

func (s *stubService) GetStockDetails(_ context.Context, _ string) (model.StockRef, error) {
	return model.StockRef{}, service.ErrNotFound
}

func (s *stubService) SearchStocks(_ context.Context, _ string, _ int) ([]model.StockRef, error) {
	return nil, nil
}

func (s *stubService) ExportPortfolioReport(_ context.Context, _ int64) ([]byte, string, error) {
	return []byte("xlsx-bytes"), "portfolio_42_2025-06-02.xlsx", nil
}

func (s *stubService) BackupPortfolioReport(_ context.Context, _ int64) (string, error) {
	if s.backupErr != nil {
		return "", s.backupErr
	}
	return "https://drive.example/file/1/view", nil
}

func newTestServer(t *testing.T, svc *stubService) *httptest.Server {
	t.Helper()

	cfg := &config.Config{MaxBulkSymbols: 3}
	cfg.HTTP.ShutdownTimeout = time.Second

	sessions := &stubSessions{sessions: map[string]model.Session{
		"valid-token": {UserID: 42, Email: "user@example.com"},
	}}

	srv := NewServer(cfg, NewController(svc, cfg), sessions)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)

	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()

	var reqBody io.Reader
	if body != "" {
		reqBody = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, ts.URL+path, reqBody)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	return resp, respBody
}

func TestAuth_MissingToken(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	resp, body := doRequest(t, ts, http.MethodGet, "/api/investments", "", "")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "authorization token is required")
}

func TestAuth_UnknownToken(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	resp, body := doRequest(t, ts, http.MethodGet, "/api/investments", "bogus", "")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, string(body), "invalid or expired token")
}

func TestHealth_NoAuthRequired(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	resp, body := doRequest(t, ts, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestGetPortfolioSummary_ResponseShape(t *testing.T) {
	svc := &stubService{summary: model.PortfolioSummary{
		TotalInvested:     decimal.NewFromInt(100),
		CurrentValue:      decimal.NewFromInt(120),
		TotalProfitLoss:   decimal.NewFromInt(20),
		ProfitLossPercent: decimal.NewFromInt(20),
		Holdings: []model.Holding{{
			Symbol:        "TCS.NS",
			StockName:     "Tata Consultancy",
			TotalQuantity: decimal.NewFromInt(10),
			CurrentPrice:  decimal.NewFromInt(12),
			LivePrice:     true,
		}},
	}}
	ts := newTestServer(t, svc)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/investments/portfolio/summary", "valid-token", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, float64(100), parsed["total_invested"])
	assert.Equal(t, float64(120), parsed["current_value"])
	assert.Equal(t, float64(20), parsed["total_profit_loss"])

	holdings, ok := parsed["holdings"].([]any)
	require.True(t, ok)
	require.Len(t, holdings, 1)
	holding := holdings[0].(map[string]any)
	assert.Equal(t, "TCS.NS", holding["stock_symbol"])
	assert.Equal(t, "Tata Consultancy", holding["stock_name"])
	assert.Equal(t, float64(10), holding["quantity"])
	assert.Equal(t, true, holding["live_price"])
}

func TestAddInvestment_BadDate(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	resp, body := doRequest(t, ts, http.MethodPost, "/api/investments", "valid-token",
		`{"demat_account_id": 1, "symbol": "TCS.NS", "stock_name": "Tata", "quantity": 10, "buy_price": 4000, "buy_date": "02-06-2025"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "buy_date")
}

func TestAddInvestment_ValidationErrorMapsTo400(t *testing.T) {
	svc := &stubService{addErr: service.ErrValidation}
	ts := newTestServer(t, svc)

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/investments", "valid-token",
		`{"demat_account_id": 1, "symbol": "", "stock_name": "Tata", "quantity": 10, "buy_price": 4000, "buy_date": "2025-06-02"}`)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAddInvestment_Success(t *testing.T) {
	svc := &stubService{}
	ts := newTestServer(t, svc)

	resp, body := doRequest(t, ts, http.MethodPost, "/api/investments", "valid-token",
		`{"demat_account_id": 1, "symbol": "TCS.NS", "stock_name": "Tata", "quantity": 10, "buy_price": 4000.50, "buy_date": "2025-06-02"}`)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, int64(42), svc.added.UserID, "user id must come from the session, not the payload")
	assert.True(t, svc.added.BuyPrice.Equal(decimal.NewFromFloat(4000.50)))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "2025-06-02", parsed["buy_date"])
}

func TestUpdateInvestment_NotFoundMapsTo404(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	resp, _ := doRequest(t, ts, http.MethodPut, "/api/investments/99", "valid-token", `{"quantity": 5}`)

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMarketPrice(t *testing.T) {
	svc := &stubService{quotes: map[string]model.PriceQuote{
		"TCS.NS": {Symbol: "TCS.NS", Price: decimal.NewFromFloat(4123.46), Source: "yahoo_finance"},
	}}
	ts := newTestServer(t, svc)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/market/price/TCS.NS", "valid-token", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, "TCS.NS", parsed["symbol"])
	assert.Equal(t, 4123.46, parsed["price"])
	assert.Equal(t, "yahoo_finance", parsed["source"])

	resp, _ = doRequest(t, ts, http.MethodGet, "/api/market/price/NOSUCH", "valid-token", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMarketPrices_BulkLimit(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	resp, _ := doRequest(t, ts, http.MethodGet, "/api/market/price?symbols=A,B,C,D", "valid-token", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, ts, http.MethodGet, "/api/market/price", "valid-token", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMarketPrices_OmitsUnavailable(t *testing.T) {
	svc := &stubService{quotes: map[string]model.PriceQuote{
		"AAPL": {Symbol: "AAPL", Price: decimal.NewFromInt(210)},
	}}
	ts := newTestServer(t, svc)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/market/price?symbols=AAPL,NOSUCH", "valid-token", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	require.Len(t, parsed, 1)
	assert.Equal(t, "AAPL", parsed[0]["symbol"])
}

func TestClearPriceCache(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/market/cache/clear", "valid-token", "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestBackupReport_DisabledMapsTo503(t *testing.T) {
	svc := &stubService{backupErr: service.ErrCloudStorageDisabled}
	ts := newTestServer(t, svc)

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/investments/portfolio/report/backup", "valid-token", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestExportReport_AttachmentHeaders(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	resp, body := doRequest(t, ts, http.MethodGet, "/api/investments/portfolio/report", "valid-token", "")

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "portfolio_42_2025-06-02.xlsx")
	assert.Equal(t, "xlsx-bytes", string(body))
}

func TestRequestID_EchoedInResponse(t *testing.T) {
	ts := newTestServer(t, &stubService{})

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "my-request-id")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, "my-request-id", resp.Header.Get(requestIDHeader))
}

package yahooApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fin_tracker/config"
	"fin_tracker/internal/externalApi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) *YahooApi {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.API.Timeout = 2 * time.Second
	cfg.API.Yahoo.Url = server.URL

	return New(cfg)
}

func TestFetchQuote_Success(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v8/finance/chart/TCS.NS", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"chart": {
				"result": [{
					"meta": {
						"symbol": "TCS.NS",
						"currency": "INR",
						"regularMarketPrice": 4123.456,
						"previousClose": 4100.0
					}
				}],
				"error": null
			}
		}`))
	})

	quote, err := api.FetchQuote(context.Background(), "TCS.NS")

	require.NoError(t, err)
	assert.Equal(t, "TCS.NS", quote.Symbol)
	assert.Equal(t, "4123.46", quote.Price.String())
	assert.Equal(t, "4100", quote.PrevClose.String())
	assert.Equal(t, "yahoo_finance", quote.Source)
}

func TestFetchQuote_EmptyResult(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart": {"result": [], "error": null}}`))
	})

	_, err := api.FetchQuote(context.Background(), "NOSUCH")
	assert.ErrorIs(t, err, externalApi.ErrNoData)
}

func TestFetchQuote_NonPositivePrice(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"chart": {"result": [{"meta": {"regularMarketPrice": 0}}], "error": null}}`))
	})

	_, err := api.FetchQuote(context.Background(), "HALTED")
	assert.ErrorIs(t, err, externalApi.ErrNoData)
}

func TestFetchQuote_NotFound(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := api.FetchQuote(context.Background(), "NOSUCH")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}

func TestFetchQuote_ServerError(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := api.FetchQuote(context.Background(), "TCS.NS")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, externalApi.ErrNoData)
}

func TestFetchQuote_MalformedBody(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := api.FetchQuote(context.Background(), "TCS.NS")
	assert.Error(t, err)
}

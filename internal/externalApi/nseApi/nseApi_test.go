package nseApi

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

const equityCsv = "SYMBOL, NAME OF COMPANY, SERIES, DATE OF LISTING, PAID UP VALUE, MARKET LOT, ISIN NUMBER, FACE VALUE\n" +
	"TCS, Tata Consultancy Services Limited, EQ, 25-AUG-2004, 1, 1, INE467B01029, 1\n" +
	"INFY, Infosys Limited, EQ, 08-FEB-1995, 5, 1, INE009A01021, 5\n"

func newTestApi(t *testing.T, urls []string) *NseApi {
	t.Helper()

	cfg := &config.Config{}
	cfg.API.Timeout = 2 * time.Second
	cfg.API.Nse.EquityListUrls = urls

	return New(cfg)
}

func TestFetchEquityList_ParsesCsv(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(equityCsv))
	}))
	t.Cleanup(server.Close)

	stocks, err := newTestApi(t, []string{server.URL}).FetchEquityList(context.Background())

	require.NoError(t, err)
	require.Len(t, stocks, 2)
	assert.Equal(t, "TCS.NS", stocks[0].Symbol)
	assert.Equal(t, "Tata Consultancy Services Limited", stocks[0].Name)
	assert.Equal(t, "NSE", stocks[0].Exchange)
	assert.Equal(t, "EQ", stocks[0].Series)
	assert.Equal(t, "INE467B01029", stocks[0].Isin)
	assert.Equal(t, "INFY.NS", stocks[1].Symbol)
}

func TestFetchEquityList_RotatesToNextMirror(t *testing.T) {
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(broken.Close)

	working := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(equityCsv))
	}))
	t.Cleanup(working.Close)

	stocks, err := newTestApi(t, []string{broken.URL, working.URL}).FetchEquityList(context.Background())

	require.NoError(t, err)
	assert.Len(t, stocks, 2)
}

func TestFetchEquityList_AllMirrorsDown(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(server.Close)

	_, err := newTestApi(t, []string{server.URL, server.URL}).FetchEquityList(context.Background())
	assert.Error(t, err)
}

func TestFetchEquityList_HeaderOnlyCsv(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("SYMBOL, NAME OF COMPANY\n"))
	}))
	t.Cleanup(server.Close)

	_, err := newTestApi(t, []string{server.URL}).FetchEquityList(context.Background())
	assert.ErrorIs(t, err, externalApi.ErrNoData)
}

func TestFetchEquityList_NoUrlsConfigured(t *testing.T) {
	_, err := newTestApi(t, nil).FetchEquityList(context.Background())
	assert.Error(t, err)
}

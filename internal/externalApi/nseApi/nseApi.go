package nseApi

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"fin_tracker/config"
	"fin_tracker/internal/externalApi"
	"fin_tracker/internal/model"
	"fin_tracker/utils"
	"github.com/go-resty/resty/v2"
)

type NseApi struct {
	client *resty.Client
	urls   []string
}

func New(cfg *config.Config) *NseApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64)").
		SetHeader("Accept", "text/csv,text/plain,*/*").
		SetHeader("Referer", "https://www.nseindia.com")
	return &NseApi{client: client, urls: cfg.API.Nse.EquityListUrls}
}

// FetchEquityList downloads the NSE equity master list (EQUITY_L.csv),
// rotating through the configured mirror urls until one answers.
func (a *NseApi) FetchEquityList(ctx context.Context) ([]model.StockRef, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "NseApi.FetchEquityList"

	slog.Debug("FetchEquityList start", slog.String("rqID", rqID), slog.String("op", op))

	var lastErr error
	for _, url := range a.urls {
		resp, err := a.client.R().SetContext(ctx).Get(url)
		if err != nil {
			slog.Warn("nse equity list fetch failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url), slog.String("err", err.Error()))
			lastErr = err
			continue
		}

		if resp.StatusCode() != http.StatusOK {
			lastErr = fmt.Errorf("nse equity list status %d from %s", resp.StatusCode(), url)
			slog.Warn("nse equity list fetch failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url), slog.String("err", lastErr.Error()))
			continue
		}

		stocks, err := a.parseEquityCsv(string(resp.Body()))
		if err != nil {
			slog.Warn("can't parse nse equity csv", slog.String("rqID", rqID), slog.String("op", op), slog.String("url", url), slog.String("err", err.Error()))
			lastErr = err
			continue
		}

		slog.Debug("FetchEquityList complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("stocks", len(stocks)))

		return stocks, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no nse equity list urls configured")
	}

	return nil, lastErr
}

func (a *NseApi) parseEquityCsv(body string) ([]model.StockRef, error) {
	reader := csv.NewReader(strings.NewReader(body))
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, externalApi.ErrNoData
	}

	colIdx := make(map[string]int, len(records[0]))
	for i, col := range records[0] {
		colIdx[strings.TrimSpace(col)] = i
	}

	symbolIdx, ok := colIdx["SYMBOL"]
	if !ok {
		return nil, errors.New("missing SYMBOL column in equity csv")
	}
	nameIdx, ok := colIdx["NAME OF COMPANY"]
	if !ok {
		return nil, errors.New("missing NAME OF COMPANY column in equity csv")
	}
	seriesIdx, hasSeries := colIdx["SERIES"]
	isinIdx, hasIsin := colIdx["ISIN NUMBER"]

	stocks := make([]model.StockRef, 0, len(records)-1)
	for _, rec := range records[1:] {
		if symbolIdx >= len(rec) || nameIdx >= len(rec) {
			continue
		}

		symbol := strings.ToUpper(strings.TrimSpace(rec[symbolIdx]))
		if symbol == "" {
			continue
		}

		stock := model.StockRef{
			Symbol:   symbol + ".NS", // Yahoo notation for NSE listings
			Name:     strings.TrimSpace(rec[nameIdx]),
			Exchange: "NSE",
		}
		if hasSeries && seriesIdx < len(rec) {
			stock.Series = strings.TrimSpace(rec[seriesIdx])
		}
		if hasIsin && isinIdx < len(rec) {
			stock.Isin = strings.TrimSpace(rec[isinIdx])
		}

		stocks = append(stocks, stock)
	}

	if len(stocks) == 0 {
		return nil, externalApi.ErrNoData
	}

	return stocks, nil
}

package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"fin_tracker/config"
	"fin_tracker/internal/externalApi"
	"fin_tracker/internal/model"
	"fin_tracker/internal/model/yahooModel"
	"fin_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const sourceName = "yahoo_finance"

type YahooApi struct {
	client *resty.Client
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.Yahoo.Url).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	return &YahooApi{client: client}
}

func (a *YahooApi) Name() string {
	return sourceName
}

// FetchQuote returns the last traded price and previous close for a symbol.
// Symbols follow Yahoo notation: INFY.NS (NSE), INFY.BO (BSE), AAPL (US).
func (a *YahooApi) FetchQuote(ctx context.Context, symbol string) (model.PriceQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "YahooApi.FetchQuote"
	url := fmt.Sprintf("/v8/finance/chart/%s", symbol)

	slog.Debug("FetchQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetContext(ctx).
		Get(url)

	if err != nil {
		slog.Error("error while dialing yahoo finance", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PriceQuote{}, err
	}

	if resp.StatusCode() == http.StatusNotFound {
		return model.PriceQuote{}, externalApi.ErrNotFound
	}

	if resp.StatusCode() != http.StatusOK {
		return model.PriceQuote{}, fmt.Errorf("yahoo finance status %d", resp.StatusCode())
	}

	rawChart := yahooModel.RawChartResponse{}
	err = json.Unmarshal(resp.Body(), &rawChart)
	if err != nil {
		slog.Error("can't unmarshall response into yahooModel.RawChartResponse", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PriceQuote{}, err
	}

	quote, err := a.parseRawChart(symbol, rawChart)
	if err != nil {
		slog.Warn("no usable data in yahoo finance response", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return model.PriceQuote{}, err
	}

	slog.Debug("FetchQuote complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	return quote, nil
}

func (a *YahooApi) parseRawChart(symbol string, rawChart yahooModel.RawChartResponse) (model.PriceQuote, error) {
	if len(rawChart.Chart.Result) == 0 {
		return model.PriceQuote{}, externalApi.ErrNoData
	}

	meta := rawChart.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return model.PriceQuote{}, externalApi.ErrNoData
	}

	return model.PriceQuote{
		Symbol:    symbol,
		Price:     decimal.NewFromFloat(meta.RegularMarketPrice).Round(2),
		PrevClose: decimal.NewFromFloat(meta.PreviousClose).Round(2),
		Source:    sourceName,
	}, nil
}

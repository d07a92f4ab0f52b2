package alphaVantageApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"fin_tracker/config"
	"fin_tracker/internal/externalApi"
	"fin_tracker/internal/model"
	"fin_tracker/internal/model/alphaVantageModel"
	"fin_tracker/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

const sourceName = "alpha_vantage"

type AlphaVantageApi struct {
	client *resty.Client
	apiKey string
}

func New(cfg *config.Config) *AlphaVantageApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.AlphaVantage.Url)
	return &AlphaVantageApi{client: client, apiKey: cfg.API.AlphaVantage.ApiKey}
}

func (a *AlphaVantageApi) Name() string {
	return sourceName
}

func (a *AlphaVantageApi) FetchQuote(ctx context.Context, symbol string) (model.PriceQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AlphaVantageApi.FetchQuote"
	params := map[string]string{
		"function": "GLOBAL_QUOTE",
		"symbol":   symbol,
		"apikey":   a.apiKey,
	}

	slog.Debug("FetchQuote start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	resp, err := a.client.R().
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		SetContext(ctx).
		Get("/query")

	if err != nil {
		slog.Error("error while dialing alpha vantage", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PriceQuote{}, err
	}

	if resp.StatusCode() != http.StatusOK {
		return model.PriceQuote{}, fmt.Errorf("alpha vantage status %d", resp.StatusCode())
	}

	rawQuote := alphaVantageModel.RawGlobalQuote{}
	err = json.Unmarshal(resp.Body(), &rawQuote)
	if err != nil {
		slog.Error("can't unmarshall response into alphaVantageModel.RawGlobalQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PriceQuote{}, err
	}

	quote, err := a.parseRawGlobalQuote(symbol, rawQuote)
	if err != nil {
		slog.Warn("no usable data in alpha vantage response", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return model.PriceQuote{}, err
	}

	slog.Debug("FetchQuote complete", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))

	return quote, nil
}

func (a *AlphaVantageApi) parseRawGlobalQuote(symbol string, rawQuote alphaVantageModel.RawGlobalQuote) (model.PriceQuote, error) {
	// Alpha Vantage answers 200 with an empty Global Quote for unknown symbols.
	if rawQuote.GlobalQuote.Price == "" {
		return model.PriceQuote{}, externalApi.ErrNoData
	}

	price, err := decimal.NewFromString(rawQuote.GlobalQuote.Price)
	if err != nil {
		return model.PriceQuote{}, fmt.Errorf("failed create decimal from price = %q, err: %w", rawQuote.GlobalQuote.Price, err)
	}

	if price.LessThanOrEqual(decimal.Zero) {
		return model.PriceQuote{}, externalApi.ErrNoData
	}

	prevClose := decimal.Zero
	if rawQuote.GlobalQuote.PreviousClose != "" {
		prevClose, err = decimal.NewFromString(rawQuote.GlobalQuote.PreviousClose)
		if err != nil {
			return model.PriceQuote{}, fmt.Errorf("failed create decimal from previous close = %q, err: %w", rawQuote.GlobalQuote.PreviousClose, err)
		}
	}

	return model.PriceQuote{
		Symbol:    symbol,
		Price:     price,
		PrevClose: prevClose,
		Source:    sourceName,
	}, nil
}

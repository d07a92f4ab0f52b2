package yahooModel

// RawChartResponse mirrors the /v8/finance/chart/{symbol} payload. Only the
// meta block is read, candle arrays are ignored.
type RawChartResponse struct {
	Chart Chart `json:"chart"`
}

type Chart struct {
	Result []Result `json:"result"`
	Error  any      `json:"error"`
}

type Result struct {
	Meta Meta `json:"meta"`
}

type Meta struct {
	Symbol             string  `json:"symbol"`
	Currency           string  `json:"currency"`
	RegularMarketPrice float64 `json:"regularMarketPrice"`
	PreviousClose      float64 `json:"previousClose"`
}

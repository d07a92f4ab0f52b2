package alphaVantageModel

// RawGlobalQuote mirrors the GLOBAL_QUOTE payload. Alpha Vantage returns every
// numeric field as a string with a positional key prefix.
type RawGlobalQuote struct {
	GlobalQuote GlobalQuote `json:"Global Quote"`
}

type GlobalQuote struct {
	Symbol        string `json:"01. symbol"`
	Price         string `json:"05. price"`
	PreviousClose string `json:"08. previous close"`
	Change        string `json:"09. change"`
	ChangePercent string `json:"10. change percent"`
}

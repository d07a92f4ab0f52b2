package model

// StockRef is one entry of the exchange stock master list.
type StockRef struct {
	Symbol   string
	Name     string
	Exchange string
	Series   string
	Isin     string
}

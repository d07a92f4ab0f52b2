package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Investment is a single purchase lot of an instrument.
type Investment struct {
	ID             int64
	UserID         int64
	DematAccountID int64
	BrokerName     string
	Symbol         string
	StockName      string
	Quantity       decimal.Decimal
	BuyPrice       decimal.Decimal
	BuyDate        time.Time
	CreatedAt      time.Time
}

// InvestmentChanges is a partial update: nil fields keep their current value.
type InvestmentChanges struct {
	DematAccountID *int64
	Symbol         *string
	StockName      *string
	Quantity       *decimal.Decimal
	BuyPrice       *decimal.Decimal
	BuyDate        *time.Time
}

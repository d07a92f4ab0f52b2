package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Investment struct {
	ID             int64           `db:"investment_id"`
	UserID         int64           `db:"user_id"`
	DematAccountID int64           `db:"demat_account_id"`
	BrokerName     sql.NullString  `db:"broker_name"`
	Symbol         string          `db:"symbol"`
	StockName      string          `db:"stock_name"`
	Quantity       decimal.Decimal `db:"quantity"`
	BuyPrice       decimal.Decimal `db:"buy_price"`
	BuyDate        time.Time       `db:"buy_date"`
	CreatedAt      time.Time       `db:"dt_create"`
}

type StockRef struct {
	Symbol   string `db:"symbol"`
	Name     string `db:"name"`
	Exchange string `db:"exchange"`
	Series   string `db:"series"`
	Isin     string `db:"isin"`
}

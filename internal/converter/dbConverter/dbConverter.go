package dbConverter

import (
	"fin_tracker/internal/model"
	"fin_tracker/internal/model/dbModel"
)

func ConvertInvestment(inv dbModel.Investment) model.Investment {
	return model.Investment{
		ID:             inv.ID,
		UserID:         inv.UserID,
		DematAccountID: inv.DematAccountID,
		BrokerName:     inv.BrokerName.String,
		Symbol:         inv.Symbol,
		StockName:      inv.StockName,
		Quantity:       inv.Quantity,
		BuyPrice:       inv.BuyPrice,
		BuyDate:        inv.BuyDate,
		CreatedAt:      inv.CreatedAt,
	}
}

func ConvertStockRef(s dbModel.StockRef) model.StockRef {
	return model.StockRef{
		Symbol:   s.Symbol,
		Name:     s.Name,
		Exchange: s.Exchange,
		Series:   s.Series,
		Isin:     s.Isin,
	}
}

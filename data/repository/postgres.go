package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fin_tracker/config"
	"fin_tracker/internal/converter/dbConverter"
	"fin_tracker/internal/model"
	"fin_tracker/internal/model/dbModel"
	"fin_tracker/utils"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewPostgres(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

func (r *Postgres) InsertInvestment(ctx context.Context, inv model.Investment) (investmentID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertInvestment"
	query := `
		INSERT INTO investments(user_id, demat_account_id, symbol, stock_name, quantity, buy_price, buy_date)
		VALUES($1, $2, $3, $4, $5, $6, $7)
		RETURNING investment_id
	`

	slog.Debug("InsertInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("InsertInvestment failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertInvestment completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.QueryRowContext(
		ctx,
		query,
		inv.UserID,
		inv.DematAccountID,
		inv.Symbol,
		inv.StockName,
		inv.Quantity,
		inv.BuyPrice,
		inv.BuyDate,
	).Scan(&investmentID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return 0, ErrNotFound
		}
		return 0, err
	}

	return investmentID, nil
}

func (r *Postgres) GetInvestment(ctx context.Context, investmentID, userID int64) (inv model.Investment, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetInvestment"
	query := `
		SELECT i.investment_id, i.user_id, i.demat_account_id, d.broker_name, i.symbol, i.stock_name,
			i.quantity, i.buy_price, i.buy_date, i.dt_create
		FROM investments i
		LEFT JOIN demat_accounts d USING(demat_account_id)
		WHERE i.investment_id = $1
		AND i.user_id = $2
	`

	slog.Debug("GetInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetInvestment failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetInvestment completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbInv := dbModel.Investment{}
	err = r.db.QueryRowxContext(ctx, query, investmentID, userID).StructScan(&dbInv)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Investment{}, ErrNotFound
		}
		return model.Investment{}, err
	}

	return dbConverter.ConvertInvestment(dbInv), nil
}

func (r *Postgres) getInvestments(ctx context.Context, query string, args ...any) (invs []model.Investment, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("getInvestments start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("getInvestments failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("getInvestments completed", slog.String("rqID", rqID))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbInv dbModel.Investment
		err = rows.StructScan(&dbInv)
		if err != nil {
			return nil, err
		}
		invs = append(invs, dbConverter.ConvertInvestment(dbInv))
	}

	return invs, nil
}

func (r *Postgres) GetInvestmentsByUser(ctx context.Context, userID int64) ([]model.Investment, error) {
	query := `
		SELECT i.investment_id, i.user_id, i.demat_account_id, d.broker_name, i.symbol, i.stock_name,
			i.quantity, i.buy_price, i.buy_date, i.dt_create
		FROM investments i
		LEFT JOIN demat_accounts d USING(demat_account_id)
		WHERE i.user_id = $1
		ORDER BY i.buy_date DESC, i.investment_id DESC
	`

	return r.getInvestments(ctx, query, userID)
}

func (r *Postgres) GetInvestmentsByAccount(ctx context.Context, userID, dematAccountID int64) ([]model.Investment, error) {
	query := `
		SELECT i.investment_id, i.user_id, i.demat_account_id, d.broker_name, i.symbol, i.stock_name,
			i.quantity, i.buy_price, i.buy_date, i.dt_create
		FROM investments i
		LEFT JOIN demat_accounts d USING(demat_account_id)
		WHERE i.user_id = $1
		AND i.demat_account_id = $2
		ORDER BY i.buy_date DESC, i.investment_id DESC
	`

	return r.getInvestments(ctx, query, userID, dematAccountID)
}

func (r *Postgres) UpdateInvestment(ctx context.Context, inv model.Investment) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateInvestment"
	query := `
		UPDATE investments
		SET
			demat_account_id = $1,
			symbol = $2,
			stock_name = $3,
			quantity = $4,
			buy_price = $5,
			buy_date = $6
		WHERE
			investment_id = $7
			AND user_id = $8
	`

	slog.Debug("UpdateInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateInvestment failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateInvestment completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(
		ctx,
		query,
		inv.DematAccountID,
		inv.Symbol,
		inv.StockName,
		inv.Quantity,
		inv.BuyPrice,
		inv.BuyDate,
		inv.ID,
		inv.UserID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Postgres) DeleteInvestment(ctx context.Context, investmentID, userID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteInvestment"
	query := `
		DELETE FROM investments
		WHERE
			investment_id = $1
			AND user_id = $2
	`

	slog.Debug("DeleteInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteInvestment failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteInvestment completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, investmentID, userID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetHeldSymbols lists every distinct symbol present in any user's lots,
// used to warm the price cache.
func (r *Postgres) GetHeldSymbols(ctx context.Context) (symbols []string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetHeldSymbols"
	query := `SELECT DISTINCT symbol FROM investments ORDER BY symbol`

	slog.Debug("GetHeldSymbols start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetHeldSymbols failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetHeldSymbols completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.SelectContext(ctx, &symbols, query)
	if err != nil {
		return nil, err
	}

	return symbols, nil
}

func (r *Postgres) DematAccountBelongsToUser(ctx context.Context, dematAccountID, userID int64) (belongs bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DematAccountBelongsToUser"
	query := `
		SELECT EXISTS(
			SELECT 1 FROM demat_accounts
			WHERE demat_account_id = $1
			AND user_id = $2
		)
	`

	slog.Debug("DematAccountBelongsToUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DematAccountBelongsToUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DematAccountBelongsToUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.QueryRowContext(ctx, query, dematAccountID, userID).Scan(&belongs)
	if err != nil {
		return false, err
	}

	return belongs, nil
}

func (r *Postgres) UpsertStocks(ctx context.Context, stocks []model.StockRef) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertStocks"

	slog.Debug("UpsertStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("stocks", len(stocks)))
	defer func() {
		if err != nil {
			slog.Error("UpsertStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertStocks completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	if len(stocks) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(stocks)*5)

	sb.WriteString(`INSERT INTO stocks (symbol, name, exchange, series, isin) VALUES `)

	for i, stock := range stocks {
		args = append(args, stock.Symbol, stock.Name, stock.Exchange, stock.Series, stock.Isin)

		start := i*5 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			start, start+1, start+2, start+3, start+4,
		))

		if i < len(stocks)-1 {
			sb.WriteString(",")
		}
	}

	sb.WriteString(`
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			exchange = EXCLUDED.exchange,
			series = EXCLUDED.series,
			isin = EXCLUDED.isin;
	`)

	_, err = r.db.ExecContext(ctx, sb.String(), args...)
	return err
}

func (r *Postgres) SearchStocks(ctx context.Context, search string, limit int) (stocks []model.StockRef, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.SearchStocks"
	query := `
		SELECT symbol, name, exchange, series, isin
		FROM stocks
		WHERE symbol ILIKE $1 OR name ILIKE $1
		ORDER BY symbol
		LIMIT $2
	`

	slog.Debug("SearchStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("search", search))
	defer func() {
		if err != nil {
			slog.Error("SearchStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("SearchStocks completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query, "%"+search+"%", limit)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	stocks = make([]model.StockRef, 0, limit)
	for rows.Next() {
		var dbStock dbModel.StockRef
		err = rows.StructScan(&dbStock)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, dbConverter.ConvertStockRef(dbStock))
	}

	return stocks, nil
}

func (r *Postgres) GetStockBySymbol(ctx context.Context, symbol string) (stock model.StockRef, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetStockBySymbol"
	query := `
		SELECT symbol, name, exchange, series, isin
		FROM stocks
		WHERE symbol = $1
	`

	slog.Debug("GetStockBySymbol start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetStockBySymbol failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStockBySymbol completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbStock := dbModel.StockRef{}
	err = r.db.QueryRowxContext(ctx, query, symbol).StructScan(&dbStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.StockRef{}, ErrNotFound
		}
		return model.StockRef{}, err
	}

	return dbConverter.ConvertStockRef(dbStock), nil
}

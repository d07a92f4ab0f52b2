package portfolioService

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"fin_tracker/data/repository"
	"fin_tracker/internal/model"
	"fin_tracker/internal/pricecache"
	"fin_tracker/internal/service"
	"fin_tracker/utils"
)

type Repository interface {
	InsertInvestment(ctx context.Context, inv model.Investment) (investmentID int64, err error)
	GetInvestment(ctx context.Context, investmentID, userID int64) (model.Investment, error)
	GetInvestmentsByUser(ctx context.Context, userID int64) ([]model.Investment, error)
	GetInvestmentsByAccount(ctx context.Context, userID, dematAccountID int64) ([]model.Investment, error)
	UpdateInvestment(ctx context.Context, inv model.Investment) error
	DeleteInvestment(ctx context.Context, investmentID, userID int64) error
	GetHeldSymbols(ctx context.Context) ([]string, error)
	DematAccountBelongsToUser(ctx context.Context, dematAccountID, userID int64) (bool, error)
	UpsertStocks(ctx context.Context, stocks []model.StockRef) error
	SearchStocks(ctx context.Context, search string, limit int) ([]model.StockRef, error)
	GetStockBySymbol(ctx context.Context, symbol string) (model.StockRef, error)
}

type StockCache interface {
	SetStocks(ctx context.Context, stocks []model.StockRef) error
	GetStock(ctx context.Context, symbol string) (model.StockRef, error)
}

// PriceSource is the price cache. GetPrice and GetMany never fail, they only
// omit; a missing quote means "value at average cost".
type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (model.PriceQuote, bool)
	GetMany(ctx context.Context, symbols []string) map[string]model.PriceQuote
	Invalidate()
	Stats() model.CacheStats
}

type StockListApi interface {
	FetchEquityList(ctx context.Context) ([]model.StockRef, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, summary model.PortfolioSummary) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PortfolioService struct {
	repo         Repository
	stockCache   StockCache
	prices       PriceSource
	stockListApi StockListApi
	reportGen    ReportGenerator
	cloudStorage CloudStorage // nil when backup is not configured
}

func New(
	repo Repository,
	stockCache StockCache,
	prices PriceSource,
	stockListApi StockListApi,
	reportGen ReportGenerator,
	cloudStorage CloudStorage,
) *PortfolioService {
	return &PortfolioService{
		repo:         repo,
		stockCache:   stockCache,
		prices:       prices,
		stockListApi: stockListApi,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
	}
}

// GetPortfolioSummary values all of a user's lots. Distinct symbols are priced
// through the cache in one concurrent batch; symbols the cache cannot price
// fall back to average buy price inside buildPortfolioSummary. Only a lot
// store failure can make this operation fail.
func (s *PortfolioService) GetPortfolioSummary(ctx context.Context, userID int64) (summary model.PortfolioSummary, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolioSummary"

	slog.Debug("GetPortfolioSummary start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("GetPortfolioSummary finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	lots, err := s.repo.GetInvestmentsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.GetInvestmentsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	symbols := make([]string, 0, len(lots))
	for _, lot := range lots {
		symbols = append(symbols, lot.Symbol)
	}

	quotes := s.prices.GetMany(ctx, symbols)

	return buildPortfolioSummary(lots, quotes), nil
}

func (s *PortfolioService) AddInvestment(ctx context.Context, inv model.Investment) (model.Investment, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddInvestment"

	slog.Debug("AddInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", inv.Symbol))
	defer func() {
		slog.Debug("AddInvestment finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", inv.Symbol))
	}()

	if err := validateInvestment(&inv); err != nil {
		return model.Investment{}, err
	}

	belongs, err := s.repo.DematAccountBelongsToUser(ctx, inv.DematAccountID, inv.UserID)
	if err != nil {
		slog.Error("got error from repo.DematAccountBelongsToUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Investment{}, err
	}
	if !belongs {
		return model.Investment{}, service.ErrNotFound
	}

	investmentID, err := s.repo.InsertInvestment(ctx, inv)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Investment{}, service.ErrNotFound
		}
		slog.Error("got error from repo.InsertInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Investment{}, err
	}

	return s.getInvestment(ctx, investmentID, inv.UserID)
}

func (s *PortfolioService) GetInvestments(ctx context.Context, userID int64, dematAccountID *int64) (invs []model.Investment, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetInvestments"

	slog.Debug("GetInvestments start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("GetInvestments finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	if dematAccountID != nil {
		invs, err = s.repo.GetInvestmentsByAccount(ctx, userID, *dematAccountID)
	} else {
		invs, err = s.repo.GetInvestmentsByUser(ctx, userID)
	}
	if err != nil {
		slog.Error("got error from repository", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return invs, nil
}

func (s *PortfolioService) UpdateInvestment(ctx context.Context, investmentID, userID int64, changes model.InvestmentChanges) (model.Investment, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateInvestment"

	slog.Debug("UpdateInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("investmentID", investmentID))
	defer func() {
		slog.Debug("UpdateInvestment finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("investmentID", investmentID))
	}()

	inv, err := s.getInvestment(ctx, investmentID, userID)
	if err != nil {
		return model.Investment{}, err
	}

	if changes.DematAccountID != nil && *changes.DematAccountID != inv.DematAccountID {
		belongs, err := s.repo.DematAccountBelongsToUser(ctx, *changes.DematAccountID, userID)
		if err != nil {
			slog.Error("got error from repo.DematAccountBelongsToUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.Investment{}, err
		}
		if !belongs {
			return model.Investment{}, service.ErrNotFound
		}
		inv.DematAccountID = *changes.DematAccountID
	}

	if changes.Symbol != nil {
		inv.Symbol = *changes.Symbol
	}
	if changes.StockName != nil {
		inv.StockName = *changes.StockName
	}
	if changes.Quantity != nil {
		inv.Quantity = *changes.Quantity
	}
	if changes.BuyPrice != nil {
		inv.BuyPrice = *changes.BuyPrice
	}
	if changes.BuyDate != nil {
		inv.BuyDate = *changes.BuyDate
	}

	if err := validateInvestment(&inv); err != nil {
		return model.Investment{}, err
	}

	err = s.repo.UpdateInvestment(ctx, inv)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Investment{}, service.ErrNotFound
		}
		slog.Error("got error from repo.UpdateInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Investment{}, err
	}

	return s.getInvestment(ctx, investmentID, userID)
}

func (s *PortfolioService) DeleteInvestment(ctx context.Context, investmentID, userID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteInvestment"

	slog.Debug("DeleteInvestment start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("investmentID", investmentID))
	defer func() {
		slog.Debug("DeleteInvestment finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("investmentID", investmentID))
	}()

	err := s.repo.DeleteInvestment(ctx, investmentID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.DeleteInvestment", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *PortfolioService) GetMarketPrice(ctx context.Context, symbol string) (model.PriceQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetMarketPrice"

	slog.Debug("GetMarketPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetMarketPrice finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	if pricecache.NormalizeSymbol(symbol) == "" {
		return model.PriceQuote{}, fmt.Errorf("%w: symbol is required", service.ErrValidation)
	}

	quote, ok := s.prices.GetPrice(ctx, symbol)
	if !ok {
		return model.PriceQuote{}, service.ErrNotFound
	}

	return quote, nil
}

// GetMarketPrices prices a batch of symbols; unavailable ones are omitted.
// The result is ordered by symbol.
func (s *PortfolioService) GetMarketPrices(ctx context.Context, symbols []string) []model.PriceQuote {
	quotes := s.prices.GetMany(ctx, symbols)

	res := make([]model.PriceQuote, 0, len(quotes))
	for _, quote := range quotes {
		res = append(res, quote)
	}

	sortQuotes(res)

	return res
}

func (s *PortfolioService) MarketStats() model.CacheStats {
	return s.prices.Stats()
}

func (s *PortfolioService) ClearPriceCache() {
	s.prices.Invalidate()
}

func (s *PortfolioService) GetStockDetails(ctx context.Context, symbol string) (model.StockRef, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetStockDetails"

	slog.Debug("GetStockDetails start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("GetStockDetails finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	symbol = pricecache.NormalizeSymbol(symbol)
	if symbol == "" {
		return model.StockRef{}, fmt.Errorf("%w: symbol is required", service.ErrValidation)
	}

	stock, err := s.stockCache.GetStock(ctx, symbol)
	if err == nil {
		return stock, nil
	}

	slog.Warn("can't get stock from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	stock, err = s.repo.GetStockBySymbol(ctx, symbol)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.StockRef{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetStockBySymbol", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.StockRef{}, err
	}

	go s.stockCache.SetStocks(context.WithoutCancel(ctx), []model.StockRef{stock})

	return stock, nil
}

func (s *PortfolioService) SearchStocks(ctx context.Context, search string, limit int) ([]model.StockRef, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SearchStocks"

	slog.Debug("SearchStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("search", search))
	defer func() {
		slog.Debug("SearchStocks finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("search", search))
	}()

	if limit <= 0 || limit > 50 {
		limit = 20
	}

	stocks, err := s.repo.SearchStocks(ctx, search, limit)
	if err != nil {
		slog.Error("got error from repo.SearchStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return stocks, nil
}

// RefreshStockMaster reloads the exchange stock master list into postgres and
// the redis cache. Scheduled, also callable on demand.
func (s *PortfolioService) RefreshStockMaster(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshStockMaster"

	slog.Debug("RefreshStockMaster start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshStockMaster finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	stocks, err := s.stockListApi.FetchEquityList(ctx)
	if err != nil {
		slog.Error("got error from stockListApi.FetchEquityList", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.UpsertStocks(ctx, stocks)
	if err != nil {
		slog.Error("got error from repo.UpsertStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.stockCache.SetStocks(ctx, stocks)
	if err != nil {
		slog.Error("got error from stockCache.SetStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	slog.Info("stock master refreshed", slog.String("rqID", rqID), slog.Int("stocks", len(stocks)))

	return nil
}

// WarmHeldQuotes pre-fetches quotes for every symbol anyone currently holds,
// so portfolio valuations mostly hit a warm cache.
func (s *PortfolioService) WarmHeldQuotes(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.WarmHeldQuotes"

	symbols, err := s.repo.GetHeldSymbols(ctx)
	if err != nil {
		slog.Error("got error from repo.GetHeldSymbols", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(symbols) == 0 {
		return nil
	}

	quotes := s.prices.GetMany(ctx, symbols)

	slog.Info("held quotes warmed", slog.String("rqID", rqID), slog.Int("symbols", len(symbols)), slog.Int("quotes", len(quotes)))

	return nil
}

func (s *PortfolioService) ExportPortfolioReport(ctx context.Context, userID int64) (fileBytes []byte, filename string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ExportPortfolioReport"

	slog.Debug("ExportPortfolioReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("ExportPortfolioReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	summary, err := s.GetPortfolioSummary(ctx, userID)
	if err != nil {
		return nil, "", err
	}

	fileBytes, fileExtension, err := s.reportGen.Generate(ctx, summary)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	filename = fmt.Sprintf("portfolio_%d_%s%s", userID, time.Now().Format("2006-01-02"), fileExtension)

	return fileBytes, filename, nil
}

// BackupPortfolioReport generates the xlsx report and uploads it to the
// configured cloud storage, returning a shareable link.
func (s *PortfolioService) BackupPortfolioReport(ctx context.Context, userID int64) (downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BackupPortfolioReport"

	slog.Debug("BackupPortfolioReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("BackupPortfolioReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	if s.cloudStorage == nil {
		return "", service.ErrCloudStorageDisabled
	}

	fileBytes, filename, err := s.ExportPortfolioReport(ctx, userID)
	if err != nil {
		return "", err
	}

	downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
	if err != nil {
		slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", err
	}

	return downloadLink, nil
}

// CleanupOldReports removes expired report backups from cloud storage.
func (s *PortfolioService) CleanupOldReports(ctx context.Context) error {
	if s.cloudStorage == nil {
		return nil
	}
	return s.cloudStorage.DeleteOldFiles(ctx)
}

func (s *PortfolioService) getInvestment(ctx context.Context, investmentID, userID int64) (model.Investment, error) {
	inv, err := s.repo.GetInvestment(ctx, investmentID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Investment{}, service.ErrNotFound
		}
		return model.Investment{}, err
	}
	return inv, nil
}

// validateInvestment enforces lot integrity at the write boundary: the
// aggregation downstream assumes it.
func validateInvestment(inv *model.Investment) error {
	inv.Symbol = pricecache.NormalizeSymbol(inv.Symbol)

	if inv.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", service.ErrValidation)
	}
	if inv.StockName == "" {
		return fmt.Errorf("%w: stock name is required", service.ErrValidation)
	}
	if inv.DematAccountID == 0 {
		return fmt.Errorf("%w: demat account is required", service.ErrValidation)
	}
	if !inv.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be positive", service.ErrValidation)
	}
	if inv.BuyPrice.IsNegative() {
		return fmt.Errorf("%w: buy price can't be negative", service.ErrValidation)
	}
	if inv.BuyDate.IsZero() {
		return fmt.Errorf("%w: buy date is required", service.ErrValidation)
	}

	return nil
}

func sortQuotes(quotes []model.PriceQuote) {
	sort.Slice(quotes, func(i, j int) bool { return quotes[i].Symbol < quotes[j].Symbol })
}

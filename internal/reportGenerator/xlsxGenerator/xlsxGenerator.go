package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"fin_tracker/internal/model"
	"fin_tracker/utils"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Portfolio"

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

// Generate renders a portfolio summary into an xlsx workbook: one row per
// holding plus a totals block.
func (g *XLSXGenerator) Generate(ctx context.Context, summary model.PortfolioSummary) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSheet(f, summary); err != nil {
		slog.Error("got error while filling sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillSheet(f *excelize.File, summary model.PortfolioSummary) error {
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "I1"); err != nil {
		return err
	}

	f.SetCellValue(sheetName, "A1", "Holdings")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheetName, "A1", "A1", headerStyle); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	_ = f.SetCellStr(sheetName, "A2", "symbol")
	_ = f.SetCellStr(sheetName, "B2", "name")
	_ = f.SetCellStr(sheetName, "C2", "quantity")
	_ = f.SetCellStr(sheetName, "D2", "avg buy price")
	_ = f.SetCellStr(sheetName, "E2", "current price")
	_ = f.SetCellStr(sheetName, "F2", "invested")
	_ = f.SetCellStr(sheetName, "G2", "current value")
	_ = f.SetCellStr(sheetName, "H2", "p/l")
	_ = f.SetCellStr(sheetName, "I2", "p/l %")

	row := 3
	for _, holding := range summary.Holdings {
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), holding.Symbol)
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), holding.StockName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), holding.TotalQuantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), holding.AvgBuyPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), holding.CurrentPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), holding.InvestedAmount.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), holding.CurrentValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), holding.ProfitLoss.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), holding.ProfitLossPercent.InexactFloat64())
		row++
	}

	totalStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#d9ead3"},
		},
	})
	if err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), summary.TotalInvested.InexactFloat64())
	_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), summary.CurrentValue.InexactFloat64())
	_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), summary.TotalProfitLoss.InexactFloat64())
	_ = f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), summary.ProfitLossPercent.InexactFloat64())

	if err := f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("I%d", row), totalStyle); err != nil {
		return fmt.Errorf("apply style: %w", err)
	}

	return nil
}

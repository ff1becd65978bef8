package voucher

import (
	"context"
	"fmt"

	"github.com/alpakasoelde/dashboard-api/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ExportSheet is the worksheet name of the voucher export
const ExportSheet = "Gutscheine"

var exportHeader = []interface{}{"Gutscheinnummer", "Kaufdatum", "Betrag", "Eingelöst am", "Verkauft an"}

// ExcelExporter renders voucher lists as xlsx workbooks for bookkeeping
type ExcelExporter struct {
	logger *zap.Logger
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Export writes one row per voucher in the given order followed by a total row
func (e *ExcelExporter) Export(ctx context.Context, vouchers []*entity.Voucher) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), ExportSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	if err := f.SetSheetRow(ExportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	e.setStyle(f, "A1", "E1", boldStyle)

	total := 0.0
	for i, v := range vouchers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row := i + 2
		redeemed := ""
		if v.RedeemedDate != nil {
			redeemed = FormatDate(*v.RedeemedDate)
		}
		values := []interface{}{v.ID, FormatDate(v.PurchaseDate), v.Amount, redeemed, v.SoldTo}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(ExportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		total += v.Amount
	}

	totalRow := len(vouchers) + 2
	labelCell, _ := excelize.CoordinatesToCellName(1, totalRow)
	totalCell, _ := excelize.CoordinatesToCellName(3, totalRow)
	e.setCell(f, labelCell, "Summe")
	e.setCell(f, totalCell, total)
	e.setStyle(f, labelCell, totalCell, boldStyle)
	e.setStyle(f, "C2", totalCell, amountStyle)

	if err := f.SetColWidth(ExportSheet, "A", "E", 18); err != nil {
		e.logger.Warn("Failed to set column width", zap.Error(err))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	e.logger.Info("Voucher export rendered",
		zap.Int("voucher_count", len(vouchers)),
		zap.Float64("total_amount", total))

	return buf.Bytes(), nil
}

// setCell sets a cell value, logging instead of failing
func (e *ExcelExporter) setCell(f *excelize.File, cell string, value interface{}) {
	if err := f.SetCellValue(ExportSheet, cell, value); err != nil {
		e.logger.Warn("Failed to set cell value",
			zap.String("cell", cell),
			zap.Error(err))
	}
}

func (e *ExcelExporter) setStyle(f *excelize.File, from, to string, style int) {
	if err := f.SetCellStyle(ExportSheet, from, to, style); err != nil {
		e.logger.Warn("Failed to set cell style",
			zap.String("from", from),
			zap.String("to", to),
			zap.Error(err))
	}
}

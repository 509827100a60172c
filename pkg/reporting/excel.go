package reporting

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"
)

// ExcelReporter exports a session report as an xlsx workbook
type ExcelReporter struct{}

func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteSessionXLSX writes trades, strategy performance, and switch history
// into one workbook at path.
func (r *ExcelReporter) WriteSessionXLSX(report *SessionReport, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const tradesSheet = "Trades"
	const strategiesSheet = "Strategies"
	const switchesSheet = "Switches"

	fx.SetSheetName(fx.GetSheetName(0), tradesSheet)
	if _, err := fx.NewSheet(strategiesSheet); err != nil {
		return err
	}
	if _, err := fx.NewSheet(switchesSheet); err != nil {
		return err
	}

	headerStyle, err := fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11, Color: "FFFFFF", Family: "Calibri"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"1F4E79"}, Pattern: 1},
	})
	if err != nil {
		return err
	}

	if err := r.writeTrades(fx, tradesSheet, report, headerStyle); err != nil {
		return err
	}
	if err := r.writeStrategies(fx, strategiesSheet, report, headerStyle); err != nil {
		return err
	}
	if err := r.writeSwitches(fx, switchesSheet, report, headerStyle); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) writeTrades(fx *excelize.File, sheet string, report *SessionReport, headerStyle int) error {
	headers := []interface{}{"#", "Strategy", "Condition", "Side", "Entry", "Exit", "PnL", "Opened", "Closed"}
	if err := fx.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := fx.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, trade := range report.Trades {
		row := []interface{}{
			i + 1,
			trade.Strategy,
			string(trade.Condition),
			trade.Side,
			trade.EntryPrice,
			trade.ExitPrice,
			trade.PnL,
			trade.OpenedAt.Format("2006-01-02 15:04:05"),
			trade.ClosedAt.Format("2006-01-02 15:04:05"),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelReporter) writeStrategies(fx *excelize.File, sheet string, report *SessionReport, headerStyle int) error {
	headers := []interface{}{"Strategy", "Condition", "Trades", "Wins", "Losses", "Win Rate", "Total PnL", "Profit Factor", "Max Drawdown", "Max Loss Streak"}
	if err := fx.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := fx.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, record := range report.StrategyRecords {
		// A loss-free record has an infinite profit factor, which xlsx
		// cells cannot hold
		profitFactor := record.ProfitFactor()
		if math.IsInf(profitFactor, 1) {
			profitFactor = record.GrossProfit
		}
		row := []interface{}{
			record.Strategy,
			string(record.Condition),
			record.TotalTrades,
			record.WinningTrades,
			record.LosingTrades,
			record.WinRate(),
			record.TotalPnL,
			profitFactor,
			record.MaxDrawdown,
			record.MaxConsecutiveLosses,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

func (r *ExcelReporter) writeSwitches(fx *excelize.File, sheet string, report *SessionReport, headerStyle int) error {
	headers := []interface{}{"Time", "From", "To", "Approved", "Manual", "Confidence", "Reason"}
	if err := fx.SetSheetRow(sheet, "A1", &headers); err != nil {
		return err
	}
	if err := fx.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return err
	}

	for i, decision := range report.Switches {
		row := []interface{}{
			decision.Timestamp.Format("2006-01-02 15:04:05"),
			decision.From,
			decision.To,
			decision.Approved,
			decision.Manual,
			decision.Confidence,
			decision.Reason,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := fx.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return nil
}

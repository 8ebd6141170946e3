package analytics

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	SheetTrays       = "Trays"
	SheetVarieties   = "Varieties"
	SheetPerformance = "Performance"
)

// WriteWorkbook writes the report and performance series as an XLSX workbook.
func WriteWorkbook(w io.Writer, report *Report, perf []PerformancePoint) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetTrays); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	for _, name := range []string{SheetVarieties, SheetPerformance} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}
	}

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	trays := [][]any{{"Tray", "Batch", "Variety", "Status", "Date", "Yield (g)", "Quality", "Revenue", "Seed cost", "Other costs", "Margin"}}
	for _, t := range report.Trays {
		var quality any
		if t.Quality != nil {
			quality = *t.Quality
		}
		trays = append(trays, []any{
			t.TrayID, t.BatchID, t.VarietyName, t.Status, t.Date.UTC().Format(time.DateOnly),
			t.Yield, quality, t.Revenue, t.SeedCost, t.OtherCosts, t.Margin,
		})
	}
	tot := report.Totals
	trays = append(trays, []any{"Total", "", "", "", "", tot.Yield, nil, tot.Revenue, tot.SeedCost, tot.OtherCosts, tot.Margin})

	varieties := [][]any{{"Variety", "Harvested", "Discarded", "Yield (g)", "Avg quality", "Revenue", "Seed cost", "Other costs", "Margin"}}
	for _, v := range report.Varieties {
		varieties = append(varieties, []any{
			v.VarietyName, v.Harvested, v.Discarded, v.Yield, v.AverageQuality,
			v.Revenue, v.SeedCost, v.OtherCosts, v.Margin,
		})
	}

	performance := [][]any{{"Date", "Tray", "Variety", "Yield (g)", "Quality"}}
	for _, p := range perf {
		performance = append(performance, []any{p.Date, p.TrayID, p.VarietyName, p.Yield, p.Quality})
	}

	for _, sheet := range []struct {
		name string
		rows [][]any
	}{
		{SheetTrays, trays},
		{SheetVarieties, varieties},
		{SheetPerformance, performance},
	} {
		if err := writeRows(f, sheet.name, sheet.rows, header); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// writeRows fills a sheet from A1 and styles the first row as a header.
func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("styling %s header: %w", sheet, err)
	}
	return nil
}

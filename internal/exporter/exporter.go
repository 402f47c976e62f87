// Package exporter writes screen results to a timestamped xlsx workbook.
package exporter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"StockScreener/internal/model"
)

const (
	// SheetName is the single sheet of an export.
	SheetName = "Results"
	// TimestampLayout renders MM-DD-YY HH-MM.
	TimestampLayout = "01-02-06 15-04"
	DefaultLabel    = "Screened Stocks"

	decimalPlaces = 4
)

// ErrNoMatches is returned instead of writing an empty workbook.
var ErrNoMatches = errors.New("no stocks met the screening criteria")

// FileName returns "<label> <MM-DD-YY HH-MM>.xlsx".
func FileName(label string, now time.Time) string {
	if label == "" {
		label = DefaultLabel
	}
	return fmt.Sprintf("%s %s.xlsx", label, now.Format(TimestampLayout))
}

// Sorted returns a copy of results ordered by P/E ascending, then symbol.
func Sorted(results []model.ScreenResult) []model.ScreenResult {
	out := make([]model.ScreenResult, len(results))
	copy(out, results)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PE != out[j].PE {
			return out[i].PE < out[j].PE
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func round(row []interface{}) []interface{} {
	for i, v := range row {
		if f, ok := v.(float64); ok {
			row[i] = decimal.NewFromFloat(f).Round(decimalPlaces).InexactFloat64()
		}
	}
	return row
}

// Export writes results to dir and returns the file path. The directory is
// created if needed. Empty results return ErrNoMatches and write nothing.
func Export(results []model.ScreenResult, dir, label string, now time.Time) (string, error) {
	if len(results) == 0 {
		return "", ErrNoMatches
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir %s: %w", dir, err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return "", fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, 0, len(model.Columns()))
	for _, c := range model.Columns() {
		header = append(header, c)
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}
	if err := f.SetPanes(SheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return "", fmt.Errorf("freeze header: %w", err)
	}

	for i, r := range Sorted(results) {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return "", err
		}
		row := round(r.Row())
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return "", fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	path := filepath.Join(dir, FileName(label, now))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

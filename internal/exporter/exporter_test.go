package exporter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"StockScreener/internal/model"
)

func sampleResults() []model.ScreenResult {
	return []model.ScreenResult{
		{Symbol: "MSFT", Sector: "Technology", Price: 410.123456, PE: 35.2, DebtToEquity: 0.31, LatestVolume: 2.1e7, AverageVolume: 1.9e7, HighN: 410.123456, SMA: 398.5, EPSGrowth: true},
		{Symbol: "KO", Sector: "Consumer Defensive", Price: 60.5, PE: 22.1, SectorPE: model.Float(24), DebtToEquity: 1.6},
		{Symbol: "AAPL", Sector: "Technology", Price: 190, PE: 22.1, DebtToEquity: 1.4},
	}
}

func readRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	return rows
}

func TestExport_SortedByPE(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Date(2024, 3, 7, 9, 5, 0, 0, time.UTC)

	path, err := Export(sampleResults(), dir, "Screened Stocks", now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Screened Stocks 03-07-24 09-05.xlsx"), path)

	rows := readRows(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, model.Columns(), rows[0])
	assert.Equal(t, "AAPL", rows[1][0], "ties broken by symbol")
	assert.Equal(t, "KO", rows[2][0])
	assert.Equal(t, "MSFT", rows[3][0])
	assert.Equal(t, "N/A", rows[1][4])
	assert.Equal(t, "24", rows[2][4])
	assert.Equal(t, "410.1235", rows[3][2])
	assert.Equal(t, "Yes", rows[3][10])
}

func TestExport_RowsIdenticalAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	first, err := Export(sampleResults(), dir, "", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	second, err := Export(sampleResults(), dir, "", time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Contains(t, filepath.Base(first), DefaultLabel)
	assert.Equal(t, readRows(t, first), readRows(t, second))
}

func TestExport_EmptyWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := Export(nil, dir, "X", time.Now())
	assert.ErrorIs(t, err, ErrNoMatches)
	assert.Empty(t, path)

	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr), "output dir is not created for an empty result")
}

func TestSorted_DoesNotMutateInput(t *testing.T) {
	in := sampleResults()
	out := Sorted(in)
	assert.Equal(t, model.Ticker("MSFT"), in[0].Symbol)
	assert.Equal(t, model.Ticker("AAPL"), out[0].Symbol)
}

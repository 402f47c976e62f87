package benchmark

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"StockScreener/internal/model"
)

func writeWorkbook(t *testing.T, path string, rows [][]interface{}) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Consumer Staples":   "consumerstaples",
		"consumerstaples":    "consumerstaples",
		" Real  Estate ":     "realestate",
		"COMMUNICATION\tSVC": "communicationsvc",
		"":                   "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestLookup_CaseAndSpacingInsensitive(t *testing.T) {
	table := NewTable(map[string]float64{"consumerstaples": 21.5, "Technology": 30})

	v, ok := table.Lookup("Consumer Staples")
	require.True(t, ok)
	assert.Equal(t, 21.5, v)

	v, ok = table.Lookup("TECHNOLOGY")
	require.True(t, ok)
	assert.Equal(t, 30.0, v)

	_, ok = table.Lookup("Utilities")
	assert.False(t, ok)
}

func TestLookup_NormalizationCommutes(t *testing.T) {
	stored := []string{"consumerstaples", "Basic Materials", "healthcare"}
	queries := []string{"Consumer Staples", "basic materials", "Health Care"}
	table := NewTable(map[string]float64{stored[0]: 1, stored[1]: 2, stored[2]: 3})
	for i, q := range queries {
		assert.Equal(t, Normalize(stored[i]), Normalize(q))
		_, ok := table.Lookup(q)
		assert.True(t, ok, q)
	}
}

func TestLoad_ReadsWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SectorPE.xlsx")
	writeWorkbook(t, path, [][]interface{}{
		{"sectorKey", "sectorPE"},
		{"Technology", 31.2},
		{"Consumer Staples", 22},
		{"", 10},
		{"Energy", "n/a"},
	})

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	v, ok := table.Lookup("technology")
	require.True(t, ok)
	assert.InDelta(t, 31.2, v, 1e-9)
	_, ok = table.Lookup("energy")
	assert.False(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SectorPE.xlsx")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrMissingSourceFile))
	assert.Contains(t, err.Error(), path)
}

func TestLoad_LockedByOwnerFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SectorPE.xlsx")
	writeWorkbook(t, path, [][]interface{}{{"sectorKey", "sectorPE"}, {"Energy", 11}})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$SectorPE.xlsx"), []byte("owner"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrLockedSourceFile))
	assert.Contains(t, err.Error(), path)
}

func TestLoad_MissingColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SectorPE.xlsx")
	writeWorkbook(t, path, [][]interface{}{{"sector", "pe"}, {"Energy", 11}})

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sectorKey")
}

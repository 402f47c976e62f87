// Package benchmark loads the sector average P/E table used by the sector
// and valuation gates.
package benchmark

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"StockScreener/internal/model"
)

// Column headers expected in the sector workbook.
const (
	KeyColumn = "sectorKey"
	PEColumn  = "sectorPE"
)

// Table maps a normalized sector key to its average P/E. It is read-only
// after construction and safe for concurrent lookups.
type Table struct {
	values map[string]float64
}

// Normalize lowercases s and strips all whitespace, so "Consumer Staples"
// and "consumerstaples" resolve to the same key.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// NewTable builds a table from raw sector names.
func NewTable(raw map[string]float64) *Table {
	t := &Table{values: make(map[string]float64, len(raw))}
	for k, v := range raw {
		if key := Normalize(k); key != "" {
			t.values[key] = v
		}
	}
	return t
}

// Lookup returns the benchmark P/E for a sector name in any case or spacing.
func (t *Table) Lookup(sector string) (float64, bool) {
	if t == nil {
		return 0, false
	}
	v, ok := t.values[Normalize(sector)]
	return v, ok
}

// Len returns the number of sectors.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.values)
}

// Load reads the first sheet of an xlsx workbook with sectorKey and sectorPE
// columns. Rows with a blank key or a P/E that is not a number are skipped.
func Load(path string) (*Table, error) {
	if err := checkReadable(path); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, &model.LockedSourceFileError{Path: path, Err: err}
		}
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows of %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: sheet %q is empty", path, sheets[0])
	}

	keyCol, peCol := -1, -1
	for i, h := range rows[0] {
		switch strings.TrimSpace(h) {
		case KeyColumn:
			keyCol = i
		case PEColumn:
			peCol = i
		}
	}
	if keyCol < 0 || peCol < 0 {
		return nil, fmt.Errorf("%s: header must contain %q and %q", path, KeyColumn, PEColumn)
	}

	raw := make(map[string]float64)
	for _, row := range rows[1:] {
		if keyCol >= len(row) || peCol >= len(row) {
			continue
		}
		key := strings.TrimSpace(row[keyCol])
		pe, err := strconv.ParseFloat(strings.TrimSpace(row[peCol]), 64)
		if key == "" || err != nil {
			continue
		}
		raw[key] = pe
	}
	return NewTable(raw), nil
}

// checkReadable classifies the file before excelize touches it. Office
// applications leave an owner file "~$<name>" beside a workbook they hold
// open; on Windows the open itself fails with a sharing violation.
func checkReadable(path string) error {
	fh, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return &model.MissingSourceFileError{Path: path}
		case errors.Is(err, fs.ErrPermission):
			return &model.LockedSourceFileError{Path: path, Err: err}
		default:
			return fmt.Errorf("open %s: %w", path, err)
		}
	}
	fh.Close()

	dir, name := filepath.Split(path)
	candidates := []string{"~$" + name}
	if len(name) > 2 {
		candidates = append(candidates, "~$"+name[2:])
	}
	for _, c := range candidates {
		if _, err := os.Stat(filepath.Join(dir, c)); err == nil {
			return &model.LockedSourceFileError{Path: path}
		}
	}
	return nil
}

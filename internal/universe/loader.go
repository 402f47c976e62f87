// Package universe builds the ticker universe from static symbol lists.
package universe

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"StockScreener/internal/model"
)

// SymbolColumn is the header name that holds ticker symbols.
const SymbolColumn = "Symbol"

// Loader reads ticker lists from CSV files.
type Loader struct {
	log zerolog.Logger
}

// NewLoader creates a Loader.
func NewLoader(log zerolog.Logger) *Loader {
	return &Loader{log: log.With().Str("component", "universe").Logger()}
}

// Load reads every file and returns the deduplicated, alphabetic symbols in
// first-seen order. Every path is checked before any file is read, so a
// missing list never yields a partial universe.
func (l *Loader) Load(paths ...string) ([]model.Ticker, error) {
	if len(paths) == 0 {
		return nil, errors.New("no ticker files configured")
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &model.MissingSourceFileError{Path: p}
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
	}

	seen := make(map[model.Ticker]struct{})
	var tickers []model.Ticker
	for _, p := range paths {
		symbols, err := readSymbols(p)
		if err != nil {
			return nil, err
		}
		added, rejected := 0, 0
		for _, raw := range symbols {
			t := model.NormalizeTicker(raw)
			if !t.IsValid() {
				rejected++
				continue
			}
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			tickers = append(tickers, t)
			added++
		}
		l.log.Info().Str("file", p).Int("rows", len(symbols)).Int("added", added).Int("rejected", rejected).Msg("ticker list loaded")
	}
	return tickers, nil
}

// readSymbols returns the raw values of the Symbol column.
func readSymbols(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &model.MissingSourceFileError{Path: path}
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%s: empty file", path)
		}
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	col := columnIndex(header, SymbolColumn)
	if col < 0 {
		return nil, fmt.Errorf("%s: no %q column in header", path, SymbolColumn)
	}

	var out []string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		if col < len(rec) {
			out = append(out, rec[col])
		}
	}
	return out, nil
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		h = strings.TrimPrefix(h, "\ufeff")
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

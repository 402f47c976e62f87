package calculator

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"StockScreener/internal/model"
)

// MarketAveragePE is the unweighted mean of every present trailing P/E.
// ok is false when no record has one.
func MarketAveragePE(records map[model.Ticker]model.FundamentalsRecord) (avg float64, ok bool) {
	tickers := make([]string, 0, len(records))
	for t, r := range records {
		if r.HasPE() {
			tickers = append(tickers, string(t))
		}
	}
	if len(tickers) == 0 {
		return 0, false
	}
	sort.Strings(tickers)

	values := make([]float64, len(tickers))
	for i, t := range tickers {
		values[i] = *records[model.Ticker(t)].TrailingPE
	}
	return floats.Sum(values) / float64(len(values)), true
}

// EPSGrowing reports whether the first years values (most recent first) are
// all present and strictly increasing from oldest to newest.
func EPSGrowing(values []*float64, years int) bool {
	if years <= 0 {
		return true
	}
	if len(values) > years {
		values = values[:years]
	}
	present := make([]float64, 0, len(values))
	for _, v := range values {
		if v == nil || math.IsNaN(*v) {
			continue
		}
		present = append(present, *v)
	}
	if len(present) != years {
		return false
	}
	// present is newest first.
	for i := 0; i < len(present)-1; i++ {
		if present[i] <= present[i+1] {
			return false
		}
	}
	return true
}

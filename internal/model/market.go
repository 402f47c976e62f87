package model

import "time"

// OHLCV represents a single daily bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// HistorySeries holds the trailing daily bars of one ticker, oldest first.
type HistorySeries struct {
	Symbol Ticker
	Bars   []OHLCV
}

// Len returns the number of bars.
func (h HistorySeries) Len() int { return len(h.Bars) }

// Closes returns the closing prices in bar order.
func (h HistorySeries) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns the intraday highs in bar order.
func (h HistorySeries) Highs() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.High
	}
	return out
}

// Volumes returns the traded volumes in bar order.
func (h HistorySeries) Volumes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Volume
	}
	return out
}

// Latest returns the most recent bar. ok is false for an empty series.
func (h HistorySeries) Latest() (bar OHLCV, ok bool) {
	if len(h.Bars) == 0 {
		return OHLCV{}, false
	}
	return h.Bars[len(h.Bars)-1], true
}

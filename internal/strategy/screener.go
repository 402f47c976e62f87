// Package strategy implements the ordered screening gates. A ticker is
// rejected at the first gate it fails, so history and EPS are only fetched
// for tickers the cheaper gates already approved.
package strategy

import (
	"context"
	"errors"
	"fmt"

	"StockScreener/internal/benchmark"
	"StockScreener/internal/calculator"
	"StockScreener/internal/collector"
	"StockScreener/internal/model"
)

// quoteDays is the lookback used to price a result when the technical gate
// is disabled.
const quoteDays = 5

// Candidate is one ticker with its pre-fetched fundamentals.
type Candidate struct {
	Symbol model.Ticker
	Record model.FundamentalsRecord
}

// Verdict is the outcome of screening one ticker. Stage is the rejecting gate
// and is empty when Passed.
type Verdict struct {
	Symbol model.Ticker
	Passed bool
	Stage  Stage
	Reason string
	Err    error
	Result *model.ScreenResult
}

// Screener evaluates candidates against fixed thresholds and run-wide
// benchmarks. It is read-only after construction and safe for concurrent
// Evaluate calls.
type Screener struct {
	Provider   collector.Provider
	Thresholds Thresholds
	Sectors    *benchmark.Table
	MarketPE   float64
	// HasMarketPE is false when no ticker in the run reported a P/E.
	HasMarketPE bool
	Diagnostics *Diagnostics
}

// NewScreener creates a Screener with fresh diagnostics.
func NewScreener(p collector.Provider, t Thresholds, sectors *benchmark.Table, marketPE float64, hasMarketPE bool) *Screener {
	return &Screener{
		Provider:    p,
		Thresholds:  t,
		Sectors:     sectors,
		MarketPE:    marketPE,
		HasMarketPE: hasMarketPE,
		Diagnostics: &Diagnostics{},
	}
}

// Evaluate runs the gates in order and stops at the first rejection.
// Provider failures and panics become rejections.
func (s *Screener) Evaluate(ctx context.Context, c Candidate) (v Verdict) {
	stage := StageFundamentals
	s.Diagnostics.start()
	defer func() {
		if r := recover(); r != nil {
			v = Verdict{Symbol: c.Symbol, Stage: stage, Reason: "internal error", Err: fmt.Errorf("panic: %v", r)}
			s.Diagnostics.reject(stage, v.Err)
		}
	}()

	reject := func(reason string, err error) Verdict {
		s.Diagnostics.reject(stage, err)
		return Verdict{Symbol: c.Symbol, Stage: stage, Reason: reason, Err: err}
	}

	th := s.Thresholds
	rec := c.Record

	if ok, reason := CheckFundamentals(rec, th.MaxDebtToEquity); !ok {
		return reject(reason, nil)
	}
	s.Diagnostics.pass(stage)

	res := &model.ScreenResult{
		Symbol:       c.Symbol,
		Sector:       rec.Sector,
		PE:           *rec.TrailingPE,
		DebtToEquity: *rec.DebtToEquity,
		SectorPE:     rec.SectorPE,
	}
	if res.SectorPE == nil && rec.Sector != "" {
		if bench, ok := s.Sectors.Lookup(rec.Sector); ok {
			res.SectorPE = model.Float(bench)
		}
	}

	if th.Sector.Enabled {
		stage = StageSector
		if s.Sectors == nil {
			return reject("sector table not loaded", errors.New("sector table not loaded"))
		}
		bench, ok, reason := CheckSector(rec, s.Sectors, th.Sector)
		if !ok {
			return reject(reason, nil)
		}
		res.SectorPE = model.Float(bench)
		s.Diagnostics.pass(stage)
	}

	if th.EPS.Years > 0 {
		stage = StageEPS
		eps, err := s.Provider.FetchDilutedEPS(ctx, c.Symbol, th.EPS.Years)
		if err != nil {
			return reject("diluted EPS unavailable", err)
		}
		if !calculator.EPSGrowing(eps, th.EPS.Years) {
			return reject(fmt.Sprintf("EPS not growing over %d years", th.EPS.Years), nil)
		}
		res.EPSGrowth = true
		s.Diagnostics.pass(stage)
	}

	if th.Technical.Enabled {
		stage = StageTechnical
		bars, err := s.Provider.FetchDailyBars(ctx, c.Symbol, th.Technical.HistoryDays)
		if err != nil {
			return reject("price history unavailable", err)
		}
		snap, ok, reason := CheckTechnicals(model.HistorySeries{Symbol: c.Symbol, Bars: bars}, th.Technical)
		if !ok {
			return reject(reason, nil)
		}
		res.Price = snap.Price
		res.HighN = snap.High
		res.SMA = snap.SMA
		res.AverageVolume = snap.AverageVolume
		res.LatestVolume = snap.LatestVolume
		s.Diagnostics.pass(stage)
	}

	if th.Valuation.Enabled {
		stage = StageValuation
		if ok, reason := CheckValuation(res.PE, s.MarketPE, s.HasMarketPE, res.SectorPE, th.Valuation.RequireBelowSector); !ok {
			return reject(reason, nil)
		}
		s.Diagnostics.pass(stage)
	}

	if !th.Technical.Enabled {
		s.quote(ctx, res)
	}
	s.Diagnostics.accept()
	return Verdict{Symbol: c.Symbol, Passed: true, Result: res}
}

// quote fills the latest price and volume for a result that skipped the
// technical gate. Failures leave them zero.
func (s *Screener) quote(ctx context.Context, res *model.ScreenResult) {
	bars, err := s.Provider.FetchDailyBars(ctx, res.Symbol, quoteDays)
	if err != nil {
		return
	}
	latest, ok := model.HistorySeries{Symbol: res.Symbol, Bars: bars}.Latest()
	if !ok {
		return
	}
	res.Price = latest.Close
	res.LatestVolume = latest.Volume
}

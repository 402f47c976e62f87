package strategy

import (
	"fmt"

	"StockScreener/internal/benchmark"
	"StockScreener/internal/calculator"
	"StockScreener/internal/model"
)

// CheckFundamentals rejects a record without P/E or D/E, or with D/E at or
// above the ceiling.
func CheckFundamentals(rec model.FundamentalsRecord, maxDebtToEquity float64) (bool, string) {
	if rec.TrailingPE == nil {
		return false, "P/E unavailable"
	}
	if rec.DebtToEquity == nil {
		return false, "debt/equity unavailable"
	}
	if maxDebtToEquity > 0 && *rec.DebtToEquity >= maxDebtToEquity {
		return false, fmt.Sprintf("debt/equity %.2f >= %.2f", *rec.DebtToEquity, maxDebtToEquity)
	}
	return true, ""
}

// CheckSector compares P/E with the sector benchmark plus slack and returns
// the benchmark used.
func CheckSector(rec model.FundamentalsRecord, table *benchmark.Table, g SectorGate) (float64, bool, string) {
	if rec.Sector == "" {
		return 0, false, "sector unavailable"
	}
	bench, ok := table.Lookup(rec.Sector)
	if !ok {
		return 0, false, fmt.Sprintf("sector %q not in benchmark table", rec.Sector)
	}
	if rec.TrailingPE == nil {
		return bench, false, "P/E unavailable"
	}
	limit := bench * (1 + g.Slack)
	if g.Strict && *rec.TrailingPE >= limit {
		return bench, false, fmt.Sprintf("P/E %.2f not below sector limit %.2f", *rec.TrailingPE, limit)
	}
	if *rec.TrailingPE > limit {
		return bench, false, fmt.Sprintf("P/E %.2f above sector limit %.2f", *rec.TrailingPE, limit)
	}
	return bench, true, ""
}

// TechnicalSnapshot holds the figures the technical gate decided on.
type TechnicalSnapshot struct {
	Price         float64
	High          float64
	SMA           float64
	AverageVolume float64
	LatestVolume  float64
}

// CheckTechnicals computes the breakout figures from the series and applies
// the configured comparator.
func CheckTechnicals(series model.HistorySeries, g TechnicalGate) (TechnicalSnapshot, bool, string) {
	var snap TechnicalSnapshot
	latest, ok := series.Latest()
	if !ok {
		return snap, false, "no price history"
	}
	if series.Len() < g.MinBars {
		return snap, false, fmt.Sprintf("only %d bars, need %d", series.Len(), g.MinBars)
	}

	bars := series.Bars
	snap.Price = latest.Close
	snap.LatestVolume = latest.Volume

	var err error
	if g.HighFromBarHigh {
		snap.High, err = calculator.HighestHigh(bars, g.HighWindow)
	} else {
		snap.High, err = calculator.HighestClose(bars, g.HighWindow)
	}
	if err != nil {
		return snap, false, err.Error()
	}
	if snap.SMA, err = calculator.CloseSMA(bars, g.SMAWindow); err != nil {
		return snap, false, err.Error()
	}
	if snap.AverageVolume, err = calculator.AverageVolume(bars, g.VolumeWindow, g.VolumeExcludesLatest); err != nil {
		return snap, false, err.Error()
	}

	var priceOK, trendOK, volumeOK bool
	switch g.Mode {
	case ModeTolerant:
		priceOK = snap.Price >= g.PriceTolerance*snap.High
		trendOK = snap.Price >= snap.SMA
		volumeOK = snap.LatestVolume >= g.VolumeTolerance*snap.AverageVolume
	default:
		priceOK = snap.Price >= snap.High
		trendOK = snap.Price > snap.SMA
		volumeOK = snap.LatestVolume > snap.AverageVolume
	}

	switch {
	case !priceOK:
		return snap, false, fmt.Sprintf("price %.2f below %d-day high %.2f", snap.Price, g.HighWindow, snap.High)
	case !trendOK:
		return snap, false, fmt.Sprintf("price %.2f below SMA%d %.2f", snap.Price, g.SMAWindow, snap.SMA)
	case !volumeOK:
		return snap, false, fmt.Sprintf("volume %.0f below average %.0f", snap.LatestVolume, snap.AverageVolume)
	}
	return snap, true, ""
}

// CheckValuation requires P/E below the market average and, when asked and a
// sector P/E is known, below the sector P/E too.
func CheckValuation(pe float64, marketPE float64, haveMarketPE bool, sectorPE *float64, requireBelowSector bool) (bool, string) {
	if !haveMarketPE {
		return false, "market P/E unavailable"
	}
	if pe >= marketPE {
		return false, fmt.Sprintf("P/E %.2f not below market %.2f", pe, marketPE)
	}
	if requireBelowSector && sectorPE != nil && pe >= *sectorPE {
		return false, fmt.Sprintf("P/E %.2f not below sector %.2f", pe, *sectorPE)
	}
	return true, ""
}

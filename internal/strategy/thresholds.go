package strategy

import (
	"errors"
	"fmt"
)

// Mode selects the technical comparator.
type Mode string

const (
	// ModeStrict requires price ≥ high, price > SMA and volume > average.
	ModeStrict Mode = "strict"
	// ModeTolerant scales the high and the average volume by the tolerances
	// and accepts price ≥ SMA.
	ModeTolerant Mode = "tolerant"
)

// SectorGate compares P/E against the sector benchmark table. Strict rejects
// a P/E equal to the limit as well.
type SectorGate struct {
	Enabled bool    `yaml:"enabled"`
	Slack   float64 `yaml:"slack"`
	Strict  bool    `yaml:"strict"`
}

// EPSGate requires strictly increasing annual diluted EPS. Years 0 disables.
type EPSGate struct {
	Years int `yaml:"years"`
}

// TechnicalGate configures the price/volume breakout check.
type TechnicalGate struct {
	Enabled              bool    `yaml:"enabled"`
	HistoryDays          int     `yaml:"history_days"`
	MinBars              int     `yaml:"min_bars"`
	HighWindow           int     `yaml:"high_window"`
	HighFromBarHigh      bool    `yaml:"high_from_bar_high"`
	SMAWindow            int     `yaml:"sma_window"`
	VolumeWindow         int     `yaml:"volume_window"`
	VolumeExcludesLatest bool    `yaml:"volume_excludes_latest"`
	Mode                 Mode    `yaml:"mode"`
	PriceTolerance       float64 `yaml:"price_tolerance"`
	VolumeTolerance      float64 `yaml:"volume_tolerance"`
}

// ValuationGate requires P/E below the market-wide average.
type ValuationGate struct {
	Enabled            bool `yaml:"enabled"`
	RequireBelowSector bool `yaml:"require_below_sector"`
}

// Thresholds is the complete gate configuration for one run.
type Thresholds struct {
	// MaxDebtToEquity rejects D/E at or above it. Zero or less means no ceiling.
	MaxDebtToEquity float64       `yaml:"max_debt_to_equity"`
	Sector          SectorGate    `yaml:"sector"`
	EPS             EPSGate       `yaml:"eps"`
	Technical       TechnicalGate `yaml:"technical"`
	Valuation       ValuationGate `yaml:"valuation"`
}

// NeedsSectorTable reports whether any gate reads the sector benchmark table.
func (t Thresholds) NeedsSectorTable() bool {
	return t.Sector.Enabled
}

// Validate checks that the thresholds describe a runnable screen.
func (t Thresholds) Validate() error {
	if t.Sector.Slack < 0 {
		return fmt.Errorf("sector slack must be >= 0, got %v", t.Sector.Slack)
	}
	if t.EPS.Years < 0 || t.EPS.Years == 1 || t.EPS.Years > 10 {
		return fmt.Errorf("eps years must be 0 or between 2 and 10, got %d", t.EPS.Years)
	}
	if tg := t.Technical; tg.Enabled {
		if tg.HistoryDays <= 0 || tg.MinBars <= 0 || tg.HighWindow <= 0 || tg.SMAWindow <= 0 || tg.VolumeWindow <= 0 {
			return errors.New("technical windows must be positive")
		}
		if tg.MinBars > tg.HistoryDays {
			return fmt.Errorf("technical min_bars (%d) exceeds history_days (%d)", tg.MinBars, tg.HistoryDays)
		}
		if tg.VolumeExcludesLatest && tg.MinBars < 2 {
			return errors.New("technical min_bars must be >= 2 when volume excludes the latest bar")
		}
		switch tg.Mode {
		case ModeStrict:
		case ModeTolerant:
			if tg.PriceTolerance <= 0 || tg.VolumeTolerance <= 0 {
				return errors.New("tolerant mode needs positive price and volume tolerances")
			}
		default:
			return fmt.Errorf("unknown technical mode %q", tg.Mode)
		}
	}
	return nil
}

package strategy

import (
	"fmt"
	"sort"
)

const (
	PresetBreakout    = "breakout"
	PresetWatchlist   = "watchlist"
	PresetSectorValue = "sector_value"

	DefaultPreset = PresetBreakout
)

var presets = map[string]Thresholds{
	// Low leverage, three years of EPS growth, a 20-day closing breakout above
	// SMA50 on above-average volume, and P/E under the market average.
	PresetBreakout: {
		MaxDebtToEquity: 1.0,
		EPS:             EPSGate{Years: 3},
		Technical: TechnicalGate{
			Enabled:      true,
			HistoryDays:  60,
			MinBars:      20,
			HighWindow:   20,
			SMAWindow:    50,
			VolumeWindow: 20,
			Mode:         ModeStrict,
		},
		Valuation: ValuationGate{Enabled: true},
	},
	// Looser watch list: names trading near their highs within 5% of the
	// sector P/E.
	PresetWatchlist: {
		MaxDebtToEquity: 4.0,
		Sector:          SectorGate{Enabled: true, Slack: 0.05},
		EPS:             EPSGate{Years: 2},
		Technical: TechnicalGate{
			Enabled:              true,
			HistoryDays:          90,
			MinBars:              50,
			HighWindow:           20,
			HighFromBarHigh:      true,
			SMAWindow:            50,
			VolumeWindow:         10,
			VolumeExcludesLatest: true,
			Mode:                 ModeTolerant,
			PriceTolerance:       0.90,
			VolumeTolerance:      0.90,
		},
	},
	// Fundamentals only: cheaper than the sector with growing earnings.
	PresetSectorValue: {
		Sector: SectorGate{Enabled: true, Strict: true},
		EPS:    EPSGate{Years: 3},
	},
}

// Preset returns the thresholds registered under name.
func Preset(name string) (Thresholds, error) {
	t, ok := presets[name]
	if !ok {
		return Thresholds{}, fmt.Errorf("unknown preset %q (available: %v)", name, PresetNames())
	}
	return t, nil
}

// PresetNames lists the registered presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

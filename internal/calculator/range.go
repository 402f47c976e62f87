package calculator

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"StockScreener/internal/model"
)

func tail(bars []model.OHLCV, n int) []model.OHLCV {
	if n <= 0 || n > len(bars) {
		return bars
	}
	return bars[len(bars)-n:]
}

// HighestClose returns the highest close over the most recent n bars.
func HighestClose(bars []model.OHLCV, n int) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no daily bars provided")
	}
	return floats.Max(model.HistorySeries{Bars: tail(bars, n)}.Closes()), nil
}

// HighestHigh returns the highest intraday high over the most recent n bars.
func HighestHigh(bars []model.OHLCV, n int) (float64, error) {
	if len(bars) == 0 {
		return 0, errors.New("no daily bars provided")
	}
	return floats.Max(model.HistorySeries{Bars: tail(bars, n)}.Highs()), nil
}

// AverageVolume returns the mean volume of the n bars before the latest one
// when excludeLatest is set, otherwise of the most recent n bars.
func AverageVolume(bars []model.OHLCV, n int, excludeLatest bool) (float64, error) {
	if excludeLatest {
		if len(bars) < 2 {
			return 0, errors.New("not enough bars for average volume")
		}
		bars = bars[:len(bars)-1]
	}
	if len(bars) == 0 {
		return 0, errors.New("no daily bars provided")
	}
	return stat.Mean(model.HistorySeries{Bars: tail(bars, n)}.Volumes(), nil), nil
}

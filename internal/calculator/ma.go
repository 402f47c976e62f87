package calculator

import (
	"errors"

	"github.com/markcheno/go-talib"

	"StockScreener/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	out := talib.Sma(prices[len(prices)-period:], period)
	return out[len(out)-1], nil
}

// SMAOverAvailable averages the trailing min(period, len(prices)) prices.
func SMAOverAvailable(prices []float64, period int) (float64, error) {
	if len(prices) == 0 {
		return 0, errors.New("no prices provided")
	}
	if period > len(prices) {
		period = len(prices)
	}
	return CalculateSMA(prices, period)
}

// CloseSMA returns the SMA of closing prices over the trailing window.
func CloseSMA(bars []model.OHLCV, period int) (float64, error) {
	return SMAOverAvailable(model.HistorySeries{Bars: bars}.Closes(), period)
}

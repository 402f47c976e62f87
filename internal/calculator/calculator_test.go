package calculator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScreener/internal/model"
)

func bars(closes, highs, vols []float64) []model.OHLCV {
	out := make([]model.OHLCV, len(closes))
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range closes {
		out[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Close: closes[i], Open: closes[i]}
		if highs != nil {
			out[i].High = highs[i]
		}
		if vols != nil {
			out[i].Volume = vols[i]
		}
	}
	return out
}

func TestCalculateSMA(t *testing.T) {
	sma, err := CalculateSMA([]float64{1, 2, 3, 4, 5}, 3)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, sma, 1e-9)

	sma, err = CalculateSMA([]float64{7}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 7.0, sma, 1e-9)

	_, err = CalculateSMA([]float64{1, 2}, 3)
	assert.Error(t, err)
	_, err = CalculateSMA([]float64{1, 2}, 0)
	assert.Error(t, err)
}

func TestSMAOverAvailable_ShortSeries(t *testing.T) {
	sma, err := SMAOverAvailable([]float64{10, 20, 30}, 50)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, sma, 1e-9)

	_, err = SMAOverAvailable(nil, 50)
	assert.Error(t, err)
}

func TestCloseSMA(t *testing.T) {
	sma, err := CloseSMA(bars([]float64{1, 2, 3, 4}, nil, nil), 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, sma, 1e-9)
}

func TestHighestCloseAndHigh(t *testing.T) {
	b := bars([]float64{10, 30, 20, 25}, []float64{11, 31, 40, 26}, nil)

	hc, err := HighestClose(b, 2)
	require.NoError(t, err)
	assert.Equal(t, 25.0, hc)

	hc, err = HighestClose(b, 20)
	require.NoError(t, err)
	assert.Equal(t, 30.0, hc, "window larger than series uses all bars")

	hh, err := HighestHigh(b, 3)
	require.NoError(t, err)
	assert.Equal(t, 40.0, hh)

	_, err = HighestClose(nil, 20)
	assert.Error(t, err)
	_, err = HighestHigh(nil, 20)
	assert.Error(t, err)
}

func TestAverageVolume(t *testing.T) {
	b := bars([]float64{1, 1, 1, 1}, nil, []float64{100, 200, 300, 1000})

	avg, err := AverageVolume(b, 3, false)
	require.NoError(t, err)
	assert.InDelta(t, 500.0, avg, 1e-9)

	avg, err = AverageVolume(b, 3, true)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, avg, 1e-9, "latest bar excluded")

	_, err = AverageVolume(b[:1], 10, true)
	assert.Error(t, err)
}

func TestMarketAveragePE(t *testing.T) {
	records := map[model.Ticker]model.FundamentalsRecord{
		"AAA": {TrailingPE: model.Float(15)},
		"BBB": {TrailingPE: model.Float(25)},
		"CCC": {TrailingPE: model.Float(10)},
		"DDD": model.AbsentRecord(),
	}
	avg, ok := MarketAveragePE(records)
	require.True(t, ok)
	assert.InDelta(t, 16.6667, avg, 1e-4)

	again, _ := MarketAveragePE(records)
	assert.Equal(t, avg, again)

	_, ok = MarketAveragePE(map[model.Ticker]model.FundamentalsRecord{"X": model.AbsentRecord()})
	assert.False(t, ok)
	_, ok = MarketAveragePE(nil)
	assert.False(t, ok)
}

func TestEPSGrowing(t *testing.T) {
	f := model.Float
	nan := math.NaN()
	tests := []struct {
		name   string
		values []*float64
		years  int
		want   bool
	}{
		{"three years growing", []*float64{f(3), f(2), f(1)}, 3, true},
		{"uses first entries only", []*float64{f(3), f(2), f(1), f(9)}, 3, true},
		{"flat year", []*float64{f(3), f(3), f(1)}, 3, false},
		{"dip", []*float64{f(3), f(1), f(2)}, 3, false},
		{"missing year", []*float64{f(3), nil, f(1)}, 3, false},
		{"nan year", []*float64{f(3), &nan, f(1)}, 3, false},
		{"too few", []*float64{f(3), f(2)}, 3, false},
		{"two years", []*float64{f(2.5), f(2)}, 2, true},
		{"disabled", nil, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EPSGrowing(tt.values, tt.years))
		})
	}
}

package collector

import (
	"context"
	"sync"
	"time"

	"StockScreener/internal/model"
)

// MockProvider returns controllable fixed data for development and testing.
// Symbols without an entry in Fundamentals fail with ErrNoData.
type MockProvider struct {
	Fundamentals map[model.Ticker]model.FundamentalsRecord
	EPS          map[model.Ticker][]*float64
	Bars         map[model.Ticker][]model.OHLCV
	// Errors forces a failure for a symbol on every operation.
	Errors map[model.Ticker]error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[op]++
}

// Calls returns how many times op ("fundamentals", "eps", "bars") was invoked.
func (m *MockProvider) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MockProvider) FetchFundamentals(ctx context.Context, symbol model.Ticker) (model.FundamentalsRecord, error) {
	m.record("fundamentals")
	if err := ctx.Err(); err != nil {
		return model.AbsentRecord(), err
	}
	if err := m.Errors[symbol]; err != nil {
		return model.AbsentRecord(), fetchErr(m.Name(), symbol, "fundamentals", err)
	}
	rec, ok := m.Fundamentals[symbol]
	if !ok {
		return model.AbsentRecord(), fetchErr(m.Name(), symbol, "fundamentals", ErrNoData)
	}
	return rec, nil
}

func (m *MockProvider) FetchDilutedEPS(ctx context.Context, symbol model.Ticker, years int) ([]*float64, error) {
	m.record("eps")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Errors[symbol]; err != nil {
		return nil, fetchErr(m.Name(), symbol, "eps", err)
	}
	eps, ok := m.EPS[symbol]
	if !ok {
		return nil, fetchErr(m.Name(), symbol, "eps", ErrNoData)
	}
	if len(eps) > years {
		eps = eps[:years]
	}
	return eps, nil
}

func (m *MockProvider) FetchDailyBars(ctx context.Context, symbol model.Ticker, days int) ([]model.OHLCV, error) {
	m.record("bars")
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Errors[symbol]; err != nil {
		return nil, fetchErr(m.Name(), symbol, "bars", err)
	}
	bars, ok := m.Bars[symbol]
	if !ok {
		return nil, fetchErr(m.Name(), symbol, "bars", ErrNoData)
	}
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

// GenerateBars builds count daily bars ending today whose close drifts from
// basePrice by step per bar, with constant volume.
func GenerateBars(basePrice, step float64, count int, volume float64) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	now := time.Now().Truncate(24 * time.Hour)
	for i := 0; i < count; i++ {
		p := basePrice + float64(i)*step
		bars[i] = model.OHLCV{
			Time:   now.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: volume,
		}
	}
	return bars
}

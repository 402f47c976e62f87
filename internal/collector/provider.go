package collector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"StockScreener/internal/model"
)

// Provider defines the interface for fetching reference data for one symbol.
type Provider interface {
	Name() string
	FetchFundamentals(ctx context.Context, symbol model.Ticker) (model.FundamentalsRecord, error)
	// FetchDilutedEPS returns up to years annual values, most recent first.
	// Missing years are nil.
	FetchDilutedEPS(ctx context.Context, symbol model.Ticker, years int) ([]*float64, error)
	// FetchDailyBars returns up to days bars, oldest first.
	FetchDailyBars(ctx context.Context, symbol model.Ticker, days int) ([]model.OHLCV, error)
}

// ErrNoData marks a response that will not improve on retry.
var ErrNoData = errors.New("no data")

// FetchError wraps a failed provider call with the symbol and operation.
type FetchError struct {
	Provider string
	Symbol   model.Ticker
	Op       string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s %s %s: %v", e.Provider, e.Op, e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(provider string, symbol model.Ticker, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &FetchError{Provider: provider, Symbol: symbol, Op: op, Err: err}
}

// StatusError is a non-200 HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, body)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// toFloatPtr reads v as a finite float. Anything else is absent.
func toFloatPtr(v interface{}) *float64 {
	var f float64
	switch n := v.(type) {
	case nil:
		return nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return nil
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = p
	case map[string]interface{}:
		// Yahoo wraps numbers as {"raw": 12.3, "fmt": "12.30"}.
		return toFloatPtr(n["raw"])
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func toFloat(v interface{}) float64 {
	if p := toFloatPtr(v); p != nil {
		return *p
	}
	return 0
}

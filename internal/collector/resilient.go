package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"StockScreener/internal/model"
)

// ResilienceOptions configures the admission limiter, per-request timeout and
// retry policy applied around a provider.
type ResilienceOptions struct {
	RatePerSecond float64
	Burst         int
	Timeout       time.Duration
	MaxRetries    int
	Backoff       time.Duration
	Logger        zerolog.Logger
}

func (o ResilienceOptions) withDefaults() ResilienceOptions {
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 10
	}
	if o.Burst <= 0 {
		o.Burst = int(o.RatePerSecond)
		if o.Burst < 1 {
			o.Burst = 1
		}
	}
	if o.Timeout <= 0 {
		o.Timeout = 20 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.Backoff <= 0 {
		o.Backoff = 500 * time.Millisecond
	}
	return o
}

// Resilient wraps a Provider with rate limiting, timeouts and retries.
type Resilient struct {
	inner   Provider
	opts    ResilienceOptions
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewResilient decorates p. Zero option fields take defaults: 10 req/s,
// 20s timeout, 500ms base backoff. MaxRetries is used as given.
func NewResilient(p Provider, opts ResilienceOptions) *Resilient {
	opts = opts.withDefaults()
	return &Resilient{
		inner:   p,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), opts.Burst),
		log:     opts.Logger.With().Str("component", "provider").Str("provider", p.Name()).Logger(),
	}
}

func (r *Resilient) Name() string { return r.inner.Name() }

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	if errors.Is(err, ErrNoData) || errors.Is(err, context.Canceled) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}

func (r *Resilient) do(ctx context.Context, symbol model.Ticker, op string, call func(context.Context) error) error {
	var lastErr error
	for i := 0; i <= r.opts.MaxRetries; i++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return fetchErr(r.Name(), symbol, op, err)
		}
		attemptCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		err := call(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) || i == r.opts.MaxRetries {
			break
		}

		backoff := r.opts.Backoff * time.Duration(1<<uint(i))
		r.log.Debug().Err(err).Str("symbol", symbol.String()).Str("op", op).
			Int("attempt", i+1).Dur("backoff", backoff).Msg("retrying")
		select {
		case <-ctx.Done():
			return fetchErr(r.Name(), symbol, op, ctx.Err())
		case <-time.After(backoff):
		}
	}
	if r.opts.MaxRetries > 0 && retryable(lastErr) && ctx.Err() == nil {
		lastErr = fmt.Errorf("all %d attempts failed: %w", r.opts.MaxRetries+1, lastErr)
	}
	return fetchErr(r.Name(), symbol, op, lastErr)
}

func (r *Resilient) FetchFundamentals(ctx context.Context, symbol model.Ticker) (model.FundamentalsRecord, error) {
	rec := model.AbsentRecord()
	err := r.do(ctx, symbol, "fundamentals", func(c context.Context) error {
		var err error
		rec, err = r.inner.FetchFundamentals(c, symbol)
		return err
	})
	if err != nil {
		return model.AbsentRecord(), err
	}
	return rec, nil
}

func (r *Resilient) FetchDilutedEPS(ctx context.Context, symbol model.Ticker, years int) ([]*float64, error) {
	var eps []*float64
	err := r.do(ctx, symbol, "eps", func(c context.Context) error {
		var err error
		eps, err = r.inner.FetchDilutedEPS(c, symbol, years)
		return err
	})
	if err != nil {
		return nil, err
	}
	return eps, nil
}

func (r *Resilient) FetchDailyBars(ctx context.Context, symbol model.Ticker, days int) ([]model.OHLCV, error) {
	var bars []model.OHLCV
	err := r.do(ctx, symbol, "bars", func(c context.Context) error {
		var err error
		bars, err = r.inner.FetchDailyBars(c, symbol, days)
		return err
	})
	if err != nil {
		return nil, err
	}
	return bars, nil
}

package collector

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"StockScreener/internal/model"
)

const (
	DefaultChunkSize    = 100
	DefaultChunkDelay   = 100 * time.Millisecond
	DefaultChunkWorkers = 16
)

// FundamentalsResult is the outcome of fetching one symbol. A failed fetch
// carries an all-absent record alongside the error.
type FundamentalsResult struct {
	Record model.FundamentalsRecord
	Err    error
}

// BatchFetcher pulls fundamentals for a whole universe in fixed-size chunks,
// pausing after each chunk.
type BatchFetcher struct {
	Provider   Provider
	ChunkSize  int
	ChunkDelay time.Duration
	// Workers bounds concurrent requests within a chunk.
	Workers int
	Logger  zerolog.Logger
}

// NewBatchFetcher creates a BatchFetcher with default chunking.
func NewBatchFetcher(p Provider, log zerolog.Logger) *BatchFetcher {
	return &BatchFetcher{
		Provider:   p,
		ChunkSize:  DefaultChunkSize,
		ChunkDelay: DefaultChunkDelay,
		Workers:    DefaultChunkWorkers,
		Logger:     log.With().Str("component", "batch").Logger(),
	}
}

// FetchAll returns one result per input ticker. Individual failures never
// abort the batch. Once ctx is done, remaining tickers are marked failed with
// the context error.
func (b *BatchFetcher) FetchAll(ctx context.Context, tickers []model.Ticker) map[model.Ticker]FundamentalsResult {
	size := b.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}
	workers := b.Workers
	if workers <= 0 {
		workers = DefaultChunkWorkers
	}

	out := make(map[model.Ticker]FundamentalsResult, len(tickers))
	var mu sync.Mutex

	for start := 0; start < len(tickers); start += size {
		end := start + size
		if end > len(tickers) {
			end = len(tickers)
		}
		if err := ctx.Err(); err != nil {
			for _, t := range tickers[start:] {
				out[t] = FundamentalsResult{Record: model.AbsentRecord(), Err: err}
			}
			break
		}

		chunk := tickers[start:end]
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for _, t := range chunk {
			wg.Add(1)
			sem <- struct{}{}
			go func(t model.Ticker) {
				defer wg.Done()
				defer func() { <-sem }()
				rec, err := b.Provider.FetchFundamentals(ctx, t)
				if err != nil {
					rec = model.AbsentRecord()
				}
				mu.Lock()
				out[t] = FundamentalsResult{Record: rec, Err: err}
				mu.Unlock()
			}(t)
		}
		wg.Wait()

		b.Logger.Debug().Int("done", end).Int("total", len(tickers)).Msg("fundamentals chunk fetched")

		if b.ChunkDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(b.ChunkDelay):
			}
		}
	}
	return out
}

// Records projects results to their records, absent for failures.
func Records(results map[model.Ticker]FundamentalsResult) map[model.Ticker]model.FundamentalsRecord {
	out := make(map[model.Ticker]model.FundamentalsRecord, len(results))
	for t, r := range results {
		out[t] = r.Record
	}
	return out
}

// Failures counts results that carry an error.
func Failures(results map[model.Ticker]FundamentalsResult) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

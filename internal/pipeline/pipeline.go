// Package pipeline runs one screening pass: load the universe and sector
// table, fetch fundamentals, evaluate every ticker and export the matches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"StockScreener/internal/benchmark"
	"StockScreener/internal/calculator"
	"StockScreener/internal/collector"
	"StockScreener/internal/exporter"
	"StockScreener/internal/model"
	"StockScreener/internal/strategy"
	"StockScreener/internal/universe"
)

const defaultProgressEvery = 100

// Options is the run configuration.
type Options struct {
	UniverseFiles []string
	// SectorFile is optional unless the sector gate is enabled.
	SectorFile string
	Strategy   strategy.Thresholds
	// Concurrency <= 1 evaluates sequentially.
	Concurrency   int
	Label         string
	OutputDir     string
	ProgressEvery int
}

// DefaultConcurrency is twice the available CPUs.
func DefaultConcurrency() int { return 2 * runtime.NumCPU() }

// Report summarizes a finished run.
type Report struct {
	RunID         string
	StartedAt     time.Time
	Duration      time.Duration
	Universe      int
	Fetched       int
	FetchFailures int
	MarketPE      float64
	HasMarketPE   bool
	Results       []model.ScreenResult
	Diagnostics   *strategy.Diagnostics
	OutputPath    string
	NoMatches     bool
}

// Runner executes screening runs against one provider.
type Runner struct {
	provider collector.Provider
	batch    *collector.BatchFetcher
	opts     Options
	log      zerolog.Logger
	now      func() time.Time
}

// New creates a Runner. batch may be nil, in which case a default
// BatchFetcher over p is used.
func New(p collector.Provider, batch *collector.BatchFetcher, opts Options, log zerolog.Logger) *Runner {
	if batch == nil {
		batch = collector.NewBatchFetcher(p, log)
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = defaultProgressEvery
	}
	return &Runner{
		provider: p,
		batch:    batch,
		opts:     opts,
		log:      log.With().Str("component", "pipeline").Logger(),
		now:      time.Now,
	}
}

// Options returns the run configuration.
func (r *Runner) Options() Options { return r.opts }

// Run performs one screening pass. Input file errors abort the run; per
// ticker failures only exclude that ticker.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	rep := &Report{RunID: uuid.NewString(), StartedAt: r.now()}
	log := r.log.With().Str("run_id", rep.RunID).Logger()

	tickers, err := universe.NewLoader(log).Load(r.opts.UniverseFiles...)
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	rep.Universe = len(tickers)
	log.Info().Int("tickers", len(tickers)).Msg("universe loaded")

	var sectors *benchmark.Table
	switch {
	case r.opts.SectorFile != "":
		if sectors, err = benchmark.Load(r.opts.SectorFile); err != nil {
			return nil, fmt.Errorf("load sector table: %w", err)
		}
		log.Info().Int("sectors", sectors.Len()).Msg("sector table loaded")
	case r.opts.Strategy.NeedsSectorTable():
		return nil, errors.New("sector gate enabled but no sector P/E file configured")
	}

	results := r.batch.FetchAll(ctx, tickers)
	rep.FetchFailures = collector.Failures(results)
	rep.Fetched = len(results) - rep.FetchFailures
	records := collector.Records(results)
	log.Info().Int("fetched", rep.Fetched).Int("failed", rep.FetchFailures).Msg("fundamentals fetched")

	rep.MarketPE, rep.HasMarketPE = calculator.MarketAveragePE(records)
	if rep.HasMarketPE {
		log.Info().Float64("market_pe", rep.MarketPE).Msg("market average P/E")
	} else {
		log.Warn().Msg("no P/E values fetched, market average unavailable")
	}

	screener := strategy.NewScreener(r.provider, r.opts.Strategy, sectors, rep.MarketPE, rep.HasMarketPE)
	rep.Diagnostics = screener.Diagnostics

	candidates := make([]strategy.Candidate, len(tickers))
	for i, t := range tickers {
		candidates[i] = strategy.Candidate{Symbol: t, Record: records[t]}
	}

	var verdicts []strategy.Verdict
	if r.opts.Concurrency <= 1 {
		verdicts = r.evaluateSequential(ctx, screener, candidates, log)
	} else {
		verdicts = r.evaluatePool(ctx, screener, candidates, r.opts.Concurrency, log)
	}
	for _, v := range verdicts {
		if v.Passed && v.Result != nil {
			rep.Results = append(rep.Results, *v.Result)
		}
	}
	log.Info().Str("diagnostics", screener.Diagnostics.String()).Msg("screen finished")

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("screen interrupted: %w", err)
	}

	path, err := exporter.Export(rep.Results, r.opts.OutputDir, r.opts.Label, r.now())
	switch {
	case errors.Is(err, exporter.ErrNoMatches):
		rep.NoMatches = true
		log.Info().Msg("no stocks met the criteria")
	case err != nil:
		return nil, fmt.Errorf("export results: %w", err)
	default:
		rep.OutputPath = path
		log.Info().Str("path", path).Int("results", len(rep.Results)).Msg("results exported")
	}

	rep.Duration = r.now().Sub(rep.StartedAt)
	return rep, nil
}

func (r *Runner) progress(log zerolog.Logger, done, total int) {
	if done%r.opts.ProgressEvery == 0 || done == total {
		log.Info().Int("done", done).Int("total", total).Msg("screening progress")
	}
}

func (r *Runner) evaluateSequential(ctx context.Context, s *strategy.Screener, cands []strategy.Candidate, log zerolog.Logger) []strategy.Verdict {
	out := make([]strategy.Verdict, len(cands))
	for i, c := range cands {
		out[i] = s.Evaluate(ctx, c)
		r.progress(log, i+1, len(cands))
	}
	return out
}

type job struct {
	index     int
	candidate strategy.Candidate
}

type result struct {
	index   int
	verdict strategy.Verdict
}

// evaluatePool fans candidates out to a fixed number of workers. The job
// channel holds at most one pending job per worker. Verdicts keep input
// order.
func (r *Runner) evaluatePool(ctx context.Context, s *strategy.Screener, cands []strategy.Candidate, workers int, log zerolog.Logger) []strategy.Verdict {
	if len(cands) == 0 {
		return nil
	}
	if workers > len(cands) {
		workers = len(cands)
	}

	jobs := make(chan job, workers)
	results := make(chan result, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results <- result{index: j.index, verdict: s.Evaluate(ctx, j.candidate)}
			}
		}()
	}

	go func() {
		for i, c := range cands {
			jobs <- job{index: i, candidate: c}
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]strategy.Verdict, len(cands))
	done := 0
	for res := range results {
		out[res.index] = res.verdict
		done++
		r.progress(log, done, len(cands))
	}
	return out
}

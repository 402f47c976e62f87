package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"StockScreener/internal/collector"
	"StockScreener/internal/config"
	"StockScreener/internal/logger"
	"StockScreener/internal/notifier"
	"StockScreener/internal/pipeline"
	"StockScreener/internal/scheduler"
)

func main() {
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	l := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(l)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}

	provider := newProvider(cfg, l)
	l.Info().Str("provider", provider.Name()).Str("preset", cfg.Preset).Msg("stock screener starting")

	batch := collector.NewBatchFetcher(provider, l)
	batch.ChunkSize = cfg.Batch.ChunkSize
	batch.ChunkDelay = cfg.Batch.ChunkDelay
	batch.Workers = cfg.Batch.Workers

	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = pipeline.DefaultConcurrency()
	}
	runner := pipeline.New(provider, batch, pipeline.Options{
		UniverseFiles: cfg.Universe.Files,
		SectorFile:    cfg.SectorPEFile,
		Strategy:      cfg.Thresholds,
		Concurrency:   concurrency,
		Label:         cfg.Output.Label,
		OutputDir:     cfg.Output.Dir,
	}, l)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, l)
	}

	if cfg.Schedule.Cron != "" {
		serve(ctx, cfg, runner, tn, l)
		return
	}

	rep, err := runner.Run(ctx)
	if err != nil {
		if tn != nil {
			_ = tn.SendWithRetry(ctx, notifier.FormatRunError(cfg.Preset, err), 2)
		}
		log.Fatal().Err(err).Msg("screening run failed")
	}
	printSummary(rep)
	if tn != nil {
		if err := tn.SendWithRetry(ctx, notifier.FormatRunSummary(rep, cfg.Preset), 2); err != nil {
			l.Error().Err(err).Msg("send run summary")
		}
	}
}

func newProvider(cfg *config.Config, l zerolog.Logger) collector.Provider {
	var p collector.Provider
	switch cfg.Provider.Name {
	case config.ProviderEODHD:
		p = collector.NewEODHDProvider(cfg.Provider.APIKey,
			collector.WithEODHDBaseURL(cfg.Provider.BaseURL),
			collector.WithEODHDProxy(cfg.Proxy))
	default:
		y := collector.NewYahooProvider(cfg.Proxy)
		if cfg.Provider.BaseURL != "" {
			y.BaseURL = cfg.Provider.BaseURL
		}
		p = y
	}
	return collector.NewResilient(p, collector.ResilienceOptions{
		RatePerSecond: cfg.Provider.RatePerSecond,
		Burst:         cfg.Provider.Burst,
		Timeout:       cfg.Provider.Timeout,
		MaxRetries:    *cfg.Provider.MaxRetries,
		Backoff:       cfg.Provider.Backoff,
		Logger:        l,
	})
}

// serve runs the screen on the cron schedule and answers chat commands until
// a shutdown signal arrives.
func serve(ctx context.Context, cfg *config.Config, runner *pipeline.Runner, tn *notifier.TelegramNotifier, l zerolog.Logger) {
	sched := scheduler.NewScheduler(ctx, runner, tn, cfg.Preset, l)
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		log.Fatal().Err(err).Msg("register cron task")
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	l.Info().Msg("telegram polling started")

	if os.Getenv("RUN_ON_START") == "true" {
		l.Info().Msg("RUN_ON_START enabled, screening now")
		go func() { _, _ = sched.RunNow() }()
	}

	l.Info().Str("cron", cfg.Schedule.Cron).Msg("stock screener is running, press Ctrl+C to stop")
	<-ctx.Done()
	l.Info().Msg("shutdown signal received, stopping")
}

func printSummary(rep *pipeline.Report) {
	fmt.Printf("Total tickers loaded: %d\n", rep.Universe)
	if rep.FetchFailures > 0 {
		fmt.Printf("Fundamentals unavailable: %d\n", rep.FetchFailures)
	}
	if rep.HasMarketPE {
		fmt.Printf("Market-wide average P/E: %.2f\n", rep.MarketPE)
	} else {
		fmt.Println("Market-wide average P/E: unavailable")
	}
	fmt.Printf("Filter diagnostics: %s\n", rep.Diagnostics)
	if rep.NoMatches {
		fmt.Println("No stocks met criteria")
		return
	}
	fmt.Printf("%d stocks met criteria, saved to %s\n", len(rep.Results), rep.OutputPath)
}

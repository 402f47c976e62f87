// Package scheduler triggers screening runs on a cron schedule and from chat
// commands, and reports each run through the notifier.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"StockScreener/internal/notifier"
	"StockScreener/internal/pipeline"
)

// ErrRunInProgress is returned when a run is requested while one is active.
var ErrRunInProgress = errors.New("a screening run is already in progress")

// Runner performs one screening run.
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
}

// Sender delivers a formatted message.
type Sender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron entry and run bookkeeping.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Sender
	Preset   string
	Ctx      context.Context

	log     zerolog.Logger
	mu      sync.Mutex
	running bool
	last    *pipeline.Report
	lastErr error
}

// NewScheduler creates a new Scheduler. Cron specs include a seconds field.
func NewScheduler(ctx context.Context, runner Runner, sender Sender, preset string, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: sender,
		Preset:   preset,
		Ctx:      ctx,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds the screening run on the cron expression expr.
func (s *Scheduler) Register(expr string) error {
	if _, err := s.Cron.AddFunc(expr, s.scheduledRun); err != nil {
		return fmt.Errorf("register screening run %q: %w", expr, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info().Int("entries", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) scheduledRun() {
	if _, err := s.RunNow(); errors.Is(err, ErrRunInProgress) {
		s.log.Warn().Msg("skipping scheduled run, previous run still active")
	}
}

// RunNow executes a screening run, notifies the result and records it as the
// last run.
func (s *Scheduler) RunNow() (*pipeline.Report, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, ErrRunInProgress
	}
	s.running = true
	s.mu.Unlock()

	s.log.Info().Str("preset", s.Preset).Msg("running screen")
	rep, err := s.Runner.Run(s.Ctx)

	s.mu.Lock()
	s.running = false
	s.lastErr = err
	if err == nil {
		s.last = rep
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error().Err(err).Msg("screening run failed")
		s.trySend(notifier.FormatRunError(s.Preset, err))
		return nil, err
	}
	s.trySend(notifier.FormatRunSummary(rep, s.Preset))
	return rep, nil
}

// Running reports whether a run is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Last returns the most recent successful report, if any.
func (s *Scheduler) Last() *pipeline.Report {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(_ context.Context, command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/screen":
		if s.Running() {
			return ErrRunInProgress.Error()
		}
		go func() { _, _ = s.RunNow() }()
		return fmt.Sprintf("Screening started (%s).", s.Preset)
	case "/last":
		s.mu.Lock()
		last, lastErr := s.last, s.lastErr
		s.mu.Unlock()
		if lastErr != nil {
			return notifier.FormatRunError(s.Preset, lastErr)
		}
		if last == nil {
			return "No screening run yet."
		}
		return notifier.FormatRunSummary(last, s.Preset)
	case "/status":
		if s.Running() {
			return "A screening run is in progress."
		}
		return "Idle."
	default:
		return "Commands:\n• /screen: run the screen now\n• /last: last run summary\n• /status: run state"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.Error().Err(err).Msg("send notification")
	}
}

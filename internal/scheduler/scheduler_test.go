package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StockScreener/internal/model"
	"StockScreener/internal/pipeline"
)

type fakeRunner struct {
	rep   *pipeline.Report
	err   error
	block chan struct{}
	mu    sync.Mutex
	runs  int
}

func (f *fakeRunner) Run(ctx context.Context) (*pipeline.Report, error) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.rep, f.err
}

type fakeSender struct {
	mu   sync.Mutex
	msgs []string
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, text)
	return nil
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.msgs...)
}

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		Universe: 3,
		Results:  []model.ScreenResult{{Symbol: "KO", PE: 20, DebtToEquity: 1}},
	}
}

func TestRunNow_NotifiesSummary(t *testing.T) {
	runner := &fakeRunner{rep: sampleReport()}
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), runner, sender, "breakout", zerolog.Nop())

	rep, err := s.RunNow()
	require.NoError(t, err)
	assert.Same(t, runner.rep, rep)
	assert.Same(t, rep, s.Last())

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "KO")
}

func TestRunNow_NotifiesFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("could not find source file")}
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), runner, sender, "breakout", zerolog.Nop())

	_, err := s.RunNow()
	require.Error(t, err)
	assert.Nil(t, s.Last())
	require.Len(t, sender.messages(), 1)
	assert.Contains(t, sender.messages()[0], "failed")
	assert.Contains(t, s.HandleCommand(context.Background(), "/last"), "could not find source file")
}

func TestRunNow_RejectsOverlappingRuns(t *testing.T) {
	runner := &fakeRunner{rep: sampleReport(), block: make(chan struct{})}
	s := NewScheduler(context.Background(), runner, &fakeSender{}, "breakout", zerolog.Nop())

	done := make(chan struct{})
	go func() {
		_, _ = s.RunNow()
		close(done)
	}()
	require.Eventually(t, s.Running, time.Second, time.Millisecond)

	_, err := s.RunNow()
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, ErrRunInProgress.Error(), s.HandleCommand(context.Background(), "/screen"))
	assert.Equal(t, "A screening run is in progress.", s.HandleCommand(context.Background(), "/status"))

	close(runner.block)
	<-done
	assert.False(t, s.Running())
}

func TestHandleCommand(t *testing.T) {
	runner := &fakeRunner{rep: sampleReport()}
	sender := &fakeSender{}
	s := NewScheduler(context.Background(), runner, sender, "watchlist", zerolog.Nop())

	assert.Equal(t, "No screening run yet.", s.HandleCommand(context.Background(), "/last"))
	assert.Contains(t, s.HandleCommand(context.Background(), "/help"), "/screen")
	assert.Equal(t, "Idle.", s.HandleCommand(context.Background(), "/status"))

	assert.Equal(t, "Screening started (watchlist).", s.HandleCommand(context.Background(), " /SCREEN "))
	require.Eventually(t, func() bool { return s.Last() != nil }, time.Second, time.Millisecond)
	assert.Contains(t, s.HandleCommand(context.Background(), "/last"), "KO")
}

func TestRegister(t *testing.T) {
	s := NewScheduler(context.Background(), &fakeRunner{}, nil, "breakout", zerolog.Nop())
	require.NoError(t, s.Register("0 0 18 * * 1-5"))
	assert.Len(t, s.Cron.Entries(), 1)
	assert.Error(t, s.Register("not a cron"))
}

package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/notification/selection"
)

type fakePasses struct {
	due        atomic.Int32
	overdue    atomic.Int32
	dueErr     error
	overdueErr error
	panicDue   bool
	block      chan struct{}
	blockOnce  sync.Once
	started    chan struct{}
}

func (f *fakePasses) RunDuePass(ctx context.Context) (selection.PassResult, error) {
	f.due.Add(1)
	if f.block != nil {
		f.blockOnce.Do(func() { close(f.started) })
		<-f.block
	}
	if f.panicDue {
		panic("boom")
	}
	return selection.PassResult{Pass: selection.PassDue}, f.dueErr
}

func (f *fakePasses) RunOverduePass(ctx context.Context) (selection.PassResult, error) {
	f.overdue.Add(1)
	return selection.PassResult{Pass: selection.PassOverdue}, f.overdueErr
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func testConfig() Config {
	return Config{Hour: 9, Minute: 0, CheckInterval: 5 * time.Millisecond, Location: time.UTC}
}

func TestNextRunTime(t *testing.T) {
	s := New(testConfig(), &fakePasses{}, logger.NewNoOpLogger())

	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"before target", time.Date(2024, 3, 10, 8, 59, 0, 0, time.UTC), time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"at target", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC), time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"after target", time.Date(2024, 3, 10, 17, 30, 0, 0, time.UTC), time.Date(2024, 3, 11, 9, 0, 0, 0, time.UTC)},
		{"month rollover", time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC), time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(s.NextRunTime(tt.now)), "got %s", s.NextRunTime(tt.now))
		})
	}
}

func TestStart_RunsImmediatelyAndIsIdempotent(t *testing.T) {
	passes := &fakePasses{}
	c := &clock{now: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	s := New(testConfig(), passes, logger.NewTestLogger(t), WithClock(c.Now))
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	require.NoError(t, s.Start(ctx))

	assert.Eventually(t, func() bool { return passes.overdue.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Status().IsRunning)

	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx))

	st := s.Status()
	assert.False(t, st.IsRunning)
	require.NotNil(t, st.LastRun)
	assert.Equal(t, int32(1), passes.due.Load())
}

func TestTrigger_FiresOncePerTargetMinute(t *testing.T) {
	passes := &fakePasses{}
	c := &clock{now: time.Date(2024, 3, 10, 8, 59, 0, 0, time.UTC)}
	cfg := testConfig()
	cfg.SkipInitialRun = true
	s := New(cfg, passes, logger.NewNoOpLogger(), WithClock(c.Now))
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	defer s.Stop(ctx)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), passes.due.Load())

	c.Set(time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))
	assert.Eventually(t, func() bool { return passes.due.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Many ticks inside the same minute must not fire again.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), passes.due.Load())

	c.Set(time.Date(2024, 3, 11, 9, 0, 30, 0, time.UTC))
	assert.Eventually(t, func() bool { return passes.due.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestRunNow_RunsBothPassesEvenIfOneFails(t *testing.T) {
	passes := &fakePasses{dueErr: errors.New("settings unavailable")}
	s := New(testConfig(), passes, logger.NewNoOpLogger())

	results, err := s.RunNow(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "due pass")
	require.Len(t, results, 1)
	assert.Equal(t, selection.PassOverdue, results[0].Pass)
	assert.Equal(t, int32(1), passes.overdue.Load())
	assert.False(t, s.Status().IsRunning)
}

func TestRunNow_LogsRetryableFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	passes := &fakePasses{
		dueErr:     apperrors.NewStorageReadFailedError("postgres", errors.New("connection reset")),
		overdueErr: apperrors.NewInvalidSettingsError("maxOverdueReminders: must be >= 1"),
	}
	s := New(testConfig(), passes, logger.NewZapAdapter(zap.New(core)))

	_, err := s.RunNow(context.Background())
	require.Error(t, err)

	entries := logs.FilterMessage("Reminder pass failed").All()
	require.Len(t, entries, 2)
	byPass := map[string]bool{}
	for _, e := range entries {
		byPass[e.ContextMap()["pass"].(string)] = e.ContextMap()["retryable"].(bool)
	}
	assert.True(t, byPass[selection.PassDue])
	assert.False(t, byPass[selection.PassOverdue])
}

func TestRunNow_RecoversPanics(t *testing.T) {
	passes := &fakePasses{panicDue: true}
	s := New(testConfig(), passes, logger.NewNoOpLogger())

	var err error
	assert.NotPanics(t, func() {
		_, err = s.RunNow(context.Background())
	})
	assert.ErrorContains(t, err, "panic")
	assert.Equal(t, int32(1), passes.overdue.Load())
}

func TestStop_WaitsForInFlightPass(t *testing.T) {
	passes := &fakePasses{block: make(chan struct{}), started: make(chan struct{})}
	s := New(testConfig(), passes, logger.NewNoOpLogger())

	require.NoError(t, s.Start(context.Background()))
	<-passes.started

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(short), context.DeadlineExceeded)

	close(passes.block)
	assert.Eventually(t, func() bool { return passes.overdue.Load() == 1 }, time.Second, 5*time.Millisecond)
}

// Package scheduler fires the due and overdue passes once a day at a fixed
// local time, polling a ticker and gating on the target minute.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/common/metrics"
	"payment-reminders/internal/notification/selection"
)

const (
	TriggerStartup  = "startup"
	TriggerSchedule = "schedule"
	TriggerManual   = "manual"
)

// Passes runs one selection sweep each.
type Passes interface {
	RunDuePass(ctx context.Context) (selection.PassResult, error)
	RunOverduePass(ctx context.Context) (selection.PassResult, error)
}

type Config struct {
	Hour           int
	Minute         int
	CheckInterval  time.Duration
	Location       *time.Location
	SkipInitialRun bool
}

// DefaultConfig fires at 09:00 local time, checking once a minute.
func DefaultConfig() Config {
	return Config{
		Hour:          9,
		Minute:        0,
		CheckInterval: time.Minute,
		Location:      time.Local,
	}
}

type Status struct {
	IsRunning bool       `json:"isRunning"`
	NextRun   time.Time  `json:"nextRun"`
	LastRun   *time.Time `json:"lastRun,omitempty"`
}

type Scheduler struct {
	config Config
	passes Passes
	logger logger.Logger
	now    func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastFired string // minute key of the last scheduled fire
	lastRun   *time.Time
}

type Option func(*Scheduler)

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

func New(cfg Config, passes Passes, log logger.Logger, opts ...Option) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	s := &Scheduler{
		config: cfg,
		passes: passes,
		logger: log.WithFields(map[string]interface{}{"component": "scheduler"}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs one pass immediately (unless SkipInitialRun) and then arms the
// daily trigger. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		s.logger.Info("Scheduler already running", nil)
		return nil
	}
	s.isRunning = true
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	metrics.SchedulerRunning.Set(1)

	if !s.config.SkipInitialRun {
		s.launch(loopCtx, TriggerStartup)
	}

	s.wg.Add(1)
	go s.runLoop(loopCtx)

	s.logger.Info("Scheduler started", map[string]interface{}{
		"hour":          s.config.Hour,
		"minute":        s.config.Minute,
		"checkInterval": s.config.CheckInterval.String(),
		"timezone":      s.config.Location.String(),
		"nextRun":       s.NextRunTime(s.now()).Format(time.RFC3339),
	})
	return nil
}

// Stop disarms the trigger and waits, bounded by ctx, for in-flight passes
// to finish. Passes are not cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	metrics.SchedulerRunning.Set(0)
	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped", nil)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs both passes synchronously without touching the trigger
// state. Both passes always run; their errors are joined.
func (s *Scheduler) RunNow(ctx context.Context) ([]selection.PassResult, error) {
	return s.runPasses(ctx, TriggerManual)
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		IsRunning: s.isRunning,
		NextRun:   s.NextRunTime(s.now()),
	}
	if s.lastRun != nil {
		t := *s.lastRun
		st.LastRun = &t
	}
	return st
}

// NextRunTime is today's target if now is before it, otherwise tomorrow's.
func (s *Scheduler) NextRunTime(now time.Time) time.Time {
	local := now.In(s.config.Location)
	target := time.Date(local.Year(), local.Month(), local.Day(), s.config.Hour, s.config.Minute, 0, 0, s.config.Location)
	if !local.Before(target) {
		target = time.Date(local.Year(), local.Month(), local.Day()+1, s.config.Hour, s.config.Minute, 0, 0, s.config.Location)
	}
	return target
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAndTrigger(ctx)
		}
	}
}

// checkAndTrigger fires at most once per target minute.
func (s *Scheduler) checkAndTrigger(ctx context.Context) {
	now := s.now().In(s.config.Location)
	if now.Hour() != s.config.Hour || now.Minute() != s.config.Minute {
		return
	}

	key := now.Format("2006-01-02T15:04")
	s.mu.Lock()
	if s.lastFired == key {
		s.mu.Unlock()
		return
	}
	s.lastFired = key
	s.mu.Unlock()

	s.launch(ctx, TriggerSchedule)
}

// launch runs the passes on their own goroutine, detached from the loop's
// cancellation so Stop lets them finish.
func (s *Scheduler) launch(ctx context.Context, trigger string) {
	passCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.runPasses(passCtx, trigger)
	}()
}

func (s *Scheduler) runPasses(ctx context.Context, trigger string) ([]selection.PassResult, error) {
	started := s.now()
	s.mu.Lock()
	s.lastRun = &started
	s.mu.Unlock()

	s.logger.Info("Running reminder passes", map[string]interface{}{"trigger": trigger})

	var (
		results []selection.PassResult
		errs    []error
	)
	for _, p := range []struct {
		name string
		run  func(context.Context) (selection.PassResult, error)
	}{
		{selection.PassDue, s.passes.RunDuePass},
		{selection.PassOverdue, s.passes.RunOverduePass},
	} {
		res, err := s.runPass(ctx, p.run)
		if err != nil {
			s.logger.Error("Reminder pass failed", map[string]interface{}{
				"pass":      p.name,
				"trigger":   trigger,
				"retryable": apperrors.IsRetryable(err),
				"error":     err,
			})
			metrics.SchedulerPasses.WithLabelValues(p.name, trigger, "error").Inc()
			errs = append(errs, fmt.Errorf("%s pass: %w", p.name, err))
			continue
		}
		metrics.SchedulerPasses.WithLabelValues(p.name, trigger, "ok").Inc()
		results = append(results, res)
	}

	return results, errors.Join(errs...)
}

// runPass converts a panic in one pass into an error so the other pass and
// later ticks still run.
func (s *Scheduler) runPass(ctx context.Context, run func(context.Context) (selection.PassResult, error)) (res selection.PassResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return run(ctx)
}

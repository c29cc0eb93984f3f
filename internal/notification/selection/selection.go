// Package selection decides which orders receive a due or overdue reminder
// on a pass and fans each selected order out to the enabled channels.
package selection

import (
	"context"
	"math"
	"time"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/common/metrics"
	"payment-reminders/internal/common/observability"
	"payment-reminders/internal/common/validation"
	"payment-reminders/internal/models"
	"payment-reminders/internal/store/orders"
	"payment-reminders/internal/store/settings"
)

const (
	PassDue     = "due"
	PassOverdue = "overdue"
)

type Dispatcher interface {
	Send(ctx context.Context, order *models.Order, typ models.NotificationType, ch models.Channel, settings *models.NotificationSettings) (*models.NotificationRecord, error)
}

type Appender interface {
	Append(ctx context.Context, orderID string, record models.NotificationRecord) error
}

// PassResult summarizes one pass.
type PassResult struct {
	Pass       string `json:"pass"`
	Selected   int    `json:"selected"`
	Dispatched int    `json:"dispatched"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
}

type Selector struct {
	orders     orders.Store
	settings   settings.Store
	dispatcher Dispatcher
	log        Appender
	obs        *observability.Observability
	loc        *time.Location
	now        func() time.Time
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

type Option func(*Selector)

func WithClock(now func() time.Time) Option {
	return func(s *Selector) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Selector) { s.loc = loc }
}

func WithObservability(o *observability.Observability) Option {
	return func(s *Selector) { s.obs = o }
}

func New(orderStore orders.Store, settingsStore settings.Store, d Dispatcher, log Appender, lg logger.Logger, opts ...Option) *Selector {
	lg = lg.WithFields(map[string]interface{}{"component": "selection"})
	s := &Selector{
		orders:     orderStore,
		settings:   settingsStore,
		dispatcher: d,
		log:        log,
		loc:        time.Local,
		now:        time.Now,
		logger:     lg,
		errHandler: apperrors.NewErrorHandler(lg),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ==========================
// Predicates
// ==========================

// DaysUntilDue rounds the remaining time up to whole days, so anything due
// later today counts as 1 and anything already past is <= 0.
func DaysUntilDue(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// IsDue reports whether order is within the lead window of its due date.
func IsDue(order *models.Order, now time.Time, leadDays int) bool {
	if !order.HasBalance() || order.DueDate == nil {
		return false
	}
	days := DaysUntilDue(*order.DueDate, now)
	return days > 0 && days <= leadDays
}

func IsOverdue(order *models.Order, now time.Time) bool {
	if !order.HasBalance() || order.DueDate == nil {
		return false
	}
	return order.DueDate.Before(now)
}

// SameDay compares calendar dates in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	return ay == by && am == bm && ad == bd
}

// SentToday reports whether any record of typ, on any channel, is dated
// the same calendar day as now.
func SentToday(log []models.NotificationRecord, typ models.NotificationType, now time.Time, loc *time.Location) bool {
	for _, rec := range log {
		if rec.Type == typ && SameDay(rec.Timestamp, now, loc) {
			return true
		}
	}
	return false
}

// CountOfType counts records of typ regardless of channel or status.
func CountOfType(log []models.NotificationRecord, typ models.NotificationType) int {
	n := 0
	for _, rec := range log {
		if rec.Type == typ {
			n++
		}
	}
	return n
}

// ==========================
// Passes
// ==========================

// RunDuePass sends a due reminder on every enabled channel to each order
// inside the lead window that has not had one today.
func (s *Selector) RunDuePass(ctx context.Context) (PassResult, error) {
	return s.run(ctx, PassDue, func(o *models.Order, cfg *models.NotificationSettings, now time.Time) (bool, []models.Channel) {
		if !IsDue(o, now, cfg.DueReminderDays) {
			return false, nil
		}
		if SentToday(o.NotificationLog, models.TypeDueReminder, now, s.loc) {
			return true, nil
		}
		return true, cfg.EnabledChannels()
	})
}

// RunOverduePass sends an overdue reminder to each overdue order that is
// under the cap and has not had one today. The fan-out is clipped to the
// remaining budget so the cap holds across channels.
func (s *Selector) RunOverduePass(ctx context.Context) (PassResult, error) {
	return s.run(ctx, PassOverdue, func(o *models.Order, cfg *models.NotificationSettings, now time.Time) (bool, []models.Channel) {
		if !IsOverdue(o, now) {
			return false, nil
		}
		count := CountOfType(o.NotificationLog, models.TypeOverdueReminder)
		if count >= cfg.MaxOverdueReminders || SentToday(o.NotificationLog, models.TypeOverdueReminder, now, s.loc) {
			return true, nil
		}
		chans := cfg.EnabledChannels()
		if remaining := cfg.MaxOverdueReminders - count; len(chans) > remaining {
			chans = chans[:remaining]
		}
		return true, chans
	})
}

type planFunc func(o *models.Order, cfg *models.NotificationSettings, now time.Time) (selected bool, channels []models.Channel)

func (s *Selector) run(ctx context.Context, pass string, plan planFunc) (result PassResult, err error) {
	start := time.Now()
	result.Pass = pass
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.SchedulerPassDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds())
		s.obs.RecordPass(ctx, pass, time.Since(start), result.Selected, status)
	}()

	cfg, err := s.loadSettings(ctx)
	if err != nil {
		return result, err
	}
	all, err := s.orders.LoadOrders(ctx)
	if err != nil {
		return result, err
	}

	typ := models.TypeDueReminder
	if pass == PassOverdue {
		typ = models.TypeOverdueReminder
	}

	// "today" is fixed for the whole pass.
	now := s.now()

	for i := range all {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		order := &all[i]

		selected, chans := plan(order, cfg, now)
		if !selected {
			continue
		}
		result.Selected++
		if len(chans) == 0 {
			result.Skipped++
			continue
		}

		for _, ch := range chans {
			s.dispatchOne(ctx, order, typ, ch, cfg, &result)
		}
	}

	s.logger.Info("reminder pass completed", map[string]interface{}{
		"pass":       pass,
		"selected":   result.Selected,
		"dispatched": result.Dispatched,
		"failed":     result.Failed,
		"skipped":    result.Skipped,
	})
	return result, nil
}

func (s *Selector) dispatchOne(ctx context.Context, order *models.Order, typ models.NotificationType, ch models.Channel, cfg *models.NotificationSettings, result *PassResult) {
	fields := map[string]interface{}{
		"orderId": order.ID,
		"type":    string(typ),
		"channel": string(ch),
	}

	rec, err := s.dispatcher.Send(ctx, order, typ, ch, cfg)
	if err != nil {
		s.errHandler.Handle("dispatch", err, fields)
		result.Failed++
		return
	}

	if err := s.log.Append(ctx, order.ID, *rec); err != nil {
		s.errHandler.Handle("append notification", err, fields)
		result.Failed++
		return
	}

	if rec.Failed() {
		result.Failed++
		return
	}
	result.Dispatched++
}

func (s *Selector) loadSettings(ctx context.Context) (*models.NotificationSettings, error) {
	cfg, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidateSettings(cfg).Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

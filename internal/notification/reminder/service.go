// Package reminder exposes the reminder engine to the surrounding service:
// manual sends, retries, statistics, log queries, settings and the
// scheduler handle.
package reminder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/common/validation"
	"payment-reminders/internal/models"
	"payment-reminders/internal/notification/dispatch"
	"payment-reminders/internal/notification/notiflog"
	"payment-reminders/internal/notification/scheduler"
	"payment-reminders/internal/notification/selection"
	"payment-reminders/internal/notification/template"
	"payment-reminders/internal/store/orders"
	"payment-reminders/internal/store/settings"
)

type ServiceDependencies struct {
	Orders     orders.Store
	Settings   settings.Store
	Dispatcher selection.Dispatcher
	Log        *notiflog.Log
	Scheduler  *scheduler.Scheduler
	Logger     logger.Logger
}

type Config struct {
	UpcomingWindowDays int
	Location           *time.Location
	Now                func() time.Time
}

// Stats summarizes outstanding balances and today's activity.
type Stats struct {
	TotalDue           decimal.Decimal `json:"totalDue"`
	TotalOverdue       decimal.Decimal `json:"totalOverdue"`
	RemindersSentToday int             `json:"remindersSentToday"`
	UpcomingReminders  int             `json:"upcomingReminders"`
}

type Service struct {
	config     Config
	orders     orders.Store
	settings   settings.Store
	dispatcher selection.Dispatcher
	log        *notiflog.Log
	scheduler  *scheduler.Scheduler
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewService(deps ServiceDependencies, config Config) *Service {
	if config.UpcomingWindowDays <= 0 {
		config.UpcomingWindowDays = 3
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	lg := deps.Logger.WithFields(map[string]interface{}{"component": "reminder_service"})
	return &Service{
		config:     config,
		orders:     deps.Orders,
		settings:   deps.Settings,
		dispatcher: deps.Dispatcher,
		log:        deps.Log,
		scheduler:  deps.Scheduler,
		logger:     lg,
		errHandler: apperrors.NewErrorHandler(lg),
	}
}

// ==========================
// Scheduler handle
// ==========================

func (s *Service) Start(ctx context.Context) error { return s.scheduler.Start(ctx) }

func (s *Service) Stop(ctx context.Context) error { return s.scheduler.Stop(ctx) }

func (s *Service) Status() scheduler.Status { return s.scheduler.Status() }

func (s *Service) RunNow(ctx context.Context) ([]selection.PassResult, error) {
	return s.scheduler.RunNow(ctx)
}

// ==========================
// Manual send and retry
// ==========================

// SendManualReminder dispatches one reminder regardless of the selection
// rules and appends it to the order's log. The channel must be enabled.
func (s *Service) SendManualReminder(ctx context.Context, orderID string, typ models.NotificationType, ch models.Channel) (*models.NotificationRecord, error) {
	all, err := s.orders.LoadOrders(ctx)
	if err != nil {
		return nil, err
	}
	idx := models.FindOrder(all, orderID)
	if idx < 0 {
		return nil, apperrors.NewOrderNotFoundError(orderID)
	}

	cfg, err := s.settings.LoadSettings(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.dispatcher.Send(ctx, &all[idx], typ, ch, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.log.Append(ctx, orderID, *rec); err != nil {
		return nil, err
	}

	s.logger.Info("manual reminder sent", map[string]interface{}{
		"orderId":        orderID,
		"notificationId": rec.ID,
		"type":           string(typ),
		"channel":        string(ch),
		"status":         string(rec.Status),
	})
	return rec, nil
}

// RetryFailed re-sends the reminder behind a failed record as a new record.
// Records in any status other than failed are not retried.
func (s *Service) RetryFailed(ctx context.Context, notificationID string) (*models.NotificationRecord, error) {
	order, rec, err := s.log.FindFailed(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	return s.SendManualReminder(ctx, order.ID, rec.Type, rec.Channel)
}

// ==========================
// Read side
// ==========================

// GetNotificationStats degrades to zero values when orders cannot be read.
func (s *Service) GetNotificationStats(ctx context.Context) Stats {
	stats := Stats{TotalDue: decimal.Zero, TotalOverdue: decimal.Zero}

	all, err := s.orders.LoadOrders(ctx)
	if err != nil {
		s.errHandler.Handle("notification stats", err, nil)
		return stats
	}

	now := s.config.Now()
	horizon := now.AddDate(0, 0, s.config.UpcomingWindowDays)

	for i := range all {
		o := &all[i]
		if o.HasBalance() && o.DueDate != nil {
			if o.DueDate.After(now) {
				stats.TotalDue = stats.TotalDue.Add(o.TotalOutstanding)
				if !o.DueDate.After(horizon) {
					stats.UpcomingReminders++
				}
			} else {
				stats.TotalOverdue = stats.TotalOverdue.Add(o.TotalOutstanding)
			}
		}

		for _, rec := range o.NotificationLog {
			if selection.SameDay(rec.Timestamp, now, s.config.Location) {
				stats.RemindersSentToday++
			}
		}
	}
	return stats
}

// GetAllNotificationLogs degrades to an empty list when orders cannot be
// read.
func (s *Service) GetAllNotificationLogs(ctx context.Context, filter models.LogFilter) []models.LogEntry {
	entries, err := s.log.Query(ctx, filter)
	if err != nil {
		s.errHandler.Handle("notification logs", err, nil)
		return []models.LogEntry{}
	}
	return entries
}

// ==========================
// Settings
// ==========================

func (s *Service) GetSettings(ctx context.Context) (*models.NotificationSettings, error) {
	return s.settings.LoadSettings(ctx)
}

// UpdateSettings validates and stores settings. Templates referencing
// unknown placeholders are accepted with a warning; those placeholders
// render literally.
func (s *Service) UpdateSettings(ctx context.Context, cfg *models.NotificationSettings) error {
	if err := validation.ValidateSettings(cfg).Err(); err != nil {
		return err
	}

	known := dispatch.Variables()
	for ch, byType := range cfg.Templates {
		for typ, tmpl := range byType {
			unknown := template.Unknown(tmpl.Subject+"\n"+tmpl.Body, known)
			if len(unknown) > 0 {
				s.logger.Warn("template references unknown placeholders", map[string]interface{}{
					"channel":      string(ch),
					"type":         string(typ),
					"placeholders": unknown,
				})
			}
		}
	}

	if err := s.settings.SaveSettings(ctx, cfg); err != nil {
		return err
	}
	s.logger.Info("notification settings updated", map[string]interface{}{
		"dueReminderDays":     cfg.DueReminderDays,
		"maxOverdueReminders": cfg.MaxOverdueReminders,
	})
	return nil
}

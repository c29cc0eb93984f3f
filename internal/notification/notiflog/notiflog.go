// Package notiflog is the append-only notification history kept on each
// order.
package notiflog

import (
	"context"
	"sort"
	"sync"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/common/metrics"
	"payment-reminders/internal/models"
	"payment-reminders/internal/store/orders"
)

// Publisher receives every record after it has been persisted.
type Publisher interface {
	Publish(ctx context.Context, order *models.Order, record models.NotificationRecord) error
}

type Log struct {
	mu        sync.Mutex
	store     orders.Store
	publisher Publisher
	logger    logger.Logger
}

type Option func(*Log)

func WithPublisher(p Publisher) Option {
	return func(l *Log) { l.publisher = p }
}

func New(store orders.Store, log logger.Logger, opts ...Option) *Log {
	l := &Log{
		store:  store,
		logger: log.WithFields(map[string]interface{}{"component": "notification_log"}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append adds record to the order's log. The load/append/save cycle is
// serialized so concurrent appends never lose records; publishing happens
// after the lock is released.
func (l *Log) Append(ctx context.Context, orderID string, record models.NotificationRecord) error {
	l.mu.Lock()

	all, err := l.store.LoadOrders(ctx)
	if err != nil {
		l.mu.Unlock()
		metrics.LogAppendFailures.WithLabelValues(string(apperrors.Code(err))).Inc()
		return err
	}

	idx := models.FindOrder(all, orderID)
	if idx < 0 {
		l.mu.Unlock()
		metrics.LogAppendFailures.WithLabelValues(string(apperrors.ErrCodeOrderNotFound)).Inc()
		return apperrors.NewOrderNotFoundError(orderID)
	}
	all[idx].NotificationLog = append(all[idx].NotificationLog, record)

	if err := l.store.SaveOrders(ctx, all); err != nil {
		l.mu.Unlock()
		metrics.LogAppendFailures.WithLabelValues(string(apperrors.Code(err))).Inc()
		return err
	}
	order := all[idx]
	l.mu.Unlock()

	if l.publisher != nil {
		if err := l.publisher.Publish(ctx, &order, record); err != nil {
			l.logger.Warn("failed to publish notification record", map[string]interface{}{
				"orderId":        orderID,
				"notificationId": record.ID,
				"error":          err,
			})
		}
	}
	return nil
}

// Query returns every record matching filter across all orders, newest
// first.
func (l *Log) Query(ctx context.Context, filter models.LogFilter) ([]models.LogEntry, error) {
	all, err := l.store.LoadOrders(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(all, filter), nil
}

// Filter is Query over an already loaded collection.
func Filter(all []models.Order, filter models.LogFilter) []models.LogEntry {
	entries := []models.LogEntry{}
	for i := range all {
		o := &all[i]
		for _, rec := range o.NotificationLog {
			if !Matches(rec, filter) {
				continue
			}
			entries = append(entries, models.LogEntry{
				NotificationRecord: rec,
				OrderID:            o.ID,
				OrderNumber:        o.OrderNumber,
				CustomerName:       o.Name,
			})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries
}

// Matches applies every non-zero field of filter. Date bounds are inclusive.
func Matches(rec models.NotificationRecord, filter models.LogFilter) bool {
	if filter.DateFrom != nil && rec.Timestamp.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && rec.Timestamp.After(*filter.DateTo) {
		return false
	}
	if filter.Type != "" && rec.Type != filter.Type {
		return false
	}
	if filter.Channel != "" && rec.Channel != filter.Channel {
		return false
	}
	if filter.Status != "" && rec.Status != filter.Status {
		return false
	}
	return true
}

// FindFailed locates a failed record by id and returns a copy of its order.
// Records in any other status are not matched.
func (l *Log) FindFailed(ctx context.Context, notificationID string) (*models.Order, *models.NotificationRecord, error) {
	all, err := l.store.LoadOrders(ctx)
	if err != nil {
		return nil, nil, err
	}
	for i := range all {
		for j := range all[i].NotificationLog {
			rec := all[i].NotificationLog[j]
			if rec.ID == notificationID && rec.Failed() {
				return &all[i], &rec, nil
			}
		}
	}
	return nil, nil, apperrors.NewNotificationNotFoundError(notificationID)
}

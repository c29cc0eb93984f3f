// Package dispatch renders a reminder for one order and channel and hands it
// to the channel's sender. It produces a NotificationRecord but never
// persists it.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/common/metrics"
	"payment-reminders/internal/common/observability"
	"payment-reminders/internal/models"
	"payment-reminders/internal/notification/channels"
	"payment-reminders/internal/notification/template"
)

const failedMessage = "Failed to send notification"

// Template variables available to reminder templates.
const (
	VarCustomerName = "customer_name"
	VarOrderNumber  = "order_number"
	VarOrderID      = "order_id"
	VarAmountDue    = "amount_due"
	VarDueDate      = "due_date"
	VarPaymentLink  = "payment_link"
	VarStoreName    = "store_name"
)

// Variables lists every placeholder the dispatcher fills.
func Variables() []string {
	return []string{VarCustomerName, VarOrderNumber, VarOrderID, VarAmountDue, VarDueDate, VarPaymentLink, VarStoreName}
}

type Config struct {
	StoreName           string
	CurrencySymbol      string
	DateLayout          string
	PaymentLinkTemplate string
	Location            *time.Location
	SendTimeout         time.Duration
}

type Dispatcher struct {
	config  Config
	senders map[models.Channel]channels.Sender
	logger  logger.Logger
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() string
}

type Option func(*Dispatcher)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func WithIDGenerator(fn func() string) Option {
	return func(d *Dispatcher) { d.newID = fn }
}

func WithTracer(t trace.Tracer) Option {
	return func(d *Dispatcher) { d.tracer = t }
}

func New(cfg Config, senders map[models.Channel]channels.Sender, log logger.Logger, opts ...Option) *Dispatcher {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.DateLayout == "" {
		cfg.DateLayout = "1/2/2006"
	}
	d := &Dispatcher{
		config:  cfg,
		senders: senders,
		logger:  log.WithFields(map[string]interface{}{"component": "dispatcher"}),
		tracer:  observability.Tracer(),
		now:     time.Now,
		newID:   func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send renders and delivers one reminder. A disabled or unknown channel
// returns ErrChannelDisabled and no record. Every other problem, including
// transport errors, is reported as a failed record with a nil error.
func (d *Dispatcher) Send(ctx context.Context, order *models.Order, typ models.NotificationType, ch models.Channel, settings *models.NotificationSettings) (*models.NotificationRecord, error) {
	if !typ.Valid() {
		return nil, apperrors.NewInvalidRequestError("unknown notification type: " + string(typ))
	}
	if !ch.Valid() || !settings.ChannelEnabled(ch) {
		return nil, apperrors.NewChannelDisabledError(string(ch))
	}

	ctx, span := d.tracer.Start(ctx, "reminder.dispatch", trace.WithAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("notification.type", string(typ)),
		attribute.String("notification.channel", string(ch)),
	))
	defer span.End()

	record := &models.NotificationRecord{
		ID:        d.newID(),
		Type:      typ,
		Channel:   ch,
		Timestamp: d.now(),
	}

	tmpl, ok := settings.Template(ch, typ)
	if !ok {
		return d.fail(span, record, failedMessage, apperrors.NewTemplateNotFoundError(string(ch), string(typ))), nil
	}

	data := d.TemplateData(order)
	record.Message = template.Render(tmpl.Body, data)
	if ch == models.ChannelEmail {
		record.Subject = template.Render(tmpl.Subject, data)
	}

	record.Recipient = recipient(order, ch)
	if record.Recipient == "" {
		return d.fail(span, record, record.Message, apperrors.NewRecipientMissingError(string(ch), order.ID)), nil
	}

	sender, ok := d.senders[ch]
	if !ok || sender == nil {
		return d.fail(span, record, record.Message, apperrors.NewChannelDisabledError(string(ch))), nil
	}

	sendCtx := ctx
	if d.config.SendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, d.config.SendTimeout)
		defer cancel()
	}

	start := time.Now()
	status, err := sender.Send(sendCtx, channels.Message{
		OrderID: order.ID,
		To:      record.Recipient,
		Subject: record.Subject,
		Body:    record.Message,
	})
	metrics.ReminderSendDuration.WithLabelValues(string(ch)).Observe(time.Since(start).Seconds())

	if err != nil {
		return d.fail(span, record, record.Message, apperrors.NewNotificationSendFailedError(string(ch), err)), nil
	}
	if !ch.SupportsStatus(status) {
		status = models.StatusSent
	}
	record.Status = status

	metrics.RemindersDispatched.WithLabelValues(string(typ), string(ch), string(status)).Inc()
	span.SetAttributes(attribute.String("notification.status", string(status)))
	d.logger.Info("reminder dispatched", map[string]interface{}{
		"orderId":        order.ID,
		"notificationId": record.ID,
		"type":           string(typ),
		"channel":        string(ch),
		"status":         string(status),
		"sender":         sender.Name(),
	})
	return record, nil
}

func (d *Dispatcher) fail(span trace.Span, record *models.NotificationRecord, message string, err *apperrors.StandardError) *models.NotificationRecord {
	record.Status = models.StatusFailed
	record.Message = message
	record.Error = err.Error()

	metrics.RemindersDispatched.WithLabelValues(string(record.Type), string(record.Channel), string(models.StatusFailed)).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, string(err.Code))
	d.logger.Warn("reminder dispatch failed", map[string]interface{}{
		"notificationId": record.ID,
		"type":           string(record.Type),
		"channel":        string(record.Channel),
		"errorCode":      string(err.Code),
		"retryable":      err.Retryable,
		"error":          err.Details,
	})
	return record
}

// TemplateData builds the placeholder values for an order.
func (d *Dispatcher) TemplateData(order *models.Order) map[string]string {
	dueDate := ""
	if order.DueDate != nil {
		dueDate = order.DueDate.In(d.config.Location).Format(d.config.DateLayout)
	}

	data := map[string]string{
		VarCustomerName: order.Name,
		VarOrderNumber:  order.OrderNumber,
		VarOrderID:      order.ID,
		VarAmountDue:    d.config.CurrencySymbol + order.TotalOutstanding.StringFixed(2),
		VarDueDate:      dueDate,
		VarStoreName:    d.config.StoreName,
	}
	data[VarPaymentLink] = template.Render(d.config.PaymentLinkTemplate, data)
	return data
}

func recipient(order *models.Order, ch models.Channel) string {
	switch ch {
	case models.ChannelEmail:
		return order.Email
	case models.ChannelWhatsApp:
		return order.Phone
	}
	return ""
}

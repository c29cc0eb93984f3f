package channels

import (
	"context"

	"payment-reminders/internal/common/logger"
	"payment-reminders/internal/models"
)

// ConsoleSender logs the message instead of delivering it. Used for local
// runs; every message is reported as delivered.
type ConsoleSender struct {
	channel models.Channel
	logger  logger.Logger
}

func NewConsoleSender(channel models.Channel, log logger.Logger) *ConsoleSender {
	return &ConsoleSender{
		channel: channel,
		logger:  log.WithFields(map[string]interface{}{"sender": "console", "channel": string(channel)}),
	}
}

func (s *ConsoleSender) Name() string { return "console" }

func (s *ConsoleSender) Send(ctx context.Context, msg Message) (models.NotificationStatus, error) {
	if err := ctx.Err(); err != nil {
		return models.StatusFailed, err
	}
	s.logger.Info("reminder (console)", map[string]interface{}{
		"orderId": msg.OrderID,
		"to":      msg.To,
		"subject": msg.Subject,
		"body":    msg.Body,
	})
	return models.StatusDelivered, nil
}

// Package channels holds the transports behind each notification channel.
package channels

import (
	"context"

	"payment-reminders/internal/models"
)

// Message is a rendered reminder ready for delivery.
type Message struct {
	OrderID string
	To      string
	Subject string
	Body    string
}

// Sender delivers one message and reports the provider's delivery status.
// A non-nil error means the message was not accepted.
type Sender interface {
	Send(ctx context.Context, msg Message) (models.NotificationStatus, error)
	Name() string
}

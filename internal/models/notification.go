// internal/models/notification.go
package models

import "time"

type NotificationType string

const (
	TypeDueReminder     NotificationType = "due_reminder"
	TypeOverdueReminder NotificationType = "overdue_reminder"
)

func (t NotificationType) Valid() bool {
	return t == TypeDueReminder || t == TypeOverdueReminder
}

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

// AllChannels is the fan-out order used by the selection passes.
func AllChannels() []Channel {
	return []Channel{ChannelEmail, ChannelWhatsApp}
}

func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelWhatsApp
}

type NotificationStatus string

const (
	StatusSent      NotificationStatus = "sent"
	StatusDelivered NotificationStatus = "delivered"
	StatusSeen      NotificationStatus = "seen"
	StatusFailed    NotificationStatus = "failed"
)

// SupportsStatus reports whether a channel can ever report the given status.
// Email providers only confirm acceptance or delivery; read receipts exist
// for messaging only.
func (c Channel) SupportsStatus(s NotificationStatus) bool {
	switch s {
	case StatusSent, StatusDelivered, StatusFailed:
		return c.Valid()
	case StatusSeen:
		return c == ChannelWhatsApp
	}
	return false
}

// NotificationRecord is one dispatch attempt. Records are appended to
// Order.NotificationLog and never modified afterwards.
type NotificationRecord struct {
	ID        string             `json:"id"`
	Type      NotificationType   `json:"type"`
	Channel   Channel            `json:"channel"`
	Status    NotificationStatus `json:"status"`
	Timestamp time.Time          `json:"timestamp"`
	Message   string             `json:"message"`
	Subject   string             `json:"subject,omitempty"`
	Recipient string             `json:"recipient,omitempty"`
	Error     string             `json:"error,omitempty"`
}

func (r NotificationRecord) Failed() bool {
	return r.Status == StatusFailed
}

// LogEntry is a NotificationRecord decorated with the owning order, as
// returned by log queries.
type LogEntry struct {
	NotificationRecord
	OrderID      string `json:"orderId"`
	OrderNumber  string `json:"orderNumber"`
	CustomerName string `json:"customerName"`
}

// LogFilter narrows log queries. Zero values match everything.
type LogFilter struct {
	DateFrom *time.Time         `json:"dateFrom,omitempty"`
	DateTo   *time.Time         `json:"dateTo,omitempty"`
	Type     NotificationType   `json:"type,omitempty"`
	Channel  Channel            `json:"channel,omitempty"`
	Status   NotificationStatus `json:"status,omitempty"`
}

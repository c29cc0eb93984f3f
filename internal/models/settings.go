// internal/models/settings.go
package models

// NotificationSettings controls the reminder passes. It is owned by the
// settings store and is read once at the start of every pass.
type NotificationSettings struct {
	DueReminderDays     int                                              `json:"dueReminderDays" mapstructure:"due_reminder_days"`
	MaxOverdueReminders int                                              `json:"maxOverdueReminders" mapstructure:"max_overdue_reminders"`
	Channels            map[Channel]ChannelSettings                      `json:"channels" mapstructure:"channels"`
	Templates           map[Channel]map[NotificationType]MessageTemplate `json:"templates" mapstructure:"templates"`
}

type ChannelSettings struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

type MessageTemplate struct {
	Subject string `json:"subject,omitempty" mapstructure:"subject"`
	Body    string `json:"body" mapstructure:"body"`
}

// ChannelEnabled is false for unknown channels.
func (s *NotificationSettings) ChannelEnabled(c Channel) bool {
	if s == nil || s.Channels == nil {
		return false
	}
	return s.Channels[c].Enabled
}

// EnabledChannels returns the enabled channels in fan-out order.
func (s *NotificationSettings) EnabledChannels() []Channel {
	var out []Channel
	for _, c := range AllChannels() {
		if s.ChannelEnabled(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s *NotificationSettings) Template(c Channel, t NotificationType) (MessageTemplate, bool) {
	if s == nil || s.Templates == nil {
		return MessageTemplate{}, false
	}
	byType, ok := s.Templates[c]
	if !ok {
		return MessageTemplate{}, false
	}
	tmpl, ok := byType[t]
	return tmpl, ok
}

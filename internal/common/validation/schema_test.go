package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/models"
)

func validSettings() *models.NotificationSettings {
	return &models.NotificationSettings{
		DueReminderDays:     3,
		MaxOverdueReminders: 3,
		Channels: map[models.Channel]models.ChannelSettings{
			models.ChannelEmail:    {Enabled: true},
			models.ChannelWhatsApp: {Enabled: false},
		},
		Templates: map[models.Channel]map[models.NotificationType]models.MessageTemplate{
			models.ChannelEmail: {
				models.TypeDueReminder:     {Subject: "Due {{order_number}}", Body: "Pay {{amount_due}}"},
				models.TypeOverdueReminder: {Subject: "Overdue {{order_number}}", Body: "Pay {{amount_due}} now"},
			},
		},
	}
}

func TestValidateSettings_Valid(t *testing.T) {
	res := ValidateSettings(validSettings())
	assert.True(t, res.Valid, res.GetErrorMessages())
	assert.NoError(t, res.Err())
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *models.NotificationSettings)
		field  string
	}{
		{
			name:   "negative lead days",
			mutate: func(s *models.NotificationSettings) { s.DueReminderDays = -1 },
			field:  "dueReminderDays",
		},
		{
			name:   "zero overdue cap",
			mutate: func(s *models.NotificationSettings) { s.MaxOverdueReminders = 0 },
			field:  "maxOverdueReminders",
		},
		{
			name: "unknown channel",
			mutate: func(s *models.NotificationSettings) {
				s.Channels["sms"] = models.ChannelSettings{Enabled: true}
			},
			field: "channels",
		},
		{
			name: "email template without subject",
			mutate: func(s *models.NotificationSettings) {
				s.Templates[models.ChannelEmail][models.TypeDueReminder] = models.MessageTemplate{Body: "x"}
			},
			field: "templates.email.due_reminder",
		},
		{
			name: "enabled channel without templates",
			mutate: func(s *models.NotificationSettings) {
				s.Channels[models.ChannelWhatsApp] = models.ChannelSettings{Enabled: true}
			},
			field: "templates.whatsapp.due_reminder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)

			res := ValidateSettings(s)
			require.False(t, res.Valid)
			assert.True(t, res.HasErrors(tt.field), res.GetErrorMessages())

			err := res.Err()
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidSettings))
		})
	}
}

func TestValidateSettings_Nil(t *testing.T) {
	res := ValidateSettings(nil)
	assert.False(t, res.Valid)
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payment-reminders/internal/models"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	path := writeConfig(t, `
redis:
  address: localhost:6379
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9, cfg.Scheduler.Hour)
	assert.Equal(t, 0, cfg.Scheduler.Minute)
	assert.Equal(t, 60000, cfg.Scheduler.CheckIntervalMs)
	assert.Equal(t, "file", cfg.Storage.Driver)
	assert.Equal(t, "Your Store", cfg.Notifications.StoreName)
	assert.Equal(t, "https://yourstore.com/pay/{{order_id}}", cfg.Notifications.PaymentLinkTemplate)
	assert.Equal(t, 3, cfg.Stats.UpcomingWindowDays)

	defaults := cfg.Notifications.Defaults
	assert.Equal(t, 3, defaults.DueReminderDays)
	assert.Equal(t, 3, defaults.MaxOverdueReminders)
	assert.True(t, defaults.ChannelEnabled(models.ChannelEmail))
	assert.False(t, defaults.ChannelEnabled(models.ChannelWhatsApp))

	tmpl, ok := defaults.Template(models.ChannelEmail, models.TypeOverdueReminder)
	require.True(t, ok)
	assert.Contains(t, tmpl.Body, "{{payment_link}}")
}

func TestLoadFromFile_ExplicitValues(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  enabled: true
  hour: 14
  minute: 30
  timezone: UTC
redis:
  address: localhost:6379
notifications:
  defaults:
    due_reminder_days: 5
    max_overdue_reminders: 2
    channels:
      email:
        enabled: true
      whatsapp:
        enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, 14, cfg.Scheduler.Hour)
	assert.Equal(t, 30, cfg.Scheduler.Minute)
	assert.Equal(t, 5, cfg.Notifications.Defaults.DueReminderDays)
	assert.Equal(t, 2, cfg.Notifications.Defaults.MaxOverdueReminders)
	assert.True(t, cfg.Notifications.Defaults.ChannelEnabled(models.ChannelWhatsApp))
}

func TestLoadFromFile_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_REDIS_ADDR", "redis.internal:6380")
	path := writeConfig(t, `
redis:
  address: ${TEST_REDIS_ADDR}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Address)
}

func TestLoadFromFile_MidnightSchedule(t *testing.T) {
	path := writeConfig(t, `
scheduler:
  hour: 0
  minute: 0
redis:
  address: localhost:6379
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Scheduler.Hour)
	assert.Equal(t, 0, cfg.Scheduler.Minute)
}

func TestLoadFromFile_UnsetEnvVarIsEmpty(t *testing.T) {
	t.Setenv("TEST_UNSET_REDIS_ADDR", "")
	path := writeConfig(t, `
redis:
  address: ${TEST_UNSET_REDIS_ADDR}
`)

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.address")
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "hour out of range",
			body: "scheduler:\n  hour: 24\nredis:\n  address: x:1\n",
			want: "scheduler.hour",
		},
		{
			name: "unknown storage driver",
			body: "storage:\n  driver: mongo\nredis:\n  address: x:1\n",
			want: "storage.driver",
		},
		{
			name: "postgres without host",
			body: "storage:\n  driver: postgres\nredis:\n  address: x:1\n",
			want: "storage.postgres.host",
		},
		{
			name: "ses without region",
			body: "channels:\n  email:\n    provider: ses\n    from_email: a@b.c\nredis:\n  address: x:1\n",
			want: "integrations.aws.region",
		},
		{
			name: "audit without brokers",
			body: "audit:\n  enabled: true\nredis:\n  address: x:1\n",
			want: "audit.brokers",
		},
		{
			name: "missing redis",
			body: "app:\n  name: x\n",
			want: "redis.address",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSchedulerConfig_Location(t *testing.T) {
	loc, err := SchedulerConfig{Timezone: "Europe/Berlin"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	_, err = SchedulerConfig{Timezone: "Mars/Olympus"}.Location()
	assert.Error(t, err)
}

// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"payment-reminders/internal/models"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	// Enable ENV override like SCHEDULER_HOUR
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	// base config
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// environment overlay, optional
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	setViperDefaults(v)
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads the first .env found walking up from the working
// directory, so tests in nested packages pick up the project file.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// setViperDefaults registers defaults whose zero value is also a valid
// setting, so an explicit 0 in the file is kept.
func setViperDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.hour", 9)
	v.SetDefault("scheduler.minute", 0)
}

// expandEnvVars resolves ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			// unset variables expand to empty so required checks still fire
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets that are conventionally provided through
// the environment under their vendor names.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Integrations.Twilio.AccountSID == "" {
		if val := os.Getenv("TWILIO_ACCOUNT_SID"); val != "" {
			cfg.Integrations.Twilio.AccountSID = val
		}
	}
	if cfg.Integrations.Twilio.AuthToken == "" {
		if val := os.Getenv("TWILIO_AUTH_TOKEN"); val != "" {
			cfg.Integrations.Twilio.AuthToken = val
		}
	}
	if cfg.Integrations.AWS.Region == "" {
		if val := os.Getenv("AWS_REGION"); val != "" {
			cfg.Integrations.AWS.Region = val
		}
	}
	if cfg.Storage.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Storage.Postgres.User = val
		}
	}
	if cfg.Storage.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Storage.Postgres.Password = val
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "payment-reminders"
	}
	if cfg.HTTP.Address == "" {
		cfg.HTTP.Address = ":8080"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Scheduler polling defaults to once a minute; hour and minute defaults
	// are registered on viper.
	if cfg.Scheduler.CheckIntervalMs == 0 {
		cfg.Scheduler.CheckIntervalMs = 60000
	}

	// Storage defaults
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "file"
	}
	if cfg.Storage.File.OrdersPath == "" {
		cfg.Storage.File.OrdersPath = "data/orders.json"
	}
	if cfg.Storage.Postgres.Port == 0 {
		cfg.Storage.Postgres.Port = 5432
	}
	if cfg.Storage.Postgres.MaxConnections == 0 {
		cfg.Storage.Postgres.MaxConnections = 10
	}
	if cfg.Storage.Postgres.MaxIdle == 0 {
		cfg.Storage.Postgres.MaxIdle = 2
	}
	if cfg.Storage.Postgres.SSLMode == "" {
		cfg.Storage.Postgres.SSLMode = "disable"
	}

	if cfg.Redis.SettingsKey == "" {
		cfg.Redis.SettingsKey = "reminders:settings"
	}

	// Rendering defaults
	if cfg.Notifications.StoreName == "" {
		cfg.Notifications.StoreName = "Your Store"
	}
	if cfg.Notifications.CurrencySymbol == "" {
		cfg.Notifications.CurrencySymbol = "$"
	}
	if cfg.Notifications.DateLayout == "" {
		cfg.Notifications.DateLayout = "1/2/2006"
	}
	if cfg.Notifications.PaymentLinkTemplate == "" {
		cfg.Notifications.PaymentLinkTemplate = "https://yourstore.com/pay/{{order_id}}"
	}
	if cfg.Notifications.SendTimeoutMs == 0 {
		cfg.Notifications.SendTimeoutMs = 10000
	}
	applySettingsDefaults(&cfg.Notifications.Defaults)

	if cfg.Channels.Email.Provider == "" {
		cfg.Channels.Email.Provider = "console"
	}
	if cfg.Channels.WhatsApp.Provider == "" {
		cfg.Channels.WhatsApp.Provider = "console"
	}

	if cfg.Audit.Topic == "" {
		cfg.Audit.Topic = "notification-log"
	}

	if cfg.Stats.UpcomingWindowDays == 0 {
		cfg.Stats.UpcomingWindowDays = 3
	}
}

// applySettingsDefaults mirrors the stock notification settings shipped with
// the service: 3-day lead, 3 overdue reminders, email on, WhatsApp off.
func applySettingsDefaults(s *models.NotificationSettings) {
	if s.DueReminderDays == 0 && s.MaxOverdueReminders == 0 && len(s.Channels) == 0 {
		s.DueReminderDays = 3
	}
	if s.MaxOverdueReminders == 0 {
		s.MaxOverdueReminders = 3
	}
	if len(s.Channels) == 0 {
		s.Channels = map[models.Channel]models.ChannelSettings{
			models.ChannelEmail:    {Enabled: true},
			models.ChannelWhatsApp: {Enabled: false},
		}
	}
	if len(s.Templates) == 0 {
		s.Templates = DefaultTemplates()
	}
}

// DefaultTemplates returns the stock reminder wording.
func DefaultTemplates() map[models.Channel]map[models.NotificationType]models.MessageTemplate {
	return map[models.Channel]map[models.NotificationType]models.MessageTemplate{
		models.ChannelEmail: {
			models.TypeDueReminder: {
				Subject: "Payment reminder for order {{order_number}}",
				Body:    "Hi {{customer_name}},\n\nThis is a friendly reminder that {{amount_due}} for order {{order_number}} is due on {{due_date}}.\n\nPay now: {{payment_link}}\n\n{{store_name}}",
			},
			models.TypeOverdueReminder: {
				Subject: "Overdue payment for order {{order_number}}",
				Body:    "Hi {{customer_name}},\n\nYour payment of {{amount_due}} for order {{order_number}} was due on {{due_date}} and is now overdue.\n\nPlease pay here: {{payment_link}}\n\n{{store_name}}",
			},
		},
		models.ChannelWhatsApp: {
			models.TypeDueReminder: {
				Body: "Hi {{customer_name}}, {{amount_due}} for order {{order_number}} is due on {{due_date}}. Pay: {{payment_link}}",
			},
			models.TypeOverdueReminder: {
				Body: "Hi {{customer_name}}, your payment of {{amount_due}} for order {{order_number}} is overdue since {{due_date}}. Pay: {{payment_link}}",
			},
		},
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Scheduler.Hour < 0 || cfg.Scheduler.Hour > 23 {
		return fmt.Errorf("scheduler.hour must be between 0 and 23")
	}
	if cfg.Scheduler.Minute < 0 || cfg.Scheduler.Minute > 59 {
		return fmt.Errorf("scheduler.minute must be between 0 and 59")
	}
	if _, err := cfg.Scheduler.Location(); err != nil {
		return err
	}

	switch cfg.Storage.Driver {
	case "file":
		if cfg.Storage.File.OrdersPath == "" {
			return fmt.Errorf("storage.file.orders_path is required")
		}
	case "postgres":
		if cfg.Storage.Postgres.Host == "" {
			return fmt.Errorf("storage.postgres.host is required")
		}
		if cfg.Storage.Postgres.Database == "" {
			return fmt.Errorf("storage.postgres.database is required")
		}
		if cfg.Storage.Postgres.User == "" {
			return fmt.Errorf("storage.postgres.user is required")
		}
	default:
		return fmt.Errorf("storage.driver must be postgres or file, got %q", cfg.Storage.Driver)
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required")
	}

	switch cfg.Channels.Email.Provider {
	case "console":
	case "ses":
		if cfg.Integrations.AWS.Region == "" {
			return fmt.Errorf("integrations.aws.region is required for the ses email provider")
		}
		if cfg.Channels.Email.FromEmail == "" {
			return fmt.Errorf("channels.email.from_email is required for the ses email provider")
		}
	default:
		return fmt.Errorf("channels.email.provider must be ses or console, got %q", cfg.Channels.Email.Provider)
	}

	switch cfg.Channels.WhatsApp.Provider {
	case "console":
	case "twilio":
		if cfg.Integrations.Twilio.AccountSID == "" || cfg.Integrations.Twilio.AuthToken == "" {
			return fmt.Errorf("integrations.twilio credentials are required for the twilio provider")
		}
		if cfg.Channels.WhatsApp.FromNumber == "" {
			return fmt.Errorf("channels.whatsapp.from_number is required for the twilio provider")
		}
	case "sns":
		if cfg.Integrations.AWS.Region == "" {
			return fmt.Errorf("integrations.aws.region is required for the sns provider")
		}
	default:
		return fmt.Errorf("channels.whatsapp.provider must be twilio, sns or console, got %q", cfg.Channels.WhatsApp.Provider)
	}

	if cfg.Audit.Enabled && len(cfg.Audit.Brokers) == 0 {
		return fmt.Errorf("audit.brokers is required when audit is enabled")
	}
	if cfg.Tracing.Enabled && cfg.Tracing.CollectorEndpoint == "" {
		return fmt.Errorf("tracing.collector_endpoint is required when tracing is enabled")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

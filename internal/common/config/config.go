// internal/common/config/config.go
package config

import (
	"fmt"
	"time"

	"payment-reminders/internal/models"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	HTTP          HTTPConfig         `mapstructure:"http"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Scheduler     SchedulerConfig    `mapstructure:"scheduler"`
	Storage       StorageConfig      `mapstructure:"storage"`
	Redis         RedisConfig        `mapstructure:"redis"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Channels      ChannelsConfig     `mapstructure:"channels"`
	Integrations  IntegrationConfig  `mapstructure:"integrations"`
	Audit         AuditConfig        `mapstructure:"audit"`
	Tracing       TracingConfig      `mapstructure:"tracing"`
	Stats         StatsConfig        `mapstructure:"stats"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// SchedulerConfig controls the daily trigger. Hour and Minute are evaluated
// in Timezone; CheckInterval is the polling granularity.
type SchedulerConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Hour            int    `mapstructure:"hour"`
	Minute          int    `mapstructure:"minute"`
	CheckIntervalMs int    `mapstructure:"check_interval"` // milliseconds
	Timezone        string `mapstructure:"timezone"`
	SkipInitialRun  bool   `mapstructure:"skip_initial_run"`
}

// Location resolves Timezone, falling back to the process local zone.
func (s SchedulerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" || s.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return loc, nil
}

type StorageConfig struct {
	Driver   string         `mapstructure:"driver"` // "postgres" or "file"
	Postgres PostgresConfig `mapstructure:"postgres"`
	File     FileConfig     `mapstructure:"file"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
	Migrate        bool   `mapstructure:"migrate"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GetURL returns the URL form used by golang-migrate.
func (p PostgresConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type FileConfig struct {
	OrdersPath string `mapstructure:"orders_path"`
}

type RedisConfig struct {
	Address     string `mapstructure:"address"`
	Password    string `mapstructure:"password"`
	DB          int    `mapstructure:"db"`
	SettingsKey string `mapstructure:"settings_key"`
}

// NotificationConfig holds the rendering inputs and the settings used to
// seed the settings store on first start.
type NotificationConfig struct {
	StoreName           string                      `mapstructure:"store_name"`
	CurrencySymbol      string                      `mapstructure:"currency_symbol"`
	DateLayout          string                      `mapstructure:"date_layout"`
	PaymentLinkTemplate string                      `mapstructure:"payment_link_template"`
	SendTimeoutMs       int                         `mapstructure:"send_timeout"` // milliseconds
	Defaults            models.NotificationSettings `mapstructure:"defaults"`
}

// ChannelsConfig selects the transport behind each channel.
type ChannelsConfig struct {
	Email struct {
		Provider  string `mapstructure:"provider"` // "ses" or "console"
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	WhatsApp struct {
		Provider   string `mapstructure:"provider"` // "twilio", "sns" or "console"
		FromNumber string `mapstructure:"from_number"`
	} `mapstructure:"whatsapp"`
}

// IntegrationConfig holds credentials for the transports.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			SenderID string `mapstructure:"sender_id"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`

	Twilio struct {
		AccountSID string `mapstructure:"account_sid"`
		AuthToken  string `mapstructure:"auth_token"`
	} `mapstructure:"twilio"`
}

// AuditConfig enables publishing of appended records to Kafka.
type AuditConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type StatsConfig struct {
	UpcomingWindowDays int `mapstructure:"upcoming_window_days"`
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"resort/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Database      DatabaseConfig      `yaml:"database"`
	Redis         RedisConfig         `yaml:"redis"`
	Backup        BackupConfig        `yaml:"backup"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
	Logging       LoggingConfig       `yaml:"logging"`
	API           APIConfig           `yaml:"api"`
	Booking       BookingConfig       `yaml:"booking"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Exports       ExportConfig        `yaml:"exports"`
	Seed          SeedConfig          `yaml:"seed"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms"`
	MaxOpenConns  int    `yaml:"max_open_conns"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type BackupConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Schedule      string `yaml:"schedule"` // cron expression
	RetentionDays int    `yaml:"retention_days"`
	StoragePath   string `yaml:"storage_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
	CORS      APICORSConfig      `yaml:"cors"`
}

type APIHTTPConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type APIAuthConfig struct {
	Enabled      bool           `yaml:"enabled"`
	HeaderAPIKey string         `yaml:"header_api_key"`
	HeaderExtra  string         `yaml:"header_extra"`
	APIKeys      []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Extra       string   `yaml:"extra"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type APICORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type BookingConfig struct {
	MaxBookingDays        int           `yaml:"max_booking_days"`
	PendingHoldTTL        time.Duration `yaml:"pending_hold_ttl"`
	HoldSweepSchedule     string        `yaml:"hold_sweep_schedule"`
	RateLimitRequests     int           `yaml:"rate_limit_per_hour"`
	RateLimitWindow       time.Duration `yaml:"rate_limit_window"`
	Timezone              string        `yaml:"timezone"`
	UnavailableWindowDays int           `yaml:"unavailable_window_days"`
}

// Location resolves Timezone; Validate guarantees it loads.
func (b BookingConfig) Location() *time.Location {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type NotificationsConfig struct {
	Enabled          bool           `yaml:"enabled"`
	ReminderSchedule string         `yaml:"reminder_schedule"`
	PollInterval     time.Duration  `yaml:"poll_interval"`
	BatchSize        int            `yaml:"batch_size"`
	Retry            RetryConfig    `yaml:"retry"`
	SMTP             SMTPConfig     `yaml:"smtp"`
	Telegram         TelegramConfig `yaml:"telegram"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Factor     float64       `yaml:"factor"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

type TelegramConfig struct {
	BotToken    string `yaml:"bot_token"`
	StaffChatID int64  `yaml:"staff_chat_id"`
}

// ExportConfig controls the scheduled schedule export. An empty Schedule disables it.
type ExportConfig struct {
	Path      string `yaml:"path"`
	Schedule  string `yaml:"schedule"`
	AheadDays int    `yaml:"ahead_days"`
}

type SeedConfig struct {
	Accommodations []models.Accommodation  `yaml:"accommodations"`
	Pricing        []models.PricingSetting `yaml:"pricing"`
	Users          []models.User           `yaml:"users"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}

	if _, err := time.LoadLocation(c.Booking.Timezone); err != nil {
		return fmt.Errorf("invalid booking timezone %q: %w", c.Booking.Timezone, err)
	}

	if c.Booking.PendingHoldTTL < 0 {
		return errors.New("booking pending_hold_ttl must not be negative")
	}

	if c.API.Auth.Enabled && len(c.API.Auth.APIKeys) == 0 {
		return errors.New("api auth is enabled but no api keys are configured")
	}

	if c.Notifications.Enabled && c.Notifications.SMTP.Host != "" && c.Notifications.SMTP.From == "" {
		return errors.New("notifications smtp from address is required")
	}

	if err := ValidateAccommodations(c.Seed.Accommodations); err != nil {
		return err
	}

	return ValidatePricing(c.Seed.Pricing)
}

func ValidateAccommodations(items []models.Accommodation) error {
	names := make(map[string]bool)
	for _, a := range items {
		if a.Name == "" {
			return errors.New("accommodation name is required")
		}
		if names[a.Name] {
			return fmt.Errorf("duplicate accommodation name: %s", a.Name)
		}
		names[a.Name] = true

		if !a.Type.Valid() {
			return fmt.Errorf("accommodation '%s' has invalid type %q", a.Name, a.Type)
		}
		if a.Type == models.TypeCottage && a.SupportsWholeDay {
			return fmt.Errorf("cottage '%s' cannot support whole_day", a.Name)
		}
		if a.Capacity <= 0 {
			return fmt.Errorf("accommodation '%s' must have positive capacity", a.Name)
		}
	}
	return nil
}

func ValidatePricing(items []models.PricingSetting) error {
	for _, p := range items {
		if p.Category == "" || p.Type == "" {
			return errors.New("pricing entries need category and type")
		}
		if p.Price < 0 {
			return fmt.Errorf("pricing %s/%s has negative price", p.Category, p.Type)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if c.API.HTTP.ReadTimeout == 0 {
		c.API.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.API.HTTP.WriteTimeout == 0 {
		c.API.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderExtra == "" {
		c.API.Auth.HeaderExtra = "x-api-extra"
	}

	if c.Database.BusyTimeoutMS == 0 {
		c.Database.BusyTimeoutMS = 5000
	}

	// Booking defaults
	if c.Booking.MaxBookingDays == 0 {
		c.Booking.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if c.Booking.PendingHoldTTL == 0 {
		c.Booking.PendingHoldTTL = models.DefaultPendingHoldHours * time.Hour
	}
	if c.Booking.HoldSweepSchedule == "" {
		c.Booking.HoldSweepSchedule = "@every 15m"
	}
	if c.Booking.RateLimitRequests == 0 {
		c.Booking.RateLimitRequests = 10
	}
	if c.Booking.RateLimitWindow == 0 {
		c.Booking.RateLimitWindow = time.Hour
	}
	if c.Booking.Timezone == "" {
		c.Booking.Timezone = "UTC"
	}
	if c.Booking.UnavailableWindowDays == 0 {
		c.Booking.UnavailableWindowDays = models.DefaultUnavailableWindowDays
	}

	if c.Backup.Schedule == "" {
		c.Backup.Schedule = "@daily"
	}

	// Notification defaults
	if c.Notifications.ReminderSchedule == "" {
		c.Notifications.ReminderSchedule = "0 9 * * *"
	}
	if c.Notifications.PollInterval == 0 {
		c.Notifications.PollInterval = 10 * time.Second
	}
	if c.Notifications.BatchSize == 0 {
		c.Notifications.BatchSize = 20
	}
	if c.Notifications.Retry.MaxRetries == 0 {
		c.Notifications.Retry.MaxRetries = 5
	}
	if c.Notifications.Retry.BaseDelay == 0 {
		c.Notifications.Retry.BaseDelay = 2 * time.Second
	}
	if c.Notifications.Retry.MaxDelay == 0 {
		c.Notifications.Retry.MaxDelay = 5 * time.Minute
	}
	if c.Notifications.Retry.Factor == 0 {
		c.Notifications.Retry.Factor = 2
	}
	if c.Notifications.SMTP.Port == 0 {
		c.Notifications.SMTP.Port = 587
	}

	if c.Exports.Path == "" {
		c.Exports.Path = "exports"
	}
	if c.Exports.AheadDays == 0 {
		c.Exports.AheadDays = 30
	}
}

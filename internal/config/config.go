package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alpakasoelde/dashboard-api/pkg/utils"
)

// receiverSeparator separates addresses in RECEIVER_EMAIL_ADDRESSES
const receiverSeparator = ";"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Email    EmailConfig    `mapstructure:"email"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Messages MessagesConfig `mapstructure:"messages"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Logger   LoggerConfig   `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  string        `mapstructure:"allowed_origins"`
	Version         string        `mapstructure:"version"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// EmailConfig holds notification email configuration
type EmailConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	SenderAddress string        `mapstructure:"sender_address"`
	Receivers     string        `mapstructure:"receivers"` // semicolon separated
	Subject       string        `mapstructure:"subject"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    int           `mapstructure:"max_retries"`
}

// ReceiverAddresses returns the configured receivers as a list
func (e EmailConfig) ReceiverAddresses() []string {
	return utils.SplitList(e.Receivers, receiverSeparator)
}

// CacheConfig holds Redis configuration for idempotent requests
type CacheConfig struct {
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`
	KeyPrefix      string        `mapstructure:"key_prefix"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// MessagesConfig holds contact message configuration
type MessagesConfig struct {
	OldMessageAge time.Duration `mapstructure:"old_message_age"`
}

// StorageConfig holds alpaka image configuration
type StorageConfig struct {
	ImageDir    string        `mapstructure:"image_dir"`
	SigningKey  string        `mapstructure:"signing_key"`
	URLLifetime time.Duration `mapstructure:"url_lifetime"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables.
// A missing file is tolerated when configPath is empty.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", "*")
	v.SetDefault("server.version", "dev")

	// Database defaults
	v.SetDefault("database.path", "data/dashboard.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Email defaults
	v.SetDefault("email.base_url", "https://api.sendgrid.com")
	v.SetDefault("email.subject", "Neue Kontaktanfrage über alpakasoelde.at")
	v.SetDefault("email.timeout", 30*time.Second)
	v.SetDefault("email.max_retries", 3)

	// Cache defaults
	v.SetDefault("cache.key_prefix", "idempotency:")
	v.SetDefault("cache.idempotency_ttl", 24*time.Hour)

	// Messages defaults
	v.SetDefault("messages.old_message_age", 180*24*time.Hour)

	// Storage defaults
	v.SetDefault("storage.image_dir", "data/images")
	v.SetDefault("storage.url_lifetime", 30*time.Minute)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"database.path":        "STORAGE_PATH",
		"email.api_key":        "SENDGRID_API_KEY",
		"email.sender_address": "EMAIL_SENDER_ADDRESS",
		"email.receivers":      "RECEIVER_EMAIL_ADDRESSES",
		"cache.redis_addr":     "REDIS_ADDR",
		"cache.redis_password": "REDIS_PASSWORD",
		"storage.image_dir":    "IMAGE_STORAGE_PATH",
		"storage.signing_key":  "IMAGE_SIGNING_KEY",
		"logger.level":         "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}

	if strings.TrimSpace(c.Database.Path) == "" {
		errs = append(errs, errors.New("database.path is required"))
	}

	if c.Email.SenderAddress != "" {
		if err := utils.ValidateEmail(c.Email.SenderAddress); err != nil {
			errs = append(errs, fmt.Errorf("email.sender_address: %w", err))
		}
	} else if c.Email.APIKey != "" {
		errs = append(errs, errors.New("email.sender_address is required when email.api_key is set"))
	}

	for _, addr := range c.Email.ReceiverAddresses() {
		if err := utils.ValidateEmail(addr); err != nil {
			errs = append(errs, fmt.Errorf("email.receivers %q: %w", addr, err))
		}
	}

	if c.Cache.IdempotencyTTL <= 0 {
		errs = append(errs, errors.New("cache.idempotency_ttl must be positive"))
	}

	if c.Messages.OldMessageAge <= 0 {
		errs = append(errs, errors.New("messages.old_message_age must be positive"))
	}

	if strings.TrimSpace(c.Storage.ImageDir) == "" {
		errs = append(errs, errors.New("storage.image_dir is required"))
	}

	if c.Storage.URLLifetime <= 0 {
		errs = append(errs, errors.New("storage.url_lifetime must be positive"))
	}

	return errors.Join(errs...)
}

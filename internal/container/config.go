// Package container provides dependency injection and lifecycle management
// for the dashboard API following Clean Architecture principles.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	// Database configuration
	Database DatabaseConfig

	// Email notification configuration
	Email EmailConfig

	// Idempotency cache configuration
	Cache CacheConfig

	// Contact message configuration
	Messages MessagesConfig

	// Alpaka image storage configuration
	Storage StorageConfig

	// Server configuration
	Server ServerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	// MaxOpenConns is the maximum number of open connections
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections
	MaxIdleConns int

	// ConnMaxLifetime is the maximum connection lifetime
	ConnMaxLifetime time.Duration
}

// EmailConfig holds SendGrid settings.
// An empty APIKey switches to a sender that only logs.
type EmailConfig struct {
	APIKey            string
	BaseURL           string
	SenderAddress     string
	ReceiverAddresses []string
	Subject           string
	Timeout           time.Duration
	MaxRetries        int
}

// CacheConfig holds Redis settings for Idempotency-Key replay.
// An empty RedisAddr disables the cache.
type CacheConfig struct {
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	KeyPrefix      string
	IdempotencyTTL time.Duration
}

// MessagesConfig holds contact message settings.
type MessagesConfig struct {
	// OldMessageAge is the age after which a message counts as old
	OldMessageAge time.Duration
}

// StorageConfig holds alpaka image settings.
// Image links are signed with SigningKey and expire after URLLifetime.
type StorageConfig struct {
	ImageDir    string
	SigningKey  string
	URLLifetime time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host to bind to
	Host string

	// Port to listen on
	Port int

	// ReadTimeout for HTTP server
	ReadTimeout time.Duration

	// WriteTimeout for HTTP server
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration

	// AllowedOrigins is sent as Access-Control-Allow-Origin
	AllowedOrigins string

	// Version is reported by /health
	Version string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/dashboard.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Email: EmailConfig{
			Subject:    "Neue Kontaktanfrage über alpakasoelde.at",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			KeyPrefix:      "idempotency:",
			IdempotencyTTL: 24 * time.Hour,
		},
		Messages: MessagesConfig{
			OldMessageAge: 180 * 24 * time.Hour,
		},
		Storage: StorageConfig{
			ImageDir:    "data/images",
			URLLifetime: 30 * time.Minute,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  "*",
			Version:         "dev",
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Email.APIKey != "" && c.Email.SenderAddress == "" {
		return fmt.Errorf("email.sender_address is required when email.api_key is set")
	}

	if c.Cache.RedisAddr != "" && c.Cache.IdempotencyTTL <= 0 {
		return fmt.Errorf("cache.idempotency_ttl must be positive")
	}

	if c.Messages.OldMessageAge <= 0 {
		return fmt.Errorf("messages.old_message_age must be positive")
	}

	if c.Storage.ImageDir == "" {
		return fmt.Errorf("storage.image_dir is required")
	}

	if c.Storage.URLLifetime <= 0 {
		return fmt.Errorf("storage.url_lifetime must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	return nil
}

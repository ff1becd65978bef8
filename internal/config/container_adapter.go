package config

import (
	"github.com/alpakasoelde/dashboard-api/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
		},
		Email: container.EmailConfig{
			APIKey:            c.Email.APIKey,
			BaseURL:           c.Email.BaseURL,
			SenderAddress:     c.Email.SenderAddress,
			ReceiverAddresses: c.Email.ReceiverAddresses(),
			Subject:           c.Email.Subject,
			Timeout:           c.Email.Timeout,
			MaxRetries:        c.Email.MaxRetries,
		},
		Cache: container.CacheConfig{
			RedisAddr:      c.Cache.RedisAddr,
			RedisPassword:  c.Cache.RedisPassword,
			RedisDB:        c.Cache.RedisDB,
			KeyPrefix:      c.Cache.KeyPrefix,
			IdempotencyTTL: c.Cache.IdempotencyTTL,
		},
		Messages: container.MessagesConfig{
			OldMessageAge: c.Messages.OldMessageAge,
		},
		Storage: container.StorageConfig{
			ImageDir:    c.Storage.ImageDir,
			SigningKey:  c.Storage.SigningKey,
			URLLifetime: c.Storage.URLLifetime,
		},
		Server: container.ServerConfig{
			Host:            c.Server.Host,
			Port:            c.Server.Port,
			ReadTimeout:     c.Server.ReadTimeout,
			WriteTimeout:    c.Server.WriteTimeout,
			ShutdownTimeout: c.Server.ShutdownTimeout,
			AllowedOrigins:  c.Server.AllowedOrigins,
			Version:         c.Server.Version,
		},
	}
}

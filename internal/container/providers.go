package container

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	"github.com/alpakasoelde/dashboard-api/internal/application/service"
	"github.com/alpakasoelde/dashboard-api/internal/infrastructure/cache"
	"github.com/alpakasoelde/dashboard-api/internal/infrastructure/external/sendgrid"
	"github.com/alpakasoelde/dashboard-api/internal/infrastructure/metrics"
	"github.com/alpakasoelde/dashboard-api/internal/infrastructure/persistence/repository"
	"github.com/alpakasoelde/dashboard-api/internal/infrastructure/persistence/sqlite"
	"github.com/alpakasoelde/dashboard-api/internal/infrastructure/storage"
	apihttp "github.com/alpakasoelde/dashboard-api/internal/interfaces/http"
	"github.com/alpakasoelde/dashboard-api/internal/voucher"
	"github.com/alpakasoelde/dashboard-api/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// CacheBundle holds the idempotency store and the Redis client behind it, if any.
type CacheBundle struct {
	Client *goredis.Client
	Store  port.IdempotencyStore
}

// StorageBundle holds the image store and the signer for image links.
type StorageBundle struct {
	Images port.ImageStore
	Signer port.ImageURLSigner
}

// ServiceDeps holds dependencies for creating services.
type ServiceDeps struct {
	Repos       *RepositoryBundle
	TxManager   port.TransactionManager
	EmailSender port.EmailSender
	Storage     *StorageBundle
	Metrics     port.Metrics
	EmailCfg    *EmailConfig
	MessagesCfg *MessagesConfig
	StorageCfg  *StorageConfig
	Logger      *zap.Logger
}

// ProvideDatabase opens the SQLite store and applies the embedded migrations.
// Returns DatabaseBundle containing sql.DB and TransactionManager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(database.Migrations()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, txManager port.TransactionManager, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if txManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Voucher: repository.NewVoucherRepository(sqlDB, logger),
		Message: repository.NewMessageRepository(sqlDB, logger),
		Alpaka:  repository.NewAlpakaRepository(sqlDB, logger),
		Event:   repository.NewEventRepository(sqlDB, txManager, logger),
	}, nil
}

// ProvideImageStorage creates the local image store and the link signer.
// Without a signing key a random one is generated, so links do not survive a restart.
func ProvideImageStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	key := []byte(cfg.SigningKey)
	if len(key) == 0 {
		logger.Warn("No image signing key configured, using a random key")
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate image signing key: %w", err)
		}
	}

	signer, err := storage.NewJWTImageSigner(key, apihttp.AlpakaImagesURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create image signer: %w", err)
	}

	logger.Info("Image storage ready", zap.String("dir", cfg.ImageDir))
	return &StorageBundle{
		Images: storage.NewLocalImageStore(cfg.ImageDir, logger),
		Signer: signer,
	}, nil
}

// ProvideEmailSender creates the SendGrid sender, or a logging sender when
// no API key is configured.
func ProvideEmailSender(cfg *EmailConfig, logger *zap.Logger) (port.EmailSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("email config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.APIKey == "" {
		logger.Warn("No SendGrid API key configured, notifications are only logged")
		return sendgrid.NewLogSender(logger), nil
	}

	sender, err := sendgrid.NewSender(sendgrid.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create sendgrid sender: %w", err)
	}
	return sender, nil
}

// ProvideIdempotencyStore connects to Redis when an address is configured.
func ProvideIdempotencyStore(ctx context.Context, cfg *CacheConfig, logger *zap.Logger) (*CacheBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if cfg.RedisAddr == "" {
		logger.Info("No Redis address configured, Idempotency-Key replay disabled")
		return &CacheBundle{Store: cache.NoopIdempotencyStore{}}, nil
	}

	client, err := cache.NewRedisClient(ctx, cache.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("Redis connected", zap.String("addr", cfg.RedisAddr))
	return &CacheBundle{
		Client: client,
		Store:  cache.NewRedisIdempotencyStore(client, cfg.KeyPrefix, logger),
	}, nil
}

// ProvideMetrics creates the Prometheus registry and collectors.
func ProvideMetrics() *metrics.Prometheus {
	return metrics.NewPrometheus()
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.EmailSender == nil {
		return nil, fmt.Errorf("email sender is required")
	}
	if deps.Storage == nil || deps.StorageCfg == nil {
		return nil, fmt.Errorf("image storage is required")
	}
	if deps.Metrics == nil {
		return nil, fmt.Errorf("metrics are required")
	}
	if deps.EmailCfg == nil || deps.MessagesCfg == nil {
		return nil, fmt.Errorf("email and messages config are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	logger := &zapLoggerAdapter{logger: deps.Logger}

	return &ServiceBundle{
		Voucher: service.NewVoucherService(
			deps.Repos.Voucher,
			deps.TxManager,
			voucher.NewExcelExporter(deps.Logger),
			deps.Metrics,
			logger,
		),
		Message: service.NewMessageService(
			deps.Repos.Message,
			deps.EmailSender,
			deps.Metrics,
			service.MessageConfig{
				SenderAddress:     deps.EmailCfg.SenderAddress,
				ReceiverAddresses: deps.EmailCfg.ReceiverAddresses,
				Subject:           deps.EmailCfg.Subject,
				OldMessageAge:     deps.MessagesCfg.OldMessageAge,
			},
			logger,
		),
		Alpaka: service.NewAlpakaService(
			deps.Repos.Alpaka,
			deps.Storage.Images,
			deps.Storage.Signer,
			deps.Metrics,
			service.AlpakaConfig{ImageURLLifetime: deps.StorageCfg.URLLifetime},
			logger,
		),
		Event: service.NewEventService(
			deps.Repos.Event,
			deps.Repos.Alpaka,
			deps.Metrics,
			logger,
		),
	}, nil
}

// ProvideHTTPServer creates the HTTP adapter over the services.
func ProvideHTTPServer(
	cfg *ServerConfig,
	cacheCfg *CacheConfig,
	services *ServiceBundle,
	idempotency port.IdempotencyStore,
	routeMetrics apihttp.RouteMetrics,
	health apihttp.HealthFunc,
	logger *zap.Logger,
) (*apihttp.Server, error) {
	if cfg == nil || cacheCfg == nil {
		return nil, fmt.Errorf("server and cache config are required")
	}
	if services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serverCfg := apihttp.DefaultServerConfig()
	serverCfg.Host = cfg.Host
	serverCfg.Port = cfg.Port
	serverCfg.ReadTimeout = cfg.ReadTimeout
	serverCfg.WriteTimeout = cfg.WriteTimeout
	serverCfg.ShutdownTimeout = cfg.ShutdownTimeout
	serverCfg.AllowedOrigins = cfg.AllowedOrigins
	serverCfg.Version = cfg.Version
	serverCfg.IdempotencyTTL = cacheCfg.IdempotencyTTL

	return apihttp.NewServer(
		serverCfg,
		apihttp.Services{
			Voucher: services.Voucher,
			Message: services.Message,
			Alpaka:  services.Alpaka,
			Event:   services.Event,
		},
		idempotency,
		routeMetrics,
		health,
		&zapLoggerAdapter{logger: logger},
	), nil
}

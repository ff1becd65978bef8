package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alpakasoelde/dashboard-api/internal/application/port"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultKeyPrefix namespaces idempotency entries in a shared Redis
const DefaultKeyPrefix = "idempotency:"

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
}

// redisClient is the subset of the go-redis client the store uses
type redisClient interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.BoolCmd
	Del(ctx context.Context, keys ...string) *goredis.IntCmd
}

// NewRedisClient connects and pings Redis
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*goredis.Client, error) {
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return rdb, nil
}

// RedisIdempotencyStore implements port.IdempotencyStore on Redis
type RedisIdempotencyStore struct {
	client redisClient
	prefix string
	logger *zap.Logger
}

// NewRedisIdempotencyStore creates a store. An empty prefix uses DefaultKeyPrefix.
func NewRedisIdempotencyStore(client redisClient, prefix string, logger *zap.Logger) *RedisIdempotencyStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, prefix: prefix, logger: logger}
}

// Get returns the cached response or nil, nil on a miss
func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*port.CachedResponse, error) {
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Error("Failed to read idempotency key", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var resp port.CachedResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode cached response: %w", err)
	}
	return &resp, nil
}

// Put stores a response for ttl
func (s *RedisIdempotencyStore) Put(ctx context.Context, key string, resp *port.CachedResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode cached response: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+key, raw, ttl).Err(); err != nil {
		s.logger.Error("Failed to store idempotency key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to store idempotency key: %w", err)
	}
	return nil
}

// Claim reserves key with a pending marker via SET NX
func (s *RedisIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	raw, err := json.Marshal(&port.CachedResponse{Pending: true})
	if err != nil {
		return false, fmt.Errorf("failed to encode pending marker: %w", err)
	}

	claimed, err := s.client.SetNX(ctx, s.prefix+key, raw, ttl).Result()
	if err != nil {
		s.logger.Error("Failed to claim idempotency key", zap.String("key", key), zap.Error(err))
		return false, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return claimed, nil
}

// Release deletes key
func (s *RedisIdempotencyStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		s.logger.Error("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

// NoopIdempotencyStore never remembers anything
type NoopIdempotencyStore struct{}

// Get always misses
func (NoopIdempotencyStore) Get(ctx context.Context, key string) (*port.CachedResponse, error) {
	return nil, nil
}

// Claim always succeeds
func (NoopIdempotencyStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return true, nil
}

// Put discards the response
func (NoopIdempotencyStore) Put(ctx context.Context, key string, resp *port.CachedResponse, ttl time.Duration) error {
	return nil
}

// Release does nothing
func (NoopIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}

// Verify interface compliance
var (
	_ port.IdempotencyStore = (*RedisIdempotencyStore)(nil)
	_ port.IdempotencyStore = NoopIdempotencyStore{}
	_ redisClient           = (*goredis.Client)(nil)
)

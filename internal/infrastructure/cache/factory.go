package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/schoolfees/backend/internal/domain/shared"
	"github.com/schoolfees/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// DashboardCache is implemented by RedisDashboardCache and InMemoryDashboardCache
type DashboardCache interface {
	Get(ctx context.Context, studentID string, sessionID int, dst any) (bool, error)
	Set(ctx context.Context, studentID string, sessionID int, v any) error
	Invalidate(ctx context.Context, studentID string, sessionID int) error
}

// Factory builds the Redis-backed stores on one shared client, falling back
// to in-memory implementations when Redis cannot be reached
type Factory struct {
	redisConfig           config.RedisConfig
	cacheConfig           config.CacheConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether Redis failures fall back to memory.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a cache factory and tries to connect to Redis.
// A failed connection is only an error when fallback is disabled.
func NewFactory(redisCfg config.RedisConfig, cacheCfg config.CacheConfig, opts ...FactoryOption) (*Factory, error) {
	f := &Factory{
		redisConfig:           redisCfg,
		cacheConfig:           cacheCfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.Named("cache")

	client, err := connect(redisCfg)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory caches. "+
			"Idempotency keys will not be shared between instances.",
			zap.Error(err))
		return f, nil
	}
	f.client = client
	f.logger.Info("Connected to Redis", zap.String("addr", redisCfg.Addr()))
	return f, nil
}

func connect(cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("redis host not configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// UsesRedis reports whether the factory holds a live Redis client
func (f *Factory) UsesRedis() bool {
	return f.client != nil
}

// IdempotencyStore returns the Redis store or the in-memory fallback
func (f *Factory) IdempotencyStore() shared.IdempotencyStore {
	if f.client != nil {
		return NewRedisIdempotencyStoreWithClient(f.client, f.cacheConfig.KeyPrefix)
	}
	return NewInMemoryIdempotencyStore()
}

// DashboardCache returns the Redis cache or the in-memory fallback
func (f *Factory) DashboardCache() DashboardCache {
	if f.client != nil {
		return NewRedisDashboardCache(f.client, f.cacheConfig.KeyPrefix, f.cacheConfig.DashboardTTL, f.logger)
	}
	return NewInMemoryDashboardCache(f.cacheConfig.DashboardTTL)
}

// Close closes the shared Redis client
func (f *Factory) Close() error {
	if f.client == nil {
		return nil
	}
	return f.client.Close()
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/erp/connector/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// MappingStore is the product-mapping cache contract used by the product resolver
type MappingStore interface {
	Get(ctx context.Context, key string) (uuid.UUID, bool, error)
	Set(ctx context.Context, key string, productID uuid.UUID, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Backend bundles the queue-line lock and the mapping cache built from one configuration
type Backend struct {
	Lock     shared.ProcessingLock
	Mappings MappingStore

	client  *redis.Client
	closers []func() error
}

// Close releases the Redis client or stops the in-memory cleanup goroutines
func (b *Backend) Close() error {
	var firstErr error
	for _, c := range b.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Client returns the Redis client, nil for in-memory backends
func (b *Backend) Client() *redis.Client {
	return b.client
}

// IsDistributed reports whether locks are shared through Redis
func (b *Backend) IsDistributed() bool {
	return b.client != nil
}

// Factory builds a Backend from configuration
type Factory struct {
	cfg                   config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// FactoryOption configures a Factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis falls back to in-memory state.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		cfg:                   cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Create returns a Redis backend when Redis is enabled and reachable, otherwise an
// in-memory one (unless fallback is disabled).
func (f *Factory) Create(ctx context.Context) (*Backend, error) {
	if !f.cfg.Enabled {
		f.logger.Info("Redis disabled, using in-memory locks and mapping cache")
		return NewInMemoryBackend(), nil
	}

	client, err := NewRedisClient(ctx, f.cfg.Addr(), f.cfg.Password, f.cfg.DB)
	if err == nil {
		f.logger.Info("using Redis locks and mapping cache", zap.String("addr", f.cfg.Addr()))
		return NewRedisBackend(client), nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory locks. "+
		"Queue lines may be processed twice when several connector instances run.",
		zap.Error(err),
	)
	return NewInMemoryBackend(), nil
}

// NewRedisBackend builds a backend on an existing client
func NewRedisBackend(client *redis.Client) *Backend {
	return &Backend{
		Lock:     NewRedisProcessingLock(client),
		Mappings: NewRedisMappingCache(client),
		client:   client,
		closers:  []func() error{client.Close},
	}
}

// NewInMemoryBackend builds a process-local backend
func NewInMemoryBackend() *Backend {
	lock := NewInMemoryProcessingLock()
	mappings := NewInMemoryMappingCache()
	return &Backend{
		Lock:     lock,
		Mappings: mappings,
		closers:  []func() error{lock.Close, mappings.Close},
	}
}

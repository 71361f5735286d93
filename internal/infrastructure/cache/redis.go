package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/connector/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	lockKeyPrefix    = "connector:lock:"
	mappingKeyPrefix = "connector:mapping:"
)

// NewRedisClient connects to Redis and verifies the connection with PING
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// RedisProcessingLock implements ProcessingLock with SETNX so every connector
// instance sharing the Redis sees the same locks.
type RedisProcessingLock struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisProcessingLock creates a lock on an existing client
func NewRedisProcessingLock(client *redis.Client) *RedisProcessingLock {
	return &RedisProcessingLock{client: client, keyPrefix: lockKeyPrefix}
}

// Acquire sets the lock key if it does not exist yet
func (l *RedisProcessingLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.keyPrefix+key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release deletes the lock key
func (l *RedisProcessingLock) Release(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}

// Close closes the Redis client
func (l *RedisProcessingLock) Close() error {
	return l.client.Close()
}

var _ shared.ProcessingLock = (*RedisProcessingLock)(nil)

// RedisMappingCache stores resolved product ids as plain strings with a TTL
type RedisMappingCache struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisMappingCache creates a cache on an existing client
func NewRedisMappingCache(client *redis.Client) *RedisMappingCache {
	return &RedisMappingCache{client: client, keyPrefix: mappingKeyPrefix}
}

// Get returns the cached product id. A malformed value counts as a miss.
func (c *RedisMappingCache) Get(ctx context.Context, key string) (uuid.UUID, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to read mapping cache: %w", err)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, nil
	}
	return id, true, nil
}

// Set stores productID under key
func (c *RedisMappingCache) Set(ctx context.Context, key string, productID uuid.UUID, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.keyPrefix+key, productID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to write mapping cache: %w", err)
	}
	return nil
}

// Delete removes key
func (c *RedisMappingCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete mapping cache entry: %w", err)
	}
	return nil
}

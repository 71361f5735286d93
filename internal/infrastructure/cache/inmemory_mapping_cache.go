package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const defaultCleanupInterval = 30 * time.Second

type cacheEntry struct {
	productID uuid.UUID
	expiresAt time.Time
}

func (e cacheEntry) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryMappingCache caches resolved product ids per mapping key in process memory.
type InMemoryMappingCache struct {
	entries sync.Map // map[string]cacheEntry
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// NewInMemoryMappingCache creates the cache and starts expiry cleanup.
func NewInMemoryMappingCache() *InMemoryMappingCache {
	c := &InMemoryMappingCache{stopCh: make(chan struct{})}
	go c.cleanupExpired()
	return c
}

// Get returns the cached product id for key
func (c *InMemoryMappingCache) Get(_ context.Context, key string) (uuid.UUID, bool, error) {
	if value, ok := c.entries.Load(key); ok {
		entry := value.(cacheEntry)
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.productID, true, nil
		}
		c.entries.Delete(key)
	}
	atomic.AddInt64(&c.misses, 1)
	return uuid.Nil, false, nil
}

// Set stores productID under key for ttl
func (c *InMemoryMappingCache) Set(_ context.Context, key string, productID uuid.UUID, ttl time.Duration) error {
	c.entries.Store(key, cacheEntry{productID: productID, expiresAt: time.Now().Add(ttl)})
	return nil
}

// Delete removes key
func (c *InMemoryMappingCache) Delete(_ context.Context, key string) error {
	c.entries.Delete(key)
	return nil
}

// Stats returns hit and miss counters
func (c *InMemoryMappingCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Close stops the cleanup goroutine
func (c *InMemoryMappingCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

func (c *InMemoryMappingCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.entries.Range(func(key, value any) bool {
				if value.(cacheEntry).isExpired() {
					c.entries.Delete(key)
				}
				return true
			})
		}
	}
}

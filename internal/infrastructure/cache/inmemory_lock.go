package cache

import (
	"context"
	"sync"
	"time"

	"github.com/erp/connector/internal/domain/shared"
)

// InMemoryProcessingLock implements ProcessingLock with an in-memory map.
// Locks only hold within one process, which is enough for a single connector instance.
type InMemoryProcessingLock struct {
	mu        sync.Mutex
	entries   map[string]time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryProcessingLock creates a lock table and starts a background goroutine
// that drops expired locks.
func NewInMemoryProcessingLock() *InMemoryProcessingLock {
	l := &InMemoryProcessingLock{
		entries:  make(map[string]time.Time),
		stopChan: make(chan struct{}),
	}

	l.wg.Add(1)
	go l.cleanupLoop()

	return l
}

// Acquire takes the lock for key unless an unexpired holder already owns it
func (l *InMemoryProcessingLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiresAt, held := l.entries[key]; held && time.Now().Before(expiresAt) {
		return false, nil
	}
	l.entries[key] = time.Now().Add(ttl)
	return true, nil
}

// Release drops the lock for key
func (l *InMemoryProcessingLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
	return nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *InMemoryProcessingLock) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *InMemoryProcessingLock) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *InMemoryProcessingLock) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for key, expiresAt := range l.entries {
		if now.After(expiresAt) {
			delete(l.entries, key)
		}
	}
}

// Size returns the number of held locks (for testing/monitoring)
func (l *InMemoryProcessingLock) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

var _ shared.ProcessingLock = (*InMemoryProcessingLock)(nil)

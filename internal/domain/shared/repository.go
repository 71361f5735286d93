package shared

import (
	"context"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filter is the paging and ordering of a list query. Filters holds
// repository specific equality conditions keyed by field name.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}

// Limit is PageSize clamped to [1, MaxPageSize], DefaultPageSize when unset
func (f Filter) Limit() int {
	if f.PageSize <= 0 {
		return DefaultPageSize
	}
	return min(f.PageSize, MaxPageSize)
}

// Offset of the first row of Page; pages start at 1
func (f Filter) Offset() int {
	return max(f.Page-1, 0) * f.Limit()
}

// ProcessingLock guards a unit of work against concurrent processing by
// more than one worker.
type ProcessingLock interface {
	// Acquire takes the lock for key. It returns false when another holder
	// already owns it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the lock for key. Releasing a lock that is not held is not an error.
	Release(ctx context.Context, key string) error

	// Close releases resources held by the lock backend
	Close() error
}

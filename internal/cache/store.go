package cache

import (
	"context"
	"time"
)

// Store is the counter and key/value contract shared by the rate limiter's
// backends. Implementations: MemoryStore, DatabaseStore and RedisStore.
type Store interface {
	// IncrementWithTTL bumps a fixed-window counter and returns the new count
	// and the time left before the window resets.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Purger is implemented by stores whose expired entries must be removed
// explicitly. Redis and the in-memory store expire keys on their own.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

var (
	_ Store  = (*MemoryStore)(nil)
	_ Store  = (*DatabaseStore)(nil)
	_ Store  = (*RedisStore)(nil)
	_ Purger = (*DatabaseStore)(nil)
)

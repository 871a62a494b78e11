// Package kv provides the key-value store consumed by the cache layer, the
// alert and auto-mode state, and the scheduler's best-effort persistence.
//
// Two implementations exist: RedisStore (production, backed by go-redis) and
// MemoryStore (local development and tests). Every operation is fallible;
// callers are expected to degrade rather than surface raw store errors.
package kv

import (
	"context"
	"time"
)

// Store is the subset of key-value operations the service depends on.
//
// Contract:
//   - Get returns ("", false, nil) for a missing or expired key.
//   - Set with ttl <= 0 stores the value without expiry.
//   - Keys accepts Redis glob patterns ("scheduler:task:*").
//   - No transactions: multi-key updates are not atomic.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

package kv

import (
	"context"
	"sync"
	"time"
)

// FaultyStore wraps a Store and injects errors per operation. It is used by
// tests across packages to exercise degraded-store paths.
//
// Usage:
//
//	store := &kv.FaultyStore{Store: kv.NewMemoryStore(), GetErr: errors.New("timeout")}
type FaultyStore struct {
	Store Store

	GetErr  error
	SetErr  error
	DelErr  error
	KeysErr error
	PingErr error

	// SetErrFor fails Set only for the listed keys, leaving others intact.
	SetErrFor map[string]error

	mu       sync.Mutex
	SetCalls []string
	GetCalls []string
}

// Get implements Store.
func (f *FaultyStore) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	f.GetCalls = append(f.GetCalls, key)
	f.mu.Unlock()

	if f.GetErr != nil {
		return "", false, f.GetErr
	}
	return f.Store.Get(ctx, key)
}

// Set implements Store.
func (f *FaultyStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.mu.Lock()
	f.SetCalls = append(f.SetCalls, key)
	f.mu.Unlock()

	if f.SetErr != nil {
		return f.SetErr
	}
	if err, ok := f.SetErrFor[key]; ok {
		return err
	}
	return f.Store.Set(ctx, key, value, ttl)
}

// Del implements Store.
func (f *FaultyStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if f.DelErr != nil {
		return 0, f.DelErr
	}
	return f.Store.Del(ctx, keys...)
}

// Keys implements Store.
func (f *FaultyStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	if f.KeysErr != nil {
		return nil, f.KeysErr
	}
	return f.Store.Keys(ctx, pattern)
}

// Ping implements Store.
func (f *FaultyStore) Ping(ctx context.Context) error {
	if f.PingErr != nil {
		return f.PingErr
	}
	return f.Store.Ping(ctx)
}

// SetCount returns how many Set calls were observed.
func (f *FaultyStore) SetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.SetCalls)
}

var _ Store = (*FaultyStore)(nil)

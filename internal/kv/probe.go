package kv

import "context"

// Probe adapts a Store to the health endpoint's probe contract.
type Probe struct {
	Store Store
}

// Name returns the component name reported by GET /health.
func (p Probe) Name() string { return "kv" }

// Check pings the store.
func (p Probe) Check(ctx context.Context) error {
	return p.Store.Ping(ctx)
}

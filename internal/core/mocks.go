package core

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// --- MockHealthProbe ---

// MockHealthProbe implements HealthProbe for tests of the health endpoint
// and of the composition root.
//
// Usage:
//
//	probe := &MockHealthProbe{ProbeName: "kv", Err: errors.New("connection refused")}
//	srv.HealthProbes = []HealthProbe{probe}
//
// Delay makes Check block until the delay elapses or the context ends.
type MockHealthProbe struct {
	ProbeName string
	Err       error
	Delay     time.Duration

	// CheckFunc, when set, replaces the Err/Delay behaviour.
	CheckFunc func(ctx context.Context) error

	calls atomic.Int32
}

// Name implements HealthProbe.
func (m *MockHealthProbe) Name() string { return m.ProbeName }

// Check implements HealthProbe.
func (m *MockHealthProbe) Check(ctx context.Context) error {
	m.calls.Add(1)
	if m.CheckFunc != nil {
		return m.CheckFunc(ctx)
	}
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.Err
}

// Calls returns how many times Check ran.
func (m *MockHealthProbe) Calls() int {
	return int(m.calls.Load())
}

// --- MockMetricsCollector ---

// RecordedRequest is one call captured by MockMetricsCollector.
type RecordedRequest struct {
	Method   string
	Endpoint string
	Status   string
	Duration time.Duration
}

// MockMetricsCollector implements MetricsCollector and RateLimitRecorder,
// recording every call for assertions.
//
// Usage:
//
//	m := &MockMetricsCollector{}
//	srv.Metrics = m
//	// ... serve requests ...
//	reqs := m.Requests()
type MockMetricsCollector struct {
	mu          sync.Mutex
	requests    []RecordedRequest
	rateLimited int
}

// RecordRequest implements MetricsCollector.
func (m *MockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, RecordedRequest{
		Method:   method,
		Endpoint: endpoint,
		Status:   status,
		Duration: duration,
	})
}

// RecordRateLimited implements RateLimitRecorder.
func (m *MockMetricsCollector) RecordRateLimited() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rateLimited++
}

// Requests returns a copy of the recorded requests.
func (m *MockMetricsCollector) Requests() []RecordedRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// RateLimited returns how many requests were rejected by the rate limiter.
func (m *MockMetricsCollector) RateLimited() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rateLimited
}

var (
	_ HealthProbe       = (*MockHealthProbe)(nil)
	_ MetricsCollector  = (*MockMetricsCollector)(nil)
	_ RateLimitRecorder = (*MockMetricsCollector)(nil)
)

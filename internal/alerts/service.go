package alerts

import (
	"context"
	"log/slog"
	"time"

	"dashboard/internal/kv"
	"dashboard/internal/types"
)

// Service combines threshold storage, evaluation and acknowledgement.
type Service struct {
	Thresholds *ThresholdStore
	Acks       *Acknowledger
	now        func() time.Time
}

// NewService creates a Service over store.
func NewService(store kv.Store, logger *slog.Logger, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		Thresholds: NewThresholdStore(store, logger, now),
		Acks:       NewAcknowledger(store, logger, now),
		now:        now,
	}
}

// CheckRequest is the input of a route alert check.
type CheckRequest struct {
	Route               types.RoutePayload
	ThresholdOverride   int
	IncludeAcknowledged bool
}

// CheckResult is the output of a route alert check.
type CheckResult struct {
	Alerts    []RouteAlert
	Threshold Threshold
}

// Check evaluates a route against the effective threshold and filters out
// acknowledged alerts.
func (s *Service) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	threshold, err := s.Thresholds.Resolve(ctx, req.ThresholdOverride)
	if err != nil {
		return nil, err
	}
	alerts := Evaluate(req.Route, threshold.Minutes, s.now())
	return &CheckResult{
		Alerts:    s.Acks.Filter(ctx, alerts, req.IncludeAcknowledged),
		Threshold: threshold,
	}, nil
}

// Threshold returns the stored or default threshold.
func (s *Service) Threshold(ctx context.Context) Threshold {
	return s.Thresholds.Get(ctx)
}

// SetThreshold validates and stores an explicit threshold.
func (s *Service) SetThreshold(ctx context.Context, minutes int) (Threshold, error) {
	return s.Thresholds.Set(ctx, minutes)
}

// Acknowledge suppresses future alerts with the same signatures.
func (s *Service) Acknowledge(ctx context.Context, alerts []RouteAlert) AckResult {
	return s.Acks.Acknowledge(ctx, alerts)
}

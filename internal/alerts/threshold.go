// Package alerts evaluates cached route measurements against a travel-time
// threshold and tracks which alerts the user has acknowledged.
package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"dashboard/internal/kv"
	"dashboard/internal/types"
)

const (
	thresholdKey = "alerts:threshold"

	// DefaultThresholdMinutes applies when no threshold has been set.
	DefaultThresholdMinutes = 45
	MinThresholdMinutes     = 5
	MaxThresholdMinutes     = 1440

	// An inferred default expires sooner than an explicit value.
	defaultThresholdTTL  = time.Hour
	explicitThresholdTTL = 24 * time.Hour
)

// Source describes where an effective threshold came from.
type Source string

const (
	SourceQuery   Source = "query"
	SourceStored  Source = "stored"
	SourceDefault Source = "default"
)

// Threshold is the travel-time limit, in minutes, above which a route
// raises an alert.
type Threshold struct {
	Minutes      int    `json:"thresholdMinutes"`
	Source       Source `json:"source"`
	UpdatedAtIso string `json:"updatedAtIso,omitempty"`
}

// ValidateThreshold enforces [MinThresholdMinutes, MaxThresholdMinutes].
func ValidateThreshold(minutes int) error {
	if minutes < MinThresholdMinutes || minutes > MaxThresholdMinutes {
		return types.NewAppErrorWithDetails(
			types.ErrCodeInvalidRequest,
			fmt.Sprintf("thresholdMinutes must be between %d and %d", MinThresholdMinutes, MaxThresholdMinutes),
			nil,
			map[string]any{"field": "thresholdMinutes", "min": MinThresholdMinutes, "max": MaxThresholdMinutes},
		)
	}
	return nil
}

// ThresholdStore persists the threshold in the key-value store.
type ThresholdStore struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewThresholdStore creates a ThresholdStore.
func NewThresholdStore(store kv.Store, logger *slog.Logger, now func() time.Time) *ThresholdStore {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &ThresholdStore{store: store, logger: logger, now: now}
}

// Get returns the stored threshold. It never fails: a missing, unreadable or
// out-of-range value yields the default, and a missing value is written back
// with a short expiry.
func (s *ThresholdStore) Get(ctx context.Context) Threshold {
	logger := types.LoggerFromContext(ctx, s.logger)

	raw, ok, err := s.store.Get(ctx, thresholdKey)
	if err != nil {
		logger.Warn("Threshold read failed, using default", "error", err)
		return s.defaultThreshold()
	}
	if ok {
		var t Threshold
		if err := json.Unmarshal([]byte(raw), &t); err == nil && ValidateThreshold(t.Minutes) == nil {
			if t.Source != SourceDefault {
				t.Source = SourceStored
			}
			return t
		}
		logger.Warn("Discarding invalid stored threshold", "value", raw)
	}

	t := s.defaultThreshold()
	if err := s.write(ctx, t, defaultThresholdTTL); err != nil {
		logger.Warn("Writing default threshold failed", "error", err)
	}
	return t
}

// Set validates and stores an explicit threshold for 24 hours.
func (s *ThresholdStore) Set(ctx context.Context, minutes int) (Threshold, error) {
	if err := ValidateThreshold(minutes); err != nil {
		return Threshold{}, err
	}
	t := Threshold{
		Minutes:      minutes,
		Source:       SourceStored,
		UpdatedAtIso: types.FormatISO(s.now()),
	}
	if err := s.write(ctx, t, explicitThresholdTTL); err != nil {
		return Threshold{}, types.NewAppError(types.ErrCodeInternal, "failed to store alert threshold", err)
	}
	return t, nil
}

// Resolve picks the effective threshold: a positive override from the
// request, then the stored value, then the default.
func (s *ThresholdStore) Resolve(ctx context.Context, override int) (Threshold, error) {
	if override != 0 {
		if err := ValidateThreshold(override); err != nil {
			return Threshold{}, err
		}
		return Threshold{Minutes: override, Source: SourceQuery}, nil
	}
	return s.Get(ctx), nil
}

func (s *ThresholdStore) defaultThreshold() Threshold {
	return Threshold{
		Minutes:      DefaultThresholdMinutes,
		Source:       SourceDefault,
		UpdatedAtIso: types.FormatISO(s.now()),
	}
}

func (s *ThresholdStore) write(ctx context.Context, t Threshold, ttl time.Duration) error {
	b, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, thresholdKey, string(b), ttl)
}

package cache

import (
	"fmt"
	"slices"
	"time"

	"dashboard/internal/types"
)

// State is the freshness classification of a cached record.
type State int

const (
	// Unusable covers a missing record, a corrupt timestamp, or an age past
	// the grace window.
	Unusable State = iota
	// Fresh records are served without calling the provider.
	Fresh
	// UsableStale records are served only when the provider call fails.
	UsableStale
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "FRESH"
	case UsableStale:
		return "USABLE_STALE"
	default:
		return "UNUSABLE"
	}
}

// PeakOverride swaps in an alternate (ttl, grace) pair while the wall clock
// in Location sits in one of Hours (0-23).
type PeakOverride struct {
	Hours      []int
	Location   *time.Location
	BaseTTL    time.Duration
	StaleGrace time.Duration
}

// Active reports whether now falls in a peak hour.
func (o *PeakOverride) Active(now time.Time) bool {
	if o == nil || len(o.Hours) == 0 {
		return false
	}
	loc := o.Location
	if loc == nil {
		loc = time.UTC
	}
	return slices.Contains(o.Hours, now.In(loc).Hour())
}

// Policy is the freshness policy of one resource type.
type Policy struct {
	BaseTTL    time.Duration
	StaleGrace time.Duration
	Peak       *PeakOverride
}

// At resolves the policy in effect at now, applying the peak override when
// active. The returned policy carries no override of its own.
func (p Policy) At(now time.Time) Policy {
	if p.Peak.Active(now) {
		return Policy{BaseTTL: p.Peak.BaseTTL, StaleGrace: p.Peak.StaleGrace}
	}
	return Policy{BaseTTL: p.BaseTTL, StaleGrace: p.StaleGrace}
}

// StoreExpiry is the key-value expiry for records written under p. The
// record disappears exactly when its grace window ends.
func (p Policy) StoreExpiry() time.Duration {
	return p.BaseTTL + p.StaleGrace
}

// Validate rejects negative durations.
func (p Policy) Validate() error {
	if p.BaseTTL < 0 || p.StaleGrace < 0 {
		return fmt.Errorf("cache policy durations must be non-negative (ttl=%s grace=%s)", p.BaseTTL, p.StaleGrace)
	}
	if p.Peak != nil && (p.Peak.BaseTTL < 0 || p.Peak.StaleGrace < 0) {
		return fmt.Errorf("peak policy durations must be non-negative (ttl=%s grace=%s)", p.Peak.BaseTTL, p.Peak.StaleGrace)
	}
	return nil
}

// Decision is the outcome of classifying one record.
type Decision struct {
	State      State
	AgeSeconds int64
}

// Classify ages a record against the policy. freshnessOverride, when
// positive, replaces the base TTL; the grace window then extends from the
// override rather than from the base TTL.
//
// An unparseable cachedAtIso yields Unusable together with an error so the
// caller can report the corrupt write.
func Classify(cachedAtIso string, now time.Time, p Policy, freshnessOverride time.Duration) (Decision, error) {
	cachedAt, err := types.ParseISO(cachedAtIso)
	if err != nil {
		return Decision{State: Unusable}, fmt.Errorf("parsing cachedAtIso %q: %w", cachedAtIso, err)
	}

	age := ageSeconds(cachedAt, now)
	ttl := effectiveTTL(p, freshnessOverride)

	switch {
	case age <= seconds(ttl):
		return Decision{State: Fresh, AgeSeconds: age}, nil
	case age <= seconds(ttl+p.StaleGrace):
		return Decision{State: UsableStale, AgeSeconds: age}, nil
	default:
		return Decision{State: Unusable, AgeSeconds: age}, nil
	}
}

func effectiveTTL(p Policy, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	return p.BaseTTL
}

// ageSeconds is the whole seconds elapsed since cachedAt, floored and
// clamped at zero for records stamped slightly in the future.
func ageSeconds(cachedAt, now time.Time) int64 {
	d := now.Sub(cachedAt)
	if d <= 0 {
		return 0
	}
	return int64(d / time.Second)
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

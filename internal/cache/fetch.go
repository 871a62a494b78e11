package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"dashboard/internal/kv"
	"dashboard/internal/types"
)

// Outcome labels what a single Fetch did. Outcomes feed the cache metrics.
type Outcome string

const (
	OutcomeHit        Outcome = "hit"
	OutcomeMiss       Outcome = "miss"
	OutcomeRefresh    Outcome = "refresh"
	OutcomeStale      Outcome = "stale"
	OutcomeError      Outcome = "error"
	OutcomeReadError  Outcome = "read_error"
	OutcomeWriteError Outcome = "write_error"
	OutcomeCorrupt    Outcome = "corrupt"
)

// Recorder receives Fetch outcomes. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObserveCache(resource string, outcome Outcome)
}

type nopRecorder struct{}

func (nopRecorder) ObserveCache(string, Outcome) {}

// Meta is the cache block attached to every data-serving response.
//
// Hit=true means the payload was not produced by this request.
// StaleWhileRevalidate=true means a provider call was attempted and failed.
type Meta struct {
	Hit                  bool  `json:"hit"`
	AgeSeconds           int64 `json:"ageSeconds"`
	StaleWhileRevalidate bool  `json:"staleWhileRevalidate"`
}

// LoadFunc produces a fresh payload from the upstream provider. Any error is
// treated the same way regardless of its cause.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Request describes one cached read.
type Request[T any] struct {
	// Resource names the resource type for logs, metrics and error messages.
	Resource string
	Key      string
	Policy   Policy

	// ForceRefresh skips serving a fresh record. The record is still read
	// and kept as a fallback for a failed provider call.
	ForceRefresh bool

	// FreshnessOverride, when positive, replaces the policy's base TTL for
	// classification. Bounds are enforced by the caller.
	FreshnessOverride time.Duration

	Load LoadFunc[T]
}

// Result is a payload plus the cache metadata describing how it was served.
type Result[T any] struct {
	Payload  T
	Meta     Meta
	CachedAt time.Time
}

// Fetcher holds the collaborators shared by every Fetch call.
type Fetcher struct {
	store        kv.Store
	logger       *slog.Logger
	now          func() time.Time
	recorder     Recorder
	singleFlight bool
	group        singleflight.Group
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithClock injects the time source.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

// WithRecorder reports outcomes to r.
func WithRecorder(r Recorder) FetcherOption {
	return func(f *Fetcher) {
		if r != nil {
			f.recorder = r
		}
	}
}

// WithSingleFlight makes concurrent provider calls for the same key share
// one invocation. The shared call runs with the first caller's context.
func WithSingleFlight(enabled bool) FetcherOption {
	return func(f *Fetcher) { f.singleFlight = enabled }
}

// NewFetcher creates a Fetcher over store.
func NewFetcher(store kv.Store, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{
		store:    store,
		logger:   logger,
		now:      time.Now,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Now returns the fetcher's clock reading.
func (f *Fetcher) Now() time.Time {
	return f.now()
}

type loaded[T any] struct {
	payload    T
	producedAt time.Time
}

// Fetch serves req with stale-while-revalidate semantics:
//
//  1. A fresh record (and no ForceRefresh) is returned as a hit without
//     calling the provider or writing to the store.
//  2. Otherwise the provider is called. On success the new record is written
//     with expiry ttl+grace of the policy in effect and returned as a miss.
//  3. On provider failure a record still inside its grace window is returned
//     with StaleWhileRevalidate set; anything else becomes a TIMEOUT or
//     PROVIDER_ERROR AppError.
//
// Store failures never surface to the caller.
func Fetch[T any](ctx context.Context, f *Fetcher, req Request[T]) (*Result[T], error) {
	logger := types.LoggerFromContext(ctx, f.logger).With(
		"resource", req.Resource,
		"cache_key", req.Key,
	)

	now := f.now()
	policy := req.Policy.At(now)

	cached := readRecord[T](ctx, f, logger, req)

	var decision Decision
	if cached != nil {
		d, err := Classify(cached.CachedAtIso, now, policy, req.FreshnessOverride)
		if err != nil {
			logger.Warn("Discarding cache record with corrupt timestamp", "error", err)
			f.recorder.ObserveCache(req.Resource, OutcomeCorrupt)
			cached = nil
		} else {
			decision = d
		}
	}

	if cached != nil && !req.ForceRefresh && decision.State == Fresh {
		f.recorder.ObserveCache(req.Resource, OutcomeHit)
		return servedFromCache(cached, decision, false), nil
	}

	res, err := load(ctx, f, logger, req, policy)
	if err == nil {
		outcome := OutcomeMiss
		if cached != nil {
			outcome = OutcomeRefresh
		}
		f.recorder.ObserveCache(req.Resource, outcome)
		return &Result[T]{Payload: res.payload, CachedAt: res.producedAt}, nil
	}

	if cached != nil && decision.State != Unusable {
		logger.Warn("Provider failed, serving stale cache",
			"error", err,
			"age_seconds", decision.AgeSeconds,
		)
		f.recorder.ObserveCache(req.Resource, OutcomeStale)
		return servedFromCache(cached, decision, true), nil
	}

	f.recorder.ObserveCache(req.Resource, OutcomeError)
	logger.Error("Provider failed with no usable cache", "error", err)
	return nil, providerError(req.Resource, err)
}

func readRecord[T any](ctx context.Context, f *Fetcher, logger *slog.Logger, req Request[T]) *Record[T] {
	raw, ok, err := f.store.Get(ctx, req.Key)
	if err != nil {
		logger.Warn("Cache read failed, treating as miss", "error", err)
		f.recorder.ObserveCache(req.Resource, OutcomeReadError)
		return nil
	}
	if !ok {
		return nil
	}
	rec, err := Decode[T]([]byte(raw))
	if err != nil {
		logger.Warn("Discarding undecodable cache record", "error", err)
		f.recorder.ObserveCache(req.Resource, OutcomeCorrupt)
		return nil
	}
	return rec
}

func load[T any](ctx context.Context, f *Fetcher, logger *slog.Logger, req Request[T], policy Policy) (loaded[T], error) {
	run := func() (loaded[T], error) {
		payload, err := req.Load(ctx)
		if err != nil {
			return loaded[T]{}, err
		}
		producedAt := f.now()
		writeRecord(ctx, f, logger, req, payload, producedAt, policy)
		return loaded[T]{payload: payload, producedAt: producedAt}, nil
	}

	if !f.singleFlight {
		return run()
	}

	v, err, shared := f.group.Do(req.Key, func() (any, error) {
		return run()
	})
	if shared {
		logger.Debug("Shared in-flight provider call")
	}
	if err != nil {
		return loaded[T]{}, err
	}
	return v.(loaded[T]), nil
}

func writeRecord[T any](ctx context.Context, f *Fetcher, logger *slog.Logger, req Request[T], payload T, producedAt time.Time, policy Policy) {
	expiry := policy.StoreExpiry()
	if expiry <= 0 {
		return
	}
	b, err := Encode(payload, producedAt)
	if err != nil {
		logger.Warn("Cache encode failed", "error", err)
		f.recorder.ObserveCache(req.Resource, OutcomeWriteError)
		return
	}
	if err := f.store.Set(ctx, req.Key, string(b), expiry); err != nil {
		logger.Warn("Cache write failed", "error", err)
		f.recorder.ObserveCache(req.Resource, OutcomeWriteError)
	}
}

func servedFromCache[T any](rec *Record[T], d Decision, stale bool) *Result[T] {
	cachedAt, _ := types.ParseISO(rec.CachedAtIso)
	return &Result[T]{
		Payload:  rec.Payload,
		CachedAt: cachedAt,
		Meta: Meta{
			Hit:                  true,
			AgeSeconds:           d.AgeSeconds,
			StaleWhileRevalidate: stale,
		},
	}
}

// providerError converts a provider failure into the typed error returned to
// handlers. Deadline failures become TIMEOUT; AppErrors produced by the
// provider adapters pass through unchanged.
func providerError(resource string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return types.NewAppError(types.ErrCodeTimeout, fmt.Sprintf("%s provider timed out", resource), err)
	}
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return types.NewProviderError(resource, 0, err)
}

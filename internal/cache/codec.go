// Package cache implements the stale-while-revalidate protocol shared by
// every data-serving route: record encoding, key derivation, freshness
// classification, and the Fetch orchestrator that ties them to a provider
// call and the key-value store.
package cache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dashboard/internal/types"
)

// ErrMalformedRecord is returned by Decode for any stored value that cannot
// be used as a cache record. Callers treat it as a cache miss.
var ErrMalformedRecord = errors.New("malformed cache record")

// Record is the envelope persisted in the key-value store.
type Record[T any] struct {
	Payload     T      `json:"payload"`
	CachedAtIso string `json:"cachedAtIso"`
}

// rawRecord defers payload decoding so a missing or null payload can be
// told apart from a zero-valued one.
type rawRecord struct {
	Payload     json.RawMessage `json:"payload"`
	CachedAtIso *string         `json:"cachedAtIso"`
}

// Encode serializes payload into the stored envelope, stamping producedAt in
// UTC with millisecond precision.
func Encode[T any](payload T, producedAt time.Time) ([]byte, error) {
	b, err := json.Marshal(Record[T]{
		Payload:     payload,
		CachedAtIso: types.FormatISO(producedAt),
	})
	if err != nil {
		return nil, fmt.Errorf("encoding cache record: %w", err)
	}
	return b, nil
}

// Decode parses a stored envelope. Invalid JSON, a missing or null payload,
// and a missing cachedAtIso all return ErrMalformedRecord. The timestamp is
// not parsed here; Classify owns that check.
func Decode[T any](raw []byte) (*Record[T], error) {
	var r rawRecord
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	if len(r.Payload) == 0 || bytes.Equal(bytes.TrimSpace(r.Payload), []byte("null")) {
		return nil, fmt.Errorf("%w: missing payload", ErrMalformedRecord)
	}
	if r.CachedAtIso == nil || *r.CachedAtIso == "" {
		return nil, fmt.Errorf("%w: missing cachedAtIso", ErrMalformedRecord)
	}

	var payload T
	if err := json.Unmarshal(r.Payload, &payload); err != nil {
		return nil, fmt.Errorf("%w: payload: %v", ErrMalformedRecord, err)
	}
	return &Record[T]{Payload: payload, CachedAtIso: *r.CachedAtIso}, nil
}

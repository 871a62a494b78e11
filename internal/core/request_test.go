package core

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dashboard/internal/types"
)

func TestQueryInt(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"?threshold=25", 25, false},
		{"?threshold=-5", -5, false},
		{"?threshold=%20", 0, false},
		{"?threshold=ten", 0, true},
		{"?threshold=2.5", 0, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/alerts/route"+tt.query, nil)
		got, err := QueryInt(r, "threshold")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("QueryInt(%q) = %d, %v; want %d, err=%v", tt.query, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestQueryBool(t *testing.T) {
	tests := []struct {
		query   string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"?forceRefresh", true, false},
		{"?forceRefresh=true", true, false},
		{"?forceRefresh=1", true, false},
		{"?forceRefresh=false", false, false},
		{"?forceRefresh=yes", false, true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/weather"+tt.query, nil)
		got, err := QueryBool(r, "forceRefresh")
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("QueryBool(%q) = %v, %v; want %v, err=%v", tt.query, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestQueryTime(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/auto-mode/status?at=2026-03-02T08:45:00.000Z", nil)
	got, err := QueryTime(r, "at")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("QueryTime = %s, want %s", got, want)
	}

	r = httptest.NewRequest(http.MethodGet, "/auto-mode/status", nil)
	if got, err = QueryTime(r, "at"); err != nil || !got.IsZero() {
		t.Errorf("missing param = %s, %v; want zero time", got, err)
	}

	r = httptest.NewRequest(http.MethodGet, "/auto-mode/status?at=yesterday", nil)
	_, err = QueryTime(r, "at")

	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrCodeInvalidRequest {
		t.Fatalf("error = %v, want INVALID_REQUEST", err)
	}
	fields, ok := appErr.Details["validation_errors"].([]ValidationError)
	if !ok || len(fields) != 1 || fields[0].Field != "at" {
		t.Errorf("details = %+v", appErr.Details)
	}
}

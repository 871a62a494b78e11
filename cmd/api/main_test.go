package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"dashboard/internal/config"
	"dashboard/internal/core"
)

// setTestEnv sets the environment for a local, stub-backed server. It uses
// t.Setenv to ensure cleanup after the test.
func setTestEnv(t *testing.T) {
	t.Helper()

	t.Setenv("APP_ENV", "local")
	t.Setenv("PORT", "8080")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("KV_BACKEND", "memory")
	t.Setenv("RATE_LIMIT_ENABLED", "false")
	t.Setenv("SCHEDULER_ENABLED", "true")
	t.Setenv("DASHBOARD_TIMEZONE", "Europe/Oslo")
}

// buildTestServer loads the configuration from the environment and builds
// the fully wired server.
func buildTestServer(t *testing.T) *core.Server {
	t.Helper()

	cfg, err := config.LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	srv, err := buildServer(t.Context(), cfg, newLogger(io.Discard, cfg.LogLevel))
	if err != nil {
		t.Fatalf("buildServer: %v", err)
	}
	t.Cleanup(func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	})
	return srv
}

func do(t *testing.T, srv *core.Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// TestHealthEndpoint verifies that the fully wired server responds with 200
// on GET /health when the store is reachable.
func TestHealthEndpoint(t *testing.T) {
	setTestEnv(t)
	srv := buildTestServer(t)

	rec := do(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health: got status %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("GET /health: got status=%v, want 'healthy'", resp["status"])
	}
}

// TestRoutesAreMounted checks one route of every handler group.
func TestRoutesAreMounted(t *testing.T) {
	setTestEnv(t)
	srv := buildTestServer(t)

	tests := []struct {
		method string
		target string
		want   int
	}{
		{http.MethodGet, "/weather?location=Oslo", http.StatusOK},
		{http.MethodGet, "/route-time?from=Home&to=Office", http.StatusOK},
		{http.MethodGet, "/discord-status", http.StatusOK},
		{http.MethodGet, "/reminder", http.StatusOK},
		{http.MethodGet, "/alerts/threshold", http.StatusOK},
		{http.MethodGet, "/auto-mode/status", http.StatusOK},
		{http.MethodGet, "/scheduler/status", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/weather", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := do(t, srv, tt.method, tt.target, "")
			if rec.Code != tt.want {
				t.Errorf("%s %s: got status %d, want %d; body: %s", tt.method, tt.target, rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

// TestCacheMetricsExposed verifies the fetcher reports to the collector
// served at /metrics.
func TestCacheMetricsExposed(t *testing.T) {
	setTestEnv(t)
	srv := buildTestServer(t)

	for range 2 {
		if rec := do(t, srv, http.MethodGet, "/weather?location=Bergen", ""); rec.Code != http.StatusOK {
			t.Fatalf("GET /weather: got status %d; body: %s", rec.Code, rec.Body.String())
		}
	}

	rec := do(t, srv, http.MethodGet, "/metrics", "")
	body := rec.Body.String()
	for _, want := range []string{"dashboard_cache_fetch_total", "dashboard_http_requests_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics is missing %s", want)
		}
	}
}

// TestSchedulerDisabled verifies a disabled scheduler reports not running
// and rejects new tasks.
func TestSchedulerDisabled(t *testing.T) {
	setTestEnv(t)
	t.Setenv("SCHEDULER_ENABLED", "false")
	srv := buildTestServer(t)

	rec := do(t, srv, http.MethodGet, "/scheduler/status", "")
	var status struct {
		Running bool `json:"running"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if status.Running {
		t.Error("scheduler status: got running=true, want false")
	}

	rec = do(t, srv, http.MethodPost, "/scheduler/events", `{"taskType":"refresh_discord","scheduleExpression":"@every 1m"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("POST /scheduler/events: got status %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// TestRedisBackend wires the server against a miniredis instance and checks
// that settings round-trip through it and that a restart restores tasks.
func TestRedisBackend(t *testing.T) {
	mr := miniredis.RunT(t)

	setTestEnv(t)
	t.Setenv("KV_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://"+mr.Addr()+"/0")
	srv := buildTestServer(t)

	rec := do(t, srv, http.MethodPost, "/alerts/threshold", `{"thresholdMinutes":25}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /alerts/threshold: got status %d; body: %s", rec.Code, rec.Body.String())
	}
	rec = do(t, srv, http.MethodPost, "/scheduler/events", `{"taskType":"refresh_discord","scheduleExpression":"@every 1h"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /scheduler/events: got status %d; body: %s", rec.Code, rec.Body.String())
	}

	restarted := buildTestServer(t)

	rec = do(t, restarted, http.MethodGet, "/alerts/threshold", "")
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"thresholdMinutes":25`)) {
		t.Errorf("threshold not restored: %s", rec.Body.String())
	}
	rec = do(t, restarted, http.MethodGet, "/scheduler/events", "")
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"count":1`)) {
		t.Errorf("scheduled task not restored: %s", rec.Body.String())
	}
}

// TestRedisBackendUnreachable verifies startup fails when Redis is down.
func TestRedisBackendUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	setTestEnv(t)
	t.Setenv("KV_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://"+addr+"/0")
	t.Setenv("REDIS_DIAL_TIMEOUT", "200ms")

	cfg, err := config.LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if _, err := buildServer(t.Context(), cfg, newLogger(io.Discard, "error")); err == nil {
		t.Fatal("buildServer: expected an error for an unreachable redis")
	}
}

// TestNewLogger verifies that the logger factory honours the level.
func TestNewLogger(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"error", false, false},
		{"unknown", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := newLogger(&buf, tt.level)
			if got := logger.Enabled(context.Background(), -4); got != tt.wantDebug {
				t.Errorf("debug enabled: got %v, want %v", got, tt.wantDebug)
			}
			if got := logger.Enabled(context.Background(), 0); got != tt.wantInfo {
				t.Errorf("info enabled: got %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

package core

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dashboard/internal/kv"
)

func serveHealth(t *testing.T, probes ...HealthProbe) (int, healthResponse) {
	t.Helper()
	srv, _ := NewServer(testConfig(), discardLogger())
	srv.HealthProbes = probes

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, resp
}

func TestHandleHealth_NoProbes(t *testing.T) {
	code, resp := serveHealth(t)
	if code != http.StatusOK || resp.Status != "healthy" {
		t.Errorf("got %d %q, want 200 healthy", code, resp.Status)
	}
	if len(resp.Components) != 0 {
		t.Errorf("components = %v, want none", resp.Components)
	}
}

func TestHandleHealth_KVStore(t *testing.T) {
	code, resp := serveHealth(t, kv.Probe{Store: kv.NewMemoryStore()})
	if code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if resp.Components["kv"].Status != "healthy" {
		t.Errorf("kv component = %+v", resp.Components["kv"])
	}

	down := &kv.FaultyStore{Store: kv.NewMemoryStore(), PingErr: errors.New("connection refused")}
	code, resp = serveHealth(t, kv.Probe{Store: down})
	if code != http.StatusServiceUnavailable || resp.Status != "unhealthy" {
		t.Fatalf("got %d %q, want 503 unhealthy", code, resp.Status)
	}
	if got := resp.Components["kv"]; got.Status != "unhealthy" || got.Message != "connection refused" {
		t.Errorf("kv component = %+v", got)
	}
}

func TestHandleHealth_OneUnhealthyFailsTheWhole(t *testing.T) {
	good := &MockHealthProbe{ProbeName: "kv"}
	bad := &MockHealthProbe{ProbeName: "scheduler", Err: errors.New("stopped")}

	code, resp := serveHealth(t, good, bad)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if resp.Components["kv"].Status != "healthy" {
		t.Errorf("kv = %+v", resp.Components["kv"])
	}
	if resp.Components["scheduler"].Message != "stopped" {
		t.Errorf("scheduler = %+v", resp.Components["scheduler"])
	}
	if good.Calls() != 1 || bad.Calls() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", good.Calls(), bad.Calls())
	}
}

func TestHandleHealth_Timeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the health deadline")
	}
	slow := &MockHealthProbe{ProbeName: "kv", Delay: 5 * time.Second}

	start := time.Now()
	code, resp := serveHealth(t, slow)
	elapsed := time.Since(start)

	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if resp.Components["kv"].Status != "unhealthy" {
		t.Errorf("kv = %+v", resp.Components["kv"])
	}
	if elapsed > healthCheckTimeout+time.Second {
		t.Errorf("health check took %s, want about %s", elapsed, healthCheckTimeout)
	}
}

func TestHandleHealth_ProbePanic(t *testing.T) {
	panicky := &MockHealthProbe{
		ProbeName: "kv",
		CheckFunc: func(context.Context) error { panic("nil client") },
	}

	code, resp := serveHealth(t, panicky)
	if code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", code)
	}
	if resp.Components["kv"].Message == "" {
		t.Error("expected the panic to be reported in the message")
	}
}

func TestHandleHealth_ReportsVersionAndLatency(t *testing.T) {
	srv, _ := NewServer(testConfig(), discardLogger())
	srv.Config.Build.Version = "1.4.0"
	srv.HealthProbes = []HealthProbe{&MockHealthProbe{ProbeName: "kv", Delay: 20 * time.Millisecond}}

	rec := httptest.NewRecorder()
	srv.HandleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Version != "1.4.0" {
		t.Errorf("version = %q", resp.Version)
	}
	if _, err := time.Parse(time.RFC3339Nano, resp.ServerTime); err != nil {
		t.Errorf("serverTime %q: %v", resp.ServerTime, err)
	}
	if got := resp.Components["kv"].LatencyMs; got < 20 {
		t.Errorf("latencyMs = %d, want at least 20", got)
	}
}

package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"dashboard/internal/types"
)

// healthCheckTimeout bounds the whole health check. A probe still running at
// the deadline is reported unhealthy.
const healthCheckTimeout = 2 * time.Second

// HealthProbe checks one backing dependency, such as the KV store.
type HealthProbe interface {
	// Name is the component key in the response, e.g. "kv".
	Name() string

	// Check returns an error if the dependency is unreachable. It must
	// respect the context deadline.
	Check(ctx context.Context) error
}

type componentStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latencyMs"`
}

type healthResponse struct {
	Status     string                     `json:"status"`
	Version    string                     `json:"version,omitempty"`
	ServerTime string                     `json:"serverTime"`
	Components map[string]componentStatus `json:"components,omitempty"`
}

// HandleHealth runs every probe concurrently and answers 200 when all of them
// pass, 503 otherwise. Mounted at GET /health.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:     "healthy",
		Version:    s.Config.Build.Version,
		ServerTime: types.FormatISO(time.Now()),
	}
	if len(s.HealthProbes) == 0 {
		JSON(w, r, http.StatusOK, resp)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	// Each probe owns one buffered slot, so a probe that outlives the
	// deadline never blocks on send.
	slots := make([]chan componentStatus, len(s.HealthProbes))
	for i, p := range s.HealthProbes {
		slots[i] = make(chan componentStatus, 1)
		go func() { slots[i] <- runProbe(ctx, p) }()
	}

	resp.Components = make(map[string]componentStatus, len(s.HealthProbes))
	for i, p := range s.HealthProbes {
		st, ok := awaitProbe(ctx, slots[i])
		if !ok {
			st = componentStatus{Status: "unhealthy", Message: "health check timed out",
				LatencyMs: healthCheckTimeout.Milliseconds()}
		}
		if st.Status != "healthy" {
			resp.Status = "unhealthy"
			s.Logger.Warn("health probe failed", "component", p.Name(), "message", st.Message)
		}
		resp.Components[p.Name()] = st
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	JSON(w, r, status, resp)
}

// awaitProbe prefers a result that is already available over an expired
// deadline.
func awaitProbe(ctx context.Context, slot <-chan componentStatus) (componentStatus, bool) {
	select {
	case st := <-slot:
		return st, true
	default:
	}
	select {
	case st := <-slot:
		return st, true
	case <-ctx.Done():
		return componentStatus{}, false
	}
}

func runProbe(ctx context.Context, p HealthProbe) (st componentStatus) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			st = componentStatus{Status: "unhealthy", Message: fmt.Sprintf("probe panicked: %v", rec)}
		}
		st.LatencyMs = time.Since(start).Milliseconds()
	}()

	if err := p.Check(ctx); err != nil {
		return componentStatus{Status: "unhealthy", Message: err.Error()}
	}
	return componentStatus{Status: "healthy"}
}

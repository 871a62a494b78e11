// Package core provides the HTTP chassis of the dashboard API: the chi
// router, the global middleware chain, the JSON response and error envelope,
// request validation and the health endpoint. Domain handlers mount their
// routes through RouteRegistrars so core never imports them.
package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dashboard/internal/config"
)

// MetricsCollector defines the interface for recording API telemetry.
type MetricsCollector interface {
	// RecordRequest records one request against its route pattern.
	RecordRequest(method, endpoint, status string, duration time.Duration)
}

// RateLimitRecorder is optionally implemented by a MetricsCollector to count
// requests rejected by the rate limiter.
type RateLimitRecorder interface {
	RecordRateLimited()
}

// Server encapsulates all dependencies of the HTTP layer so tests can build
// one with fakes.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   MetricsCollector

	// HealthProbes are checked concurrently by GET /health.
	HealthProbes []HealthProbe

	// MetricsHandler, when set, is mounted at GET /metrics.
	MetricsHandler http.Handler

	// RouteRegistrars mount the domain handlers. Populated by main.go.
	RouteRegistrars []func(r chi.Router)

	// Closers are released on Shutdown in order.
	Closers []io.Closer

	router *chi.Mux
}

// NewServer initializes dependencies and prepares the router. The caller
// mounts routes with MountRoutes after setting the optional fields.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases the server's resources. All closers are attempted; the
// joined error reports every failure.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.InfoContext(ctx, "server shutdown initiated")

	var errs []error
	for _, c := range s.Closers {
		if err := c.Close(); err != nil {
			s.Logger.Error("error closing resource", "error", err)
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("closing resources: %w", err)
	}

	s.Logger.InfoContext(ctx, "server shutdown complete")
	return nil
}

// Package main is the entry point for the dashboard API server.
//
// It loads the configuration, connects the key-value store, builds the
// provider registry, the cached resource service, the alert, auto-mode and
// scheduler services, and serves them through the core HTTP chassis.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dashboard/internal/alerts"
	"dashboard/internal/api/handlers"
	"dashboard/internal/automode"
	"dashboard/internal/cache"
	"dashboard/internal/config"
	"dashboard/internal/core"
	"dashboard/internal/external"
	"dashboard/internal/kv"
	"dashboard/internal/metrics"
	"dashboard/internal/resources"
	"dashboard/internal/scheduler"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(nil)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(os.Stdout, cfg.LogLevel)
	logger.Info("dashboard API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.String(),
		"port", cfg.Server.Port,
		"kv_backend", cfg.Redis.Backend,
		"stub_providers", cfg.UseStubs(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	return runHTTPServer(ctx, srv, cfg, logger)
}

// buildServer wires every dependency and mounts the routes. Resources opened
// here are registered as closers on the returned server.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core.Server, error) {
	loc, err := cfg.Dashboard.Location()
	if err != nil {
		return nil, err
	}

	store, storeCloser, err := openStore(ctx, cfg.Redis, logger)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()

	providers, err := external.NewClientRegistry(cfg, logger, external.WithLocation(loc))
	if err != nil {
		closeQuietly(storeCloser, logger)
		return nil, fmt.Errorf("building provider registry: %w", err)
	}

	policies, err := resources.PoliciesFromConfig(cfg.Cache, loc)
	if err != nil {
		closeQuietly(storeCloser, logger)
		return nil, fmt.Errorf("invalid cache policy: %w", err)
	}

	fetcher := cache.NewFetcher(store, logger,
		cache.WithRecorder(collector),
		cache.WithSingleFlight(cfg.Cache.SingleFlight),
	)
	resourceSvc := resources.NewService(fetcher, providers, policies, loc, logger)
	alertSvc := alerts.NewService(store, logger, nil)
	autoModeSvc := automode.NewService(store, loc, logger, nil)

	sched := scheduler.New(store, scheduler.DefaultHandlers(resourceSvc, store), logger,
		scheduler.WithLocation(loc),
		scheduler.WithBusyRetryDelay(cfg.Scheduler.BusyRetryDelay),
		scheduler.WithRecorder(collector),
	)
	if cfg.Scheduler.Enabled {
		n, err := sched.Load(ctx)
		if err != nil {
			// Persisted tasks are best effort; the registry still accepts new ones.
			logger.Error("failed to restore scheduled tasks", "error", err)
		} else {
			logger.Info("scheduled tasks restored", "count", n)
		}
	} else {
		sched.Stop()
		logger.Info("scheduler disabled")
	}

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		sched.Stop()
		closeQuietly(storeCloser, logger)
		return nil, fmt.Errorf("creating server: %w", err)
	}

	srv.Metrics = collector
	srv.MetricsHandler = collector.Handler()
	srv.HealthProbes = []core.HealthProbe{kv.Probe{Store: store}}

	// The scheduler stops before the store it persists to is closed.
	srv.Closers = append(srv.Closers, closerFunc(func() error {
		sched.Stop()
		return nil
	}))
	if storeCloser != nil {
		srv.Closers = append(srv.Closers, storeCloser)
	}

	resourceHandler := handlers.NewResourceHandler(resourceSvc, srv.Validator, logger)
	alertHandler := handlers.NewAlertHandler(alertSvc, resourceSvc, srv.Validator, logger)
	autoModeHandler := handlers.NewAutoModeHandler(autoModeSvc, srv.Validator, logger)
	schedulerHandler := handlers.NewSchedulerHandler(sched, srv.Validator, logger)

	srv.RouteRegistrars = append(srv.RouteRegistrars,
		resourceHandler.RegisterRoutes,
		alertHandler.RegisterRoutes,
		autoModeHandler.RegisterRoutes,
		schedulerHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

// openStore connects the configured key-value backend. The returned closer
// is nil for the memory backend.
func openStore(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (kv.Store, io.Closer, error) {
	if cfg.Backend == "memory" {
		logger.Warn("using in-memory KV store; cached data and settings are lost on restart")
		return kv.NewMemoryStore(), nil, nil
	}

	store, err := kv.NewRedisStore(ctx, kv.RedisOptions{
		URL:          cfg.URL.Unmask(),
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("opening redis store: %w", err)
	}
	return store, store, nil
}

// runHTTPServer serves until ctx is cancelled or the listener fails, then
// shuts down within the configured deadline.
func runHTTPServer(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var listenErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			listenErr = fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return errors.Join(listenErr, fmt.Errorf("server shutdown: %w", err))
	}
	if listenErr != nil {
		return listenErr
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a JSON slog.Logger writing to w at the given level.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func closeQuietly(c io.Closer, logger *slog.Logger) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		logger.Error("error closing resource", "error", err)
	}
}

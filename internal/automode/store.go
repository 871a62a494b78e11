package automode

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"dashboard/internal/kv"
	"dashboard/internal/types"
)

const configKey = "automode:config"

// ConfigStore persists the auto-mode configuration without expiry.
type ConfigStore struct {
	store  kv.Store
	logger *slog.Logger
}

// NewConfigStore creates a ConfigStore.
func NewConfigStore(store kv.Store, logger *slog.Logger) *ConfigStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigStore{store: store, logger: logger}
}

// Get returns the saved configuration, or DefaultConfig when nothing valid
// is stored or the store cannot be read.
func (s *ConfigStore) Get(ctx context.Context) Config {
	logger := types.LoggerFromContext(ctx, s.logger)

	raw, ok, err := s.store.Get(ctx, configKey)
	if err != nil {
		logger.Warn("Auto-mode config read failed, using default", "error", err)
		return DefaultConfig()
	}
	if !ok {
		return DefaultConfig()
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		logger.Warn("Discarding undecodable auto-mode config", "error", err)
		return DefaultConfig()
	}
	if cfg.TimeWindows == nil {
		cfg.TimeWindows = []TimeWindow{}
	}
	return cfg
}

// Set saves cfg. Callers validate it first.
func (s *ConfigStore) Set(ctx context.Context, cfg Config) error {
	b, err := json.Marshal(cfg)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternal, "failed to encode auto-mode config", err)
	}
	if err := s.store.Set(ctx, configKey, string(b), 0); err != nil {
		return types.NewAppError(types.ErrCodeInternal, "failed to store auto-mode config", err)
	}
	return nil
}

// Status is the body of the auto-mode status routes.
type Status struct {
	Enabled               bool        `json:"enabled"`
	Mode                  Mode        `json:"mode"`
	ActiveWindow          *TimeWindow `json:"activeWindow,omitempty"`
	NextBoundaryIso       *string     `json:"nextBoundaryIso,omitempty"`
	NavModeRefreshSeconds int         `json:"navModeRefreshSeconds"`
	ServerTime            string      `json:"serverTime"`
}

// Service answers status queries on the dashboard clock.
type Service struct {
	Store *ConfigStore
	loc   *time.Location
	now   func() time.Time
}

// NewService creates a Service. loc is the dashboard time zone.
func NewService(store kv.Store, loc *time.Location, logger *slog.Logger, now func() time.Time) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Service{Store: NewConfigStore(store, logger), loc: loc, now: now}
}

// Now returns the service clock reading.
func (s *Service) Now() time.Time {
	return s.now()
}

// Status evaluates cfg at the given instant. A nil cfg means the saved
// configuration; a zero at means now.
func (s *Service) Status(ctx context.Context, at time.Time, cfg *Config) Status {
	if at.IsZero() {
		at = s.now()
	}
	effective := s.Store.Get(ctx)
	if cfg != nil {
		effective = *cfg
	}
	local := at.In(s.loc)

	mode, window := ResolveMode(effective, local)
	st := Status{
		Enabled:               effective.Enabled,
		Mode:                  mode,
		ActiveWindow:          window,
		NavModeRefreshSeconds: effective.NavModeRefreshSeconds,
		ServerTime:            types.FormatISO(s.now()),
	}
	if effective.Enabled {
		if next := NextBoundary(effective, local); next != nil {
			iso := types.FormatISO(*next)
			st.NextBoundaryIso = &iso
		}
	}
	return st
}

// Config returns the saved configuration or the default.
func (s *Service) Config(ctx context.Context) Config {
	return s.Store.Get(ctx)
}

// SaveConfig stores cfg. A nil window list is saved as empty.
func (s *Service) SaveConfig(ctx context.Context, cfg Config) (Config, error) {
	if cfg.TimeWindows == nil {
		cfg.TimeWindows = []TimeWindow{}
	}
	if err := s.Store.Set(ctx, cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

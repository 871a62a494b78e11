package external

import (
	"log/slog"
	"net/http"
	"time"

	"dashboard/internal/config"
)

// userAgent is sent on every outbound provider request.
const userAgent = "Dashboard/1.0"

// ---------------------------------------------------------------------------
// Client Registry
//
// Central factory that instantiates every provider based on configuration.
// In test/local mode it returns deterministic stubs that need neither
// network access nor credentials; otherwise it returns live clients with
// strict timeouts.
// ---------------------------------------------------------------------------

// ClientRegistry holds all provider interfaces. It is the single point of
// access for the rest of the application to third-party data.
type ClientRegistry struct {
	Weather    WeatherProvider
	Directions DirectionsProvider
	Presence   PresenceProvider
	Reminders  ReminderProvider
}

// RegistryOption is a functional option for configuring a ClientRegistry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	now        func() time.Time
	location   *time.Location
	clientOpts []BaseClientOption
}

// WithClock injects the time source used to stamp payloads.
func WithClock(now func() time.Time) RegistryOption {
	return func(rc *registryConfig) {
		rc.now = now
	}
}

// WithLocation sets the dashboard time zone used for reminder due times.
func WithLocation(loc *time.Location) RegistryOption {
	return func(rc *registryConfig) {
		rc.location = loc
	}
}

// WithClientOptions applies BaseClient options to every live HTTP client.
func WithClientOptions(opts ...BaseClientOption) RegistryOption {
	return func(rc *registryConfig) {
		rc.clientOpts = append(rc.clientOpts, opts...)
	}
}

// NewClientRegistry initializes all providers. If cfg.UseStubs() is true the
// registry is populated with stubs; otherwise live clients are built.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger, opts ...RegistryOption) (*ClientRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	rc := &registryConfig{now: time.Now, location: time.UTC}
	for _, opt := range opts {
		opt(rc)
	}

	if cfg.UseStubs() {
		logger.Info("initializing providers in STUB mode",
			"is_test_mode", cfg.IsTestMode,
			"environment", cfg.Environment,
		)
		return newStubRegistry(cfg, logger, rc), nil
	}

	logger.Info("initializing providers in PRODUCTION mode",
		"environment", cfg.Environment,
	)
	return newProductionRegistry(cfg, logger, rc), nil
}

func newStubRegistry(cfg *config.Config, logger *slog.Logger, rc *registryConfig) *ClientRegistry {
	stubLogger := logger.With("mode", "stub")

	return &ClientRegistry{
		Weather:    NewStubWeatherProvider(stubLogger, rc.now),
		Directions: NewStubDirectionsProvider(stubLogger, rc.now),
		Presence:   NewStubPresenceProvider(cfg.Providers.DiscordGuildID, stubLogger, rc.now),
		Reminders:  NewStubReminderProvider(rc.location, stubLogger, rc.now),
	}
}

func newProductionRegistry(cfg *config.Config, logger *slog.Logger, rc *registryConfig) *ClientRegistry {
	p := cfg.Providers

	// One http.Client per provider so a slow upstream cannot exhaust the
	// connection pool of another.
	newHTTPClient := func() *http.Client {
		return &http.Client{Timeout: p.Timeout}
	}

	if !p.DirectionsAPIKey.IsSet() {
		logger.Warn("DIRECTIONS_API_KEY is not set; route-time requests will fail upstream")
	}
	if p.DiscordGuildID == "" {
		logger.Warn("DISCORD_GUILD_ID is not set; discord-status requests will fail upstream")
	}

	return &ClientRegistry{
		Weather: NewOpenMeteoClient(newHTTPClient(), OpenMeteoConfig{
			GeocodingURL: p.OpenMeteoGeocodingURL,
			ForecastURL:  p.OpenMeteoForecastURL,
			Logger:       logger.With("client", "open-meteo"),
			Now:          rc.now,
		}, rc.clientOpts...),
		Directions: NewDirectionsClient(newHTTPClient(), DirectionsConfig{
			APIKey:  p.DirectionsAPIKey.Unmask(),
			BaseURL: p.DirectionsBaseURL,
			Logger:  logger.With("client", "google-directions"),
			Now:     rc.now,
		}, rc.clientOpts...),
		Presence: NewDiscordWidgetClient(newHTTPClient(), DiscordConfig{
			GuildID: p.DiscordGuildID,
			BaseURL: p.DiscordBaseURL,
			Logger:  logger.With("client", "discord"),
			Now:     rc.now,
		}, rc.clientOpts...),
		Reminders: NewFileReminderProvider(FileReminderConfig{
			Path:     p.RemindersFile,
			Location: rc.location,
			Logger:   logger.With("client", "reminders-file"),
			Now:      rc.now,
		}),
	}
}

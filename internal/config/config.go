// Package config defines the configuration structure for the dashboard API.
// Configuration is loaded once at process start and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> <NAME>_FILE secret files (Lowest)
//
// Any invalid value causes startup to fail with a *ConfigError.
package config

import (
	"fmt"
	"time"

	"dashboard/internal/types"
)

// SecretString is an alias for types.SecretString, the redacted secret type used
// throughout configuration to prevent accidental logging of sensitive values.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the section they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"dashboard-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	// Domain Configurations
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Providers ProvidersConfig
	RateLimit RateLimitConfig
	Dashboard DashboardConfig
	Scheduler SchedulerConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// UseStubs reports whether deterministic stub providers replace the live
// upstream clients.
func (c *Config) UseStubs() bool {
	return c.IsTestMode || c.Environment == localEnv
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s" validate:"gt=0"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	EnableCompression  bool          `envconfig:"ENABLE_COMPRESSION" default:"true"`
}

// RedisConfig selects and tunes the key-value backend.
type RedisConfig struct {
	// Backend is "redis" for production or "memory" for a process-local store.
	Backend      string        `envconfig:"KV_BACKEND" default:"redis" validate:"oneof=redis memory"`
	URL          SecretString  `envconfig:"REDIS_URL" default:"redis://localhost:6379/0" validate:"required_if=Backend redis"`
	DialTimeout  time.Duration `envconfig:"REDIS_DIAL_TIMEOUT" default:"2s"`
	ReadTimeout  time.Duration `envconfig:"REDIS_READ_TIMEOUT" default:"1s"`
	WriteTimeout time.Duration `envconfig:"REDIS_WRITE_TIMEOUT" default:"1s"`
	PoolSize     int           `envconfig:"REDIS_POOL_SIZE" default:"10" validate:"min=1"`
}

// CacheConfig holds the per-resource freshness policies.
type CacheConfig struct {
	WeatherTTL   time.Duration `envconfig:"CACHE_WEATHER_TTL" default:"900s" validate:"gte=0"`
	WeatherGrace time.Duration `envconfig:"CACHE_WEATHER_GRACE" default:"3600s" validate:"gte=0"`

	RouteTTL       time.Duration `envconfig:"CACHE_ROUTE_TTL" default:"300s" validate:"gte=0"`
	RouteGrace     time.Duration `envconfig:"CACHE_ROUTE_GRACE" default:"900s" validate:"gte=0"`
	RoutePeakTTL   time.Duration `envconfig:"CACHE_ROUTE_PEAK_TTL" default:"120s" validate:"gte=0"`
	RoutePeakGrace time.Duration `envconfig:"CACHE_ROUTE_PEAK_GRACE" default:"600s" validate:"gte=0"`
	RoutePeakHours []int         `envconfig:"CACHE_ROUTE_PEAK_HOURS" default:"7,8,16,17" validate:"dive,min=0,max=23"`

	DiscordTTL   time.Duration `envconfig:"CACHE_DISCORD_TTL" default:"60s" validate:"gte=0"`
	DiscordGrace time.Duration `envconfig:"CACHE_DISCORD_GRACE" default:"600s" validate:"gte=0"`

	ReminderTTL   time.Duration `envconfig:"CACHE_REMINDER_TTL" default:"300s" validate:"gte=0"`
	ReminderGrace time.Duration `envconfig:"CACHE_REMINDER_GRACE" default:"900s" validate:"gte=0"`

	// SingleFlight coalesces concurrent provider calls for the same key.
	SingleFlight bool `envconfig:"CACHE_SINGLE_FLIGHT" default:"false"`
}

// ProvidersConfig holds upstream endpoints and credentials. Base URLs are
// overridable for testing; empty means the public default.
type ProvidersConfig struct {
	Timeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"8s" validate:"gt=0"`

	OpenMeteoGeocodingURL string `envconfig:"OPEN_METEO_GEOCODING_URL" validate:"omitempty,url"`
	OpenMeteoForecastURL  string `envconfig:"OPEN_METEO_FORECAST_URL" validate:"omitempty,url"`

	DirectionsAPIKey  SecretString `envconfig:"DIRECTIONS_API_KEY"`
	DirectionsBaseURL string       `envconfig:"DIRECTIONS_BASE_URL" validate:"omitempty,url"`

	DiscordGuildID string `envconfig:"DISCORD_GUILD_ID" validate:"omitempty,numeric"`
	DiscordBaseURL string `envconfig:"DISCORD_BASE_URL" validate:"omitempty,url"`

	RemindersFile string `envconfig:"REMINDERS_FILE" default:"reminders.json"`
}

// RateLimitConfig configures the per-IP request gate ahead of all routes.
type RateLimitConfig struct {
	Enabled  bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Requests int           `envconfig:"RATE_LIMIT_REQUESTS" default:"120" validate:"min=1"`
	Window   time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"1m" validate:"gt=0"`
}

// DashboardConfig holds settings of the dashboard's civil clock.
type DashboardConfig struct {
	// Timezone is an IANA zone used for auto-mode windows, reminder due
	// times and route peak hours.
	Timezone string `envconfig:"DASHBOARD_TIMEZONE" default:"UTC" validate:"required,timezone"`
}

// Location loads the configured time zone.
func (d DashboardConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(d.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading DASHBOARD_TIMEZONE %q: %w", d.Timezone, err)
	}
	return loc, nil
}

// SchedulerConfig controls the in-process task registry.
type SchedulerConfig struct {
	Enabled bool `envconfig:"SCHEDULER_ENABLED" default:"true"`
	// BusyRetryDelay is how long a task that fired while another was running
	// waits before trying again.
	BusyRetryDelay time.Duration `envconfig:"SCHEDULER_BUSY_RETRY_DELAY" default:"1s" validate:"gt=0"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string `ignored:"true"`
	Commit    string `ignored:"true"`
	BuildTime string `ignored:"true"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrSecretResolution indicates a failure reading a <NAME>_FILE secret.
	ErrSecretResolution ConfigErrorType = "SECRET_FILE_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)

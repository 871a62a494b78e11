package config

import (
	"errors"
	"testing"
	"time"
)

// validConfig returns a Config that passes validation, mirroring the
// envconfig defaults.
func validConfig() *Config {
	return &Config{
		Environment: "local",
		Service:     "dashboard-api",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            "8080",
			RequestTimeout:  15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Backend:  "redis",
			URL:      "redis://localhost:6379/0",
			PoolSize: 10,
		},
		Cache: CacheConfig{
			WeatherTTL:     900 * time.Second,
			WeatherGrace:   3600 * time.Second,
			RouteTTL:       300 * time.Second,
			RouteGrace:     900 * time.Second,
			RoutePeakTTL:   120 * time.Second,
			RoutePeakGrace: 600 * time.Second,
			RoutePeakHours: []int{7, 8, 16, 17},
		},
		Providers: ProvidersConfig{Timeout: 8 * time.Second},
		RateLimit: RateLimitConfig{Enabled: true, Requests: 120, Window: time.Minute},
		Dashboard: DashboardConfig{Timezone: "UTC"},
		Scheduler: SchedulerConfig{Enabled: true, BusyRetryDelay: time.Second},
	}
}

func TestValidate_AcceptsDefaults(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.Environment = "qa" }},
		{"unknown log level", func(c *Config) { c.LogLevel = "verbose" }},
		{"unknown kv backend", func(c *Config) { c.Redis.Backend = "memcached" }},
		{"redis backend without url", func(c *Config) { c.Redis.URL = "" }},
		{"negative cache ttl", func(c *Config) { c.Cache.RouteTTL = -time.Second }},
		{"peak hour out of range", func(c *Config) { c.Cache.RoutePeakHours = []int{7, 24} }},
		{"zero rate limit", func(c *Config) { c.RateLimit.Requests = 0 }},
		{"bad time zone", func(c *Config) { c.Dashboard.Timezone = "Mars/Olympus" }},
		{"non-numeric guild id", func(c *Config) { c.Providers.DiscordGuildID = "my-guild" }},
		{"bad base url", func(c *Config) { c.Providers.DirectionsBaseURL = "not a url" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() = %v, want *ConfigError", err)
			}
			if cfgErr.Type != ErrValidation {
				t.Errorf("ConfigError.Type = %s, want %s", cfgErr.Type, ErrValidation)
			}
		})
	}
}

func TestValidate_MemoryBackendNeedsNoURL(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Backend = "memory"
	cfg.Redis.URL = ""

	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestUseStubs(t *testing.T) {
	tests := []struct {
		env      string
		testMode bool
		want     bool
	}{
		{"local", false, true},
		{"prod", false, false},
		{"prod", true, true},
		{"staging", false, false},
	}
	for _, tt := range tests {
		cfg := &Config{Environment: tt.env, IsTestMode: tt.testMode}
		if got := cfg.UseStubs(); got != tt.want {
			t.Errorf("UseStubs(env=%s, test=%v) = %v, want %v", tt.env, tt.testMode, got, tt.want)
		}
	}
}

func TestDashboardLocation(t *testing.T) {
	loc, err := DashboardConfig{Timezone: "Europe/Oslo"}.Location()
	if err != nil {
		t.Fatalf("Location() error: %v", err)
	}
	if loc.String() != "Europe/Oslo" {
		t.Errorf("Location() = %s, want Europe/Oslo", loc)
	}

	if _, err := (DashboardConfig{Timezone: "Nowhere/Special"}).Location(); err == nil {
		t.Error("Location() with unknown zone returned nil error")
	}
}

func TestConfigError_Format(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Type: ErrParsing, Message: "bad PORT", Err: inner}

	if got, want := err.Error(), "[PARSING_FAILED] bad PORT: boom"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, inner) {
		t.Error("ConfigError does not unwrap to its cause")
	}

	bare := &ConfigError{Type: ErrSecretResolution, Message: "missing"}
	if got, want := bare.Error(), "[SECRET_FILE_FAILURE] missing"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

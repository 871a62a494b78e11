// Package resources serves the dashboard's cached data resources (weather,
// route time, guild presence, reminders). Each resource binds a provider
// from the external registry to cache.Fetch with its own key and policy.
package resources

import (
	"fmt"
	"log/slog"
	"time"

	"dashboard/internal/cache"
	"dashboard/internal/config"
	"dashboard/internal/external"
	"dashboard/internal/types"
)

// Bounds for caller-supplied freshnessSeconds overrides.
const (
	WeatherFreshnessMin = 60
	WeatherFreshnessMax = 3600
	RouteFreshnessMin   = 60
	RouteFreshnessMax   = 1800
)

// Resource names used in logs, metrics and provider error messages.
const (
	ResourceWeather  = "weather"
	ResourceRoute    = "route-time"
	ResourceDiscord  = "discord-status"
	ResourceReminder = "reminder"
)

// Policies holds the freshness policy of each resource.
type Policies struct {
	Weather  cache.Policy
	Route    cache.Policy
	Discord  cache.Policy
	Reminder cache.Policy
}

// PoliciesFromConfig builds the resource policies. Route peak hours are read
// on the dashboard clock in loc.
func PoliciesFromConfig(c config.CacheConfig, loc *time.Location) (Policies, error) {
	p := Policies{
		Weather: cache.Policy{BaseTTL: c.WeatherTTL, StaleGrace: c.WeatherGrace},
		Route: cache.Policy{
			BaseTTL:    c.RouteTTL,
			StaleGrace: c.RouteGrace,
			Peak: &cache.PeakOverride{
				Hours:      c.RoutePeakHours,
				Location:   loc,
				BaseTTL:    c.RoutePeakTTL,
				StaleGrace: c.RoutePeakGrace,
			},
		},
		Discord:  cache.Policy{BaseTTL: c.DiscordTTL, StaleGrace: c.DiscordGrace},
		Reminder: cache.Policy{BaseTTL: c.ReminderTTL, StaleGrace: c.ReminderGrace},
	}

	for name, pol := range map[string]cache.Policy{
		ResourceWeather:  p.Weather,
		ResourceRoute:    p.Route,
		ResourceDiscord:  p.Discord,
		ResourceReminder: p.Reminder,
	} {
		if err := pol.Validate(); err != nil {
			return Policies{}, fmt.Errorf("%s: %w", name, err)
		}
	}
	return p, nil
}

// Service serves every cached resource.
type Service struct {
	fetcher   *cache.Fetcher
	providers *external.ClientRegistry
	policies  Policies
	loc       *time.Location
	logger    *slog.Logger
}

// NewService creates a Service. loc is the dashboard time zone used to pick
// the default reminder date.
func NewService(
	fetcher *cache.Fetcher,
	providers *external.ClientRegistry,
	policies Policies,
	loc *time.Location,
	logger *slog.Logger,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		fetcher:   fetcher,
		providers: providers,
		policies:  policies,
		loc:       loc,
		logger:    logger,
	}
}

// Policies returns the policies the service was built with.
func (s *Service) Policies() Policies {
	return s.policies
}

// freshnessOverride converts an optional freshnessSeconds value into a TTL
// override, rejecting values outside [lo, hi]. Zero means no override.
func freshnessOverride(seconds, lo, hi int) (time.Duration, error) {
	if seconds == 0 {
		return 0, nil
	}
	if seconds < lo || seconds > hi {
		return 0, types.NewAppErrorWithDetails(
			types.ErrCodeInvalidRequest,
			fmt.Sprintf("freshnessSeconds must be between %d and %d", lo, hi),
			nil,
			map[string]any{"field": "freshnessSeconds", "min": lo, "max": hi},
		)
	}
	return time.Duration(seconds) * time.Second, nil
}

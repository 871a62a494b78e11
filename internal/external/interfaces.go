package external

import (
	"context"

	"dashboard/internal/types"
)

// ---------------------------------------------------------------------------
// Provider contracts
//
// Each provider returns a complete payload or fails with an error. The cache
// layer treats every failure the same way (stale fallback, else
// PROVIDER_ERROR), so implementations only need to make the error message
// useful and attach the upstream status via types.NewProviderError.
// ---------------------------------------------------------------------------

// WeatherProvider resolves a free-form location and returns its hourly
// forecast.
type WeatherProvider interface {
	Forecast(ctx context.Context, location string) (types.WeatherPayload, error)
}

// DirectionsProvider measures travel time between two places.
type DirectionsProvider interface {
	TravelTime(ctx context.Context, from, to string, mode types.TravelMode) (types.RoutePayload, error)
}

// PresenceProvider returns the presence snapshot of the configured guild.
type PresenceProvider interface {
	GuildID() string
	GuildPresence(ctx context.Context) (types.DiscordPayload, error)
}

// ReminderProvider lists the reminders that fall on date (YYYY-MM-DD).
// Overdue flags are left unset; callers compute them at response time.
type ReminderProvider interface {
	RemindersFor(ctx context.Context, date string) (types.ReminderPayload, error)
}

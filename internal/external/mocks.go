package external

import (
	"context"
	"sync/atomic"

	"dashboard/internal/types"
)

// --- MockWeatherProvider ---

// MockWeatherProvider implements WeatherProvider for testing. ForecastFunc,
// when set, takes precedence over Payload and Err.
//
// Usage:
//
//	mock := &external.MockWeatherProvider{Payload: types.WeatherPayload{Provider: "mock"}}
//	mock := &external.MockWeatherProvider{Err: errors.New("upstream down")}
type MockWeatherProvider struct {
	Payload      types.WeatherPayload
	Err          error
	ForecastFunc func(ctx context.Context, location string) (types.WeatherPayload, error)

	calls atomic.Int32
}

// Forecast implements WeatherProvider.
func (m *MockWeatherProvider) Forecast(ctx context.Context, location string) (types.WeatherPayload, error) {
	m.calls.Add(1)
	if m.ForecastFunc != nil {
		return m.ForecastFunc(ctx, location)
	}
	if m.Err != nil {
		return types.WeatherPayload{}, m.Err
	}
	p := m.Payload
	if p.Location == "" {
		p.Location = location
	}
	return p, nil
}

// Calls returns how many times Forecast was invoked.
func (m *MockWeatherProvider) Calls() int { return int(m.calls.Load()) }

// --- MockDirectionsProvider ---

// MockDirectionsProvider implements DirectionsProvider for testing.
type MockDirectionsProvider struct {
	Payload        types.RoutePayload
	Err            error
	TravelTimeFunc func(ctx context.Context, from, to string, mode types.TravelMode) (types.RoutePayload, error)

	calls atomic.Int32
}

// TravelTime implements DirectionsProvider. The returned payload echoes the
// requested endpoints and mode.
func (m *MockDirectionsProvider) TravelTime(ctx context.Context, from, to string, mode types.TravelMode) (types.RoutePayload, error) {
	m.calls.Add(1)
	if m.TravelTimeFunc != nil {
		return m.TravelTimeFunc(ctx, from, to, mode)
	}
	if m.Err != nil {
		return types.RoutePayload{}, m.Err
	}
	p := m.Payload
	p.From, p.To, p.Mode = from, to, mode
	return p, nil
}

// Calls returns how many times TravelTime was invoked.
func (m *MockDirectionsProvider) Calls() int { return int(m.calls.Load()) }

// --- MockPresenceProvider ---

// MockPresenceProvider implements PresenceProvider for testing.
type MockPresenceProvider struct {
	Guild   string
	Payload types.DiscordPayload
	Err     error

	calls atomic.Int32
}

// GuildID implements PresenceProvider.
func (m *MockPresenceProvider) GuildID() string { return m.Guild }

// GuildPresence implements PresenceProvider.
func (m *MockPresenceProvider) GuildPresence(_ context.Context) (types.DiscordPayload, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return types.DiscordPayload{}, m.Err
	}
	return m.Payload, nil
}

// Calls returns how many times GuildPresence was invoked.
func (m *MockPresenceProvider) Calls() int { return int(m.calls.Load()) }

// --- MockReminderProvider ---

// MockReminderProvider implements ReminderProvider for testing.
type MockReminderProvider struct {
	Payload          types.ReminderPayload
	Err              error
	RemindersForFunc func(ctx context.Context, date string) (types.ReminderPayload, error)

	calls atomic.Int32
}

// RemindersFor implements ReminderProvider.
func (m *MockReminderProvider) RemindersFor(ctx context.Context, date string) (types.ReminderPayload, error) {
	m.calls.Add(1)
	if m.RemindersForFunc != nil {
		return m.RemindersForFunc(ctx, date)
	}
	if m.Err != nil {
		return types.ReminderPayload{}, m.Err
	}
	p := m.Payload
	p.Date = date
	return p, nil
}

// Calls returns how many times RemindersFor was invoked.
func (m *MockReminderProvider) Calls() int { return int(m.calls.Load()) }

var (
	_ WeatherProvider    = (*MockWeatherProvider)(nil)
	_ DirectionsProvider = (*MockDirectionsProvider)(nil)
	_ PresenceProvider   = (*MockPresenceProvider)(nil)
	_ ReminderProvider   = (*MockReminderProvider)(nil)
)

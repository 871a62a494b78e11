package external

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dashboard/internal/types"
)

// ---------------------------------------------------------------------------
// Stub Implementations
//
// Stubs let the API boot in local/test mode without network access or
// credentials. They log every call and return deterministic data derived
// from their inputs, so repeated calls with the same arguments agree.
// ---------------------------------------------------------------------------

const stubProvider = "stub"

// seed derives a stable pseudo-random number from the given parts.
func seed(parts ...string) uint64 {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.Join(parts, "|"))))
	return binary.BigEndian.Uint64(sum[:8])
}

// StubWeatherProvider implements WeatherProvider.
type StubWeatherProvider struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewStubWeatherProvider creates a new StubWeatherProvider.
func NewStubWeatherProvider(logger *slog.Logger, now func() time.Time) *StubWeatherProvider {
	return &StubWeatherProvider{logger: logger, now: now}
}

func (s *StubWeatherProvider) Forecast(ctx context.Context, location string) (types.WeatherPayload, error) {
	s.logger.InfoContext(ctx, "stub: Forecast called", "location", location)

	n := seed(location)
	now := s.now().UTC()
	start := now.Truncate(time.Hour)
	base := float64(n%25) - 5

	hourly := make([]types.HourlyWeather, 0, forecastHours)
	for i := range forecastHours {
		code := []int{0, 1, 2, 3, 61}[(n+uint64(i))%5]
		precip := float64((n>>8+uint64(i)*7)%100)
		hourly = append(hourly, types.HourlyWeather{
			TimeIso:                  types.FormatISO(start.Add(time.Duration(i) * time.Hour)),
			TemperatureC:             base + float64(i%12)/2,
			PrecipitationProbability: &precip,
			WeatherCode:              code,
			Summary:                  DescribeWeatherCode(code),
		})
	}

	return types.WeatherPayload{
		Location:       location,
		ResolvedName:   location,
		Latitude:       float64(n%18000)/100 - 90,
		Longitude:      float64((n>>16)%36000)/100 - 180,
		HourlyData:     hourly,
		Provider:       stubProvider,
		LastUpdatedIso: types.FormatISO(now),
	}, nil
}

// StubDirectionsProvider implements DirectionsProvider.
type StubDirectionsProvider struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewStubDirectionsProvider creates a new StubDirectionsProvider.
func NewStubDirectionsProvider(logger *slog.Logger, now func() time.Time) *StubDirectionsProvider {
	return &StubDirectionsProvider{logger: logger, now: now}
}

// stubSpeedsKmh are nominal travel speeds per mode.
var stubSpeedsKmh = map[types.TravelMode]float64{
	types.ModeDriving: 40,
	types.ModeTransit: 25,
	types.ModeWalking: 5,
}

func (s *StubDirectionsProvider) TravelTime(ctx context.Context, from, to string, mode types.TravelMode) (types.RoutePayload, error) {
	s.logger.InfoContext(ctx, "stub: TravelTime called", "from", from, "to", to, "mode", mode)

	km := 2 + float64(seed(from, to)%300)/10
	speed := stubSpeedsKmh[mode]
	if speed == 0 {
		speed = stubSpeedsKmh[types.ModeDriving]
	}

	return types.RoutePayload{
		From:            from,
		To:              to,
		Mode:            mode,
		DurationMinutes: round(km/speed*60, 1),
		DistanceKm:      round(km, 2),
		Summary:         "Stub route",
		Provider:        stubProvider,
		LastUpdatedIso:  types.FormatISO(s.now()),
	}, nil
}

// StubPresenceProvider implements PresenceProvider.
type StubPresenceProvider struct {
	guildID string
	logger  *slog.Logger
	now     func() time.Time
}

// NewStubPresenceProvider creates a new StubPresenceProvider.
func NewStubPresenceProvider(guildID string, logger *slog.Logger, now func() time.Time) *StubPresenceProvider {
	if guildID == "" {
		guildID = "000000000000000000"
	}
	return &StubPresenceProvider{guildID: guildID, logger: logger, now: now}
}

func (s *StubPresenceProvider) GuildID() string { return s.guildID }

func (s *StubPresenceProvider) GuildPresence(ctx context.Context) (types.DiscordPayload, error) {
	s.logger.InfoContext(ctx, "stub: GuildPresence called", "guild_id", s.guildID)

	return types.DiscordPayload{
		GuildID:       s.guildID,
		GuildName:     "Stub Guild",
		PresenceCount: 2,
		Members: []types.DiscordMember{
			{ID: "1", Username: "alice", Status: "online", Activity: "Factorio"},
			{ID: "2", Username: "bob", Status: "idle"},
		},
		Channels: []types.DiscordChannel{
			{ID: "10", Name: "General", Position: 0},
		},
		Provider:       stubProvider,
		LastUpdatedIso: types.FormatISO(s.now()),
	}, nil
}

// StubReminderProvider implements ReminderProvider.
type StubReminderProvider struct {
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewStubReminderProvider creates a new StubReminderProvider. Reminder due
// times are expressed in loc.
func NewStubReminderProvider(loc *time.Location, logger *slog.Logger, now func() time.Time) *StubReminderProvider {
	if loc == nil {
		loc = time.UTC
	}
	return &StubReminderProvider{loc: loc, logger: logger, now: now}
}

func (s *StubReminderProvider) RemindersFor(ctx context.Context, date string) (types.ReminderPayload, error) {
	s.logger.InfoContext(ctx, "stub: RemindersFor called", "date", date)

	day, err := time.ParseInLocation(DateLayout, date, s.loc)
	if err != nil {
		return types.ReminderPayload{}, types.NewAppError(types.ErrCodeInvalidRequest, "date must be YYYY-MM-DD", err)
	}
	at := func(h, m int) string {
		return types.FormatISO(time.Date(day.Year(), day.Month(), day.Day(), h, m, 0, 0, s.loc))
	}

	return types.ReminderPayload{
		Date: date,
		Reminders: []types.Reminder{
			{ID: fmt.Sprintf("stub-%s-am", date), Title: "Take vitamins", DueAtIso: at(8, 0), Tags: []string{"health"}},
			{ID: fmt.Sprintf("stub-%s-pm", date), Title: "Water the plants", DueAtIso: at(18, 30)},
		},
		Provider:       stubProvider,
		LastUpdatedIso: types.FormatISO(s.now()),
	}, nil
}

// Compile-time interface assertions.
var (
	_ WeatherProvider    = (*StubWeatherProvider)(nil)
	_ DirectionsProvider = (*StubDirectionsProvider)(nil)
	_ PresenceProvider   = (*StubPresenceProvider)(nil)
	_ ReminderProvider   = (*StubReminderProvider)(nil)
)

package external

import (
	"context"
	"io"
	"log/slog"
	"os"
	"reflect"
	"testing"
	"time"

	"dashboard/internal/config"
	"dashboard/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock() func() time.Time {
	t := time.Date(2026, 3, 2, 7, 30, 0, 0, time.UTC)
	return func() time.Time { return t }
}

// TestNewClientRegistry_TestModeReturnsStubs verifies that when IsTestMode is
// true, every provider is a stub.
func TestNewClientRegistry_TestModeReturnsStubs(t *testing.T) {
	cfg := &config.Config{
		IsTestMode:  true,
		Environment: "dev",
	}

	reg, err := NewClientRegistry(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewClientRegistry returned error: %v", err)
	}

	if _, ok := reg.Weather.(*StubWeatherProvider); !ok {
		t.Errorf("Weather is %T, want *StubWeatherProvider", reg.Weather)
	}
	if _, ok := reg.Directions.(*StubDirectionsProvider); !ok {
		t.Errorf("Directions is %T, want *StubDirectionsProvider", reg.Directions)
	}
	if _, ok := reg.Presence.(*StubPresenceProvider); !ok {
		t.Errorf("Presence is %T, want *StubPresenceProvider", reg.Presence)
	}
	if _, ok := reg.Reminders.(*StubReminderProvider); !ok {
		t.Errorf("Reminders is %T, want *StubReminderProvider", reg.Reminders)
	}
}

// TestNewClientRegistry_LocalEnvReturnsStubs verifies that the local
// environment uses stubs even when IsTestMode is false.
func TestNewClientRegistry_LocalEnvReturnsStubs(t *testing.T) {
	cfg := &config.Config{Environment: "local"}

	reg, err := NewClientRegistry(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewClientRegistry returned error: %v", err)
	}
	if _, ok := reg.Weather.(*StubWeatherProvider); !ok {
		t.Errorf("Weather is %T, want *StubWeatherProvider", reg.Weather)
	}
}

// TestNewClientRegistry_ProductionReturnsRealClients verifies that live
// clients are built outside local/test mode.
func TestNewClientRegistry_ProductionReturnsRealClients(t *testing.T) {
	cfg := &config.Config{
		Environment: "prod",
		Providers: config.ProvidersConfig{
			Timeout:          time.Second,
			DirectionsAPIKey: types.SecretString("maps-key"),
			DiscordGuildID:   "123456789012345678",
			RemindersFile:    "reminders.json",
		},
	}

	reg, err := NewClientRegistry(cfg, testLogger())
	if err != nil {
		t.Fatalf("NewClientRegistry returned error: %v", err)
	}

	if _, ok := reg.Weather.(*OpenMeteoClient); !ok {
		t.Errorf("Weather is %T, want *OpenMeteoClient", reg.Weather)
	}
	if _, ok := reg.Directions.(*DirectionsClient); !ok {
		t.Errorf("Directions is %T, want *DirectionsClient", reg.Directions)
	}
	if _, ok := reg.Reminders.(*FileReminderProvider); !ok {
		t.Errorf("Reminders is %T, want *FileReminderProvider", reg.Reminders)
	}
	presence, ok := reg.Presence.(*DiscordWidgetClient)
	if !ok {
		t.Fatalf("Presence is %T, want *DiscordWidgetClient", reg.Presence)
	}
	if presence.GuildID() != "123456789012345678" {
		t.Errorf("GuildID() = %q", presence.GuildID())
	}
}

// TestNewClientRegistry_NilLoggerDefaultsToSlog verifies that passing a nil
// logger does not cause a panic.
func TestNewClientRegistry_NilLoggerDefaultsToSlog(t *testing.T) {
	reg, err := NewClientRegistry(&config.Config{IsTestMode: true}, nil)
	if err != nil {
		t.Fatalf("NewClientRegistry returned error: %v", err)
	}
	if reg.Weather == nil {
		t.Fatal("Weather is nil with nil logger")
	}
}

// TestStubWeatherProvider_Deterministic verifies the stub returns identical
// data for identical input and a full day of hours.
func TestStubWeatherProvider_Deterministic(t *testing.T) {
	stub := NewStubWeatherProvider(discardLogger(), fixedClock())

	a, err := stub.Forecast(context.Background(), "Oslo")
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}
	b, _ := stub.Forecast(context.Background(), "oslo")

	if !reflect.DeepEqual(a.HourlyData, b.HourlyData) {
		t.Error("stub forecast differs for the same location")
	}
	if len(a.HourlyData) != forecastHours {
		t.Errorf("len(HourlyData) = %d, want %d", len(a.HourlyData), forecastHours)
	}
	if a.Provider != "stub" {
		t.Errorf("Provider = %q, want stub", a.Provider)
	}
	if a.LastUpdatedIso != "2026-03-02T07:30:00.000Z" {
		t.Errorf("LastUpdatedIso = %q", a.LastUpdatedIso)
	}
}

// TestStubDirectionsProvider_ModeAffectsDuration verifies slower modes take
// longer over the same distance.
func TestStubDirectionsProvider_ModeAffectsDuration(t *testing.T) {
	stub := NewStubDirectionsProvider(discardLogger(), fixedClock())

	drive, err := stub.TravelTime(context.Background(), "home", "office", types.ModeDriving)
	if err != nil {
		t.Fatalf("TravelTime returned error: %v", err)
	}
	walk, _ := stub.TravelTime(context.Background(), "home", "office", types.ModeWalking)

	if drive.DistanceKm != walk.DistanceKm {
		t.Errorf("distance differs by mode: %v vs %v", drive.DistanceKm, walk.DistanceKm)
	}
	if walk.DurationMinutes <= drive.DurationMinutes {
		t.Errorf("walking (%v min) should take longer than driving (%v min)", walk.DurationMinutes, drive.DurationMinutes)
	}
}

// TestStubPresenceProvider_DefaultGuild verifies a placeholder guild id is
// used when none is configured.
func TestStubPresenceProvider_DefaultGuild(t *testing.T) {
	stub := NewStubPresenceProvider("", discardLogger(), fixedClock())
	if stub.GuildID() == "" {
		t.Fatal("GuildID() is empty")
	}

	p, err := stub.GuildPresence(context.Background())
	if err != nil {
		t.Fatalf("GuildPresence returned error: %v", err)
	}
	if p.PresenceCount != len(p.Members) {
		t.Errorf("PresenceCount = %d, members = %d", p.PresenceCount, len(p.Members))
	}
}

// TestStubReminderProvider verifies due times land on the requested date in
// the configured zone and malformed dates are rejected.
func TestStubReminderProvider(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	stub := NewStubReminderProvider(loc, discardLogger(), fixedClock())

	p, err := stub.RemindersFor(context.Background(), "2026-03-02")
	if err != nil {
		t.Fatalf("RemindersFor returned error: %v", err)
	}
	if len(p.Reminders) != 2 {
		t.Fatalf("len(Reminders) = %d, want 2", len(p.Reminders))
	}
	if p.Reminders[0].DueAtIso != "2026-03-02T06:00:00.000Z" {
		t.Errorf("first DueAtIso = %q, want 08:00 local as UTC", p.Reminders[0].DueAtIso)
	}

	_, err = stub.RemindersFor(context.Background(), "03/02/2026")
	if appErr := requireAppError(t, err); appErr.Code != types.ErrCodeInvalidRequest {
		t.Errorf("code = %s, want INVALID_REQUEST", appErr.Code)
	}
}

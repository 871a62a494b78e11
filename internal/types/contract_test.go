package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"testing"
)

// camelCaseRegexp matches strictly lowerCamelCase keys. Single-word keys like
// "date" or "id" are valid.
var camelCaseRegexp = regexp.MustCompile(`^[a-z][a-z0-9]*([A-Z][a-z0-9]*)*$`)

func isCamelCase(key string) bool {
	return camelCaseRegexp.MatchString(key)
}

// assertAllKeysCamelCase recursively walks a JSON value and asserts that every
// object key is lowerCamelCase. path tracks the JSON path for error messages
// (e.g., "hourlyData[0].timeIso").
func assertAllKeysCamelCase(t *testing.T, path string, v any) {
	t.Helper()

	switch val := v.(type) {
	case map[string]any:
		for key, child := range val {
			fullPath := key
			if path != "" {
				fullPath = path + "." + key
			}
			if !isCamelCase(key) {
				t.Errorf("JSON key %q at path %q is not camelCase", key, fullPath)
			}
			assertAllKeysCamelCase(t, fullPath, child)
		}
	case []any:
		for i, item := range val {
			assertAllKeysCamelCase(t, fmt.Sprintf("%s[%d]", path, i), item)
		}
	}
}

func marshalToAny(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %T: %v", v, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal %T: %v", v, err)
	}
	return raw
}

func ptr(f float64) *float64 { return &f }

// TestPayloadCamelCaseContract verifies every key the dashboard client reads
// is lowerCamelCase and that fully populated payloads carry every field. A
// missing json tag shows up as a PascalCase key.
func TestPayloadCamelCaseContract(t *testing.T) {
	tests := []struct {
		name     string
		payload  any
		wantKeys int
	}{
		{
			name: "weather",
			payload: WeatherPayload{
				Location: "oslo", ResolvedName: "Oslo, Norway", Latitude: 59.91, Longitude: 10.75,
				HourlyData: []HourlyWeather{{
					TimeIso: "2026-03-02T10:00:00.000Z", TemperatureC: 1.5,
					ApparentTemperatureC: ptr(-2), PrecipitationProbability: ptr(40), WindSpeedKmh: ptr(12),
					WeatherCode: 3, Summary: "Overcast",
				}},
				Provider: "open-meteo", LastUpdatedIso: "2026-03-02T09:58:00.000Z",
			},
			wantKeys: 7,
		},
		{
			name: "route",
			payload: RoutePayload{
				From: "home", To: "office", Mode: ModeTransit, DurationMinutes: 42, DistanceKm: 18.4,
				Summary: "E18", Provider: "google-directions", LastUpdatedIso: "2026-03-02T08:00:00.000Z",
			},
			wantKeys: 8,
		},
		{
			name: "discord",
			payload: DiscordPayload{
				GuildID: "1", GuildName: "Home", PresenceCount: 1,
				Members:       []DiscordMember{{ID: "1", Username: "alice", Status: "online", AvatarURL: "https://cdn/a.png", Activity: "Chess"}},
				Channels:      []DiscordChannel{{ID: "10", Name: "General", Position: 0}},
				InstantInvite: "https://discord.gg/x", Provider: "discord-widget", LastUpdatedIso: "2026-03-02T08:00:00.000Z",
			},
			wantKeys: 8,
		},
		{
			name: "reminders",
			payload: ReminderPayload{
				Date: "2026-03-02",
				Reminders: []Reminder{{
					ID: "bins", Title: "Put out the bins", Notes: "Paper week",
					DueAtIso: "2026-03-02T18:00:00.000Z", Tags: []string{"home"}, Overdue: true,
				}},
				Provider: "reminders-file", LastUpdatedIso: "2026-03-02T08:00:00.000Z",
			},
			wantKeys: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := marshalToAny(t, tt.payload)
			assertAllKeysCamelCase(t, "", raw)
			if len(raw) != tt.wantKeys {
				t.Errorf("%s has %d top-level keys, expected %d; fields may be missing json tags",
					tt.name, len(raw), tt.wantKeys)
			}
		})
	}
}

// TestPayloadOmittedFields verifies optional fields drop out when empty and
// that absent measurements are not reported as zero.
func TestPayloadOmittedFields(t *testing.T) {
	raw := marshalToAny(t, WeatherPayload{
		Location:   "oslo",
		HourlyData: []HourlyWeather{{TimeIso: "2026-03-02T10:00:00.000Z", Summary: "Clear"}},
	})
	if _, ok := raw["resolvedName"]; ok {
		t.Error("empty resolvedName should be omitted")
	}
	hour := raw["hourlyData"].([]any)[0].(map[string]any)
	for _, key := range []string{"apparentTemperatureC", "precipitationProbability", "windSpeedKmh"} {
		if _, ok := hour[key]; ok {
			t.Errorf("missing measurement %q should be omitted", key)
		}
	}

	raw = marshalToAny(t, RoutePayload{From: "a", To: "b", Mode: ModeDriving})
	if _, ok := raw["summary"]; ok {
		t.Error("empty route summary should be omitted")
	}
}

func TestCamelCaseHelperFunction(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"date", true},
		{"lastUpdatedIso", true},
		{"temperatureC", true},
		{"guildId", true},
		{"GuildID", false},
		{"last_updated_iso", false},
		{"", false},
		{"2fast", false},
	}
	for _, tt := range tests {
		if got := isCamelCase(tt.key); got != tt.want {
			t.Errorf("isCamelCase(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestTravelModeValid(t *testing.T) {
	for _, m := range []TravelMode{ModeDriving, ModeWalking, ModeTransit} {
		if !m.Valid() {
			t.Errorf("%q should be valid", m)
		}
	}
	for _, m := range []TravelMode{"", "cycling", "Driving"} {
		if m.Valid() {
			t.Errorf("%q should be invalid", m)
		}
	}
}

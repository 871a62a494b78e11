package types

// TravelMode selects the directions profile used for route-time lookups.
type TravelMode string

const (
	ModeDriving TravelMode = "driving"
	ModeWalking TravelMode = "walking"
	ModeTransit TravelMode = "transit"
)

// Valid reports whether m is one of the supported travel modes.
func (m TravelMode) Valid() bool {
	switch m {
	case ModeDriving, ModeWalking, ModeTransit:
		return true
	}
	return false
}

// HourlyWeather is a single hour of forecast data.
// Optional measurements are pointers so that a missing upstream value is
// distinguishable from a zero reading.
type HourlyWeather struct {
	TimeIso                  string   `json:"timeIso"`
	TemperatureC             float64  `json:"temperatureC"`
	ApparentTemperatureC     *float64 `json:"apparentTemperatureC,omitempty"`
	PrecipitationProbability *float64 `json:"precipitationProbability,omitempty"`
	WindSpeedKmh             *float64 `json:"windSpeedKmh,omitempty"`
	WeatherCode              int      `json:"weatherCode"`
	Summary                  string   `json:"summary"`
}

// WeatherPayload is the cached body for GET /weather.
type WeatherPayload struct {
	Location       string          `json:"location"`
	ResolvedName   string          `json:"resolvedName,omitempty"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	HourlyData     []HourlyWeather `json:"hourlyData"`
	Provider       string          `json:"provider"`
	LastUpdatedIso string          `json:"lastUpdatedIso"`
}

// RoutePayload is the cached body for GET /route-time. It is also the route
// measurement evaluated by the alert threshold checker.
type RoutePayload struct {
	From            string     `json:"from"`
	To              string     `json:"to"`
	Mode            TravelMode `json:"mode"`
	DurationMinutes float64    `json:"durationMinutes"`
	DistanceKm      float64    `json:"distanceKm"`
	Summary         string     `json:"summary,omitempty"`
	Provider        string     `json:"provider"`
	LastUpdatedIso  string     `json:"lastUpdatedIso"`
}

// DiscordMember is one online member reported by the guild widget.
type DiscordMember struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Status    string `json:"status"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Activity  string `json:"activity,omitempty"`
}

// DiscordChannel is one voice channel exposed by the guild widget.
type DiscordChannel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// DiscordPayload is the cached guild presence snapshot for GET /discord-status.
type DiscordPayload struct {
	GuildID        string           `json:"guildId"`
	GuildName      string           `json:"guildName"`
	PresenceCount  int              `json:"presenceCount"`
	Members        []DiscordMember  `json:"members"`
	Channels       []DiscordChannel `json:"channels"`
	InstantInvite  string           `json:"instantInvite,omitempty"`
	Provider       string           `json:"provider"`
	LastUpdatedIso string           `json:"lastUpdatedIso"`
}

// Reminder is a single reminder occurrence on a given date.
type Reminder struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Notes    string   `json:"notes,omitempty"`
	DueAtIso string   `json:"dueAtIso"`
	Tags     []string `json:"tags,omitempty"`
	Overdue  bool     `json:"overdue"`
}

// ReminderPayload is the cached reminder list for one date. The overdue flags
// are recomputed against the current time on every response.
type ReminderPayload struct {
	Date           string     `json:"date"`
	Reminders      []Reminder `json:"reminders"`
	Provider       string     `json:"provider"`
	LastUpdatedIso string     `json:"lastUpdatedIso"`
}

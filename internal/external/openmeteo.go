package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard/internal/types"
)

const (
	openMeteoGeocodingBase = "https://geocoding-api.open-meteo.com"
	openMeteoForecastBase  = "https://api.open-meteo.com"

	// forecastHours is the number of hourly entries returned per location.
	forecastHours = 24

	openMeteoHourlyFields = "temperature_2m,apparent_temperature,precipitation_probability,weather_code,wind_speed_10m"
	openMeteoTimeLayout   = "2006-01-02T15:04"
)

// OpenMeteoConfig configures the Open-Meteo weather client.
type OpenMeteoConfig struct {
	GeocodingURL string // Override for testing; defaults to openMeteoGeocodingBase
	ForecastURL  string // Override for testing; defaults to openMeteoForecastBase
	Logger       *slog.Logger
	Now          func() time.Time
}

// OpenMeteoClient implements WeatherProvider against the keyless Open-Meteo
// geocoding and forecast APIs.
type OpenMeteoClient struct {
	base         *BaseClient
	geocodingURL string
	forecastURL  string
	logger       *slog.Logger
	now          func() time.Time
}

// NewOpenMeteoClient creates an OpenMeteoClient. The httpClient timeout bounds
// each individual upstream call; the two calls per lookup run sequentially.
func NewOpenMeteoClient(httpClient *http.Client, cfg OpenMeteoConfig, opts ...BaseClientOption) *OpenMeteoClient {
	return NewOpenMeteoClientWithBase(
		NewBaseClient(httpClient, "open-meteo", DefaultRetryPolicy(), userAgent, opts...),
		cfg,
	)
}

// NewOpenMeteoClientWithBase creates an OpenMeteoClient over a pre-configured
// BaseClient.
func NewOpenMeteoClientWithBase(base *BaseClient, cfg OpenMeteoConfig) *OpenMeteoClient {
	c := &OpenMeteoClient{
		base:         base,
		geocodingURL: strings.TrimSuffix(withDefault(cfg.GeocodingURL, openMeteoGeocodingBase), "/"),
		forecastURL:  strings.TrimSuffix(withDefault(cfg.ForecastURL, openMeteoForecastBase), "/"),
		logger:       cfg.Logger,
		now:          cfg.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Country   string  `json:"country"`
		Admin1    string  `json:"admin1"`
	} `json:"results"`
}

type forecastResponse struct {
	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature              []*float64 `json:"temperature_2m"`
		ApparentTemperature      []*float64 `json:"apparent_temperature"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		WeatherCode              []*int     `json:"weather_code"`
		WindSpeed                []*float64 `json:"wind_speed_10m"`
	} `json:"hourly"`
}

// Forecast geocodes location and fetches the next 24 hours of forecast data.
//
// Error mapping:
//   - unknown location -> NOT_FOUND
//   - non-2xx, undecodable or inconsistent upstream data -> PROVIDER_ERROR
func (c *OpenMeteoClient) Forecast(ctx context.Context, location string) (types.WeatherPayload, error) {
	var geo geocodingResponse
	q := url.Values{
		"name":     {location},
		"count":    {"1"},
		"language": {"en"},
		"format":   {"json"},
	}
	if err := c.base.GetJSON(ctx, c.geocodingURL+"/v1/search?"+q.Encode(), &geo); err != nil {
		return types.WeatherPayload{}, err
	}
	if len(geo.Results) == 0 {
		return types.WeatherPayload{}, types.NewAppError(
			types.ErrCodeNotFound,
			fmt.Sprintf("location %q could not be resolved", location),
			nil,
		)
	}
	place := geo.Results[0]

	var fc forecastResponse
	q = url.Values{
		"latitude":       {fmt.Sprintf("%.4f", place.Latitude)},
		"longitude":      {fmt.Sprintf("%.4f", place.Longitude)},
		"hourly":         {openMeteoHourlyFields},
		"forecast_hours": {fmt.Sprint(forecastHours)},
		"timezone":       {"UTC"},
	}
	if err := c.base.GetJSON(ctx, c.forecastURL+"/v1/forecast?"+q.Encode(), &fc); err != nil {
		return types.WeatherPayload{}, err
	}

	hourly, err := convertHourly(fc)
	if err != nil {
		return types.WeatherPayload{}, types.NewProviderError(c.base.Name(), http.StatusOK, err)
	}

	c.logger.DebugContext(ctx, "fetched forecast",
		"location", location,
		"resolved", place.Name,
		"hours", len(hourly),
	)

	return types.WeatherPayload{
		Location:       location,
		ResolvedName:   joinNonEmpty(", ", place.Name, place.Admin1, place.Country),
		Latitude:       place.Latitude,
		Longitude:      place.Longitude,
		HourlyData:     hourly,
		Provider:       c.base.Name(),
		LastUpdatedIso: types.FormatISO(c.now()),
	}, nil
}

// convertHourly zips Open-Meteo's column arrays into rows. Every column must
// match the time column's length; temperature is mandatory per row.
func convertHourly(fc forecastResponse) ([]types.HourlyWeather, error) {
	h := fc.Hourly
	n := len(h.Time)
	if len(h.Temperature) != n || len(h.WeatherCode) != n {
		return nil, fmt.Errorf("inconsistent hourly arrays: time=%d temperature=%d weather_code=%d",
			n, len(h.Temperature), len(h.WeatherCode))
	}

	out := make([]types.HourlyWeather, 0, n)
	for i, ts := range h.Time {
		t, err := time.ParseInLocation(openMeteoTimeLayout, ts, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("hour %d: bad time %q: %w", i, ts, err)
		}
		if h.Temperature[i] == nil {
			return nil, fmt.Errorf("hour %d: missing temperature", i)
		}
		code := 0
		if h.WeatherCode[i] != nil {
			code = *h.WeatherCode[i]
		}
		out = append(out, types.HourlyWeather{
			TimeIso:                  types.FormatISO(t),
			TemperatureC:             *h.Temperature[i],
			ApparentTemperatureC:     at(h.ApparentTemperature, i),
			PrecipitationProbability: at(h.PrecipitationProbability, i),
			WindSpeedKmh:             at(h.WindSpeed, i),
			WeatherCode:              code,
			Summary:                  DescribeWeatherCode(code),
		})
	}
	return out, nil
}

// at returns s[i], or nil when the optional column is short or absent.
func at(s []*float64, i int) *float64 {
	if i < len(s) {
		return s[i]
	}
	return nil
}

// wmoSummaries maps WMO weather interpretation codes to short descriptions.
var wmoSummaries = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Drizzle",
	55: "Dense drizzle",
	56: "Freezing drizzle",
	57: "Dense freezing drizzle",
	61: "Light rain",
	63: "Rain",
	65: "Heavy rain",
	66: "Freezing rain",
	67: "Heavy freezing rain",
	71: "Light snow",
	73: "Snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Light showers",
	81: "Showers",
	82: "Violent showers",
	85: "Snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with heavy hail",
}

// DescribeWeatherCode returns a human-readable summary for a WMO code.
func DescribeWeatherCode(code int) string {
	if s, ok := wmoSummaries[code]; ok {
		return s
	}
	return "Unknown"
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var _ WeatherProvider = (*OpenMeteoClient)(nil)

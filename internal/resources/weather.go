package resources

import (
	"context"
	"strings"

	"dashboard/internal/cache"
	"dashboard/internal/types"
)

// WeatherQuery is the input of GET /weather.
type WeatherQuery struct {
	Location         string `validate:"required,max=200"`
	FreshnessSeconds int    `validate:"omitempty,min=60,max=3600"`
	ForceRefresh     bool
}

// WeatherResponse is the body of GET /weather.
type WeatherResponse struct {
	types.WeatherPayload
	Cache cache.Meta `json:"cache"`
}

// Weather returns the hourly forecast for a location.
func (s *Service) Weather(ctx context.Context, q WeatherQuery) (*WeatherResponse, error) {
	location := strings.TrimSpace(q.Location)
	if location == "" {
		return nil, types.NewAppError(types.ErrCodeInvalidRequest, "location is required", nil)
	}
	override, err := freshnessOverride(q.FreshnessSeconds, WeatherFreshnessMin, WeatherFreshnessMax)
	if err != nil {
		return nil, err
	}

	res, err := cache.Fetch(ctx, s.fetcher, cache.Request[types.WeatherPayload]{
		Resource:          ResourceWeather,
		Key:               cache.WeatherKey(location),
		Policy:            s.policies.Weather,
		ForceRefresh:      q.ForceRefresh,
		FreshnessOverride: override,
		Load: func(ctx context.Context) (types.WeatherPayload, error) {
			return s.providers.Weather.Forecast(ctx, location)
		},
	})
	if err != nil {
		return nil, err
	}
	return &WeatherResponse{WeatherPayload: res.Payload, Cache: res.Meta}, nil
}

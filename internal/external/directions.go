package external

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard/internal/types"
)

// googleDirectionsBase is the default Directions API base URL.
// Overridable in tests via DirectionsConfig.BaseURL.
const googleDirectionsBase = "https://maps.googleapis.com"

// DirectionsConfig configures the Google Directions client.
type DirectionsConfig struct {
	APIKey  string
	BaseURL string
	Logger  *slog.Logger
	Now     func() time.Time
}

// DirectionsClient implements DirectionsProvider using the Google Directions
// API. Driving requests ask for traffic-aware durations.
type DirectionsClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

// NewDirectionsClient creates a DirectionsClient.
func NewDirectionsClient(httpClient *http.Client, cfg DirectionsConfig, opts ...BaseClientOption) *DirectionsClient {
	return NewDirectionsClientWithBase(
		NewBaseClient(httpClient, "google-directions", DefaultRetryPolicy(), userAgent, opts...),
		cfg,
	)
}

// NewDirectionsClientWithBase creates a DirectionsClient over a pre-configured
// BaseClient.
func NewDirectionsClientWithBase(base *BaseClient, cfg DirectionsConfig) *DirectionsClient {
	c := &DirectionsClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(withDefault(cfg.BaseURL, googleDirectionsBase), "/"),
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Duration          directionsValue  `json:"duration"`
			DurationInTraffic *directionsValue `json:"duration_in_traffic"`
			Distance          directionsValue  `json:"distance"`
		} `json:"legs"`
	} `json:"routes"`
}

type directionsValue struct {
	Value float64 `json:"value"`
}

// TravelTime returns the duration of the first suggested route.
//
// Google reports application-level failures (ZERO_RESULTS, REQUEST_DENIED,
// OVER_QUERY_LIMIT) with HTTP 200 and a status field; those become
// PROVIDER_ERROR carrying the status string.
func (c *DirectionsClient) TravelTime(ctx context.Context, from, to string, mode types.TravelMode) (types.RoutePayload, error) {
	q := url.Values{
		"origin":      {from},
		"destination": {to},
		"mode":        {string(mode)},
		"key":         {c.apiKey},
	}
	if mode == types.ModeDriving || mode == types.ModeTransit {
		q.Set("departure_time", "now")
	}

	var resp directionsResponse
	if err := c.base.GetJSON(ctx, c.baseURL+"/maps/api/directions/json?"+q.Encode(), &resp); err != nil {
		return types.RoutePayload{}, err
	}

	if resp.Status != "OK" {
		msg := resp.Status
		if resp.ErrorMessage != "" {
			msg += ": " + resp.ErrorMessage
		}
		return types.RoutePayload{}, types.NewProviderError(c.base.Name(), http.StatusOK, fmt.Errorf("directions status %s", msg))
	}
	if len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return types.RoutePayload{}, types.NewProviderError(c.base.Name(), http.StatusOK, fmt.Errorf("directions returned no route legs"))
	}

	route := resp.Routes[0]
	var seconds, meters float64
	for _, leg := range route.Legs {
		d := leg.Duration.Value
		if leg.DurationInTraffic != nil && leg.DurationInTraffic.Value > 0 {
			d = leg.DurationInTraffic.Value
		}
		seconds += d
		meters += leg.Distance.Value
	}

	c.logger.DebugContext(ctx, "fetched directions",
		"mode", mode,
		"duration_seconds", seconds,
	)

	return types.RoutePayload{
		From:            from,
		To:              to,
		Mode:            mode,
		DurationMinutes: round(seconds/60, 1),
		DistanceKm:      round(meters/1000, 2),
		Summary:         route.Summary,
		Provider:        c.base.Name(),
		LastUpdatedIso:  types.FormatISO(c.now()),
	}, nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

var _ DirectionsProvider = (*DirectionsClient)(nil)

package resources

import (
	"context"
	"fmt"
	"strings"

	"dashboard/internal/cache"
	"dashboard/internal/types"
)

// RouteQuery is the input of GET /route-time and GET /alerts/route.
type RouteQuery struct {
	From             string           `validate:"required,max=300"`
	To               string           `validate:"required,max=300"`
	Mode             types.TravelMode `validate:"required,oneof=driving walking transit"`
	FreshnessSeconds int              `validate:"omitempty,min=60,max=1800"`
	ForceRefresh     bool
}

// RouteResponse is the body of GET /route-time.
type RouteResponse struct {
	types.RoutePayload
	Cache cache.Meta `json:"cache"`
}

// Route returns the travel time between two places.
func (s *Service) Route(ctx context.Context, q RouteQuery) (*RouteResponse, error) {
	from, to := strings.TrimSpace(q.From), strings.TrimSpace(q.To)
	if from == "" || to == "" {
		return nil, types.NewAppError(types.ErrCodeInvalidRequest, "from and to are required", nil)
	}
	mode := q.Mode
	if mode == "" {
		mode = types.ModeDriving
	}
	if !mode.Valid() {
		return nil, types.NewAppError(types.ErrCodeInvalidRequest,
			fmt.Sprintf("mode must be one of driving, walking, transit (got %q)", mode), nil)
	}
	override, err := freshnessOverride(q.FreshnessSeconds, RouteFreshnessMin, RouteFreshnessMax)
	if err != nil {
		return nil, err
	}

	res, err := cache.Fetch(ctx, s.fetcher, cache.Request[types.RoutePayload]{
		Resource:          ResourceRoute,
		Key:               cache.RouteKey(from, to, mode),
		Policy:            s.policies.Route,
		ForceRefresh:      q.ForceRefresh,
		FreshnessOverride: override,
		Load: func(ctx context.Context) (types.RoutePayload, error) {
			return s.providers.Directions.TravelTime(ctx, from, to, mode)
		},
	})
	if err != nil {
		return nil, err
	}
	return &RouteResponse{RoutePayload: res.Payload, Cache: res.Meta}, nil
}

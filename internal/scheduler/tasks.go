package scheduler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"dashboard/internal/cache"
	"dashboard/internal/kv"
	"dashboard/internal/resources"
	"dashboard/internal/types"
)

// Refresher is the subset of resources.Service the refresh tasks call.
type Refresher interface {
	Weather(ctx context.Context, q resources.WeatherQuery) (*resources.WeatherResponse, error)
	Route(ctx context.Context, q resources.RouteQuery) (*resources.RouteResponse, error)
	Discord(ctx context.Context, forceRefresh bool) (*resources.DiscordResponse, error)
	Reminders(ctx context.Context, q resources.ReminderQuery) (*resources.ReminderResponse, error)
}

// WeatherTaskPayload is the payload of refresh_weather.
type WeatherTaskPayload struct {
	Location string `json:"location" validate:"required,max=200"`
}

// RouteTaskPayload is the payload of refresh_route.
type RouteTaskPayload struct {
	From string           `json:"from" validate:"required,max=300"`
	To   string           `json:"to" validate:"required,max=300"`
	Mode types.TravelMode `json:"mode" validate:"omitempty,oneof=driving walking transit"`
}

// RemindersTaskPayload is the payload of refresh_reminders. An empty Date
// refreshes the day the task runs on.
type RemindersTaskPayload struct {
	Date string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// PurgeTaskPayload is the payload of purge_cache. Pattern must stay inside
// one of the cache namespaces.
type PurgeTaskPayload struct {
	Pattern string `json:"pattern" validate:"required,max=200"`
}

var purgeableNamespaces = []string{
	cache.NamespaceWeather,
	cache.NamespaceRoute,
	cache.NamespaceDiscord,
	cache.NamespaceReminder,
}

// DefaultHandlers wires every built-in task type. Refresh tasks bypass the
// cache so the next dashboard read is served fresh.
func DefaultHandlers(res Refresher, store kv.Store) map[TaskType]Handler {
	v := validator.New(validator.WithRequiredStructEnabled())

	return map[TaskType]Handler{
		TaskRefreshWeather: {
			Validate: validatePayload[WeatherTaskPayload](v, true),
			Run: func(ctx context.Context, raw json.RawMessage) error {
				p, err := decodePayload[WeatherTaskPayload](v, raw, true)
				if err != nil {
					return err
				}
				_, err = res.Weather(ctx, resources.WeatherQuery{Location: p.Location, ForceRefresh: true})
				return err
			},
		},
		TaskRefreshRoute: {
			Validate: validatePayload[RouteTaskPayload](v, true),
			Run: func(ctx context.Context, raw json.RawMessage) error {
				p, err := decodePayload[RouteTaskPayload](v, raw, true)
				if err != nil {
					return err
				}
				_, err = res.Route(ctx, resources.RouteQuery{From: p.From, To: p.To, Mode: p.Mode, ForceRefresh: true})
				return err
			},
		},
		TaskRefreshDiscord: {
			Run: func(ctx context.Context, _ json.RawMessage) error {
				_, err := res.Discord(ctx, true)
				return err
			},
		},
		TaskRefreshReminders: {
			Validate: validatePayload[RemindersTaskPayload](v, false),
			Run: func(ctx context.Context, raw json.RawMessage) error {
				p, err := decodePayload[RemindersTaskPayload](v, raw, false)
				if err != nil {
					return err
				}
				_, err = res.Reminders(ctx, resources.ReminderQuery{Date: p.Date, ForceRefresh: true})
				return err
			},
		},
		TaskPurgeCache: {
			Validate: func(raw json.RawMessage) error {
				_, err := decodePurge(v, raw)
				return err
			},
			Run: func(ctx context.Context, raw json.RawMessage) error {
				p, err := decodePurge(v, raw)
				if err != nil {
					return err
				}
				return purge(ctx, store, p.Pattern)
			},
		},
	}
}

func validatePayload[T any](v *validator.Validate, required bool) func(json.RawMessage) error {
	return func(raw json.RawMessage) error {
		_, err := decodePayload[T](v, raw, required)
		return err
	}
}

func decodePayload[T any](v *validator.Validate, raw json.RawMessage, required bool) (T, error) {
	var p T
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if required {
			return p, fmt.Errorf("payload is required")
		}
		return p, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return p, fmt.Errorf("decoding payload: %w", err)
	}
	if err := v.Struct(p); err != nil {
		return p, err
	}
	return p, nil
}

func decodePurge(v *validator.Validate, raw json.RawMessage) (PurgeTaskPayload, error) {
	p, err := decodePayload[PurgeTaskPayload](v, raw, true)
	if err != nil {
		return p, err
	}
	for _, ns := range purgeableNamespaces {
		if strings.HasPrefix(p.Pattern, ns+":") {
			return p, nil
		}
	}
	return p, fmt.Errorf("pattern must start with one of %s followed by ':'", strings.Join(purgeableNamespaces, ", "))
}

func purge(ctx context.Context, store kv.Store, pattern string) error {
	keys, err := store.Keys(ctx, pattern)
	if err != nil {
		return fmt.Errorf("listing keys for %q: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil
	}
	n, err := store.Del(ctx, keys...)
	if err != nil {
		return fmt.Errorf("deleting %d keys: %w", len(keys), err)
	}
	types.LoggerFromContext(ctx, nil).Info("Cache purged", "pattern", pattern, "deleted", n)
	return nil
}

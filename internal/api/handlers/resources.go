// Package handlers contains the HTTP handlers of the dashboard API.
//
// This file implements the cached resource reads:
//   - Weather forecast (GET /weather)
//   - Travel time (GET /route-time)
//   - Discord presence (GET /discord-status)
//   - Daily reminders (GET /reminder)
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dashboard/internal/core"
	"dashboard/internal/resources"
	"dashboard/internal/types"
)

// ResourceServiceInterface is the contract the resource handler needs from
// resources.Service. Defined locally so tests can inject a fake.
type ResourceServiceInterface interface {
	Weather(ctx context.Context, q resources.WeatherQuery) (*resources.WeatherResponse, error)
	Route(ctx context.Context, q resources.RouteQuery) (*resources.RouteResponse, error)
	Discord(ctx context.Context, forceRefresh bool) (*resources.DiscordResponse, error)
	Reminders(ctx context.Context, q resources.ReminderQuery) (*resources.ReminderResponse, error)
}

// ResourceHandler maps the cached resource routes onto resources.Service.
type ResourceHandler struct {
	service   ResourceServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewResourceHandler creates a ResourceHandler.
func NewResourceHandler(
	svc ResourceServiceInterface,
	val *core.Validator,
	logger *slog.Logger,
) *ResourceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the resource endpoints.
func (h *ResourceHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weather", h.HandleWeather)
	r.Get("/route-time", h.HandleRouteTime)
	r.Get("/discord-status", h.HandleDiscordStatus)
	r.Get("/reminder", h.HandleReminder)
}

// HandleWeather handles GET /weather?location&freshnessSeconds&forceRefresh.
func (h *ResourceHandler) HandleWeather(w http.ResponseWriter, r *http.Request) {
	freshness, force, err := cacheParams(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	q := resources.WeatherQuery{
		Location:         r.URL.Query().Get("location"),
		FreshnessSeconds: freshness,
		ForceRefresh:     force,
	}
	if err := h.validator.ValidateStruct(q); err != nil {
		core.Error(w, r, err)
		return
	}

	resp, err := h.service.Weather(r.Context(), q)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// HandleRouteTime handles GET /route-time?from&to&mode&freshnessSeconds&forceRefresh.
// mode defaults to driving.
func (h *ResourceHandler) HandleRouteTime(w http.ResponseWriter, r *http.Request) {
	q, err := parseRouteQuery(r, h.validator)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp, err := h.service.Route(r.Context(), q)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// HandleDiscordStatus handles GET /discord-status?forceRefresh.
func (h *ResourceHandler) HandleDiscordStatus(w http.ResponseWriter, r *http.Request) {
	force, err := core.QueryBool(r, "forceRefresh")
	if err != nil {
		core.Error(w, r, err)
		return
	}

	resp, err := h.service.Discord(r.Context(), force)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// HandleReminder handles GET /reminder?date=YYYY-MM-DD&forceRefresh. A
// missing date means today on the dashboard clock.
func (h *ResourceHandler) HandleReminder(w http.ResponseWriter, r *http.Request) {
	force, err := core.QueryBool(r, "forceRefresh")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	q := resources.ReminderQuery{
		Date:         r.URL.Query().Get("date"),
		ForceRefresh: force,
	}
	if err := h.validator.ValidateStruct(q); err != nil {
		core.Error(w, r, err)
		return
	}

	resp, err := h.service.Reminders(r.Context(), q)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, resp)
}

// parseRouteQuery parses and validates the route parameters shared by
// /route-time and /alerts/route.
func parseRouteQuery(r *http.Request, val *core.Validator) (resources.RouteQuery, error) {
	freshness, force, err := cacheParams(r)
	if err != nil {
		return resources.RouteQuery{}, err
	}
	params := r.URL.Query()
	q := resources.RouteQuery{
		From:             params.Get("from"),
		To:               params.Get("to"),
		Mode:             types.TravelMode(params.Get("mode")),
		FreshnessSeconds: freshness,
		ForceRefresh:     force,
	}
	if q.Mode == "" {
		q.Mode = types.ModeDriving
	}
	if err := val.ValidateStruct(q); err != nil {
		return resources.RouteQuery{}, err
	}
	return q, nil
}

// cacheParams reads the freshnessSeconds and forceRefresh parameters common
// to every cached route.
func cacheParams(r *http.Request) (int, bool, error) {
	freshness, err := core.QueryInt(r, "freshnessSeconds")
	if err != nil {
		return 0, false, err
	}
	force, err := core.QueryBool(r, "forceRefresh")
	if err != nil {
		return 0, false, err
	}
	return freshness, force, nil
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dashboard/internal/alerts"
	"dashboard/internal/cache"
	"dashboard/internal/core"
	"dashboard/internal/resources"
	"dashboard/internal/types"
)

// AlertServiceInterface is the contract of alerts.Service used here.
type AlertServiceInterface interface {
	Threshold(ctx context.Context) alerts.Threshold
	SetThreshold(ctx context.Context, minutes int) (alerts.Threshold, error)
	Check(ctx context.Context, req alerts.CheckRequest) (*alerts.CheckResult, error)
	Acknowledge(ctx context.Context, items []alerts.RouteAlert) alerts.AckResult
}

// RouteReader fetches the cached route measurement an alert check runs on.
type RouteReader interface {
	Route(ctx context.Context, q resources.RouteQuery) (*resources.RouteResponse, error)
}

// SetThresholdRequest is the body of POST /alerts/threshold.
type SetThresholdRequest struct {
	ThresholdMinutes int `json:"thresholdMinutes" validate:"required"`
}

// AcknowledgeRequest is the body of POST /alerts/acknowledge.
type AcknowledgeRequest struct {
	Alerts []alerts.RouteAlert `json:"alerts" validate:"required,min=1,max=100"`
}

// RouteAlertsResponse is the body of GET /alerts/route.
type RouteAlertsResponse struct {
	Alerts           []alerts.RouteAlert `json:"alerts"`
	ThresholdMinutes int                 `json:"thresholdMinutes"`
	ThresholdSource  alerts.Source       `json:"thresholdSource"`
	Route            types.RoutePayload  `json:"route"`
	Cache            cache.Meta          `json:"cache"`
}

// AlertHandler serves the threshold and route alert endpoints.
type AlertHandler struct {
	alerts    AlertServiceInterface
	routes    RouteReader
	validator *core.Validator
	logger    *slog.Logger
}

// NewAlertHandler creates an AlertHandler.
func NewAlertHandler(
	alertSvc AlertServiceInterface,
	routes RouteReader,
	val *core.Validator,
	logger *slog.Logger,
) *AlertHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertHandler{
		alerts:    alertSvc,
		routes:    routes,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the alert endpoints under /alerts.
func (h *AlertHandler) RegisterRoutes(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/threshold", h.HandleGetThreshold)
		r.Post("/threshold", h.HandleSetThreshold)
		r.Get("/route", h.HandleRouteAlerts)
		r.Post("/acknowledge", h.HandleAcknowledge)
	})
}

// HandleGetThreshold handles GET /alerts/threshold. It never fails: a
// missing or unreadable value reports the default.
func (h *AlertHandler) HandleGetThreshold(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, h.alerts.Threshold(r.Context()))
}

// HandleSetThreshold handles POST /alerts/threshold.
func (h *AlertHandler) HandleSetThreshold(w http.ResponseWriter, r *http.Request) {
	var req SetThresholdRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	threshold, err := h.alerts.SetThreshold(r.Context(), req.ThresholdMinutes)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	types.LoggerFromContext(r.Context(), h.logger).Info("Alert threshold updated",
		"threshold_minutes", threshold.Minutes)
	core.JSON(w, r, http.StatusOK, threshold)
}

// HandleRouteAlerts handles
// GET /alerts/route?from&to&mode&thresholdMinutes&includeAcknowledged&forceRefresh.
//
// The route is read through the cache like /route-time, then compared with
// the effective threshold. Acknowledged alerts are dropped unless
// includeAcknowledged is set.
func (h *AlertHandler) HandleRouteAlerts(w http.ResponseWriter, r *http.Request) {
	q, err := parseRouteQuery(r, h.validator)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	override, err := core.QueryInt(r, "thresholdMinutes")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	includeAcked, err := core.QueryBool(r, "includeAcknowledged")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if override != 0 {
		if err := alerts.ValidateThreshold(override); err != nil {
			core.Error(w, r, err)
			return
		}
	}

	route, err := h.routes.Route(r.Context(), q)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	result, err := h.alerts.Check(r.Context(), alerts.CheckRequest{
		Route:               route.RoutePayload,
		ThresholdOverride:   override,
		IncludeAcknowledged: includeAcked,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusOK, RouteAlertsResponse{
		Alerts:           result.Alerts,
		ThresholdMinutes: result.Threshold.Minutes,
		ThresholdSource:  result.Threshold.Source,
		Route:            route.RoutePayload,
		Cache:            route.Cache,
	})
}

// HandleAcknowledge handles POST /alerts/acknowledge. Individual write
// failures are reported in the counts, not as an error status.
func (h *AlertHandler) HandleAcknowledge(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgeRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	result := h.alerts.Acknowledge(r.Context(), req.Alerts)
	if result.Failed > 0 {
		types.LoggerFromContext(r.Context(), h.logger).Warn("Some acknowledgements were not stored",
			"acknowledged", result.Acknowledged, "failed", result.Failed)
	}
	core.JSON(w, r, http.StatusOK, result)
}

package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"dashboard/internal/automode"
	"dashboard/internal/core"
	"dashboard/internal/types"
)

// AutoModeServiceInterface is the contract of automode.Service used here.
type AutoModeServiceInterface interface {
	Status(ctx context.Context, at time.Time, cfg *automode.Config) automode.Status
	Config(ctx context.Context) automode.Config
	SaveConfig(ctx context.Context, cfg automode.Config) (automode.Config, error)
}

// StatusPreviewRequest is the body of POST /auto-mode/status. Both fields
// are optional: At defaults to now and Config to the saved configuration.
// A supplied Config is evaluated but never saved.
type StatusPreviewRequest struct {
	At     string           `json:"at,omitempty" validate:"omitempty,iso8601"`
	Config *automode.Config `json:"config,omitempty"`
}

// AutoModeHandler serves the auto-mode status and configuration endpoints.
type AutoModeHandler struct {
	service   AutoModeServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewAutoModeHandler creates an AutoModeHandler.
func NewAutoModeHandler(
	svc AutoModeServiceInterface,
	val *core.Validator,
	logger *slog.Logger,
) *AutoModeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoModeHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the endpoints under /auto-mode.
func (h *AutoModeHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auto-mode", func(r chi.Router) {
		r.Get("/status", h.HandleGetStatus)
		r.Post("/status", h.HandlePreviewStatus)
		r.Get("/config", h.HandleGetConfig)
		r.Post("/config", h.HandleSaveConfig)
	})
}

// HandleGetStatus handles GET /auto-mode/status?at=<ISO>.
func (h *AutoModeHandler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	at, err := core.QueryTime(r, "at")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, h.service.Status(r.Context(), at, nil))
}

// HandlePreviewStatus handles POST /auto-mode/status. An empty body behaves
// like the GET route.
func (h *AutoModeHandler) HandlePreviewStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusPreviewRequest
	if _, err := core.DecodeOptionalJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	var at time.Time
	if req.At != "" {
		parsed, err := types.ParseISO(req.At)
		if err != nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeInvalidRequest, "at must be an ISO-8601 timestamp", err))
			return
		}
		at = parsed
	}
	core.JSON(w, r, http.StatusOK, h.service.Status(r.Context(), at, req.Config))
}

// HandleGetConfig handles GET /auto-mode/config.
func (h *AutoModeHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, h.service.Config(r.Context()))
}

// HandleSaveConfig handles POST /auto-mode/config. Fields missing from the
// body keep their default values.
func (h *AutoModeHandler) HandleSaveConfig(w http.ResponseWriter, r *http.Request) {
	cfg := automode.DefaultConfig()
	if err := core.DecodeJSON(w, r, &cfg); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(cfg); err != nil {
		core.Error(w, r, err)
		return
	}

	saved, err := h.service.SaveConfig(r.Context(), cfg)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	types.LoggerFromContext(r.Context(), h.logger).Info("Auto-mode config saved",
		"enabled", saved.Enabled, "windows", len(saved.TimeWindows))
	core.JSON(w, r, http.StatusOK, saved)
}

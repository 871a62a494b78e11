package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"dashboard/internal/core"
	"dashboard/internal/scheduler"
	"dashboard/internal/types"
)

// SchedulerServiceInterface is the contract of scheduler.Scheduler used here.
type SchedulerServiceInterface interface {
	Schedule(ctx context.Context, req scheduler.ScheduleRequest) (scheduler.Task, error)
	Cancel(ctx context.Context, id string) error
	Get(id string) (scheduler.Task, error)
	List() []scheduler.Task
	Status() scheduler.Status
}

// EventListResponse is the body of GET /scheduler/events.
type EventListResponse struct {
	Events []scheduler.Task `json:"events"`
	Count  int              `json:"count"`
}

// SchedulerHandler exposes the in-process task registry.
type SchedulerHandler struct {
	service   SchedulerServiceInterface
	validator *core.Validator
	logger    *slog.Logger
}

// NewSchedulerHandler creates a SchedulerHandler.
func NewSchedulerHandler(
	svc SchedulerServiceInterface,
	val *core.Validator,
	logger *slog.Logger,
) *SchedulerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SchedulerHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the endpoints under /scheduler.
func (h *SchedulerHandler) RegisterRoutes(r chi.Router) {
	r.Route("/scheduler", func(r chi.Router) {
		r.Get("/status", h.HandleStatus)
		r.Get("/events", h.HandleList)
		r.Post("/events", h.HandleCreate)
		r.Get("/events/{eventId}", h.HandleGet)
		r.Delete("/events/{eventId}", h.HandleCancel)
	})
}

// HandleList handles GET /scheduler/events. Tasks are ordered by next run.
func (h *SchedulerHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	events := h.service.List()
	core.JSON(w, r, http.StatusOK, EventListResponse{Events: events, Count: len(events)})
}

// HandleCreate handles POST /scheduler/events.
func (h *SchedulerHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req scheduler.ScheduleRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	task, err := h.service.Schedule(r.Context(), req)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusCreated, task)
}

// HandleGet handles GET /scheduler/events/{eventId}.
func (h *SchedulerHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	task, err := h.service.Get(id)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, task)
}

// HandleCancel handles DELETE /scheduler/events/{eventId}.
func (h *SchedulerHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := eventID(r)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if err := h.service.Cancel(r.Context(), id); err != nil {
		core.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleStatus handles GET /scheduler/status.
func (h *SchedulerHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, h.service.Status())
}

func eventID(r *http.Request) (string, error) {
	id := strings.TrimSpace(core.URLParam(r, "eventId"))
	if id == "" || len(id) > 64 {
		return "", types.NewAppError(types.ErrCodeInvalidRequest, "eventId must be 1 to 64 characters", nil)
	}
	return id, nil
}

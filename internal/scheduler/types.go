// Package scheduler is a best-effort, in-process task registry. Tasks fire on
// timers held in memory and are persisted to the KV store so a restart can
// rebuild them. Recurring tasks may silently skip ticks across a restart
// window, and instances do not coordinate with each other.
package scheduler

import (
	"context"
	"encoding/json"
)

// TaskType identifies the handler that runs a task.
type TaskType string

const (
	TaskRefreshWeather   TaskType = "refresh_weather"
	TaskRefreshRoute     TaskType = "refresh_route"
	TaskRefreshDiscord   TaskType = "refresh_discord"
	TaskRefreshReminders TaskType = "refresh_reminders"
	TaskPurgeCache       TaskType = "purge_cache"
)

// Task is the persisted state of a scheduled task.
type Task struct {
	EventID            string          `json:"eventId"`
	TaskType           TaskType        `json:"taskType"`
	ScheduleExpression string          `json:"scheduleExpression"`
	Payload            json.RawMessage `json:"payload,omitempty"`
	IsRecurring        bool            `json:"isRecurring"`
	NextRunAt          string          `json:"nextRunAt"`
	LastRunAt          *string         `json:"lastRunAt,omitempty"`
	LastError          string          `json:"lastError,omitempty"`
	RunCount           int             `json:"runCount"`
	CreatedAt          string          `json:"createdAt"`
}

// ScheduleRequest is the body of POST /scheduler/events.
type ScheduleRequest struct {
	TaskType           TaskType        `json:"taskType" validate:"required"`
	ScheduleExpression string          `json:"scheduleExpression" validate:"required,max=100"`
	Payload            json.RawMessage `json:"payload,omitempty"`
}

// Status is the body of GET /scheduler/status.
type Status struct {
	Running     bool    `json:"running"`
	Busy        bool    `json:"busy"`
	TaskCount   int     `json:"taskCount"`
	NextEventID string  `json:"nextEventId,omitempty"`
	NextRunAt   *string `json:"nextRunAt,omitempty"`
	ServerTime  string  `json:"serverTime"`
}

// Handler runs one task type. Validate, when set, is called on the payload
// before a task is accepted.
type Handler struct {
	Validate func(payload json.RawMessage) error
	Run      func(ctx context.Context, payload json.RawMessage) error
}

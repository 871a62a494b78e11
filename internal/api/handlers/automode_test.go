package handlers

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashboard/internal/automode"
	"dashboard/internal/kv"
	"dashboard/internal/types"
)

// Monday 2026-03-02 08:45 UTC.
var autoModeNow = time.Date(2026, 3, 2, 8, 45, 0, 0, time.UTC)

const commuteConfig = `{
	"enabled": true,
	"defaultMode": "dashboard",
	"navModeRefreshSeconds": 15,
	"timeWindows": [{
		"name": "commute",
		"mode": "navigation",
		"startTime": {"hour": 8, "minute": 30},
		"endTime": {"hour": 9, "minute": 30},
		"daysOfWeek": [1, 2, 3, 4, 5]
	}]
}`

func newAutoModeRouter(store kv.Store) http.Handler {
	svc := automode.NewService(store, time.UTC, testLogger(), func() time.Time { return autoModeNow })
	return newRouter(NewAutoModeHandler(svc, testValidator(), testLogger()))
}

var _ AutoModeServiceInterface = (*automode.Service)(nil)

func TestAutoMode_DefaultStatus(t *testing.T) {
	w := serve(t, newAutoModeRouter(kv.NewMemoryStore()), http.MethodGet, "/auto-mode/status", "")

	require.Equal(t, http.StatusOK, w.Code)
	st := decodeBody[automode.Status](t, w)
	assert.False(t, st.Enabled)
	assert.Equal(t, automode.ModeDashboard, st.Mode)
	assert.Nil(t, st.ActiveWindow)
	assert.Nil(t, st.NextBoundaryIso)
	assert.Equal(t, 30, st.NavModeRefreshSeconds)
	assert.Equal(t, "2026-03-02T08:45:00.000Z", st.ServerTime)
}

func TestAutoMode_SaveConfigThenStatus(t *testing.T) {
	store := kv.NewMemoryStore()
	router := newAutoModeRouter(store)

	w := serve(t, router, http.MethodPost, "/auto-mode/config", commuteConfig)
	require.Equal(t, http.StatusOK, w.Code)
	saved := decodeBody[automode.Config](t, w)
	assert.True(t, saved.Enabled)
	require.Len(t, saved.TimeWindows, 1)

	w = serve(t, router, http.MethodGet, "/auto-mode/config", "")
	assert.Equal(t, saved, decodeBody[automode.Config](t, w))

	w = serve(t, router, http.MethodGet, "/auto-mode/status", "")
	st := decodeBody[automode.Status](t, w)
	assert.Equal(t, automode.ModeNavigation, st.Mode)
	require.NotNil(t, st.ActiveWindow)
	assert.Equal(t, "commute", st.ActiveWindow.Name)
	require.NotNil(t, st.NextBoundaryIso)
	assert.Equal(t, "2026-03-02T09:30:00.000Z", *st.NextBoundaryIso)
	assert.Equal(t, 15, st.NavModeRefreshSeconds)

	// End of the window is exclusive.
	w = serve(t, router, http.MethodGet, "/auto-mode/status?at=2026-03-02T09:30:00.000Z", "")
	st = decodeBody[automode.Status](t, w)
	assert.Equal(t, automode.ModeDashboard, st.Mode)
	assert.Equal(t, "2026-03-03T08:30:00.000Z", *st.NextBoundaryIso)
}

func TestAutoMode_SaveConfigKeepsOmittedDefaults(t *testing.T) {
	w := serve(t, newAutoModeRouter(kv.NewMemoryStore()), http.MethodPost, "/auto-mode/config", `{"enabled":true}`)

	require.Equal(t, http.StatusOK, w.Code)
	cfg := decodeBody[automode.Config](t, w)
	assert.Equal(t, automode.ModeDashboard, cfg.DefaultMode)
	assert.Equal(t, 30, cfg.NavModeRefreshSeconds)
	assert.NotNil(t, cfg.TimeWindows)
}

func TestAutoMode_SaveConfigValidation(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad default mode", `{"defaultMode":"kiosk"}`, "defaultMode"},
		{"refresh too fast", `{"navModeRefreshSeconds":1}`, "navModeRefreshSeconds"},
		{"hour out of range", `{"timeWindows":[{"name":"x","mode":"night","startTime":{"hour":24,"minute":0},"endTime":{"hour":6,"minute":0},"daysOfWeek":[5]}]}`,
			"timeWindows[0].startTime.hour"},
		{"weekday out of range", `{"timeWindows":[{"name":"x","mode":"night","startTime":{"hour":22,"minute":0},"endTime":{"hour":6,"minute":0},"daysOfWeek":[7]}]}`,
			"timeWindows[0].daysOfWeek[0]"},
		{"missing window name", `{"timeWindows":[{"mode":"night","startTime":{"hour":22,"minute":0},"endTime":{"hour":6,"minute":0},"daysOfWeek":[5]}]}`,
			"timeWindows[0].name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := kv.NewMemoryStore()
			w := serve(t, newAutoModeRouter(store), http.MethodPost, "/auto-mode/config", tt.body)

			resp := requireErrorCode(t, w, http.StatusBadRequest, types.ErrCodeInvalidRequest)
			assert.Contains(t, resp.Message, tt.field)

			keys, err := store.Keys(t.Context(), "*")
			require.NoError(t, err)
			assert.Empty(t, keys, "invalid config must not be stored")
		})
	}
}

func TestAutoMode_SaveConfigStoreFailure(t *testing.T) {
	store := &kv.FaultyStore{Store: kv.NewMemoryStore(), SetErr: errors.New("redis down")}
	w := serve(t, newAutoModeRouter(store), http.MethodPost, "/auto-mode/config", commuteConfig)

	resp := requireErrorCode(t, w, http.StatusInternalServerError, types.ErrCodeInternal)
	assert.Equal(t, "an unexpected error occurred", resp.Message)
}

func TestAutoMode_PreviewStatusDoesNotPersist(t *testing.T) {
	store := kv.NewMemoryStore()
	router := newAutoModeRouter(store)

	body := `{"at":"2026-03-06T08:40:00.000Z","config":` + commuteConfig + `}`
	w := serve(t, router, http.MethodPost, "/auto-mode/status", body)

	require.Equal(t, http.StatusOK, w.Code)
	st := decodeBody[automode.Status](t, w)
	assert.Equal(t, automode.ModeNavigation, st.Mode)
	assert.Equal(t, "2026-03-06T09:30:00.000Z", *st.NextBoundaryIso)

	w = serve(t, router, http.MethodGet, "/auto-mode/config", "")
	assert.False(t, decodeBody[automode.Config](t, w).Enabled)
}

func TestAutoMode_PreviewStatusEmptyBody(t *testing.T) {
	w := serve(t, newAutoModeRouter(kv.NewMemoryStore()), http.MethodPost, "/auto-mode/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, automode.ModeDashboard, decodeBody[automode.Status](t, w).Mode)
}

func TestAutoMode_BadTimestamps(t *testing.T) {
	router := newAutoModeRouter(kv.NewMemoryStore())

	resp := requireErrorCode(t, serve(t, router, http.MethodGet, "/auto-mode/status?at=tomorrow", ""),
		http.StatusBadRequest, types.ErrCodeInvalidRequest)
	assert.Contains(t, resp.Message, "at")

	resp = requireErrorCode(t, serve(t, router, http.MethodPost, "/auto-mode/status", `{"at":"tomorrow"}`),
		http.StatusBadRequest, types.ErrCodeInvalidRequest)
	assert.Equal(t, "at must be an ISO-8601 timestamp", resp.Message)
}

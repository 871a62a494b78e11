package external

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"dashboard/internal/types"
)

func TestDiscordWidget_GuildPresence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/guilds/42/widget.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"id":"42","name":"Friends","instant_invite":"https://discord.gg/x","presence_count":2,
			"channels":[{"id":"7","name":"Lounge","position":1}],
			"members":[
				{"id":"0","username":"ann","status":"online","avatar_url":"https://cdn/a.png","game":{"name":"Chess"}},
				{"id":"1","username":"ben","status":"dnd"}
			]}`))
	}))
	defer server.Close()

	client := NewDiscordWidgetClientWithBase(newTestClient(t, RetryPolicy{}), DiscordConfig{
		GuildID: "42",
		BaseURL: server.URL,
		Logger:  discardLogger(),
		Now:     fixedClock(),
	})

	p, err := client.GuildPresence(context.Background())
	if err != nil {
		t.Fatalf("GuildPresence returned error: %v", err)
	}
	if p.GuildName != "Friends" || p.PresenceCount != 2 || p.InstantInvite != "https://discord.gg/x" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if len(p.Members) != 2 || p.Members[0].Activity != "Chess" || p.Members[1].Activity != "" {
		t.Errorf("unexpected members: %+v", p.Members)
	}
	if len(p.Channels) != 1 || p.Channels[0].Name != "Lounge" {
		t.Errorf("unexpected channels: %+v", p.Channels)
	}
}

func TestDiscordWidget_Disabled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"Widget Disabled","code":50004}`))
	}))
	defer server.Close()

	client := NewDiscordWidgetClientWithBase(newTestClient(t, RetryPolicy{}), DiscordConfig{
		GuildID: "42",
		BaseURL: server.URL,
	})

	_, err := client.GuildPresence(context.Background())
	appErr := requireAppError(t, err)
	if appErr.Code != types.ErrCodeProviderError || appErr.ProviderStatus != http.StatusForbidden {
		t.Errorf("got %s/%d, want PROVIDER_ERROR/403", appErr.Code, appErr.ProviderStatus)
	}
}

func TestDiscordWidget_NoGuild(t *testing.T) {
	client := NewDiscordWidgetClientWithBase(newTestClient(t, RetryPolicy{}), DiscordConfig{})

	_, err := client.GuildPresence(context.Background())
	if appErr := requireAppError(t, err); appErr.Code != types.ErrCodeProviderError {
		t.Errorf("code = %s, want PROVIDER_ERROR", appErr.Code)
	}
}

package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dashboard/internal/types"
)

// discordAPIBase is the default Discord API base URL.
const discordAPIBase = "https://discord.com"

// DiscordConfig configures the guild widget client.
type DiscordConfig struct {
	GuildID string
	BaseURL string
	Logger  *slog.Logger
	Now     func() time.Time
}

// DiscordWidgetClient implements PresenceProvider using the public guild
// widget endpoint, which needs no bot token but requires the widget to be
// enabled in the guild settings (403 otherwise).
type DiscordWidgetClient struct {
	base    *BaseClient
	guildID string
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

// NewDiscordWidgetClient creates a DiscordWidgetClient.
func NewDiscordWidgetClient(httpClient *http.Client, cfg DiscordConfig, opts ...BaseClientOption) *DiscordWidgetClient {
	return NewDiscordWidgetClientWithBase(
		NewBaseClient(httpClient, "discord", DefaultRetryPolicy(), userAgent, opts...),
		cfg,
	)
}

// NewDiscordWidgetClientWithBase creates a DiscordWidgetClient over a
// pre-configured BaseClient.
func NewDiscordWidgetClientWithBase(base *BaseClient, cfg DiscordConfig) *DiscordWidgetClient {
	c := &DiscordWidgetClient{
		base:    base,
		guildID: cfg.GuildID,
		baseURL: strings.TrimSuffix(withDefault(cfg.BaseURL, discordAPIBase), "/"),
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

type widgetResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	InstantInvite string `json:"instant_invite"`
	PresenceCount int    `json:"presence_count"`
	Channels      []struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Position int    `json:"position"`
	} `json:"channels"`
	Members []struct {
		ID        string `json:"id"`
		Username  string `json:"username"`
		Status    string `json:"status"`
		AvatarURL string `json:"avatar_url"`
		Game      *struct {
			Name string `json:"name"`
		} `json:"game"`
	} `json:"members"`
}

// GuildID implements PresenceProvider.
func (c *DiscordWidgetClient) GuildID() string {
	return c.guildID
}

// GuildPresence implements PresenceProvider.
func (c *DiscordWidgetClient) GuildPresence(ctx context.Context) (types.DiscordPayload, error) {
	if c.guildID == "" {
		return types.DiscordPayload{}, types.NewProviderError(c.base.Name(), 0, fmt.Errorf("no guild configured"))
	}

	var w widgetResponse
	endpoint := fmt.Sprintf("%s/api/guilds/%s/widget.json", c.baseURL, url.PathEscape(c.guildID))
	if err := c.base.GetJSON(ctx, endpoint, &w); err != nil {
		return types.DiscordPayload{}, err
	}

	out := types.DiscordPayload{
		GuildID:        c.guildID,
		GuildName:      w.Name,
		PresenceCount:  w.PresenceCount,
		Members:        make([]types.DiscordMember, 0, len(w.Members)),
		Channels:       make([]types.DiscordChannel, 0, len(w.Channels)),
		InstantInvite:  w.InstantInvite,
		Provider:       c.base.Name(),
		LastUpdatedIso: types.FormatISO(c.now()),
	}
	for _, m := range w.Members {
		member := types.DiscordMember{
			ID:        m.ID,
			Username:  m.Username,
			Status:    m.Status,
			AvatarURL: m.AvatarURL,
		}
		if m.Game != nil {
			member.Activity = m.Game.Name
		}
		out.Members = append(out.Members, member)
	}
	for _, ch := range w.Channels {
		out.Channels = append(out.Channels, types.DiscordChannel{ID: ch.ID, Name: ch.Name, Position: ch.Position})
	}

	return out, nil
}

var _ PresenceProvider = (*DiscordWidgetClient)(nil)

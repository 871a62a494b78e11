package resources

import (
	"context"

	"dashboard/internal/cache"
	"dashboard/internal/types"
)

// DiscordResponse is the body of GET /discord-status.
type DiscordResponse struct {
	types.DiscordPayload
	Cache cache.Meta `json:"cache"`
}

// Discord returns the presence snapshot of the configured guild.
func (s *Service) Discord(ctx context.Context, forceRefresh bool) (*DiscordResponse, error) {
	presence := s.providers.Presence

	res, err := cache.Fetch(ctx, s.fetcher, cache.Request[types.DiscordPayload]{
		Resource:     ResourceDiscord,
		Key:          cache.DiscordKey(presence.GuildID()),
		Policy:       s.policies.Discord,
		ForceRefresh: forceRefresh,
		Load:         presence.GuildPresence,
	})
	if err != nil {
		return nil, err
	}
	return &DiscordResponse{DiscordPayload: res.Payload, Cache: res.Meta}, nil
}

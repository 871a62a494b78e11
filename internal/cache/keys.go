package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"dashboard/internal/types"
)

// Key namespaces. Each resource type owns one so identical hashes from
// different resources never collide.
const (
	NamespaceWeather  = "weather"
	NamespaceRoute    = "route"
	NamespaceDiscord  = "discord"
	NamespaceReminder = "reminder"
)

// fieldSeparator is the ASCII unit separator; it cannot appear in the
// trimmed query strings accepted by the API.
const fieldSeparator = "\x1f"

// BuildKey derives a deterministic key: the namespace, a colon, and the
// hex SHA-256 of the fields joined by the unit separator. Fields are used as
// given; the per-resource helpers below normalize them first.
func BuildKey(namespace string, fields ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(fields, fieldSeparator)))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// WeatherKey keys weather by location, case-insensitively.
func WeatherKey(location string) string {
	return BuildKey(NamespaceWeather, normalizePlace(location))
}

// RouteKey keys a route by its endpoints and mode. The mode also appears in
// the prefix so a purge can target one travel mode.
func RouteKey(from, to string, mode types.TravelMode) string {
	m := strings.TrimSpace(string(mode))
	return BuildKey(NamespaceRoute+":"+m, normalizePlace(from), normalizePlace(to), m)
}

// DiscordKey keys the guild presence snapshot.
func DiscordKey(guildID string) string {
	return BuildKey(NamespaceDiscord, strings.TrimSpace(guildID))
}

// ReminderKey keys the reminder list for one calendar date (YYYY-MM-DD).
func ReminderKey(date string) string {
	return BuildKey(NamespaceReminder, strings.TrimSpace(date))
}

// NamespacePattern returns the glob matching every key of a namespace.
func NamespacePattern(namespace string) string {
	return namespace + ":*"
}

func normalizePlace(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

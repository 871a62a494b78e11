package types

import "time"

// ISOLayout renders UTC instants with millisecond precision and a "Z" suffix,
// the timestamp format used in every cache record and API response.
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatISO formats t in UTC using ISOLayout.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// ParseISO parses an ISO-8601 / RFC 3339 timestamp with optional fractional
// seconds.
func ParseISO(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

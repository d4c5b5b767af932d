package model

import "time"

// Timestamp layouts accepted for credential dates such as Expire and
// LastRefresh. Zone-less layouts are read in a caller-supplied location.
var (
	zonedTimestampLayouts = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z0700",
		time.RFC1123Z,
		time.RFC1123,
	}
	localTimestampLayouts = []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// ParseTimestamp parses raw in any accepted layout. Zone-less forms are
// interpreted in loc; a nil loc means UTC.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range zonedTimestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range localTimestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// NormalizeTimestamp rewrites raw as RFC3339 in UTC. Zone-less input is read
// as UTC. It returns false when raw matches no accepted layout.
func NormalizeTimestamp(raw string) (string, bool) {
	t, ok := ParseTimestamp(raw, time.UTC)
	if !ok {
		return "", false
	}
	return t.UTC().Format(time.RFC3339), true
}

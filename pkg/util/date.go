package util

import (
	"strconv"
	"time"
)

// InstantLayout is RFC3339 in UTC with second precision, the wire format for all timestamps.
const InstantLayout = "2006-01-02T15:04:05Z"

// FormatInstant renders t in InstantLayout.
func FormatInstant(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(InstantLayout)
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds or milliseconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		if ts > 1e11 { // ms
			return time.UnixMilli(ts), true
		}
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

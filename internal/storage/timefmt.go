package storage

import (
	"fmt"
	"time"
)

// TimeLayout is fixed width so stored timestamps compare correctly as text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// FormatTime renders t in UTC using TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts TimeLayout and any RFC 3339 timestamp (Postgres timestamptz
// values come back with a numeric offset).
func ParseTime(value string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}

package cache

import "time"

const (
	// SearchTTL bounds the age of a cached search result ordering.
	SearchTTL = 7 * 24 * time.Hour

	// DetailTTL bounds the age of a cached place detail record.
	DetailTTL = 30 * 24 * time.Hour
)

// IsStale reports whether data last refreshed at lastRefreshed must be
// fetched again at now. Never-refreshed data is always stale.
func IsStale(lastRefreshed *time.Time, ttl time.Duration, now time.Time) bool {
	if lastRefreshed == nil || lastRefreshed.IsZero() {
		return true
	}
	return now.Sub(*lastRefreshed) >= ttl
}

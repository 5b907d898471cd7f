package cache

import "strings"

// Key builds the search cache key for a category and a free-form location.
// Locations differing only by case or surrounding whitespace share a key.
func Key(category, location string) string {
	return category + ":" + strings.TrimSpace(strings.ToLower(location))
}

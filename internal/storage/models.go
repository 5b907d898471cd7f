package storage

import (
	"errors"
	"time"
)

// ErrUnavailable is returned by stores that were opened without usable credentials.
var ErrUnavailable = errors.New("storage unavailable")

// Business is one row of the businesses table.
type Business struct {
	PlaceID          string   `db:"place_id"`
	Name             string   `db:"name"`
	FormattedAddress string   `db:"formatted_address"`
	Rating           *float64 `db:"rating"`
	UserRatingsTotal *int     `db:"user_ratings_total"`
	Lat              float64  `db:"lat"`
	Lng              float64  `db:"lng"`
	BusinessStatus   string   `db:"business_status"`
	Types            []string `db:"types"` // JSON array in SQLite, text[] in Postgres
	OpenNow          *bool    `db:"open_now"`
	Photos           string   `db:"photos"` // JSON array of photo references
	PlusCodeGlobal   string   `db:"plus_code_global"`
	PlusCodeCompound string   `db:"plus_code_compound"`

	BasicInfoUpdatedAt time.Time `db:"basic_info_updated_at"`

	Details          BusinessDetails
	DetailsUpdatedAt *time.Time `db:"details_updated_at"` // NULL until a detail fetch succeeds
}

// BusinessDetails holds the extended columns populated only by detail fetches.
type BusinessDetails struct {
	FormattedPhoneNumber     string   `db:"formatted_phone_number"`
	InternationalPhoneNumber string   `db:"international_phone_number"`
	Website                  string   `db:"website"`
	URL                      string   `db:"url"`
	PriceLevel               *int     `db:"price_level"`
	WeekdayText              []string `db:"opening_hours_weekday_text"`
	Periods                  string   `db:"opening_hours_periods"` // JSON array
}

// Review is one row of the reviews table.
type Review struct {
	PlaceID                 string  `db:"place_id"`
	AuthorName              string  `db:"author_name"`
	AuthorURL               string  `db:"author_url"`
	Language                string  `db:"language"`
	ProfilePhotoURL         string  `db:"profile_photo_url"`
	Rating                  float64 `db:"rating"`
	Text                    string  `db:"text"`
	Time                    int64   `db:"time"`
	RelativeTimeDescription string  `db:"relative_time_description"`
}

// SearchCacheEntry is one row of the search_cache table.
type SearchCacheEntry struct {
	SearchKey     string    `db:"search_key"`
	Category      string    `db:"category"`
	Location      string    `db:"location"`
	Metro         string    `db:"metro"`
	ResultCount   int       `db:"result_count"`
	LastFetchedAt time.Time `db:"last_fetched_at"`
	LastQueriedAt time.Time `db:"last_queried_at"`
	TotalQueries  int       `db:"total_queries"`
}

// SearchSnapshot is everything one search save writes.
type SearchSnapshot struct {
	Key        string
	Category   string
	Location   string
	Metro      string
	Businesses []Business // in rank order
	FetchedAt  time.Time
}

// DetailSnapshot is everything one detail save writes. Basics is inserted only
// when the place has never been seen in a search.
type DetailSnapshot struct {
	Basics    Business
	Details   BusinessDetails
	Photos    string
	Reviews   []Review // nil or empty keeps the stored set
	UpdatedAt time.Time
}

// Counts summarizes table sizes.
type Counts struct {
	Businesses int
	Reviews    int
	SearchKeys int
	RankRows   int
}

package supabase

import (
	"fmt"

	"github.com/renderinc/prolocator/internal/storage"
)

// basicsRow carries the columns a search upsert owns. Photos is omitted when
// empty so PostgREST leaves the stored value alone.
type basicsRow struct {
	PlaceID            string   `json:"place_id"`
	Name               string   `json:"name"`
	FormattedAddress   string   `json:"formatted_address"`
	Rating             *float64 `json:"rating"`
	UserRatingsTotal   *int     `json:"user_ratings_total"`
	Lat                float64  `json:"lat"`
	Lng                float64  `json:"lng"`
	BusinessStatus     *string  `json:"business_status"`
	Types              []string `json:"types"`
	OpenNow            *bool    `json:"open_now"`
	Photos             *string  `json:"photos,omitempty"`
	PlusCodeGlobal     *string  `json:"plus_code_global"`
	PlusCodeCompound   *string  `json:"plus_code_compound"`
	BasicInfoUpdatedAt string   `json:"basic_info_updated_at"`
}

type detailsRow struct {
	FormattedPhoneNumber     *string  `json:"formatted_phone_number"`
	InternationalPhoneNumber *string  `json:"international_phone_number"`
	Website                  *string  `json:"website"`
	URL                      *string  `json:"url"`
	PriceLevel               *int     `json:"price_level"`
	WeekdayText              []string `json:"opening_hours_weekday_text"`
	Periods                  *string  `json:"opening_hours_periods"`
	Photos                   *string  `json:"photos,omitempty"`
	DetailsUpdatedAt         string   `json:"details_updated_at"`
}

type businessRow struct {
	basicsRow
	FormattedPhoneNumber     *string  `json:"formatted_phone_number"`
	InternationalPhoneNumber *string  `json:"international_phone_number"`
	Website                  *string  `json:"website"`
	URL                      *string  `json:"url"`
	PriceLevel               *int     `json:"price_level"`
	WeekdayText              []string `json:"opening_hours_weekday_text"`
	Periods                  *string  `json:"opening_hours_periods"`
	DetailsUpdatedAt         *string  `json:"details_updated_at"`
}

type reviewRow struct {
	PlaceID                 string  `json:"place_id"`
	AuthorName              string  `json:"author_name"`
	AuthorURL               *string `json:"author_url"`
	Language                string  `json:"language"`
	ProfilePhotoURL         *string `json:"profile_photo_url"`
	Rating                  float64 `json:"rating"`
	Text                    string  `json:"text"`
	Time                    int64   `json:"time"`
	RelativeTimeDescription string  `json:"relative_time_description"`
}

type searchCacheRow struct {
	SearchKey     string  `json:"search_key"`
	Category      string  `json:"category"`
	Location      string  `json:"location"`
	Metro         *string `json:"metro"`
	ResultCount   int     `json:"result_count"`
	LastFetchedAt string  `json:"last_fetched_at"`
	LastQueriedAt string  `json:"last_queried_at"`
	TotalQueries  int     `json:"total_queries"`
}

type rankRow struct {
	SearchKey string `json:"search_key"`
	Rank      int    `json:"rank"`
	PlaceID   string `json:"place_id"`
}

type rankedBusinessRow struct {
	Rank       int          `json:"rank"`
	Businesses *businessRow `json:"businesses"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func toBasicsRow(b storage.Business, updatedAt string) basicsRow {
	return basicsRow{
		PlaceID:            b.PlaceID,
		Name:               b.Name,
		FormattedAddress:   b.FormattedAddress,
		Rating:             b.Rating,
		UserRatingsTotal:   b.UserRatingsTotal,
		Lat:                b.Lat,
		Lng:                b.Lng,
		BusinessStatus:     optional(b.BusinessStatus),
		Types:              b.Types,
		OpenNow:            b.OpenNow,
		Photos:             optional(b.Photos),
		PlusCodeGlobal:     optional(b.PlusCodeGlobal),
		PlusCodeCompound:   optional(b.PlusCodeCompound),
		BasicInfoUpdatedAt: updatedAt,
	}
}

func (r businessRow) toBusiness() (storage.Business, error) {
	b := storage.Business{
		PlaceID:          r.PlaceID,
		Name:             r.Name,
		FormattedAddress: r.FormattedAddress,
		Rating:           r.Rating,
		UserRatingsTotal: r.UserRatingsTotal,
		Lat:              r.Lat,
		Lng:              r.Lng,
		BusinessStatus:   deref(r.BusinessStatus),
		Types:            r.Types,
		OpenNow:          r.OpenNow,
		Photos:           deref(r.Photos),
		PlusCodeGlobal:   deref(r.PlusCodeGlobal),
		PlusCodeCompound: deref(r.PlusCodeCompound),
		Details: storage.BusinessDetails{
			FormattedPhoneNumber:     deref(r.FormattedPhoneNumber),
			InternationalPhoneNumber: deref(r.InternationalPhoneNumber),
			Website:                  deref(r.Website),
			URL:                      deref(r.URL),
			PriceLevel:               r.PriceLevel,
			WeekdayText:              r.WeekdayText,
			Periods:                  deref(r.Periods),
		},
	}

	var err error
	if b.BasicInfoUpdatedAt, err = storage.ParseTime(r.BasicInfoUpdatedAt); err != nil {
		return storage.Business{}, fmt.Errorf("business %s: %w", r.PlaceID, err)
	}
	if r.DetailsUpdatedAt != nil {
		t, err := storage.ParseTime(*r.DetailsUpdatedAt)
		if err != nil {
			return storage.Business{}, fmt.Errorf("business %s: %w", r.PlaceID, err)
		}
		b.DetailsUpdatedAt = &t
	}
	return b, nil
}

func (r searchCacheRow) toEntry() (*storage.SearchCacheEntry, error) {
	e := &storage.SearchCacheEntry{
		SearchKey:    r.SearchKey,
		Category:     r.Category,
		Location:     r.Location,
		Metro:        deref(r.Metro),
		ResultCount:  r.ResultCount,
		TotalQueries: r.TotalQueries,
	}
	var err error
	if e.LastFetchedAt, err = storage.ParseTime(r.LastFetchedAt); err != nil {
		return nil, fmt.Errorf("search cache %s: %w", r.SearchKey, err)
	}
	if e.LastQueriedAt, err = storage.ParseTime(r.LastQueriedAt); err != nil {
		return nil, fmt.Errorf("search cache %s: %w", r.SearchKey, err)
	}
	return e, nil
}

func toReviewRow(placeID string, r storage.Review) reviewRow {
	lang := r.Language
	if lang == "" {
		lang = "en"
	}
	return reviewRow{
		PlaceID:                 placeID,
		AuthorName:              r.AuthorName,
		AuthorURL:               optional(r.AuthorURL),
		Language:                lang,
		ProfilePhotoURL:         optional(r.ProfilePhotoURL),
		Rating:                  r.Rating,
		Text:                    r.Text,
		Time:                    r.Time,
		RelativeTimeDescription: r.RelativeTimeDescription,
	}
}

func (r reviewRow) toReview() storage.Review {
	return storage.Review{
		PlaceID:                 r.PlaceID,
		AuthorName:              r.AuthorName,
		AuthorURL:               deref(r.AuthorURL),
		Language:                r.Language,
		ProfilePhotoURL:         deref(r.ProfilePhotoURL),
		Rating:                  r.Rating,
		Text:                    r.Text,
		Time:                    r.Time,
		RelativeTimeDescription: r.RelativeTimeDescription,
	}
}

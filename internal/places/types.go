package places

// LatLng is a WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geometry wraps a place's location.
type Geometry struct {
	Location LatLng `json:"location"`
}

// PhotoRef identifies one provider photo; fetch it with Client.Photo.
type PhotoRef struct {
	PhotoReference   string   `json:"photo_reference"`
	Height           int      `json:"height"`
	Width            int      `json:"width"`
	HTMLAttributions []string `json:"html_attributions,omitempty"`
}

// PlusCode is an encoded location reference.
type PlusCode struct {
	GlobalCode   string `json:"global_code,omitempty"`
	CompoundCode string `json:"compound_code,omitempty"`
}

// DayTime is one end of an opening period; Time is "hhmm".
type DayTime struct {
	Day  int    `json:"day"`
	Time string `json:"time"`
}

// Period is one opening interval. Close is nil for places open around the clock.
type Period struct {
	Open  DayTime  `json:"open"`
	Close *DayTime `json:"close,omitempty"`
}

// OpeningHours as returned by search (OpenNow only) and detail lookups.
type OpeningHours struct {
	OpenNow     *bool    `json:"open_now,omitempty"`
	WeekdayText []string `json:"weekday_text,omitempty"`
	Periods     []Period `json:"periods,omitempty"`
}

// Place is a text search result.
type Place struct {
	PlaceID          string        `json:"place_id"`
	Name             string        `json:"name"`
	FormattedAddress string        `json:"formatted_address"`
	Rating           *float64      `json:"rating,omitempty"`
	UserRatingsTotal *int          `json:"user_ratings_total,omitempty"`
	Geometry         Geometry      `json:"geometry"`
	BusinessStatus   string        `json:"business_status,omitempty"`
	OpeningHours     *OpeningHours `json:"opening_hours,omitempty"`
	Photos           []PhotoRef    `json:"photos,omitempty"`
	Types            []string      `json:"types,omitempty"`
	PlusCode         *PlusCode     `json:"plus_code,omitempty"`
}

// Review is a provider review attached to a detail payload.
type Review struct {
	AuthorName              string  `json:"author_name"`
	AuthorURL               string  `json:"author_url,omitempty"`
	Language                string  `json:"language,omitempty"`
	ProfilePhotoURL         string  `json:"profile_photo_url,omitempty"`
	Rating                  float64 `json:"rating"`
	RelativeTimeDescription string  `json:"relative_time_description"`
	Text                    string  `json:"text"`
	Time                    int64   `json:"time"`
}

// PlaceDetails is a detail lookup result.
type PlaceDetails struct {
	Place
	FormattedPhoneNumber     string   `json:"formatted_phone_number,omitempty"`
	InternationalPhoneNumber string   `json:"international_phone_number,omitempty"`
	Website                  string   `json:"website,omitempty"`
	URL                      string   `json:"url,omitempty"`
	PriceLevel               *int     `json:"price_level,omitempty"`
	Reviews                  []Review `json:"reviews,omitempty"`
}

// Photo is raw image data from the photo endpoint.
type Photo struct {
	Data        []byte
	ContentType string
}

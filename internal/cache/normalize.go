package cache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/renderinc/prolocator/internal/places"
	"github.com/renderinc/prolocator/internal/storage"
)

// ToBusiness flattens a search result into the basic columns of a business row.
func ToBusiness(p places.Place) (storage.Business, error) {
	b := storage.Business{
		PlaceID:          p.PlaceID,
		Name:             p.Name,
		FormattedAddress: p.FormattedAddress,
		Rating:           p.Rating,
		UserRatingsTotal: p.UserRatingsTotal,
		Lat:              p.Geometry.Location.Lat,
		Lng:              p.Geometry.Location.Lng,
		BusinessStatus:   p.BusinessStatus,
		Types:            p.Types,
	}
	if p.OpeningHours != nil {
		b.OpenNow = p.OpeningHours.OpenNow
	}
	if p.PlusCode != nil {
		b.PlusCodeGlobal = p.PlusCode.GlobalCode
		b.PlusCodeCompound = p.PlusCode.CompoundCode
	}

	photos, err := encodeJSON(p.Photos)
	if err != nil {
		return storage.Business{}, fmt.Errorf("encode photos for %s: %w", p.PlaceID, err)
	}
	b.Photos = photos
	return b, nil
}

// ToDetailSnapshot flattens a detail payload for placeID.
func ToDetailSnapshot(placeID string, d places.PlaceDetails, at time.Time) (storage.DetailSnapshot, error) {
	d.PlaceID = placeID
	basics, err := ToBusiness(d.Place)
	if err != nil {
		return storage.DetailSnapshot{}, err
	}

	snap := storage.DetailSnapshot{
		Basics: basics,
		Details: storage.BusinessDetails{
			FormattedPhoneNumber:     d.FormattedPhoneNumber,
			InternationalPhoneNumber: d.InternationalPhoneNumber,
			Website:                  d.Website,
			URL:                      d.URL,
			PriceLevel:               d.PriceLevel,
		},
		Photos:    basics.Photos,
		UpdatedAt: at,
	}
	if d.OpeningHours != nil {
		snap.Details.WeekdayText = d.OpeningHours.WeekdayText
		periods, err := encodeJSON(d.OpeningHours.Periods)
		if err != nil {
			return storage.DetailSnapshot{}, fmt.Errorf("encode periods for %s: %w", placeID, err)
		}
		snap.Details.Periods = periods
	}

	for _, r := range d.Reviews {
		snap.Reviews = append(snap.Reviews, storage.Review{
			PlaceID:                 placeID,
			AuthorName:              r.AuthorName,
			AuthorURL:               r.AuthorURL,
			Language:                r.Language,
			ProfilePhotoURL:         r.ProfilePhotoURL,
			Rating:                  r.Rating,
			Text:                    r.Text,
			Time:                    r.Time,
			RelativeTimeDescription: r.RelativeTimeDescription,
		})
	}
	return snap, nil
}

// FromBusiness rebuilds the search result shape from a stored row.
func FromBusiness(b storage.Business) (places.Place, error) {
	p := places.Place{
		PlaceID:          b.PlaceID,
		Name:             b.Name,
		FormattedAddress: b.FormattedAddress,
		Rating:           b.Rating,
		UserRatingsTotal: b.UserRatingsTotal,
		Geometry:         places.Geometry{Location: places.LatLng{Lat: b.Lat, Lng: b.Lng}},
		BusinessStatus:   b.BusinessStatus,
		Types:            b.Types,
	}
	if b.OpenNow != nil {
		p.OpeningHours = &places.OpeningHours{OpenNow: b.OpenNow}
	}
	if b.PlusCodeGlobal != "" || b.PlusCodeCompound != "" {
		p.PlusCode = &places.PlusCode{GlobalCode: b.PlusCodeGlobal, CompoundCode: b.PlusCodeCompound}
	}
	if err := decodeJSON(b.Photos, &p.Photos); err != nil {
		return places.Place{}, fmt.Errorf("decode photos for %s: %w", b.PlaceID, err)
	}
	return p, nil
}

// FromDetails rebuilds a detail payload from a stored row and its reviews.
func FromDetails(b storage.Business, reviews []storage.Review) (places.PlaceDetails, error) {
	p, err := FromBusiness(b)
	if err != nil {
		return places.PlaceDetails{}, err
	}

	d := places.PlaceDetails{
		Place:                    p,
		FormattedPhoneNumber:     b.Details.FormattedPhoneNumber,
		InternationalPhoneNumber: b.Details.InternationalPhoneNumber,
		Website:                  b.Details.Website,
		URL:                      b.Details.URL,
		PriceLevel:               b.Details.PriceLevel,
	}
	if len(b.Details.WeekdayText) > 0 {
		hours := &places.OpeningHours{OpenNow: b.OpenNow, WeekdayText: b.Details.WeekdayText}
		if err := decodeJSON(b.Details.Periods, &hours.Periods); err != nil {
			return places.PlaceDetails{}, fmt.Errorf("decode periods for %s: %w", b.PlaceID, err)
		}
		d.OpeningHours = hours
	}

	for _, r := range reviews {
		d.Reviews = append(d.Reviews, places.Review{
			AuthorName:              r.AuthorName,
			AuthorURL:               r.AuthorURL,
			Language:                r.Language,
			ProfilePhotoURL:         r.ProfilePhotoURL,
			Rating:                  r.Rating,
			RelativeTimeDescription: r.RelativeTimeDescription,
			Text:                    r.Text,
			Time:                    r.Time,
		})
	}
	return d, nil
}

// encodeJSON serializes a list, mapping an empty list to "" (stored as NULL).
func encodeJSON[T any](values []T) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSON[T any](blob string, out *[]T) error {
	if blob == "" {
		return nil
	}
	return json.Unmarshal([]byte(blob), out)
}

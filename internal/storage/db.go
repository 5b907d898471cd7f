package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/renderinc/prolocator/internal/storage/migrations"
)

// DB wraps SQLite database operations for the place cache.
type DB struct {
	db     *sql.DB
	atomic bool
}

// Option configures a DB.
type Option func(*DB)

// WithStepwiseWrites runs each statement of a multi-step save on its own
// instead of inside one transaction. Readers may briefly see a key with no
// ranks while a save is in flight.
func WithStepwiseWrites() Option {
	return func(d *DB) { d.atomic = false }
}

// Open opens or creates a SQLite database and applies the embedded migrations.
func Open(path string, opts ...Option) (*DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	dsn := filepath.Clean(path) + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := applyMigrations(context.Background(), db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	storage := &DB{db: db, atomic: true}
	for _, opt := range opts {
		opt(storage)
	}
	return storage, nil
}

// Close closes the database
func (d *DB) Close() error {
	if d == nil || d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Available reports whether the handle can serve reads and writes.
func (d *DB) Available() bool {
	return d != nil && d.db != nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// write runs fn inside a transaction, or directly against the pool when the
// store was opened with stepwise writes.
func (d *DB) write(ctx context.Context, fn func(execer) error) error {
	if !d.atomic {
		return fn(d.db)
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const businessColumns = `
	b.place_id, b.name, b.formatted_address, b.rating, b.user_ratings_total,
	b.lat, b.lng, b.business_status, b.types, b.open_now, b.photos,
	b.plus_code_global, b.plus_code_compound, b.basic_info_updated_at,
	b.formatted_phone_number, b.international_phone_number, b.website, b.url,
	b.price_level, b.opening_hours_weekday_text, b.opening_hours_periods,
	b.details_updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (*Business, error) {
	var (
		b                              Business
		rating                         sql.NullFloat64
		ratingsTotal, priceLevel       sql.NullInt64
		openNow                        sql.NullBool
		status, types, photos          sql.NullString
		plusGlobal, plusCompound       sql.NullString
		phone, intlPhone, website, url sql.NullString
		weekdayText, periods           sql.NullString
		basicUpdatedAt                 string
		detailsUpdatedAt               sql.NullString
	)

	err := row.Scan(
		&b.PlaceID, &b.Name, &b.FormattedAddress, &rating, &ratingsTotal,
		&b.Lat, &b.Lng, &status, &types, &openNow, &photos,
		&plusGlobal, &plusCompound, &basicUpdatedAt,
		&phone, &intlPhone, &website, &url,
		&priceLevel, &weekdayText, &periods,
		&detailsUpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rating.Valid {
		b.Rating = &rating.Float64
	}
	if ratingsTotal.Valid {
		n := int(ratingsTotal.Int64)
		b.UserRatingsTotal = &n
	}
	if openNow.Valid {
		b.OpenNow = &openNow.Bool
	}
	if priceLevel.Valid {
		n := int(priceLevel.Int64)
		b.Details.PriceLevel = &n
	}
	b.BusinessStatus = status.String
	b.Photos = photos.String
	b.PlusCodeGlobal = plusGlobal.String
	b.PlusCodeCompound = plusCompound.String
	b.Details.FormattedPhoneNumber = phone.String
	b.Details.InternationalPhoneNumber = intlPhone.String
	b.Details.Website = website.String
	b.Details.URL = url.String
	b.Details.Periods = periods.String

	if b.Types, err = decodeStrings(types); err != nil {
		return nil, fmt.Errorf("decode types for %s: %w", b.PlaceID, err)
	}
	if b.Details.WeekdayText, err = decodeStrings(weekdayText); err != nil {
		return nil, fmt.Errorf("decode weekday text for %s: %w", b.PlaceID, err)
	}
	if b.BasicInfoUpdatedAt, err = ParseTime(basicUpdatedAt); err != nil {
		return nil, err
	}
	if detailsUpdatedAt.Valid {
		t, err := ParseTime(detailsUpdatedAt.String)
		if err != nil {
			return nil, err
		}
		b.DetailsUpdatedAt = &t
	}
	return &b, nil
}

func decodeStrings(value sql.NullString) ([]string, error) {
	if !value.Valid || value.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(value.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeStrings(values []string) (any, error) {
	if values == nil {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// upsertBasics inserts or updates the basic columns of b. The detail columns
// are never touched, and a nil photo list keeps the stored one.
func upsertBasics(ctx context.Context, ex execer, b Business, at time.Time, onConflictUpdate bool) error {
	types, err := encodeStrings(b.Types)
	if err != nil {
		return fmt.Errorf("encode types: %w", err)
	}

	query := `
	INSERT INTO businesses (
		place_id, name, formatted_address, rating, user_ratings_total,
		lat, lng, business_status, types, open_now, photos,
		plus_code_global, plus_code_compound, basic_info_updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if onConflictUpdate {
		query += `
	ON CONFLICT(place_id) DO UPDATE SET
		name = excluded.name,
		formatted_address = excluded.formatted_address,
		rating = excluded.rating,
		user_ratings_total = excluded.user_ratings_total,
		lat = excluded.lat,
		lng = excluded.lng,
		business_status = excluded.business_status,
		types = excluded.types,
		open_now = excluded.open_now,
		photos = COALESCE(excluded.photos, businesses.photos),
		plus_code_global = excluded.plus_code_global,
		plus_code_compound = excluded.plus_code_compound,
		basic_info_updated_at = excluded.basic_info_updated_at`
	} else {
		query += `
	ON CONFLICT(place_id) DO NOTHING`
	}

	_, err = ex.ExecContext(ctx, query,
		b.PlaceID, b.Name, b.FormattedAddress, b.Rating, b.UserRatingsTotal,
		b.Lat, b.Lng, nullString(b.BusinessStatus), types, b.OpenNow, nullString(b.Photos),
		nullString(b.PlusCodeGlobal), nullString(b.PlusCodeCompound), FormatTime(at),
	)
	if err != nil {
		return fmt.Errorf("upsert business %s: %w", b.PlaceID, err)
	}
	return nil
}

// UpsertBusiness inserts or updates the basic columns of one business.
func (d *DB) UpsertBusiness(ctx context.Context, b Business, at time.Time) error {
	return upsertBasics(ctx, d.db, b, at, true)
}

// GetBusiness retrieves a business by place id. It returns nil, nil when the
// place is unknown.
func (d *DB) GetBusiness(ctx context.Context, placeID string) (*Business, error) {
	row := d.db.QueryRowContext(ctx, `SELECT `+businessColumns+` FROM businesses b WHERE b.place_id = ?`, placeID)
	b, err := scanBusiness(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return b, nil
}

// ListBusinesses retrieves every stored business ordered by name.
func (d *DB) ListBusinesses(ctx context.Context) ([]Business, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT `+businessColumns+` FROM businesses b ORDER BY b.name`)
	if err != nil {
		return nil, fmt.Errorf("list businesses: %w", err)
	}
	defer rows.Close()

	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan business: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// GetSearchCache retrieves the metadata row for key. It returns nil, nil when
// the key was never saved.
func (d *DB) GetSearchCache(ctx context.Context, key string) (*SearchCacheEntry, error) {
	var (
		e                        SearchCacheEntry
		metro                    sql.NullString
		lastFetched, lastQueried string
	)
	err := d.db.QueryRowContext(ctx, `
	SELECT search_key, category, location, metro, result_count,
	       last_fetched_at, last_queried_at, total_queries
	FROM search_cache
	WHERE search_key = ?`, key).Scan(
		&e.SearchKey, &e.Category, &e.Location, &metro, &e.ResultCount,
		&lastFetched, &lastQueried, &e.TotalQueries,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get search cache: %w", err)
	}

	e.Metro = metro.String
	if e.LastFetchedAt, err = ParseTime(lastFetched); err != nil {
		return nil, fmt.Errorf("search cache %s: %w", key, err)
	}
	if e.LastQueriedAt, err = ParseTime(lastQueried); err != nil {
		return nil, fmt.Errorf("search cache %s: %w", key, err)
	}
	return &e, nil
}

// TouchSearchCache records a read of key.
func (d *DB) TouchSearchCache(ctx context.Context, key string, at time.Time) error {
	_, err := d.db.ExecContext(ctx, `
	UPDATE search_cache
	SET last_queried_at = ?, total_queries = total_queries + 1
	WHERE search_key = ?`, FormatTime(at), key)
	if err != nil {
		return fmt.Errorf("touch search cache: %w", err)
	}
	return nil
}

// ListSearchResults retrieves the businesses ranked under key, rank ascending.
func (d *DB) ListSearchResults(ctx context.Context, key string) ([]Business, error) {
	rows, err := d.db.QueryContext(ctx, `
	SELECT `+businessColumns+`
	FROM search_results r
	JOIN businesses b ON b.place_id = r.place_id
	WHERE r.search_key = ?
	ORDER BY r.rank ASC`, key)
	if err != nil {
		return nil, fmt.Errorf("list search results: %w", err)
	}
	defer rows.Close()

	var out []Business
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// Ranks returns the rank -> place id rows stored for key.
func (d *DB) Ranks(ctx context.Context, key string) (map[int]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT rank, place_id FROM search_results WHERE search_key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("list ranks: %w", err)
	}
	defer rows.Close()

	out := make(map[int]string)
	for rows.Next() {
		var rank int
		var placeID string
		if err := rows.Scan(&rank, &placeID); err != nil {
			return nil, err
		}
		out[rank] = placeID
	}
	return out, rows.Err()
}

// SaveSearch upserts every business of snap, replaces the ranks stored for
// snap.Key with 1..N in slice order and upserts the key's metadata.
func (d *DB) SaveSearch(ctx context.Context, snap SearchSnapshot) error {
	return d.write(ctx, func(ex execer) error {
		for _, b := range snap.Businesses {
			if err := upsertBasics(ctx, ex, b, snap.FetchedAt, true); err != nil {
				return err
			}
		}

		if _, err := ex.ExecContext(ctx, `DELETE FROM search_results WHERE search_key = ?`, snap.Key); err != nil {
			return fmt.Errorf("delete ranks: %w", err)
		}
		for i, b := range snap.Businesses {
			if _, err := ex.ExecContext(ctx,
				`INSERT INTO search_results (search_key, rank, place_id) VALUES (?, ?, ?)`,
				snap.Key, i+1, b.PlaceID,
			); err != nil {
				return fmt.Errorf("insert rank %d: %w", i+1, err)
			}
		}

		fetched := FormatTime(snap.FetchedAt)
		_, err := ex.ExecContext(ctx, `
		INSERT INTO search_cache (
			search_key, category, location, metro, result_count,
			last_fetched_at, last_queried_at, total_queries
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(search_key) DO UPDATE SET
			category = excluded.category,
			location = excluded.location,
			metro = excluded.metro,
			result_count = excluded.result_count,
			last_fetched_at = excluded.last_fetched_at,
			last_queried_at = excluded.last_queried_at,
			total_queries = search_cache.total_queries + 1`,
			snap.Key, snap.Category, snap.Location, nullString(snap.Metro), len(snap.Businesses),
			fetched, fetched,
		)
		if err != nil {
			return fmt.Errorf("upsert search cache: %w", err)
		}
		return nil
	})
}

// ListReviews retrieves the reviews of a place in provider order.
func (d *DB) ListReviews(ctx context.Context, placeID string) ([]Review, error) {
	rows, err := d.db.QueryContext(ctx, `
	SELECT place_id, author_name, author_url, language, profile_photo_url,
	       rating, text, time, relative_time_description
	FROM reviews
	WHERE place_id = ?
	ORDER BY id ASC`, placeID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		var r Review
		var authorURL, photoURL sql.NullString
		if err := rows.Scan(
			&r.PlaceID, &r.AuthorName, &authorURL, &r.Language, &photoURL,
			&r.Rating, &r.Text, &r.Time, &r.RelativeTimeDescription,
		); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.AuthorURL = authorURL.String
		r.ProfilePhotoURL = photoURL.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveDetails writes the extended columns of a place, creating the place from
// snap.Basics if it was never seen, and replaces its reviews when snap carries any.
func (d *DB) SaveDetails(ctx context.Context, snap DetailSnapshot) error {
	placeID := snap.Basics.PlaceID
	return d.write(ctx, func(ex execer) error {
		if err := upsertBasics(ctx, ex, snap.Basics, snap.UpdatedAt, false); err != nil {
			return err
		}

		weekdayText, err := encodeStrings(snap.Details.WeekdayText)
		if err != nil {
			return fmt.Errorf("encode weekday text: %w", err)
		}
		_, err = ex.ExecContext(ctx, `
		UPDATE businesses SET
			formatted_phone_number = ?,
			international_phone_number = ?,
			website = ?,
			url = ?,
			price_level = ?,
			opening_hours_weekday_text = ?,
			opening_hours_periods = ?,
			photos = COALESCE(?, photos),
			details_updated_at = ?
		WHERE place_id = ?`,
			nullString(snap.Details.FormattedPhoneNumber),
			nullString(snap.Details.InternationalPhoneNumber),
			nullString(snap.Details.Website),
			nullString(snap.Details.URL),
			snap.Details.PriceLevel,
			weekdayText,
			nullString(snap.Details.Periods),
			nullString(snap.Photos),
			FormatTime(snap.UpdatedAt),
			placeID,
		)
		if err != nil {
			return fmt.Errorf("update details: %w", err)
		}

		if len(snap.Reviews) == 0 {
			return nil
		}
		if _, err := ex.ExecContext(ctx, `DELETE FROM reviews WHERE place_id = ?`, placeID); err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		for _, r := range snap.Reviews {
			lang := r.Language
			if lang == "" {
				lang = "en"
			}
			if _, err := ex.ExecContext(ctx, `
			INSERT INTO reviews (
				place_id, author_name, author_url, language, profile_photo_url,
				rating, text, time, relative_time_description
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				placeID, r.AuthorName, nullString(r.AuthorURL), lang, nullString(r.ProfilePhotoURL),
				r.Rating, r.Text, r.Time, r.RelativeTimeDescription,
			); err != nil {
				return fmt.Errorf("insert review: %w", err)
			}
		}
		return nil
	})
}

// EvictSearchCache deletes the ranks and then the metadata of every key last
// fetched before cutoff, returning the number of keys removed.
func (d *DB) EvictSearchCache(ctx context.Context, cutoff time.Time) (int, error) {
	var evicted int64
	err := d.write(ctx, func(ex execer) error {
		c := FormatTime(cutoff)
		if _, err := ex.ExecContext(ctx, `
		DELETE FROM search_results
		WHERE search_key IN (SELECT search_key FROM search_cache WHERE last_fetched_at < ?)`, c); err != nil {
			return fmt.Errorf("delete ranks: %w", err)
		}
		res, err := ex.ExecContext(ctx, `DELETE FROM search_cache WHERE last_fetched_at < ?`, c)
		if err != nil {
			return fmt.Errorf("delete search cache: %w", err)
		}
		evicted, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(evicted), nil
}

// Count returns table sizes.
func (d *DB) Count(ctx context.Context) (Counts, error) {
	var c Counts
	err := d.db.QueryRowContext(ctx, `
	SELECT
		(SELECT COUNT(*) FROM businesses),
		(SELECT COUNT(*) FROM reviews),
		(SELECT COUNT(*) FROM search_cache),
		(SELECT COUNT(*) FROM search_results)`).Scan(&c.Businesses, &c.Reviews, &c.SearchKeys, &c.RankRows)
	if err != nil {
		return Counts{}, fmt.Errorf("count: %w", err)
	}
	return c, nil
}

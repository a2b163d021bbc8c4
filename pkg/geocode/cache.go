package geocode

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Cache persists geocode results (matches and misses) in a local SQLite
// database so repeated runs skip the network entirely.
type Cache struct {
	db *sql.DB
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	place_hash   TEXT PRIMARY KEY,
	place        TEXT NOT NULL,
	latitude     REAL NOT NULL,
	longitude    REAL NOT NULL,
	display_name TEXT NOT NULL DEFAULT '',
	matched      INTEGER NOT NULL,
	cached_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// OpenCache opens (creating if needed) a cache database at path.
// Use ":memory:" for an ephemeral cache.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: open cache db")
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "geocode: init cache schema")
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// cacheKey returns SHA-256 hex of the lowercased, trimmed place string.
func cacheKey(place string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(place))))
	return fmt.Sprintf("%x", h)
}

// Get returns the cached result for place, or nil when absent. Cached
// non-matches are returned so callers skip the network for known misses.
func (c *Cache) Get(ctx context.Context, place string) (*Result, error) {
	var r Result
	var matched int
	row := c.db.QueryRowContext(ctx,
		"SELECT latitude, longitude, display_name, matched FROM geocode_cache WHERE place_hash = ?",
		cacheKey(place),
	)
	if err := row.Scan(&r.Latitude, &r.Longitude, &r.DisplayName, &matched); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "geocode: cache lookup")
	}
	r.Matched = matched != 0
	return &r, nil
}

// Put stores a result for place, overwriting any previous entry.
func (c *Cache) Put(ctx context.Context, place string, result *Result) error {
	matched := 0
	if result.Matched {
		matched = 1
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO geocode_cache (place_hash, place, latitude, longitude, display_name, matched)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (place_hash) DO UPDATE SET
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			display_name = excluded.display_name,
			matched = excluded.matched,
			cached_at = CURRENT_TIMESTAMP`,
		cacheKey(place), place, result.Latitude, result.Longitude, result.DisplayName, matched,
	)
	if err != nil {
		return eris.Wrap(err, "geocode: cache store")
	}
	return nil
}

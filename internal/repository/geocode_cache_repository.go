package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jengzang/recap-backend-go/internal/models"
)

// GeocodeCacheRepository persists geocoded labels by quantized coordinate key.
// It satisfies geocoding.Store.
type GeocodeCacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewGeocodeCacheRepository creates a new geocode cache repository
func NewGeocodeCacheRepository(db *sql.DB) *GeocodeCacheRepository {
	return &GeocodeCacheRepository{db: db, now: time.Now}
}

// Get returns the cached label for key; ok is false on a miss
func (r *GeocodeCacheRepository) Get(ctx context.Context, key string) (models.GeocodeResult, bool, error) {
	var res models.GeocodeResult
	err := r.db.QueryRowContext(ctx,
		"SELECT title, subtitle FROM geocode_cache WHERE cache_key = ?", key,
	).Scan(&res.Title, &res.Subtitle)

	if err == sql.ErrNoRows {
		return models.GeocodeResult{}, false, nil
	}
	if err != nil {
		return models.GeocodeResult{}, false, fmt.Errorf("failed to get geocode cache entry: %w", err)
	}
	return res, true, nil
}

// Set stores the label for key, replacing an existing entry
func (r *GeocodeCacheRepository) Set(ctx context.Context, key string, res models.GeocodeResult) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO geocode_cache (cache_key, title, subtitle, created_at)
		VALUES (?, ?, ?, ?)
	`, key, res.Title, res.Subtitle, r.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set geocode cache entry: %w", err)
	}
	return nil
}

// Count returns the number of cached entries
func (r *GeocodeCacheRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM geocode_cache").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count geocode cache: %w", err)
	}
	return n, nil
}

// Purge removes entries older than maxAge and returns how many were deleted
func (r *GeocodeCacheRepository) Purge(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := r.now().Add(-maxAge).Unix()
	res, err := r.db.ExecContext(ctx, "DELETE FROM geocode_cache WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge geocode cache: %w", err)
	}
	return res.RowsAffected()
}

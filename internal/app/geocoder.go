package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/jengzang/recap-backend-go/internal/config"
	"github.com/jengzang/recap-backend-go/internal/geocoding"
	"github.com/jengzang/recap-backend-go/internal/geocoding/redisstore"
	"github.com/jengzang/recap-backend-go/internal/metrics"
	"github.com/jengzang/recap-backend-go/internal/repository"
)

// BuildGeocoder wires the resolver with the Nominatim backend and the configured
// second-level store. db is only used by the sqlite store and may be nil otherwise.
// The returned cleanup releases store connections.
func BuildGeocoder(ctx context.Context, cfg config.GeocodingConfig, db *sql.DB, logger *zap.Logger) (*geocoding.Resolver, func(), error) {
	backend := geocoding.NewNominatimBackend(geocoding.NominatimConfig{
		BaseURL:     cfg.BaseURL,
		UserAgent:   cfg.UserAgent,
		Language:    cfg.Language,
		Timeout:     cfg.Timeout,
		MinInterval: cfg.MinInterval,
		Zoom:        cfg.Zoom,
	}, &http.Client{})

	cleanup := func() {}
	var store geocoding.Store

	switch cfg.Store {
	case config.StoreMemory:
	case config.StoreSQLite:
		if db == nil {
			return nil, nil, fmt.Errorf("sqlite geocode store needs a database")
		}
		repo := repository.NewGeocodeCacheRepository(db)
		if cfg.CacheMaxAge > 0 {
			n, err := repo.Purge(ctx, cfg.CacheMaxAge)
			if err != nil {
				return nil, nil, err
			}
			logger.Info("Purged stale geocode cache entries", zap.Int64("deleted", n))
		}
		store = repo
	case config.StoreRedis:
		rs, err := redisstore.NewStore(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis geocode store: %w", err)
		}
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, nil, fmt.Errorf("redis geocode store not reachable: %w", err)
		}
		store = rs
		cleanup = rs.Close
	default:
		return nil, nil, fmt.Errorf("unknown geocode store %q", cfg.Store)
	}

	resolver, err := geocoding.NewResolver(backend, geocoding.Options{
		Precision:       cfg.Precision,
		Timeout:         cfg.ResolverTimeout,
		CacheSize:       cfg.CacheSize,
		Store:           store,
		CacheTotal:      metrics.GeocodeCacheTotal,
		RequestsTotal:   metrics.GeocodeRequestsTotal,
		RequestDuration: metrics.GeocodeRequestDuration,
		Logger:          logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("Geocoder ready",
		zap.String("store", cfg.Store),
		zap.Int("cache_size", cfg.CacheSize))

	return resolver, cleanup, nil
}

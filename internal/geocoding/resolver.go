package geocoding

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/spatial"
)

// DefaultTimeout bounds one backend lookup including the second-level store
const DefaultTimeout = 10 * time.Second

// Options configures a Resolver. Zero values select defaults.
type Options struct {
	// Precision is the number of decimal places kept in cache keys
	Precision int
	// Timeout bounds a shared lookup independently of caller contexts
	Timeout time.Duration
	// CacheSize > 0 bounds the in-memory cache with LRU eviction; 0 keeps every entry
	CacheSize int
	// Store is an optional second-level cache
	Store Store

	CacheTotal      *prometheus.CounterVec // label "result"
	RequestsTotal   *prometheus.CounterVec // label "status"
	RequestDuration prometheus.Observer

	Logger *zap.Logger
}

// Resolver resolves coordinates to display labels with caching.
// It is safe for concurrent use; concurrent misses on the same key share one backend call.
type Resolver struct {
	backend   Backend
	cache     memoryCache
	store     Store
	flights   singleflight.Group
	precision int
	timeout   time.Duration

	cacheTotal      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration prometheus.Observer
	logger          *zap.Logger
}

// NewResolver creates a new resolver in front of backend
func NewResolver(backend Backend, opts Options) (*Resolver, error) {
	if backend == nil {
		return nil, fmt.Errorf("geocoding backend is required")
	}

	if opts.Precision <= 0 {
		opts.Precision = spatial.DefaultKeyPrecision
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	var cache memoryCache = newMapCache()
	if opts.CacheSize > 0 {
		lc, err := newLRUCache(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create geocode cache: %w", err)
		}
		cache = lc
	}

	return &Resolver{
		backend:         backend,
		cache:           cache,
		store:           opts.Store,
		precision:       opts.Precision,
		timeout:         opts.Timeout,
		cacheTotal:      opts.CacheTotal,
		requestsTotal:   opts.RequestsTotal,
		requestDuration: opts.RequestDuration,
		logger:          opts.Logger.With(zap.String("component", "geocoding")),
	}, nil
}

// Key returns the cache key for a coordinate
func (r *Resolver) Key(coord models.Coordinate) string {
	return spatial.QuantizedKey(coord, r.precision)
}

// CachedEntries returns the number of entries in the in-memory cache
func (r *Resolver) CachedEntries() int {
	return r.cache.Len()
}

// Resolve returns the label for coord. It never fails: when the backend is
// unavailable or ctx ends first, the Unknown Place fallback is returned.
func (r *Resolver) Resolve(ctx context.Context, coord models.Coordinate) models.GeocodeResult {
	key := r.Key(coord)

	if res, ok := r.cache.Get(key); ok {
		r.incCache("hit")
		return res
	}

	if err := ctx.Err(); err != nil {
		return models.UnknownPlace()
	}

	// The lookup is shared by every caller waiting on key, so it must not be
	// cancelled by whichever caller happened to start it.
	flightCtx := context.WithoutCancel(ctx)
	ch := r.flights.DoChan(key, func() (interface{}, error) {
		return r.lookup(flightCtx, key, coord)
	})

	select {
	case <-ctx.Done():
		r.logger.Debug("Geocode wait abandoned", zap.String("key", key), zap.Error(ctx.Err()))
		return models.UnknownPlace()
	case res := <-ch:
		if res.Err != nil {
			r.logger.Warn("Geocoding unavailable, using fallback label",
				zap.String("key", key), zap.Error(res.Err))
			return models.UnknownPlace()
		}
		return res.Val.(models.GeocodeResult)
	}
}

// lookup fills the cache for key from the store or the backend
func (r *Resolver) lookup(ctx context.Context, key string, coord models.Coordinate) (models.GeocodeResult, error) {
	// A previous flight may have published while this one was being scheduled
	if res, ok := r.cache.Get(key); ok {
		r.incCache("hit")
		return res, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.store != nil {
		res, ok, err := r.store.Get(ctx, key)
		switch {
		case err != nil:
			r.logger.Warn("Failed to read geocode store", zap.String("key", key), zap.Error(err))
		case ok:
			r.incCache("store_hit")
			r.cache.Add(key, res)
			return res, nil
		}
	}

	r.incCache("miss")

	start := time.Now()
	components, err := r.backend.ReverseGeocode(ctx, coord)
	if r.requestDuration != nil {
		r.requestDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		r.incRequest(failureStatus(err))
		return models.GeocodeResult{}, fmt.Errorf("failed to reverse geocode %s: %w", key, err)
	}

	res, err := Label(components)
	if err != nil {
		r.incRequest(failureStatus(err))
		return models.GeocodeResult{}, fmt.Errorf("failed to label %s: %w", key, err)
	}
	r.incRequest("ok")

	r.cache.Add(key, res)
	if r.store != nil {
		if err := r.store.Set(ctx, key, res); err != nil {
			r.logger.Warn("Failed to write geocode store", zap.String("key", key), zap.Error(err))
		}
	}

	r.logger.Debug("Geocoded coordinate",
		zap.String("key", key),
		zap.String("title", res.Title),
		zap.String("subtitle", res.Subtitle))

	return res, nil
}

func (r *Resolver) incCache(result string) {
	if r.cacheTotal != nil {
		r.cacheTotal.WithLabelValues(result).Inc()
	}
}

func (r *Resolver) incRequest(status string) {
	if r.requestsTotal != nil {
		r.requestsTotal.WithLabelValues(status).Inc()
	}
}

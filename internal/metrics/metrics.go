package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Geocoding Prometheus metrics.
var (
	GeocodeCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recap",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result",
		},
		[]string{"result"}, // "hit" / "store_hit" / "miss"
	)

	GeocodeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "recap",
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding backend calls by outcome",
		},
		[]string{"status"},
	)

	GeocodeRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "recap",
			Name:      "geocode_request_duration_seconds",
			Help:      "Reverse geocoding backend call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
)

// Clustering and draft metrics.
var (
	ClusteringDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "recap",
			Name:      "clustering_duration_seconds",
			Help:      "Time spent clustering one photo batch",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	ClustersPerDraft = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "recap",
			Name:      "clusters_per_draft",
			Help:      "Number of place clusters produced per draft",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	StaleGeocodeResultsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "recap",
			Name:      "stale_geocode_results_total",
			Help:      "Geocode results dropped because their draft or cluster was gone",
		},
	)

	ActiveDrafts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "recap",
			Name:      "active_drafts",
			Help:      "Drafts currently held in memory",
		},
	)
)

var registerOnce sync.Once

// Register registers all recap metrics with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			GeocodeCacheTotal,
			GeocodeRequestsTotal,
			GeocodeRequestDuration,
			ClusteringDuration,
			ClustersPerDraft,
			StaleGeocodeResultsTotal,
			ActiveDrafts,
			httpRequestDuration,
			httpRequestsTotal,
		)
	})
}

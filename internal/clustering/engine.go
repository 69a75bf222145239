package clustering

import (
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/spatial"
)

// ErrEmptyInput is returned when clustering is called without records
var ErrEmptyInput = errors.New("no input photos")

// Engine partitions photo records into place clusters.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	cfg   Config
	newID func() string
}

// NewEngine creates a new clustering engine; zero thresholds fall back to defaults
func NewEngine(cfg Config) *Engine {
	cfg.ApplyDefaults()
	return &Engine{
		cfg:   cfg,
		newID: func() string { return uuid.NewString() },
	}
}

// Config returns the thresholds in use
func (e *Engine) Config() Config {
	return e.cfg
}

// Cluster groups records into place clusters ordered by their earliest photo.
// A new cluster starts when the time gap to the previous photo exceeds
// MaxTimeGapBetweenClusters, or when both photos are geolocated and farther
// apart than MaxDistanceWithinCluster. Titles are left empty.
func (e *Engine) Cluster(records []models.PhotoRecord) ([]*models.PlaceCluster, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}

	// Sort by capture time, keeping input order for equal timestamps
	sorted := make([]models.PhotoRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].TakenAt.Before(sorted[j].TakenAt)
	})

	var clusters []*models.PlaceCluster
	current := []models.PhotoRecord{sorted[0]}

	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if e.splits(prev, cur) {
			clusters = append(clusters, e.finalize(current))
			current = nil
		}
		current = append(current, cur)
	}

	// Finalize last cluster
	clusters = append(clusters, e.finalize(current))

	return clusters, nil
}

// splits reports whether cur must open a new cluster after prev
func (e *Engine) splits(prev, cur models.PhotoRecord) bool {
	// Long idle gap: trip or place boundary
	if cur.TakenAt.Sub(prev.TakenAt) > e.cfg.MaxTimeGapBetweenClusters {
		return true
	}

	// A photo without a location only takes part in the time check
	if !prev.HasCoordinate() || !cur.HasCoordinate() {
		return false
	}

	return spatial.Distance(*prev.Coordinate, *cur.Coordinate) > e.cfg.MaxDistanceWithinCluster
}

// finalize builds a cluster from its time-ordered members
func (e *Engine) finalize(members []models.PhotoRecord) *models.PlaceCluster {
	cluster := &models.PlaceCluster{
		ID:         e.newID(),
		PhotoIDs:   make([]string, 0, len(members)),
		StartTime:  members[0].TakenAt,
		EndTime:    members[len(members)-1].TakenAt,
		PhotoCount: len(members),
	}

	var located []models.Coordinate
	for _, m := range members {
		cluster.PhotoIDs = append(cluster.PhotoIDs, m.ID)
		if m.HasCoordinate() {
			located = append(located, *m.Coordinate)
		}
	}

	cluster.Coordinate = spatial.Centroid(located)
	return cluster
}

// Trips groups consecutive clusters into trip segments. A new segment starts when
// the gap between one cluster's last photo and the next cluster's first photo
// exceeds MaxTimeGapBetweenTrips. Clusters must be in Cluster output order.
func (e *Engine) Trips(clusters []*models.PlaceCluster) []models.TripSegment {
	if len(clusters) == 0 {
		return nil
	}

	var trips []models.TripSegment
	currentTrip := models.TripSegment{
		Index:      0,
		ClusterIDs: []string{clusters[0].ID},
		StartTime:  clusters[0].StartTime,
		EndTime:    clusters[0].EndTime,
	}

	for _, c := range clusters[1:] {
		gap := c.StartTime.Sub(currentTrip.EndTime)
		if gap > e.cfg.MaxTimeGapBetweenTrips {
			// End current trip and start new one
			trips = append(trips, currentTrip)
			currentTrip = models.TripSegment{
				Index:     len(trips),
				StartTime: c.StartTime,
			}
		}
		currentTrip.ClusterIDs = append(currentTrip.ClusterIDs, c.ID)
		if c.EndTime.After(currentTrip.EndTime) {
			currentTrip.EndTime = c.EndTime
		}
	}

	return append(trips, currentTrip)
}

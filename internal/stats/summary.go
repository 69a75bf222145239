package stats

import (
	"math"

	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/spatial"
)

// Summarize computes headline numbers for a draft.
// Route distance follows located cluster centroids in order; dwell is the
// time between a cluster's first and last photo.
func Summarize(draft *models.RecapDraft) models.DraftSummary {
	s := models.DraftSummary{
		DraftID:      draft.ID,
		ClusterCount: len(draft.Clusters),
		TripCount:    len(draft.Trips),
	}
	if len(draft.Clusters) == 0 {
		return s
	}

	dwell := make([]float64, 0, len(draft.Clusters))
	counts := make([]float64, 0, len(draft.Clusters))
	var prev *models.Coordinate
	var located []models.Coordinate
	for _, c := range draft.Clusters {
		s.PhotoCount += c.PhotoCount
		dwell = append(dwell, c.EndTime.Sub(c.StartTime).Minutes())
		counts = append(counts, float64(c.PhotoCount))

		if c.Coordinate == nil {
			continue
		}
		located = append(located, *c.Coordinate)
		s.LocatedClusters++
		if prev != nil {
			s.RouteDistanceMeters += spatial.Distance(*prev, *c.Coordinate)
		}
		prev = c.Coordinate
	}

	first, last := draft.Clusters[0], draft.Clusters[len(draft.Clusters)-1]
	s.StartTime = first.StartTime
	s.EndTime = last.EndTime
	s.SpanMinutes = spatial.Round(s.EndTime.Sub(s.StartTime).Minutes(), 1)

	s.MedianDwellMinutes = spatial.Round(Median(dwell), 1)
	s.P90DwellMinutes = spatial.Round(Quantile(dwell, 0.9), 1)
	s.RouteDistanceMeters = math.Round(s.RouteDistanceMeters)
	s.AreaRadiusMeters = math.Round(spatial.MaxSpread(located))

	// Normalized so 1 means photos are spread evenly across places
	if len(counts) > 1 {
		s.PlaceDiversity = spatial.Round(ShannonEntropy(counts)/math.Log2(float64(len(counts))), 3)
	}
	return s
}

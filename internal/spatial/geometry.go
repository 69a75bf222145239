package spatial

import (
	"github.com/jengzang/recap-backend-go/internal/models"
)

// Centroid calculates the arithmetic mean of latitude and of longitude.
// Only meaningful for small extents (a few kilometers); no spherical averaging
// and no antimeridian handling is done.
// Returns nil for an empty input.
func Centroid(points []models.Coordinate) *models.Coordinate {
	if len(points) == 0 {
		return nil
	}

	var sumLat, sumLon float64
	for _, p := range points {
		sumLat += p.Latitude
		sumLon += p.Longitude
	}

	return &models.Coordinate{
		Latitude:  sumLat / float64(len(points)),
		Longitude: sumLon / float64(len(points)),
	}
}

// MaxSpread returns the largest distance in meters from the centroid to any point
func MaxSpread(points []models.Coordinate) float64 {
	center := Centroid(points)
	if center == nil {
		return 0
	}

	var maxDist float64
	for _, p := range points {
		if d := Distance(*center, p); d > maxDist {
			maxDist = d
		}
	}
	return maxDist
}

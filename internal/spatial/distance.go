package spatial

import (
	"github.com/golang/geo/s2"

	"github.com/jengzang/recap-backend-go/internal/models"
)

// Constants
const (
	EarthRadiusMeters = 6371000.0 // Earth's mean radius in meters
)

// HaversineDistance calculates the great-circle distance between two points in meters
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusMeters
}

// Distance returns the great-circle distance between two coordinates in meters
func Distance(a, b models.Coordinate) float64 {
	return HaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// Valid reports whether the coordinate lies within WGS84 bounds
func Valid(c models.Coordinate) bool {
	return s2.LatLngFromDegrees(c.Latitude, c.Longitude).IsValid()
}

package spatial

import (
	"math"
	"strconv"

	"github.com/jengzang/recap-backend-go/internal/models"
)

// DefaultKeyPrecision rounds to 4 decimal places, roughly 11m at the equator
const DefaultKeyPrecision = 4

// Round rounds v to the given number of decimal places
func Round(v float64, precision int) float64 {
	scale := math.Pow(10, float64(precision))
	r := math.Round(v*scale) / scale
	if r == 0 {
		// Normalise -0 so both sides of the equator/meridian share a key
		r = 0
	}
	return r
}

// QuantizedKey builds a stable cache key for a coordinate rounded to precision decimals
func QuantizedKey(c models.Coordinate, precision int) string {
	if precision < 0 {
		precision = 0
	}
	lat := strconv.FormatFloat(Round(c.Latitude, precision), 'f', precision, 64)
	lon := strconv.FormatFloat(Round(c.Longitude, precision), 'f', precision, 64)
	return lat + "," + lon
}

package geocoding

import (
	"context"

	"github.com/jengzang/recap-backend-go/internal/models"
)

// Backend turns a coordinate into place name components.
// Implementations wrap ErrNoResult, ErrNetwork or ErrTimeout on failure.
type Backend interface {
	ReverseGeocode(ctx context.Context, coord models.Coordinate) (models.PlaceComponents, error)
}

// BackendFunc adapts a function to the Backend interface
type BackendFunc func(ctx context.Context, coord models.Coordinate) (models.PlaceComponents, error)

// ReverseGeocode calls f
func (f BackendFunc) ReverseGeocode(ctx context.Context, coord models.Coordinate) (models.PlaceComponents, error) {
	return f(ctx, coord)
}

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/jengzang/recap-backend-go/internal/models"
)

// RouteFeatureID identifies the line joining the located clusters
const RouteFeatureID = "route"

// DraftGeoJSON builds a FeatureCollection with one Point per located cluster,
// in cluster order, and a route LineString when at least two are located.
// Clusters without a coordinate are left out.
func DraftGeoJSON(draft *models.RecapDraft) *geojson.FeatureCollection {
	fc := &geojson.FeatureCollection{Features: []*geojson.Feature{}}

	var route []float64
	for order, c := range draft.Clusters {
		if c.Coordinate == nil {
			continue
		}
		// GeoJSON positions are lon, lat
		xy := []float64{c.Coordinate.Longitude, c.Coordinate.Latitude}
		route = append(route, xy...)

		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       c.ID,
			Geometry: geom.NewPointFlat(geom.XY, xy),
			Properties: map[string]interface{}{
				"id":         c.ID,
				"order":      order,
				"title":      c.DisplayTitle(),
				"subtitle":   c.Subtitle,
				"photoCount": c.PhotoCount,
				"start":      c.StartTime.UTC().Format(time.RFC3339),
				"end":        c.EndTime.UTC().Format(time.RFC3339),
			},
		})
	}

	if len(route) >= 4 {
		fc.Features = append(fc.Features, &geojson.Feature{
			ID:       RouteFeatureID,
			Geometry: geom.NewLineStringFlat(geom.XY, route),
			Properties: map[string]interface{}{
				"draftId": draft.ID,
			},
		})
	}

	return fc
}

// MarshalDraft encodes the draft as GeoJSON
func MarshalDraft(draft *models.RecapDraft) ([]byte, error) {
	data, err := json.Marshal(DraftGeoJSON(draft))
	if err != nil {
		return nil, fmt.Errorf("failed to encode geojson: %w", err)
	}
	return data, nil
}

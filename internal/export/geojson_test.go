package export

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/jengzang/recap-backend-go/internal/models"
)

func testDraft() *models.RecapDraft {
	start := time.Date(2024, 7, 14, 10, 0, 0, 0, time.UTC)
	custom := "Fireworks"
	return &models.RecapDraft{
		ID: "d1",
		Clusters: []*models.PlaceCluster{
			{ID: "c1", Coordinate: &models.Coordinate{Latitude: 48.8584, Longitude: 2.2945}, Title: "Eiffel Tower", Subtitle: "Paris", CustomTitle: &custom, StartTime: start, EndTime: start.Add(time.Hour), PhotoCount: 4},
			{ID: "c2", Title: models.UnknownPlaceTitle, StartTime: start.Add(3 * time.Hour), EndTime: start.Add(3 * time.Hour), PhotoCount: 1},
			{ID: "c3", Coordinate: &models.Coordinate{Latitude: 48.8606, Longitude: 2.3376}, Title: "Louvre", Subtitle: "Paris", StartTime: start.Add(6 * time.Hour), EndTime: start.Add(7 * time.Hour), PhotoCount: 2},
		},
	}
}

func TestDraftGeoJSON(t *testing.T) {
	fc := DraftGeoJSON(testDraft())
	require.Len(t, fc.Features, 3)

	first := fc.Features[0]
	assert.Equal(t, "c1", first.ID)
	point, ok := first.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, []float64{2.2945, 48.8584}, point.FlatCoords())
	assert.Equal(t, "Fireworks", first.Properties["title"])
	assert.Equal(t, 0, first.Properties["order"])
	assert.Equal(t, "2024-07-14T10:00:00Z", first.Properties["start"])

	assert.Equal(t, 2, fc.Features[1].Properties["order"])

	route := fc.Features[2]
	assert.Equal(t, RouteFeatureID, route.ID)
	line, ok := route.Geometry.(*geom.LineString)
	require.True(t, ok)
	assert.Equal(t, 2, line.NumCoords())
}

func TestDraftGeoJSON_SingleLocatedClusterHasNoRoute(t *testing.T) {
	draft := testDraft()
	draft.Clusters = draft.Clusters[:2]

	fc := DraftGeoJSON(draft)
	require.Len(t, fc.Features, 1)
	assert.Equal(t, "c1", fc.Features[0].ID)
}

func TestDraftGeoJSON_NoLocatedClusters(t *testing.T) {
	draft := &models.RecapDraft{ID: "d1", Clusters: []*models.PlaceCluster{{ID: "c1"}}}
	data, err := MarshalDraft(draft)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded["type"])
	assert.Empty(t, decoded["features"])
}

func TestMarshalDraft(t *testing.T) {
	data, err := MarshalDraft(testDraft())
	require.NoError(t, err)

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string          `json:"type"`
				Coordinates json.RawMessage `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 3)
	assert.Equal(t, "Point", decoded.Features[0].Geometry.Type)
	assert.JSONEq(t, "[2.2945,48.8584]", string(decoded.Features[0].Geometry.Coordinates))
	assert.Equal(t, "LineString", decoded.Features[2].Geometry.Type)
}

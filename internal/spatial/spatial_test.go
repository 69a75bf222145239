package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/recap-backend-go/internal/models"
)

func TestHaversineDistance(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		want                   float64
		delta                  float64
	}{
		{"same point", 40, -74, 40, -74, 0, 0.001},
		{"one degree of latitude", 0, 0, 1, 0, 111195, 10},
		{"new york to london", 40.7128, -74.0060, 51.5074, -0.1278, 5570000, 10000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineDistance(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			assert.InDelta(t, tt.want, got, tt.delta)
		})
	}
}

func TestDistance_Symmetric(t *testing.T) {
	a := models.Coordinate{Latitude: 40.0, Longitude: -74.0}
	b := models.Coordinate{Latitude: 40.0002, Longitude: -74.0001}

	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
	assert.Less(t, Distance(a, b), 30.0)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid(models.Coordinate{Latitude: 90, Longitude: 180}))
	assert.False(t, Valid(models.Coordinate{Latitude: 91, Longitude: 0}))
	assert.False(t, Valid(models.Coordinate{Latitude: 0, Longitude: 181}))
}

func TestCentroid(t *testing.T) {
	assert.Nil(t, Centroid(nil))

	c := Centroid([]models.Coordinate{
		{Latitude: 40.0, Longitude: -74.0},
		{Latitude: 40.0002, Longitude: -74.0001},
	})
	require.NotNil(t, c)
	assert.InDelta(t, 40.0001, c.Latitude, 1e-9)
	assert.InDelta(t, -74.00005, c.Longitude, 1e-9)
}

func TestMaxSpread(t *testing.T) {
	assert.Zero(t, MaxSpread(nil))

	spread := MaxSpread([]models.Coordinate{
		{Latitude: 0, Longitude: 0},
		{Latitude: 0.01, Longitude: 0},
	})
	assert.InDelta(t, 556, spread, 5)
}

func TestQuantizedKey(t *testing.T) {
	tests := []struct {
		name      string
		coord     models.Coordinate
		precision int
		want      string
	}{
		{"rounds to four decimals", models.Coordinate{Latitude: 40.00004, Longitude: -74.00004}, 4, "40.0000,-74.0000"},
		{"rounds to nearest", models.Coordinate{Latitude: 40.00006, Longitude: 10.12346}, 4, "40.0001,10.1235"},
		{"normalises negative zero", models.Coordinate{Latitude: -0.00001, Longitude: -0.00002}, 4, "0.0000,0.0000"},
		{"coarser precision", models.Coordinate{Latitude: 51.5074, Longitude: -0.1278}, 2, "51.51,-0.13"},
		{"negative precision clamps to zero", models.Coordinate{Latitude: 51.5, Longitude: -0.4}, -1, "52,0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QuantizedKey(tt.coord, tt.precision))
		})
	}
}

func TestQuantizedKey_NearbyPointsShareKey(t *testing.T) {
	a := models.Coordinate{Latitude: 48.85661, Longitude: 2.35222}
	b := models.Coordinate{Latitude: 48.85659, Longitude: 2.35218}
	assert.Equal(t, QuantizedKey(a, DefaultKeyPrecision), QuantizedKey(b, DefaultKeyPrecision))
}

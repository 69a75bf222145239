package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jengzang/recap-backend-go/internal/config"
	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/service"
)

type stubGeocoder struct{ res models.GeocodeResult }

func (g stubGeocoder) Resolve(context.Context, models.Coordinate) models.GeocodeResult {
	return g.res
}

func testOptions(geocoder service.Geocoder) Options {
	return Options{
		Version: "1.2.3",
		LoadConfig: func() (*config.Config, error) {
			cfg := &config.Config{Geocoding: config.GeocodingConfig{Store: config.StoreMemory}}
			cfg.ApplyDefaults()
			return cfg, nil
		},
		NewGeocoder: func(context.Context, *config.Config, *zap.Logger) (service.Geocoder, func(), error) {
			if geocoder == nil {
				return nil, nil, errors.New("no geocoder")
			}
			return geocoder, func() {}, nil
		},
	}
}

func run(t *testing.T, opts Options, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(opts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// photoDir creates photos without EXIF; their modification times act as capture times
func photoDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	base := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	for name, offset := range map[string]time.Duration{
		"a.jpg": 0,
		"b.jpg": 30 * time.Minute,
		"c.jpg": 4 * time.Hour,
		"d.jpg": 50 * time.Hour,
	} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
		ts := base.Add(offset)
		require.NoError(t, os.Chtimes(p, ts, ts))
	}
	return dir
}

type clusterOutput struct {
	Clusters []models.PlaceCluster `json:"clusters"`
	Trips    []models.TripSegment  `json:"trips"`
}

func TestVersion(t *testing.T) {
	out, err := run(t, testOptions(nil), "version")
	require.NoError(t, err)
	assert.Equal(t, "recapctl 1.2.3\n", out)
}

func TestCluster_JSON(t *testing.T) {
	out, err := run(t, testOptions(nil), "cluster", photoDir(t), "--json")
	require.NoError(t, err)

	var got clusterOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Clusters, 3)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, got.Clusters[0].PhotoIDs)
	assert.Equal(t, []string{"c.jpg"}, got.Clusters[1].PhotoIDs)
	assert.Len(t, got.Trips, 2)
	assert.Empty(t, got.Clusters[0].Title)
}

func TestCluster_GapFlag(t *testing.T) {
	out, err := run(t, testOptions(nil), "cluster", photoDir(t), "--json", "--gap", "5h", "--trip-gap", "72h")
	require.NoError(t, err)

	var got clusterOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got.Clusters, 2)
	assert.Len(t, got.Trips, 1)
}

func TestCluster_InvalidFlags(t *testing.T) {
	_, err := run(t, testOptions(nil), "cluster", photoDir(t), "--gap", "48h")
	assert.Error(t, err)
}

func TestCluster_Table(t *testing.T) {
	out, err := run(t, testOptions(nil), "cluster", photoDir(t))
	require.NoError(t, err)
	assert.Contains(t, out, "3 clusters in 2 trips")
	assert.Contains(t, out, "TITLE")
}

func TestCluster_Geocode(t *testing.T) {
	geo := stubGeocoder{res: models.GeocodeResult{Title: "Alfama", Subtitle: "Lisbon"}}
	out, err := run(t, testOptions(geo), "cluster", photoDir(t), "--geocode", "--json")
	require.NoError(t, err)

	var got clusterOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	// No photo carries GPS data, so every cluster gets the fallback title
	for _, c := range got.Clusters {
		assert.Equal(t, models.UnknownPlaceTitle, c.Title)
	}
}

func TestCluster_EmptyDirectory(t *testing.T) {
	_, err := run(t, testOptions(nil), "cluster", t.TempDir())
	assert.Error(t, err)
}

func TestCluster_MissingDirectory(t *testing.T) {
	_, err := run(t, testOptions(nil), "cluster", filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestGeocode(t *testing.T) {
	geo := stubGeocoder{res: models.GeocodeResult{Title: "Belém Tower", Subtitle: "Lisbon"}}

	out, err := run(t, testOptions(geo), "geocode", "--lat", "38.6916", "--lon", "-9.2160", "--json")
	require.NoError(t, err)
	var res models.GeocodeResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "Belém Tower", res.Title)

	out, err = run(t, testOptions(geo), "geocode", "--lat", "38.6916", "--lon", "-9.2160")
	require.NoError(t, err)
	assert.Contains(t, out, "Belém Tower")
}

func TestGeocode_Validation(t *testing.T) {
	geo := stubGeocoder{}

	_, err := run(t, testOptions(geo), "geocode", "--lat", "95", "--lon", "0")
	assert.Error(t, err)

	_, err = run(t, testOptions(geo), "geocode", "--lat", "10")
	assert.Error(t, err)

	_, err = run(t, testOptions(nil), "geocode", "--lat", "10", "--lon", "10")
	assert.Error(t, err)
}

package clustering

import (
	"fmt"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/spatial"
)

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func photo(id string, offset time.Duration, coord ...float64) models.PhotoRecord {
	p := models.PhotoRecord{ID: id, TakenAt: base.Add(offset)}
	if len(coord) == 2 {
		p.Coordinate = &models.Coordinate{Latitude: coord[0], Longitude: coord[1]}
	}
	return p
}

func newTestEngine(cfg Config) *Engine {
	e := NewEngine(cfg)
	n := 0
	e.newID = func() string {
		n++
		return fmt.Sprintf("c%d", n)
	}
	return e
}

func memberIDs(clusters []*models.PlaceCluster) [][]string {
	out := make([][]string, len(clusters))
	for i, c := range clusters {
		out[i] = c.PhotoIDs
	}
	return out
}

func TestCluster_EmptyInput(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	clusters, err := e.Cluster(nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Nil(t, clusters)

	_, err = e.Cluster([]models.PhotoRecord{})
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestCluster_SingleRecord(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	clusters, err := e.Cluster([]models.PhotoRecord{photo("a", 0, 40, -74)})
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	c := clusters[0]
	assert.Equal(t, []string{"a"}, c.PhotoIDs)
	assert.Equal(t, 1, c.PhotoCount)
	assert.Equal(t, base, c.StartTime)
	assert.Equal(t, base, c.EndTime)
	require.NotNil(t, c.Coordinate)
	assert.Equal(t, 40.0, c.Coordinate.Latitude)
	assert.Empty(t, c.Title)
	assert.Empty(t, c.Subtitle)
}

func TestCluster_IdenticalTimestamps(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("a", 0),
		photo("b", 0),
		photo("c", 0),
	})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	// Stable with respect to input order
	assert.Equal(t, []string{"a", "b", "c"}, clusters[0].PhotoIDs)
}

func TestCluster_SplitByTimeGap(t *testing.T) {
	e := newTestEngine(Config{
		MaxTimeGapBetweenClusters: 2 * time.Hour,
		MaxDistanceWithinCluster:  1000,
	})

	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("t0", 0),
		photo("t10", 10*time.Minute, 40.0, -74.0),
		photo("t20", 20*time.Minute, 40.0002, -74.0001),
		photo("t6h", 6*time.Hour, 51.5, -0.1),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"t0", "t10", "t20"}, {"t6h"}}, memberIDs(clusters))
}

func TestCluster_TimeGapSplitsRegardlessOfDistance(t *testing.T) {
	e := newTestEngine(Config{
		MaxTimeGapBetweenClusters: time.Hour,
		MaxDistanceWithinCluster:  1000,
	})

	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("a", 0, 40.0, -74.0),
		photo("b", 61*time.Minute, 40.0, -74.0),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}, {"b"}}, memberIDs(clusters))
}

func TestCluster_GapEqualToThresholdDoesNotSplit(t *testing.T) {
	e := newTestEngine(Config{
		MaxTimeGapBetweenClusters: time.Hour,
		MaxDistanceWithinCluster:  1000,
	})

	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("a", 0),
		photo("b", time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, clusters, 1)
}

func TestCluster_SplitByDistance(t *testing.T) {
	e := newTestEngine(Config{
		MaxTimeGapBetweenClusters: 2 * time.Hour,
		MaxDistanceWithinCluster:  10,
	})

	// ~1500m north of the t=10min photo
	farLat := 40.0 + 1500.0/111195.0

	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("t0", 0),
		photo("t10", 10*time.Minute, 40.0, -74.0),
		photo("t20", 20*time.Minute, farLat, -74.0),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"t0", "t10"}, {"t20"}}, memberIDs(clusters))
}

func TestCluster_MissingCoordinateNeverSplitsSpatially(t *testing.T) {
	e := newTestEngine(Config{
		MaxTimeGapBetweenClusters: 2 * time.Hour,
		MaxDistanceWithinCluster:  10,
	})

	// The unlocated photo sits between two far-apart locations, so the
	// pairwise check never sees two geolocated neighbours.
	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("ny", 0, 40.0, -74.0),
		photo("none", 5*time.Minute),
		photo("far", 10*time.Minute, 41.0, -74.0),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"ny", "none", "far"}}, memberIDs(clusters))
}

func TestCluster_UnsortedInput(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("late", 10*time.Hour),
		photo("early", 0),
		photo("mid", 30*time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"early", "mid"}, {"late"}}, memberIDs(clusters))
	assert.Equal(t, base, clusters[0].StartTime)
	assert.Equal(t, base.Add(30*time.Minute), clusters[0].EndTime)
}

func TestCluster_Centroid(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("a", 0, 40.0, -74.0),
		photo("b", time.Minute),
		photo("c", 2*time.Minute, 40.0002, -74.0001),
	})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	require.NotNil(t, clusters[0].Coordinate)
	assert.InDelta(t, 40.0001, clusters[0].Coordinate.Latitude, 1e-9)
	assert.InDelta(t, -74.00005, clusters[0].Coordinate.Longitude, 1e-9)
}

func TestCluster_NoGeolocatedMembers(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	clusters, err := e.Cluster([]models.PhotoRecord{photo("a", 0), photo("b", time.Minute)})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Nil(t, clusters[0].Coordinate)
}

func TestCluster_DuplicatesAreKept(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	clusters, err := e.Cluster([]models.PhotoRecord{photo("a", 0), photo("a", time.Minute)})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"a", "a"}, clusters[0].PhotoIDs)
	assert.Equal(t, 2, clusters[0].PhotoCount)
}

func TestCluster_DoesNotReorderCallerSlice(t *testing.T) {
	e := newTestEngine(DefaultConfig())

	input := []models.PhotoRecord{photo("b", time.Minute), photo("a", 0)}
	_, err := e.Cluster(input)
	require.NoError(t, err)
	assert.Equal(t, "b", input[0].ID)
}

// Randomised inputs must always be partitioned exactly and emitted in time order.
func TestCluster_PartitionProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	cfg := Config{MaxTimeGapBetweenClusters: 45 * time.Minute, MaxDistanceWithinCluster: 500}
	e := newTestEngine(cfg)

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(80)
		records := make([]models.PhotoRecord, n)
		for i := range records {
			records[i] = photo(fmt.Sprintf("p%d", i), time.Duration(rng.Intn(24*60))*time.Minute)
			if rng.Intn(3) > 0 {
				records[i].Coordinate = &models.Coordinate{
					Latitude:  48.85 + rng.Float64()*0.02,
					Longitude: 2.35 + rng.Float64()*0.02,
				}
			}
		}

		clusters, err := e.Cluster(records)
		require.NoError(t, err)

		byID := make(map[string]models.PhotoRecord, n)
		for _, r := range records {
			byID[r.ID] = r
		}

		var seen []string
		for i, c := range clusters {
			require.NotEmpty(t, c.PhotoIDs)
			assert.Equal(t, len(c.PhotoIDs), c.PhotoCount)
			seen = append(seen, c.PhotoIDs...)

			if i > 0 {
				assert.False(t, c.StartTime.Before(clusters[i-1].StartTime), "clusters out of order")
				// Consecutive clusters are split for a reason
				prev := byID[clusters[i-1].PhotoIDs[len(clusters[i-1].PhotoIDs)-1]]
				first := byID[c.PhotoIDs[0]]
				assert.True(t, e.splits(prev, first))
			}

			var located []models.Coordinate
			for _, id := range c.PhotoIDs {
				if r := byID[id]; r.Coordinate != nil {
					located = append(located, *r.Coordinate)
				}
			}
			if len(located) == 0 {
				assert.Nil(t, c.Coordinate)
			} else {
				want := spatial.Centroid(located)
				require.NotNil(t, c.Coordinate)
				assert.InDelta(t, want.Latitude, c.Coordinate.Latitude, 1e-9)
				assert.InDelta(t, want.Longitude, c.Coordinate.Longitude, 1e-9)
			}
		}

		want := make([]string, 0, n)
		for _, r := range records {
			want = append(want, r.ID)
		}
		sort.Strings(want)
		sort.Strings(seen)
		assert.Equal(t, want, seen)
	}
}

func TestTrips(t *testing.T) {
	e := newTestEngine(Config{
		MaxTimeGapBetweenClusters: time.Hour,
		MaxDistanceWithinCluster:  1000,
		MaxTimeGapBetweenTrips:    24 * time.Hour,
	})

	clusters, err := e.Cluster([]models.PhotoRecord{
		photo("d1-morning", 0),
		photo("d1-evening", 10*time.Hour),
		photo("d2", 30*time.Hour),
		photo("d5", 100*time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, clusters, 4)

	trips := e.Trips(clusters)
	require.Len(t, trips, 2)

	assert.Equal(t, 0, trips[0].Index)
	assert.Equal(t, []string{"c1", "c2", "c3"}, trips[0].ClusterIDs)
	assert.Equal(t, base, trips[0].StartTime)
	assert.Equal(t, base.Add(30*time.Hour), trips[0].EndTime)

	assert.Equal(t, 1, trips[1].Index)
	assert.Equal(t, []string{"c4"}, trips[1].ClusterIDs)
	assert.Equal(t, base.Add(100*time.Hour), trips[1].StartTime)
	assert.Equal(t, base.Add(100*time.Hour), trips[1].EndTime)

	assert.Nil(t, e.Trips(nil))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.MaxDistanceWithinCluster = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxTimeGapBetweenTrips = time.Minute
	assert.Error(t, cfg.Validate())
}

func TestNewEngine_AppliesDefaults(t *testing.T) {
	e := NewEngine(Config{})
	assert.Equal(t, DefaultConfig(), e.Config())
}

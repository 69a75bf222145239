package clustering

import (
	"fmt"
	"time"
)

// Default thresholds. These are tuning values, not physical facts.
const (
	// DefaultMaxTimeGapBetweenClusters splits clusters after an idle gap this long
	DefaultMaxTimeGapBetweenClusters = 2 * time.Hour

	// DefaultMaxDistanceWithinCluster splits clusters when consecutive photos are farther apart (meters)
	DefaultMaxDistanceWithinCluster = 1000.0

	// DefaultMaxTimeGapBetweenTrips splits trip segments after an idle gap this long
	DefaultMaxTimeGapBetweenTrips = 24 * time.Hour
)

// Config holds the clustering thresholds
type Config struct {
	MaxTimeGapBetweenClusters time.Duration `yaml:"max_time_gap_between_clusters"`
	MaxDistanceWithinCluster  float64       `yaml:"max_distance_within_cluster_m"`
	MaxTimeGapBetweenTrips    time.Duration `yaml:"max_time_gap_between_trips"`
}

// DefaultConfig returns the default thresholds
func DefaultConfig() Config {
	return Config{
		MaxTimeGapBetweenClusters: DefaultMaxTimeGapBetweenClusters,
		MaxDistanceWithinCluster:  DefaultMaxDistanceWithinCluster,
		MaxTimeGapBetweenTrips:    DefaultMaxTimeGapBetweenTrips,
	}
}

// ApplyDefaults fills zero thresholds with default values
func (c *Config) ApplyDefaults() {
	if c.MaxTimeGapBetweenClusters <= 0 {
		c.MaxTimeGapBetweenClusters = DefaultMaxTimeGapBetweenClusters
	}
	if c.MaxDistanceWithinCluster <= 0 {
		c.MaxDistanceWithinCluster = DefaultMaxDistanceWithinCluster
	}
	if c.MaxTimeGapBetweenTrips <= 0 {
		c.MaxTimeGapBetweenTrips = DefaultMaxTimeGapBetweenTrips
	}
}

// Validate checks the thresholds are usable
func (c Config) Validate() error {
	if c.MaxTimeGapBetweenClusters <= 0 {
		return fmt.Errorf("max time gap between clusters must be positive, got %s", c.MaxTimeGapBetweenClusters)
	}
	if c.MaxDistanceWithinCluster <= 0 {
		return fmt.Errorf("max distance within cluster must be positive, got %.1f", c.MaxDistanceWithinCluster)
	}
	if c.MaxTimeGapBetweenTrips < c.MaxTimeGapBetweenClusters {
		return fmt.Errorf("max time gap between trips (%s) must not be shorter than between clusters (%s)",
			c.MaxTimeGapBetweenTrips, c.MaxTimeGapBetweenClusters)
	}
	return nil
}

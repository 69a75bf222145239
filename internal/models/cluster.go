package models

import (
	"strings"
	"time"
)

// UnknownPlaceTitle is shown for clusters that could not be labelled
const UnknownPlaceTitle = "Unknown Place"

// PlaceCluster groups photos taken close together in time and space
type PlaceCluster struct {
	ID       string   `json:"id" db:"id"`
	PhotoIDs []string `json:"photoIds"`

	// Centroid of the geolocated members, nil when none has a location
	Coordinate *Coordinate `json:"coordinate,omitempty"`

	// Labels
	Title       string  `json:"title" db:"title"`
	Subtitle    string  `json:"subtitle" db:"subtitle"`
	CustomTitle *string `json:"customTitle,omitempty" db:"custom_title"` // User override of Title

	// Temporal info
	StartTime  time.Time `json:"startTime" db:"start_time"`
	EndTime    time.Time `json:"endTime" db:"end_time"`
	PhotoCount int       `json:"photoCount" db:"photo_count"`
}

// DisplayTitle returns the custom title when the user set one, otherwise the resolved title
func (c *PlaceCluster) DisplayTitle() string {
	if c.CustomTitle != nil {
		if t := strings.TrimSpace(*c.CustomTitle); t != "" {
			return t
		}
	}
	return c.Title
}

// Clone returns a deep copy of the cluster
func (c *PlaceCluster) Clone() *PlaceCluster {
	out := *c
	out.PhotoIDs = append([]string(nil), c.PhotoIDs...)
	if c.Coordinate != nil {
		coord := *c.Coordinate
		out.Coordinate = &coord
	}
	if c.CustomTitle != nil {
		title := *c.CustomTitle
		out.CustomTitle = &title
	}
	return &out
}

// TripSegment is a run of consecutive clusters without a long idle gap between them
type TripSegment struct {
	Index      int       `json:"index"`
	ClusterIDs []string  `json:"clusterIds"`
	StartTime  time.Time `json:"startTime"`
	EndTime    time.Time `json:"endTime"`
}

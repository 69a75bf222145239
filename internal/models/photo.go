package models

import "time"

// Coordinate is a WGS84 position in degrees
type Coordinate struct {
	Latitude  float64 `json:"latitude" db:"latitude" binding:"min=-90,max=90"`
	Longitude float64 `json:"longitude" db:"longitude" binding:"min=-180,max=180"`
}

// PhotoRecord is one photo as read from the photo index.
// Records are read-only inputs to clustering.
type PhotoRecord struct {
	ID         string      `json:"id" binding:"required"`
	TakenAt    time.Time   `json:"takenAt" binding:"required"`
	Coordinate *Coordinate `json:"coordinate,omitempty"` // nil when the photo has no GPS data
}

// HasCoordinate reports whether the record carries a location
func (p PhotoRecord) HasCoordinate() bool {
	return p.Coordinate != nil
}

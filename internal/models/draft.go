package models

import "time"

// GeocodeStatus constants
const (
	GeocodeStatusPending  = "pending"
	GeocodeStatusComplete = "complete"
)

// RecapDraft owns the clusters produced by one clustering run
type RecapDraft struct {
	ID            string          `json:"id" db:"id"`
	Owner         string          `json:"owner" db:"owner"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
	GeocodeStatus string          `json:"geocodeStatus" db:"geocode_status"`
	Clusters      []*PlaceCluster `json:"clusters"`
	Trips         []TripSegment   `json:"trips,omitempty"`
}

// Cluster finds a cluster by ID
func (d *RecapDraft) Cluster(id string) *PlaceCluster {
	for _, c := range d.Clusters {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// PhotoCount returns the number of photos across all clusters
func (d *RecapDraft) PhotoCount() int {
	total := 0
	for _, c := range d.Clusters {
		total += c.PhotoCount
	}
	return total
}

// Clone returns a deep copy that can be handed out without holding locks
func (d *RecapDraft) Clone() *RecapDraft {
	out := *d
	out.Clusters = make([]*PlaceCluster, len(d.Clusters))
	for i, c := range d.Clusters {
		out.Clusters[i] = c.Clone()
	}
	out.Trips = make([]TripSegment, len(d.Trips))
	for i, t := range d.Trips {
		t.ClusterIDs = append([]string(nil), t.ClusterIDs...)
		out.Trips[i] = t
	}
	return &out
}

// CreateDraftRequest is the body of POST /api/v1/drafts
type CreateDraftRequest struct {
	Owner  string        `json:"owner" binding:"required"`
	Photos []PhotoRecord `json:"photos" binding:"dive"`
}

// ClusterPhotosRequest is the body of POST /api/v1/clusters
type ClusterPhotosRequest struct {
	Photos []PhotoRecord `json:"photos" binding:"dive"`
}

// UpdateClusterRequest is the body of PATCH /api/v1/drafts/:id/clusters/:clusterId
type UpdateClusterRequest struct {
	CustomTitle string `json:"customTitle"` // Empty clears the override
}

// ShareToken is returned when a draft is shared
type ShareToken struct {
	Token     string `json:"token"`
	DraftID   string `json:"draftId"`
	ExpiresAt int64  `json:"expiresAt"` // Unix timestamp
}

// DraftSummary holds headline numbers for a draft
type DraftSummary struct {
	DraftID             string    `json:"draftId"`
	PhotoCount          int       `json:"photoCount"`
	ClusterCount        int       `json:"clusterCount"`
	LocatedClusters     int       `json:"locatedClusters"`
	TripCount           int       `json:"tripCount"`
	StartTime           time.Time `json:"startTime,omitempty"`
	EndTime             time.Time `json:"endTime,omitempty"`
	SpanMinutes         float64   `json:"spanMinutes"`
	RouteDistanceMeters float64   `json:"routeDistanceMeters"`
	AreaRadiusMeters    float64   `json:"areaRadiusMeters"` // Farthest located cluster from their centroid
	MedianDwellMinutes  float64   `json:"medianDwellMinutes"`
	P90DwellMinutes     float64   `json:"p90DwellMinutes"`
	PlaceDiversity      float64   `json:"placeDiversity"` // Normalized entropy of photos per cluster, 0-1
}

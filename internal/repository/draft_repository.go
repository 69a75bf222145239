package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jengzang/recap-backend-go/internal/database"
	"github.com/jengzang/recap-backend-go/internal/models"
)

// ErrNotFound is returned when a draft or cluster does not exist
var ErrNotFound = errors.New("not found")

// DraftRepository handles database operations for recap drafts
type DraftRepository struct {
	db *sql.DB
}

// NewDraftRepository creates a new draft repository
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// Save writes the draft with its clusters, replacing any previous copy
func (r *DraftRepository) Save(ctx context.Context, draft *models.RecapDraft) error {
	tripOf := make(map[string]int)
	for _, trip := range draft.Trips {
		for _, id := range trip.ClusterIDs {
			tripOf[id] = trip.Index
		}
	}

	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM recap_drafts WHERE id = ?", draft.ID); err != nil {
			return fmt.Errorf("failed to replace draft: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
			INSERT INTO recap_drafts (id, owner, geocode_status, created_at)
			VALUES (?, ?, ?, ?)
		`, draft.ID, draft.Owner, draft.GeocodeStatus, draft.CreatedAt.UnixNano())
		if err != nil {
			return fmt.Errorf("failed to insert draft: %w", err)
		}

		clusterStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO place_clusters (
				id, draft_id, position, trip_index, latitude, longitude,
				title, subtitle, custom_title, start_time, end_time
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare cluster insert: %w", err)
		}
		defer clusterStmt.Close()

		photoStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO cluster_photos (cluster_id, position, photo_id) VALUES (?, ?, ?)")
		if err != nil {
			return fmt.Errorf("failed to prepare photo insert: %w", err)
		}
		defer photoStmt.Close()

		for i, c := range draft.Clusters {
			var lat, lon sql.NullFloat64
			if c.Coordinate != nil {
				lat = sql.NullFloat64{Float64: c.Coordinate.Latitude, Valid: true}
				lon = sql.NullFloat64{Float64: c.Coordinate.Longitude, Valid: true}
			}
			var custom sql.NullString
			if c.CustomTitle != nil {
				custom = sql.NullString{String: *c.CustomTitle, Valid: true}
			}

			if _, err := clusterStmt.ExecContext(ctx,
				c.ID, draft.ID, i, tripOf[c.ID], lat, lon,
				c.Title, c.Subtitle, custom,
				c.StartTime.UnixNano(), c.EndTime.UnixNano(),
			); err != nil {
				return fmt.Errorf("failed to insert cluster %s: %w", c.ID, err)
			}

			for j, photoID := range c.PhotoIDs {
				if _, err := photoStmt.ExecContext(ctx, c.ID, j, photoID); err != nil {
					return fmt.Errorf("failed to insert photo %s: %w", photoID, err)
				}
			}
		}

		return nil
	})
}

// GetByID loads a draft with its clusters and trips
func (r *DraftRepository) GetByID(ctx context.Context, id string) (*models.RecapDraft, error) {
	draft := &models.RecapDraft{}
	var createdAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, owner, geocode_status, created_at
		FROM recap_drafts
		WHERE id = ?
	`, id).Scan(&draft.ID, &draft.Owner, &draft.GeocodeStatus, &createdAt)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("draft %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}
	draft.CreatedAt = time.Unix(0, createdAt).UTC()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, trip_index, latitude, longitude, title, subtitle, custom_title, start_time, end_time
		FROM place_clusters
		WHERE draft_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query clusters: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*models.PlaceCluster)
	var tripIndexes []int
	for rows.Next() {
		c := &models.PlaceCluster{}
		var (
			tripIndex  int
			lat, lon   sql.NullFloat64
			custom     sql.NullString
			start, end int64
		)
		if err := rows.Scan(&c.ID, &tripIndex, &lat, &lon, &c.Title, &c.Subtitle, &custom, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan cluster: %w", err)
		}
		if lat.Valid && lon.Valid {
			c.Coordinate = &models.Coordinate{Latitude: lat.Float64, Longitude: lon.Float64}
		}
		if custom.Valid {
			title := custom.String
			c.CustomTitle = &title
		}
		c.StartTime = time.Unix(0, start).UTC()
		c.EndTime = time.Unix(0, end).UTC()

		draft.Clusters = append(draft.Clusters, c)
		tripIndexes = append(tripIndexes, tripIndex)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clusters: %w", err)
	}

	if err := r.loadPhotos(ctx, id, byID); err != nil {
		return nil, err
	}

	draft.Trips = groupTrips(draft.Clusters, tripIndexes)
	return draft, nil
}

func (r *DraftRepository) loadPhotos(ctx context.Context, draftID string, byID map[string]*models.PlaceCluster) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.cluster_id, p.photo_id
		FROM cluster_photos p
		JOIN place_clusters c ON c.id = p.cluster_id
		WHERE c.draft_id = ?
		ORDER BY p.cluster_id, p.position
	`, draftID)
	if err != nil {
		return fmt.Errorf("failed to query cluster photos: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clusterID, photoID string
		if err := rows.Scan(&clusterID, &photoID); err != nil {
			return fmt.Errorf("failed to scan cluster photo: %w", err)
		}
		if c, ok := byID[clusterID]; ok {
			c.PhotoIDs = append(c.PhotoIDs, photoID)
			c.PhotoCount++
		}
	}
	return rows.Err()
}

// groupTrips rebuilds trip segments from the stored per-cluster trip index
func groupTrips(clusters []*models.PlaceCluster, tripIndexes []int) []models.TripSegment {
	var trips []models.TripSegment
	for i, c := range clusters {
		if len(trips) == 0 || trips[len(trips)-1].Index != tripIndexes[i] {
			trips = append(trips, models.TripSegment{
				Index:     tripIndexes[i],
				StartTime: c.StartTime,
				EndTime:   c.EndTime,
			})
		}
		t := &trips[len(trips)-1]
		t.ClusterIDs = append(t.ClusterIDs, c.ID)
		if c.EndTime.After(t.EndTime) {
			t.EndTime = c.EndTime
		}
	}
	return trips
}

// UpdateClusterLabel stores the geocoded title and subtitle of a cluster
func (r *DraftRepository) UpdateClusterLabel(ctx context.Context, draftID, clusterID, title, subtitle string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE place_clusters SET title = ?, subtitle = ?
		WHERE id = ? AND draft_id = ?
	`, title, subtitle, clusterID, draftID)
	if err != nil {
		return fmt.Errorf("failed to update cluster label: %w", err)
	}
	return expectRow(res, "cluster "+clusterID)
}

// UpdateCustomTitle sets or, when title is nil, clears the user override
func (r *DraftRepository) UpdateCustomTitle(ctx context.Context, draftID, clusterID string, title *string) error {
	var custom sql.NullString
	if title != nil {
		custom = sql.NullString{String: *title, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE place_clusters SET custom_title = ?
		WHERE id = ? AND draft_id = ?
	`, custom, clusterID, draftID)
	if err != nil {
		return fmt.Errorf("failed to update custom title: %w", err)
	}
	return expectRow(res, "cluster "+clusterID)
}

// UpdateGeocodeStatus records the geocoding progress of a draft
func (r *DraftRepository) UpdateGeocodeStatus(ctx context.Context, draftID, status string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE recap_drafts SET geocode_status = ? WHERE id = ?", status, draftID)
	if err != nil {
		return fmt.Errorf("failed to update geocode status: %w", err)
	}
	return expectRow(res, "draft "+draftID)
}

// Delete removes a draft; clusters and photos cascade
func (r *DraftRepository) Delete(ctx context.Context, draftID string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM recap_drafts WHERE id = ?", draftID)
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return expectRow(res, "draft "+draftID)
}

func expectRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jengzang/recap-backend-go/internal/clustering"
	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/photosource"
	"github.com/jengzang/recap-backend-go/internal/service"
)

type clusterFlags struct {
	gap      time.Duration
	distance float64
	tripGap  time.Duration
	geocode  bool
	json     bool
}

func newClusterCommand(rt *cliState) *cobra.Command {
	var f clusterFlags

	cmd := &cobra.Command{
		Use:   "cluster <dir>",
		Short: "Cluster the photos in a directory",
		Long: `Read capture time and GPS position from the photos under <dir> and group
them into place clusters and trips.

Examples:
  recapctl cluster ./photos
  recapctl cluster ./photos --gap 90m --distance 500
  recapctl cluster ./photos --geocode --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.runCluster(cmd, args[0], f)
		},
	}

	cmd.Flags().DurationVar(&f.gap, "gap", 0, "max time gap between photos of one cluster (default from config)")
	cmd.Flags().Float64Var(&f.distance, "distance", 0, "max distance in meters between consecutive photos of one cluster")
	cmd.Flags().DurationVar(&f.tripGap, "trip-gap", 0, "max idle gap within one trip")
	cmd.Flags().BoolVar(&f.geocode, "geocode", false, "resolve a place name for each cluster")
	cmd.Flags().BoolVar(&f.json, "json", false, "output as JSON")
	return cmd
}

func (rt *cliState) runCluster(cmd *cobra.Command, dir string, f clusterFlags) error {
	ctx := cmd.Context()

	cfg := rt.cfg.Clustering
	if f.gap > 0 {
		cfg.MaxTimeGapBetweenClusters = f.gap
	}
	if f.distance > 0 {
		cfg.MaxDistanceWithinCluster = f.distance
	}
	if f.tripGap > 0 {
		cfg.MaxTimeGapBetweenTrips = f.tripGap
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	engine := clustering.NewEngine(cfg)

	src, err := photosource.NewDirectorySource(dir, rt.logger)
	if err != nil {
		return err
	}
	records, err := src.All(ctx)
	if err != nil {
		return err
	}

	var (
		clusters []*models.PlaceCluster
		trips    []models.TripSegment
	)
	if f.geocode {
		geocoder, cleanup, err := rt.opts.NewGeocoder(ctx, rt.cfg, rt.logger)
		if err != nil {
			return fmt.Errorf("failed to create geocoder: %w", err)
		}
		defer cleanup()

		svc := service.NewDraftService(engine, geocoder, service.DraftOptions{
			Concurrency: rt.cfg.Geocoding.Concurrency,
			Logger:      rt.logger,
		})
		defer svc.Close()
		clusters, trips, err = svc.ClusterPhotos(ctx, records)
		if err != nil {
			return err
		}
	} else {
		clusters, err = engine.Cluster(records)
		if err != nil {
			return err
		}
		trips = engine.Trips(clusters)
	}

	out := cmd.OutOrStdout()
	if f.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Clusters []*models.PlaceCluster `json:"clusters"`
			Trips    []models.TripSegment   `json:"trips"`
		}{clusters, trips})
	}
	return printClusters(out, clusters, trips)
}

func printClusters(w io.Writer, clusters []*models.PlaceCluster, trips []models.TripSegment) error {
	tripOf := make(map[string]int)
	for _, t := range trips {
		for _, id := range t.ClusterIDs {
			tripOf[id] = t.Index + 1
		}
	}

	rows := make([][]string, 0, len(clusters))
	for i, c := range clusters {
		location := "-"
		if c.Coordinate != nil {
			location = fmt.Sprintf("%.5f, %.5f", c.Coordinate.Latitude, c.Coordinate.Longitude)
		}
		title := c.DisplayTitle()
		if title == "" {
			title = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.Itoa(tripOf[c.ID]),
			title,
			c.Subtitle,
			strconv.Itoa(c.PhotoCount),
			c.StartTime.Format("2006-01-02 15:04"),
			c.EndTime.Format("2006-01-02 15:04"),
			location,
		})
	}

	if err := renderTable(w, []string{"#", "Trip", "Title", "Subtitle", "Photos", "Start", "End", "Location"}, rows); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\n%d clusters in %d trips\n", len(clusters), len(trips))
	return err
}

package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/spatial"
)

func newGeocodeCommand(rt *cliState) *cobra.Command {
	var (
		lat, lon   float64
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Resolve a place name for a coordinate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			coord := models.Coordinate{Latitude: lat, Longitude: lon}
			if !spatial.Valid(coord) {
				return fmt.Errorf("invalid coordinate %.6f, %.6f", lat, lon)
			}

			geocoder, cleanup, err := rt.opts.NewGeocoder(cmd.Context(), rt.cfg, rt.logger)
			if err != nil {
				return fmt.Errorf("failed to create geocoder: %w", err)
			}
			defer cleanup()

			res := geocoder.Resolve(cmd.Context(), coord)
			if res.Fallback {
				fmt.Fprintln(cmd.ErrOrStderr(), "warning: geocoding unavailable, showing fallback label")
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				return json.NewEncoder(out).Encode(res)
			}
			return renderTable(out, []string{"Title", "Subtitle"}, [][]string{{res.Title, res.Subtitle}})
		},
	}

	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lon, "lon", 0, "longitude in degrees")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lon")
	return cmd
}

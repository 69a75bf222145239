// Package cli implements the recapctl command line tool
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jengzang/recap-backend-go/internal/app"
	"github.com/jengzang/recap-backend-go/internal/config"
	"github.com/jengzang/recap-backend-go/internal/database"
	logpkg "github.com/jengzang/recap-backend-go/internal/logger"
	"github.com/jengzang/recap-backend-go/internal/service"
)

// Options lets callers replace the configuration and geocoder, mainly for tests
type Options struct {
	Version    string
	LoadConfig func() (*config.Config, error)
	// NewGeocoder defaults to the configured Nominatim resolver
	NewGeocoder func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Geocoder, func(), error)
}

type cliState struct {
	opts    Options
	cfg     *config.Config
	logger  *zap.Logger
	verbose bool
}

// NewRootCommand builds the recapctl command tree
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.LoadConfig == nil {
		opts.LoadConfig = config.Load
	}
	if opts.NewGeocoder == nil {
		opts.NewGeocoder = defaultGeocoder
	}
	rt := &cliState{opts: opts}

	root := &cobra.Command{
		Use:   "recapctl",
		Short: "Cluster photos into places and label them",
		Long: `recapctl groups photos into place clusters by capture time and location
and resolves a place name for each cluster.

Example usage:
  recapctl cluster ~/Pictures/Lisbon             # Cluster a folder
  recapctl cluster ~/Pictures/Lisbon --geocode   # ...and name the places
  recapctl geocode --lat 38.7139 --lon -9.1334   # Name one coordinate`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.init()
		},
	}

	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "verbose output")

	root.AddCommand(
		newClusterCommand(rt),
		newGeocodeCommand(rt),
		newVersionCommand(rt),
	)
	return root
}

// Execute runs recapctl with os.Args
func Execute(version string) error {
	return NewRootCommand(Options{Version: version}).Execute()
}

func (rt *cliState) init() error {
	cfg, err := rt.opts.LoadConfig()
	if err != nil {
		return err
	}
	rt.cfg = cfg

	level := "warn"
	if rt.verbose {
		level = "debug"
	}
	env := cfg.Env
	if env == "prod" {
		// Console output reads better in a terminal
		env = "local"
	}
	logger, err := logpkg.NewLogger(env, level)
	if err != nil {
		return err
	}
	rt.logger = logger
	return nil
}

func defaultGeocoder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (service.Geocoder, func(), error) {
	var db *sql.DB
	if cfg.Geocoding.Store == config.StoreSQLite {
		var err error
		db, err = database.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	resolver, cleanup, err := app.BuildGeocoder(ctx, cfg.Geocoding, db, logger)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, nil, err
	}
	return resolver, func() {
		cleanup()
		if db != nil {
			db.Close()
		}
	}, nil
}

func newVersionCommand(rt *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "recapctl %s\n", rt.opts.Version)
			return err
		},
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jengzang/recap-backend-go/internal/api"
	"github.com/jengzang/recap-backend-go/internal/app"
	"github.com/jengzang/recap-backend-go/internal/clustering"
	"github.com/jengzang/recap-backend-go/internal/config"
	"github.com/jengzang/recap-backend-go/internal/database"
	"github.com/jengzang/recap-backend-go/internal/handler"
	logpkg "github.com/jengzang/recap-backend-go/internal/logger"
	"github.com/jengzang/recap-backend-go/internal/metrics"
	"github.com/jengzang/recap-backend-go/internal/middleware"
	"github.com/jengzang/recap-backend-go/internal/repository"
	"github.com/jengzang/recap-backend-go/internal/service"
	"github.com/jengzang/recap-backend-go/internal/share"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(cfg.Env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting recap API server",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("db_path", cfg.Database.Path),
		zap.String("geocode_store", cfg.Geocoding.Store))

	db, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	metrics.Register()

	geocoder, closeGeocoder, err := app.BuildGeocoder(ctx, cfg.Geocoding, db, logger)
	if err != nil {
		logger.Fatal("Failed to create geocoder", zap.Error(err))
	}
	defer closeGeocoder()

	drafts := service.NewDraftService(clustering.NewEngine(cfg.Clustering), geocoder, service.DraftOptions{
		Store:              repository.NewDraftRepository(db),
		Concurrency:        cfg.Geocoding.Concurrency,
		ClusteringDuration: metrics.ClusteringDuration,
		ClustersPerDraft:   metrics.ClustersPerDraft,
		StaleResults:       metrics.StaleGeocodeResultsTotal,
		ActiveDrafts:       metrics.ActiveDrafts,
		Logger:             logger,
	})
	defer drafts.Close()

	issuer, err := share.NewIssuer(cfg.Share)
	if err != nil {
		logger.Fatal("Failed to create share issuer", zap.Error(err))
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer limiter.Stop()

	router := api.SetupRouter(api.Handlers{
		Drafts:  handler.NewDraftHandler(drafts, issuer),
		Geocode: handler.NewGeocodeHandler(geocoder),
	}, logger, limiter)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}
}

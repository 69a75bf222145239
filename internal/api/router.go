package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jengzang/recap-backend-go/internal/handler"
	"github.com/jengzang/recap-backend-go/internal/metrics"
	"github.com/jengzang/recap-backend-go/internal/middleware"
)

// Handlers bundles the HTTP handlers mounted by the router
type Handlers struct {
	Drafts  *handler.DraftHandler
	Geocode *handler.GeocodeHandler
}

// SetupRouter wires middleware and routes. limiter may be nil to disable rate limiting.
func SetupRouter(h Handlers, logger *zap.Logger, limiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS())
	r.Use(metrics.Middleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Recap Backend API is running",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	if limiter != nil {
		api.Use(limiter.Middleware())
	}
	{
		api.POST("/clusters", h.Drafts.ClusterPhotos)

		drafts := api.Group("/drafts")
		{
			drafts.POST("", h.Drafts.CreateDraft)
			drafts.GET("/:id", h.Drafts.GetDraft)
			drafts.DELETE("/:id", h.Drafts.DeleteDraft)
			drafts.PATCH("/:id/clusters/:clusterId", h.Drafts.UpdateCluster)
			drafts.GET("/:id/geojson", h.Drafts.GetGeoJSON)
			drafts.GET("/:id/summary", h.Drafts.GetSummary)
			drafts.POST("/:id/share", h.Drafts.ShareDraft)
		}

		api.GET("/owners/:owner/draft", h.Drafts.GetActiveDraft)
		api.GET("/shared/:token", h.Drafts.GetShared)
		api.GET("/geocode", h.Geocode.Resolve)
	}

	return r
}

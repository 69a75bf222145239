package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jengzang/recap-backend-go/internal/clustering"
	"github.com/jengzang/recap-backend-go/internal/export"
	"github.com/jengzang/recap-backend-go/internal/logger"
	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/service"
	"github.com/jengzang/recap-backend-go/internal/share"
	"github.com/jengzang/recap-backend-go/internal/stats"
	"github.com/jengzang/recap-backend-go/pkg/response"
)

// DraftHandler handles HTTP requests for recap drafts
type DraftHandler struct {
	service *service.DraftService
	issuer  *share.Issuer
}

// NewDraftHandler creates a new draft handler
func NewDraftHandler(service *service.DraftService, issuer *share.Issuer) *DraftHandler {
	return &DraftHandler{service: service, issuer: issuer}
}

// ClusterPhotos handles POST /api/v1/clusters
func (h *DraftHandler) ClusterPhotos(c *gin.Context) {
	var req models.ClusterPhotosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	clusters, trips, err := h.service.ClusterPhotos(c.Request.Context(), req.Photos)
	if err != nil {
		h.writeError(c, err, "Failed to cluster photos")
		return
	}

	response.Success(c, gin.H{
		"clusters": clusters,
		"trips":    trips,
	})
}

// CreateDraft handles POST /api/v1/drafts
func (h *DraftHandler) CreateDraft(c *gin.Context) {
	var req models.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	ctx := c.Request.Context()
	draft, err := h.service.CreateDraft(ctx, req.Owner, req.Photos)
	if err != nil {
		h.writeError(c, err, "Failed to create draft")
		return
	}

	if wait, _ := strconv.ParseBool(c.Query("wait")); wait {
		geocoded, err := h.service.WaitGeocoded(ctx, draft.ID)
		if err == nil {
			draft = geocoded
		} else {
			// Still return the draft; labels keep arriving in the background
			logger.FromContext(ctx).Warn("Stopped waiting for geocoding",
				zap.String("draft", draft.ID), zap.Error(err))
		}
	}

	response.Success(c, draft)
}

// GetDraft handles GET /api/v1/drafts/:id
func (h *DraftHandler) GetDraft(c *gin.Context) {
	draft, err := h.service.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to get draft")
		return
	}

	response.Success(c, draft)
}

// GetActiveDraft handles GET /api/v1/owners/:owner/draft
func (h *DraftHandler) GetActiveDraft(c *gin.Context) {
	draft, err := h.service.ActiveDraft(c.Param("owner"))
	if err != nil {
		h.writeError(c, err, "Failed to get active draft")
		return
	}

	response.Success(c, draft)
}

// DeleteDraft handles DELETE /api/v1/drafts/:id
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	if err := h.service.DiscardDraft(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "Failed to discard draft")
		return
	}

	response.Success(c, nil)
}

// UpdateCluster handles PATCH /api/v1/drafts/:id/clusters/:clusterId
func (h *DraftHandler) UpdateCluster(c *gin.Context) {
	var req models.UpdateClusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body", err)
		return
	}

	cluster, err := h.service.SetCustomTitle(c.Request.Context(), c.Param("id"), c.Param("clusterId"), req.CustomTitle)
	if err != nil {
		h.writeError(c, err, "Failed to update cluster")
		return
	}

	response.Success(c, cluster)
}

// GetGeoJSON handles GET /api/v1/drafts/:id/geojson
func (h *DraftHandler) GetGeoJSON(c *gin.Context) {
	draft, err := h.service.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to get draft")
		return
	}

	data, err := export.MarshalDraft(draft)
	if err != nil {
		response.InternalError(c, "Failed to export draft", err)
		return
	}

	c.Data(http.StatusOK, "application/geo+json", data)
}

// GetSummary handles GET /api/v1/drafts/:id/summary
func (h *DraftHandler) GetSummary(c *gin.Context) {
	draft, err := h.service.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to get draft")
		return
	}

	response.Success(c, stats.Summarize(draft))
}

// ShareDraft handles POST /api/v1/drafts/:id/share
func (h *DraftHandler) ShareDraft(c *gin.Context) {
	draft, err := h.service.GetDraft(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to get draft")
		return
	}

	token, expiresAt, err := h.issuer.Issue(draft.ID)
	if err != nil {
		response.InternalError(c, "Failed to issue share token", err)
		return
	}

	response.Success(c, models.ShareToken{
		Token:     token,
		DraftID:   draft.ID,
		ExpiresAt: expiresAt.Unix(),
	})
}

// GetShared handles GET /api/v1/shared/:token
func (h *DraftHandler) GetShared(c *gin.Context) {
	draftID, err := h.issuer.Parse(c.Param("token"))
	if err != nil {
		response.Error(c, http.StatusUnauthorized, "Invalid or expired share link", err)
		return
	}

	draft, err := h.service.GetDraft(c.Request.Context(), draftID)
	if err != nil {
		h.writeError(c, err, "Failed to get draft")
		return
	}

	response.Success(c, draft)
}

// writeError maps service errors to HTTP responses
func (h *DraftHandler) writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, clustering.ErrEmptyInput):
		response.BadRequest(c, err.Error(), err)
	case errors.Is(err, service.ErrDraftNotFound):
		response.NotFound(c, "Draft not found")
	case errors.Is(err, service.ErrClusterNotFound):
		response.NotFound(c, "Cluster not found")
	default:
		response.InternalError(c, message, err)
	}
}

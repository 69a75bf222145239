package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jengzang/recap-backend-go/internal/models"
	"github.com/jengzang/recap-backend-go/internal/service"
	"github.com/jengzang/recap-backend-go/pkg/response"
)

// GeocodeHandler handles HTTP requests for single coordinate lookups
type GeocodeHandler struct {
	geocoder service.Geocoder
}

// NewGeocodeHandler creates a new geocode handler
func NewGeocodeHandler(geocoder service.Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: geocoder}
}

type geocodeQuery struct {
	Lat *float64 `form:"lat" binding:"required,min=-90,max=90"`
	Lon *float64 `form:"lon" binding:"required,min=-180,max=180"`
}

// Resolve handles GET /api/v1/geocode?lat=&lon=
func (h *GeocodeHandler) Resolve(c *gin.Context) {
	var q geocodeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, "Invalid query parameters", err)
		return
	}

	res := h.geocoder.Resolve(c.Request.Context(), models.Coordinate{Latitude: *q.Lat, Longitude: *q.Lon})
	response.Success(c, res)
}

package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

type Handler struct {
	service zone.Service
}

func NewHandler(service zone.Service) *Handler {
	return &Handler{service: service}
}

// List returns every zone ordered by id.
func (h *Handler) List(c *gin.Context) {
	zones, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ZoneResponse, len(zones))
	for i, z := range zones {
		items[i] = NewZoneResponse(z)
	}
	c.JSON(http.StatusOK, items)
}

// Get returns a single zone.
func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Error(c, zone.ErrNotFound)
		return
	}

	z, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewZoneResponse(z))
}

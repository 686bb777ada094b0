package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers public booking routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	g.GET("/availability", h.Availability) // Slot grid for a zone and date
	g.POST("/bookings", h.Create)          // Reserve a slot
}

// RegisterAdminRoutes registers staff-only booking routes on an admin group.
func RegisterAdminRoutes(admin *gin.RouterGroup, h *Handler, staffMiddleware gin.HandlerFunc) {
	group := admin.Group("/bookings")

	// === Staff Routes ===
	group.Use(staffMiddleware)
	{
		group.GET("", h.List)    // List bookings with filters
		group.GET("/:id", h.Get) // Booking detail
	}
}

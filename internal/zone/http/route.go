package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers zone catalogue routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler) {
	g.GET("/zones", h.List)    // List zones
	g.GET("/zones/:id", h.Get) // Zone detail
}

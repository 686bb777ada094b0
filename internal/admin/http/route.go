package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers staff session routes on an admin group.
func RegisterRoutes(admin *gin.RouterGroup, h *Handler, staffMiddleware gin.HandlerFunc) {
	admin.POST("/login", h.Login)   // Start a staff session
	admin.POST("/logout", h.Logout) // End a staff session

	admin.GET("/me", staffMiddleware, h.Me) // Current staff session
}

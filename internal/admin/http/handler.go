package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/zone-booking-backend/internal/admin"
	"github.com/nekogravitycat/zone-booking-backend/internal/auth"
	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/response"
)

type Handler struct {
	service      admin.Service
	sessionTTL   int
	secureCookie bool
}

// NewHandler sets cookies that live for sessionTTLSeconds and, in
// production, are only sent over HTTPS.
func NewHandler(service admin.Service, sessionTTLSeconds int, secureCookie bool) *Handler {
	return &Handler{service: service, sessionTTL: sessionTTLSeconds, secureCookie: secureCookie}
}

//
// POST /api/admin/login
//

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, admin.ErrMissingCredentials)
		return
	}

	a, token, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.setCookie(c, token, h.sessionTTL)
	c.JSON(http.StatusOK, LoginResponse{
		Message: "Logged in",
		Admin:   AdminInfo{ID: a.ID, Email: a.Email},
	})
}

//
// POST /api/admin/logout
//

func (h *Handler) Logout(c *gin.Context) {
	h.setCookie(c, "", -1)
	c.JSON(http.StatusOK, response.MessageResponse{Message: "Logged out"})
}

//
// GET /api/admin/me
//
func (h *Handler) Me(c *gin.Context) {
	id := auth.GetAdminID(c)
	if id == 0 {
		c.JSON(http.StatusUnauthorized, response.ErrorResponse{Message: "Not authenticated"})
		return
	}

	c.JSON(http.StatusOK, AdminInfo{ID: id, Email: auth.GetAdminEmail(c)})
}

func (h *Handler) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(auth.CookieName, value, maxAge, "/", "", h.secureCookie, true)
}

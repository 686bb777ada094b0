package api

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/zone-booking-backend/internal/admin"
	adminHttp "github.com/nekogravitycat/zone-booking-backend/internal/admin/http"
	"github.com/nekogravitycat/zone-booking-backend/internal/auth"
	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/zone-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
	zoneHttp "github.com/nekogravitycat/zone-booking-backend/internal/zone/http"
)

// DevOrigin is the frontend dev server allowed outside production.
const DevOrigin = "http://localhost:5173"

type Config struct {
	IsProduction bool
	// ProdOrigins is a comma separated allow list used in production.
	ProdOrigins string

	ZoneService    zone.Service
	BookingService booking.Service
	AdminService   admin.Service
	JWTManager     *auth.JWTManager
}

// NewRouter assembles middleware and registers the routes of every module.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := request.RegisterValidators(); err != nil {
		log.Printf("failed to register validators: %v", err)
	}

	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// The staff session travels in a cookie, so credentials must be allowed.
	config := cors.DefaultConfig()
	config.AllowOrigins = allowedOrigins(cfg)
	config.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	config.AllowCredentials = true
	r.Use(cors.New(config))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	staffMiddleware := auth.StaffRequired(cfg.JWTManager)

	zoneHandler := zoneHttp.NewHandler(cfg.ZoneService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	adminHandler := adminHttp.NewHandler(cfg.AdminService, int(cfg.JWTManager.TTL().Seconds()), cfg.IsProduction)

	apiGroup := r.Group("/api")
	{
		zoneHttp.RegisterRoutes(apiGroup, zoneHandler)
		bookingHttp.RegisterRoutes(apiGroup, bookingHandler)

		adminGroup := apiGroup.Group("/admin")
		adminHttp.RegisterRoutes(adminGroup, adminHandler, staffMiddleware)
		bookingHttp.RegisterAdminRoutes(adminGroup, bookingHandler, staffMiddleware)
	}

	return r
}

func allowedOrigins(cfg Config) []string {
	if !cfg.IsProduction {
		return []string{DevOrigin}
	}
	var origins []string
	for _, o := range strings.Split(cfg.ProdOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		log.Printf("PROD_ORIGINS is empty, falling back to %s", DevOrigin)
		return []string{DevOrigin}
	}
	return origins
}

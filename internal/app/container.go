package app

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/zone-booking-backend/internal/admin"
	"github.com/nekogravitycat/zone-booking-backend/internal/api"
	"github.com/nekogravitycat/zone-booking-backend/internal/auth"
	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
	"github.com/nekogravitycat/zone-booking-backend/internal/config"
	"github.com/nekogravitycat/zone-booking-backend/internal/notification"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

// Container holds the initialized components that are needed externally.
type Container struct {
	Router       *gin.Engine
	JWTManager   *auth.JWTManager
	ZoneService  zone.Service
	AdminService admin.Service
	BookingRepo  booking.Repository
	Dispatcher   *notification.Dispatcher
}

// NewContainer initializes all modules. Confirmations of committed bookings
// are queued on tasks.
func NewContainer(cfg *config.Config, pool *pgxpool.Pool, tasks notification.Enqueuer) *Container {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTAccessTokenTTL)
	dispatcher := notification.NewDispatcher(tasks)

	// Zone Module
	zoneRepo := zone.NewPgxRepository(pool)
	zoneService := zone.NewService(zoneRepo)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(pool)
	bookingService := booking.NewService(bookingRepo, dispatcher, booking.Config{
		Policy:       Policy(cfg),
		StoreTimeout: cfg.StoreTimeout,
	})

	// Admin Module
	adminRepo := admin.NewPgxRepository(pool)
	adminService := admin.NewService(adminRepo, passwordHasher, jwtManager)

	router := api.NewRouter(api.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		ZoneService:    zoneService,
		BookingService: bookingService,
		AdminService:   adminService,
		JWTManager:     jwtManager,
	})

	return &Container{
		Router:       router,
		JWTManager:   jwtManager,
		ZoneService:  zoneService,
		AdminService: adminService,
		BookingRepo:  bookingRepo,
		Dispatcher:   dispatcher,
	}
}

// Policy builds the venue booking window from configuration.
func Policy(cfg *config.Config) booking.Policy {
	return booking.Policy{
		OpenHour:    cfg.OpenHour,
		CloseHour:   cfg.CloseHour,
		HorizonDays: cfg.BookingHorizonDays,
		Location:    cfg.Location,
	}
}

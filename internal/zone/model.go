package zone

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(http.StatusNotFound, "Zone not found")
	ErrNameRequired = apperror.New(http.StatusBadRequest, "Zone name is required")
	ErrInvalidPrice = apperror.New(http.StatusBadRequest, "Price per hour must not be negative")
)

// Zone is a bookable physical area of the venue (e.g., PC Zone, Snooker Table).
type Zone struct {
	ID           int64
	Name         string
	PricePerHour int
	Description  string
	CreatedAt    time.Time
}

// DefaultZones is the catalogue the seeder installs on a fresh database.
func DefaultZones() []Zone {
	return []Zone{
		{Name: "PC Zone", PricePerHour: 150, Description: "High-refresh gaming PCs"},
		{Name: "Console Zone", PricePerHour: 120, Description: "PS5 / Xbox area"},
		{Name: "Snooker Table", PricePerHour: 200, Description: "Full-size snooker table"},
		{Name: "Pool Table", PricePerHour: 160, Description: "Casual pool games"},
	}
}

package admin

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "Admin not found")
	ErrMissingCredentials = apperror.New(http.StatusBadRequest, "Email and password required")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "Invalid credentials")
)

// Admin is a staff account allowed to view bookings.
type Admin struct {
	ID           int64
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

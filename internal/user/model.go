package user

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(http.StatusNotFound, "Customer not found")
	ErrInvalidPhone = apperror.New(http.StatusBadRequest, "Phone must be exactly 10 digits")
)

// User is a walk-in customer, identified by phone number.
type User struct {
	ID        int64
	Name      string
	Phone     string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

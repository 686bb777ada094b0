package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/zone-booking-backend/internal/timeslot"
	"github.com/nekogravitycat/zone-booking-backend/internal/user"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "Booking not found")
	ErrMissingFields   = apperror.New(http.StatusBadRequest, "Missing fields")
	ErrMissingQuery    = apperror.New(http.StatusBadRequest, "zoneId and date are required")
	ErrInvalidPhone    = apperror.New(http.StatusBadRequest, user.ErrInvalidPhone.Message)
	ErrInvalidEmail    = apperror.New(http.StatusBadRequest, "Invalid email address")
	ErrInvalidDate     = apperror.New(http.StatusBadRequest, "Date must be in YYYY-MM-DD format")
	ErrInvalidStart    = apperror.New(http.StatusBadRequest, "Start time must be a bookable HH:00 slot")
	ErrInvalidZone     = apperror.New(http.StatusBadRequest, "zoneId must be a positive integer")
	ErrInvalidStatus   = apperror.New(http.StatusBadRequest, "Invalid booking status")
	ErrSlotUnavailable = apperror.New(http.StatusBadRequest, "Slot is not open for booking")
	ErrSlotTaken       = apperror.New(http.StatusConflict, "Slot already booked")
	ErrZoneNotFound    = apperror.New(http.StatusNotFound, zone.ErrNotFound.Message)
)

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// ParseStatus accepts the stored spelling of a status.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, true
	}
	return "", false
}

type Booking struct {
	ID               int64
	UserID           int64
	ZoneID           int64
	Date             timeslot.DateKey
	StartTime        string
	EndTime          string
	Status           Status
	ReminderSent     bool
	ConfirmationSent bool
	CreatedAt        time.Time
	UpdatedAt        time.Time

	// Populated by joined reads. User is nil when the customer row is gone.
	User *user.User
	Zone *zone.Zone
}

// StartInstant is the moment the booked hour begins in loc.
func (b *Booking) StartInstant(loc *time.Location) time.Time {
	h, err := timeslot.ParseHour(b.StartTime)
	if err != nil {
		return time.Time{}
	}
	return b.Date.At(h, loc)
}

// Filter narrows the staff booking list. Zero fields are ignored.
type Filter struct {
	Date   *timeslot.DateKey
	ZoneID int64
	Status Status
}

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotBooked    SlotStatus = "booked"
)

type Slot struct {
	StartTime string
	EndTime   string
	Status    SlotStatus
}

// Availability is the slot grid of one zone on one date.
type Availability struct {
	Date   timeslot.DateKey
	ZoneID int64
	Slots  []Slot
}

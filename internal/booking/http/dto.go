package http

import (
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
)

// AvailabilityQuery is bound from GET /availability.
type AvailabilityQuery struct {
	ZoneID string `form:"zoneId"`
	Date   string `form:"date"`
}

type SlotResponse struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Status    string `json:"status"`
}

type AvailabilityResponse struct {
	Date   string         `json:"date"`
	ZoneID int64          `json:"zoneId"`
	Slots  []SlotResponse `json:"slots"`
}

func NewAvailabilityResponse(a *booking.Availability) AvailabilityResponse {
	slots := make([]SlotResponse, len(a.Slots))
	for i, s := range a.Slots {
		slots[i] = SlotResponse{StartTime: s.StartTime, EndTime: s.EndTime, Status: string(s.Status)}
	}
	return AvailabilityResponse{Date: a.Date.String(), ZoneID: a.ZoneID, Slots: slots}
}

// CreateBookingRequest is the public booking form. Presence checks happen in
// the service so that every missing field yields the same message.
type CreateBookingRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone" binding:"omitempty,phone10"`
	Email     string `json:"email" binding:"omitempty,email"`
	ZoneID    int64  `json:"zoneId"`
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
}

func (r *CreateBookingRequest) ToServiceRequest() booking.CreateRequest {
	return booking.CreateRequest{
		Name:      r.Name,
		Phone:     r.Phone,
		Email:     r.Email,
		ZoneID:    r.ZoneID,
		Date:      r.Date,
		StartTime: r.StartTime,
	}
}

// ListBookingsQuery is bound from GET /admin/bookings.
type ListBookingsQuery struct {
	Date   string `form:"date"`
	ZoneID int64  `form:"zoneId" binding:"omitempty,gt=0"`
	Status string `form:"status" binding:"omitempty,oneof=CONFIRMED CANCELLED COMPLETED"`
}

type UserTag struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Phone string  `json:"phone"`
	Email *string `json:"email"`
}

type ZoneTag struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PricePerHour int    `json:"pricePerHour"`
}

type BookingResponse struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"userId"`
	ZoneID       int64     `json:"zoneId"`
	Date         string    `json:"date"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	Status       string    `json:"status"`
	ReminderSent bool      `json:"reminderSent"`
	CreatedAt    time.Time `json:"createdAt"`
	User         *UserTag  `json:"user"`
	Zone         *ZoneTag  `json:"zone"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:           b.ID,
		UserID:       b.UserID,
		ZoneID:       b.ZoneID,
		Date:         b.Date.String(),
		StartTime:    b.StartTime,
		EndTime:      b.EndTime,
		Status:       string(b.Status),
		ReminderSent: b.ReminderSent,
		CreatedAt:    b.CreatedAt,
	}
	if b.User != nil {
		resp.User = &UserTag{ID: b.User.ID, Name: b.User.Name, Phone: b.User.Phone, Email: b.User.Email}
	}
	if b.Zone != nil {
		resp.Zone = &ZoneTag{ID: b.Zone.ID, Name: b.Zone.Name, PricePerHour: b.Zone.PricePerHour}
	}
	return resp
}

type CreateBookingResponse struct {
	Message string          `json:"message"`
	Booking BookingResponse `json:"booking"`
}

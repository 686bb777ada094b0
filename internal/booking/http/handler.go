package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/request"
	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/response"
	"github.com/nekogravitycat/zone-booking-backend/internal/timeslot"
)

const (
	invalidBodyMessage  = "Invalid request body"
	invalidQueryMessage = "Invalid query parameters"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

// Availability returns the slot grid of one zone on one date.
func (h *Handler) Availability(c *gin.Context) {
	var q AvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, invalidQueryMessage)
		return
	}

	q.ZoneID = strings.TrimSpace(q.ZoneID)
	q.Date = strings.TrimSpace(q.Date)
	if q.ZoneID == "" || q.Date == "" {
		response.Error(c, booking.ErrMissingQuery)
		return
	}
	zoneID, err := strconv.ParseInt(q.ZoneID, 10, 64)
	if err != nil {
		response.Error(c, booking.ErrInvalidZone)
		return
	}

	a, err := h.service.Availability(c.Request.Context(), zoneID, q.Date)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewAvailabilityResponse(a))
}

// Create reserves a slot for a walk-in customer.
func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		switch {
		case hasFailed(err, "Phone"):
			response.Error(c, booking.ErrInvalidPhone)
		case hasFailed(err, "Email"):
			response.Error(c, booking.ErrInvalidEmail)
		default:
			response.BadRequest(c, invalidBodyMessage)
		}
		return
	}

	b, err := h.service.Create(c.Request.Context(), body.ToServiceRequest())
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateBookingResponse{
		Message: "Booking confirmed!",
		Booking: NewBookingResponse(b),
	})
}

func hasFailed(err error, field string) bool {
	_, ok := request.FailedTag(err, field)
	return ok
}

// List returns bookings for staff, filtered by date, zone and status.
func (h *Handler) List(c *gin.Context) {
	var q ListBookingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		switch {
		case hasFailed(err, "Status"):
			response.Error(c, booking.ErrInvalidStatus)
		default:
			response.BadRequest(c, invalidQueryMessage)
		}
		return
	}

	filter := booking.Filter{ZoneID: q.ZoneID, Status: booking.Status(q.Status)}
	if q.Date != "" {
		d, err := timeslot.ParseDate(q.Date)
		if err != nil {
			response.Error(c, booking.ErrInvalidDate)
			return
		}
		filter.Date = &d
	}

	bookings, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, items)
}

// Get returns one booking with its customer and zone.
func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		response.Error(c, booking.ErrNotFound)
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

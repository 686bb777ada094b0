package http

import (
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

type ZoneResponse struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	PricePerHour int    `json:"pricePerHour"`
	Description  string `json:"description"`
}

func NewZoneResponse(z *zone.Zone) ZoneResponse {
	return ZoneResponse{
		ID:           z.ID,
		Name:         z.Name,
		PricePerHour: z.PricePerHour,
		Description:  z.Description,
	}
}

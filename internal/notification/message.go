package notification

import (
	"fmt"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
)

const dateLayout = "Mon Jan 02 2006"

type Message struct {
	Subject string
	Body    string
}

// Composer renders customer-facing texts.
type Composer struct {
	Venue string
	Lead  time.Duration
}

func (c Composer) venue() string {
	if c.Venue == "" {
		return "Hive"
	}
	return c.Venue
}

func zoneName(b *booking.Booking) string {
	if b.Zone == nil || b.Zone.Name == "" {
		return "your zone"
	}
	return b.Zone.Name
}

func (c Composer) Confirmation(b *booking.Booking) Message {
	name := ""
	if b.User != nil {
		name = b.User.Name
	}
	return Message{
		Subject: c.venue() + " Booking Confirmed",
		Body: fmt.Sprintf("Hi %s, your booking for %s on %s at %s is confirmed.",
			name, zoneName(b), b.Date.Time().Format(dateLayout), b.StartTime),
	}
}

func (c Composer) Reminder(b *booking.Booking) Message {
	return Message{
		Subject: "Booking reminder",
		Body: fmt.Sprintf("Reminder: your %s booking for %s at %s is in %s.",
			c.venue(), zoneName(b), b.StartTime, humanize(c.Lead)),
	}
}

func humanize(d time.Duration) string {
	if d <= 0 {
		d = time.Hour
	}
	if d%time.Hour == 0 {
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	}
	m := int(d.Round(time.Minute) / time.Minute)
	if m == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", m)
}

package booking

import (
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/timeslot"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Policy describes which slots the venue offers and how far ahead.
type Policy struct {
	OpenHour    int
	CloseHour   int
	HorizonDays int
	// Location decides what "today" and "now" mean. Nil means UTC.
	Location *time.Location
}

// DefaultPolicy is 10:00-22:00, today plus seven days, in UTC.
func DefaultPolicy() Policy {
	return Policy{
		OpenHour:    timeslot.DefaultOpenHour,
		CloseHour:   timeslot.DefaultCloseHour,
		HorizonDays: 7,
		Location:    time.UTC,
	}
}

func (p Policy) location() *time.Location {
	if p.Location == nil {
		return time.UTC
	}
	return p.Location
}

// Window returns the first and last bookable dates as seen at now.
func (p Policy) Window(now time.Time) (timeslot.DateKey, timeslot.DateKey) {
	today := timeslot.DateOf(now, p.location())
	return today, today.AddDays(p.HorizonDays)
}

// InWindow reports whether date lies within [today, today+HorizonDays].
func (p Policy) InWindow(date timeslot.DateKey, now time.Time) bool {
	first, last := p.Window(now)
	return !date.Before(first) && !date.After(last)
}

// Candidates returns the slots still offered on date. Dates outside the
// window yield an empty grid, and on today every slot whose start is at or
// before the current minute is dropped.
func (p Policy) Candidates(date timeslot.DateKey, now time.Time) []timeslot.Slot {
	if !p.InWindow(date, now) {
		return []timeslot.Slot{}
	}

	grid := timeslot.DailyGrid(p.OpenHour, p.CloseHour)
	today, _ := p.Window(now)
	if !date.Equal(today) {
		return grid
	}

	local := now.In(p.location())
	nowMinute := local.Hour()*60 + local.Minute()
	open := grid[:0]
	for _, s := range grid {
		if s.StartMinute() > nowMinute {
			open = append(open, s)
		}
	}
	return open
}

// ResolveSlots marks each candidate slot booked when it overlaps any of
// booked, available otherwise.
func (p Policy) ResolveSlots(date timeslot.DateKey, now time.Time, booked []timeslot.Slot) []Slot {
	candidates := p.Candidates(date, now)
	slots := make([]Slot, 0, len(candidates))
	for _, c := range candidates {
		status := SlotAvailable
		for _, b := range booked {
			if c.Overlaps(b) {
				status = SlotBooked
				break
			}
		}
		slots = append(slots, Slot{StartTime: c.StartTime, EndTime: c.EndTime, Status: status})
	}
	return slots
}

// Bookable checks that start names a slot of the daily grid and that the
// slot is still offered at now.
func (p Policy) Bookable(date timeslot.DateKey, start string, now time.Time) error {
	hour, err := timeslot.ParseHour(start)
	if err != nil || hour < p.OpenHour || hour >= p.CloseHour {
		return ErrInvalidStart
	}
	for _, s := range p.Candidates(date, now) {
		if s.StartTime == start {
			return nil
		}
	}
	return ErrSlotUnavailable
}

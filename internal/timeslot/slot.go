package timeslot

import (
	"errors"
	"fmt"
	"strconv"
)

const (
	DefaultOpenHour  = 10
	DefaultCloseHour = 22
)

var ErrInvalidTime = errors.New("time must be in HH:00 format")

// Slot is a fixed one-hour window, expressed as "HH:00" strings.
type Slot struct {
	StartTime string
	EndTime   string
}

// DailyGrid returns the ordered hour-aligned slots in [openHour, closeHour).
// A new slice is built on every call.
func DailyGrid(openHour, closeHour int) []Slot {
	if openHour < 0 || closeHour > 24 || openHour >= closeHour {
		return []Slot{}
	}
	slots := make([]Slot, 0, closeHour-openHour)
	for h := openHour; h < closeHour; h++ {
		slots = append(slots, Slot{StartTime: FormatHour(h), EndTime: FormatHour(h + 1)})
	}
	return slots
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Bounds are minutes of the day.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Overlaps reports whether two slots share any minute.
func (s Slot) Overlaps(o Slot) bool {
	as, err1 := Minutes(s.StartTime)
	ae, err2 := Minutes(s.EndTime)
	bs, err3 := Minutes(o.StartTime)
	be, err4 := Minutes(o.EndTime)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return false
	}
	return Overlaps(as, ae, bs, be)
}

// StartMinute is the slot start as minutes since midnight.
func (s Slot) StartMinute() int {
	m, _ := Minutes(s.StartTime)
	return m
}

// FormatHour renders an hour as zero-padded "HH:00".
func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// ParseHour parses a strict "HH:00" value into its hour.
func ParseHour(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' || s[3:] != "00" {
		return 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, ErrInvalidTime
	}
	return h, nil
}

// EndOf derives the end of the one-hour slot starting at start.
func EndOf(start string) (string, error) {
	h, err := ParseHour(start)
	if err != nil {
		return "", err
	}
	return FormatHour(h + 1), nil
}

// Minutes parses "HH:MM" into minutes since midnight. "24:00" is accepted as
// the end of the day.
func Minutes(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTime
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil {
		return 0, ErrInvalidTime
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, ErrInvalidTime
	}
	if h < 0 || h > 24 || (h == 24 && m != 0) {
		return 0, ErrInvalidTime
	}
	return h*60 + m, nil
}

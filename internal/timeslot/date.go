package timeslot

import (
	"errors"
	"time"
)

// DateLayout is the wire and storage format of a calendar date.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("date must be in YYYY-MM-DD format")

// DateKey is a calendar date pinned to midnight UTC.
// It is the exact match key for bookings, so the same "YYYY-MM-DD" string
// always maps to the same value regardless of server or client time zone.
type DateKey struct {
	t time.Time
}

// ParseDate converts a "YYYY-MM-DD" string into a DateKey.
func ParseDate(s string) (DateKey, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return DateKey{}, ErrInvalidDate
	}
	return DateKey{t: t}, nil
}

// DateOf returns the calendar date of t as observed in loc.
func DateOf(t time.Time, loc *time.Location) DateKey {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return DateKey{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// FromStorage rebuilds a DateKey from a scanned DATE column.
func FromStorage(t time.Time) DateKey {
	y, m, d := t.Date()
	return DateKey{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// Time returns the midnight UTC instant used for storage.
func (d DateKey) Time() time.Time {
	return d.t
}

func (d DateKey) String() string {
	if d.t.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

func (d DateKey) IsZero() bool {
	return d.t.IsZero()
}

func (d DateKey) AddDays(n int) DateKey {
	return DateKey{t: d.t.AddDate(0, 0, n)}
}

func (d DateKey) Before(o DateKey) bool { return d.t.Before(o.t) }
func (d DateKey) After(o DateKey) bool  { return d.t.After(o.t) }
func (d DateKey) Equal(o DateKey) bool  { return d.t.Equal(o.t) }

// At returns the instant of hour:00 on this date in loc.
func (d DateKey) At(hour int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, day := d.t.Date()
	return time.Date(y, m, day, hour, 0, 0, 0, loc)
}

func (d DateKey) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *DateKey) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

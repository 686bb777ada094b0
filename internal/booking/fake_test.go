package booking

import (
	"context"
	"sync"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/timeslot"
	"github.com/nekogravitycat/zone-booking-backend/internal/user"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

// memRepo mimics the store, including the unique live-slot index and the
// all-or-nothing customer upsert.
type memRepo struct {
	mu       sync.Mutex
	zones    map[int64]*zone.Zone
	users    map[string]*user.User
	bookings []*Booking
	nextUser int64
	nextID   int64

	err         error
	bookedCalls int
}

func newMemRepo(zones ...*zone.Zone) *memRepo {
	r := &memRepo{zones: map[int64]*zone.Zone{}, users: map[string]*user.User{}}
	for _, z := range zones {
		r.zones[z.ID] = z
	}
	return r
}

func (r *memRepo) CreateWithCustomer(ctx context.Context, b *Booking, customer *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	z, ok := r.zones[b.ZoneID]
	if !ok {
		return ErrZoneNotFound
	}
	for _, existing := range r.bookings {
		if existing.ZoneID == b.ZoneID && existing.Date.Equal(b.Date) &&
			existing.StartTime == b.StartTime && existing.Status != StatusCancelled {
			return ErrSlotTaken
		}
	}

	u, ok := r.users[customer.Phone]
	if !ok {
		r.nextUser++
		u = &user.User{ID: r.nextUser, Phone: customer.Phone, CreatedAt: time.Now()}
		r.users[customer.Phone] = u
	}
	u.Name = customer.Name
	if customer.Email != nil {
		u.Email = customer.Email
	}
	*customer = *u

	r.nextID++
	b.ID = r.nextID
	b.UserID = u.ID
	b.User = customer
	b.Zone = z
	b.CreatedAt = time.Now()
	stored := *b
	r.bookings = append(r.bookings, &stored)
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id int64) (*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID == id {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memRepo) List(ctx context.Context, filter Filter) ([]*Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*Booking, 0)
	for _, b := range r.bookings {
		if filter.Date != nil && !b.Date.Equal(*filter.Date) {
			continue
		}
		if filter.ZoneID > 0 && b.ZoneID != filter.ZoneID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	return out, nil
}

func (r *memRepo) BookedSlots(ctx context.Context, zoneID int64, date timeslot.DateKey) ([]timeslot.Slot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookedCalls++
	if r.err != nil {
		return nil, r.err
	}
	var slots []timeslot.Slot
	for _, b := range r.bookings {
		if b.ZoneID == zoneID && b.Date.Equal(date) && b.Status != StatusCancelled {
			slots = append(slots, timeslot.Slot{StartTime: b.StartTime, EndTime: b.EndTime})
		}
	}
	return slots, nil
}

func (r *memRepo) LeaseConfirmation(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	return false, nil
}

func (r *memRepo) LeaseReminder(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	return false, nil
}

func (r *memRepo) MarkConfirmationSent(ctx context.Context, id int64) (bool, error) {
	return false, nil
}

func (r *memRepo) MarkReminderSent(ctx context.Context, id int64) (bool, error) {
	return false, nil
}

func (r *memRepo) ListReminderCandidates(ctx context.Context, from, to timeslot.DateKey, staleBefore time.Time) ([]*Booking, error) {
	return nil, nil
}

func (r *memRepo) ClaimReminder(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error) {
	return false, nil
}

func (r *memRepo) ReleaseReminder(ctx context.Context, id int64) error {
	return nil
}

func (r *memRepo) cancel(id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bookings {
		if b.ID == id {
			b.Status = StatusCancelled
		}
	}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type recordingNotifier struct {
	mu  sync.Mutex
	ids []int64
	err error
}

func (n *recordingNotifier) BookingConfirmed(ctx context.Context, bookingID int64) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, bookingID)
	return n.err
}

func (n *recordingNotifier) calls() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int64(nil), n.ids...)
}

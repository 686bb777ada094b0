// Package reminder periodically queues reminder tasks for bookings that are
// about to start.
package reminder

import (
	"context"
	"log"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
	"github.com/nekogravitycat/zone-booking-backend/internal/timeslot"
)

// Store is the part of the booking store the scheduler needs.
type Store interface {
	ListReminderCandidates(ctx context.Context, from, to timeslot.DateKey, staleBefore time.Time) ([]*booking.Booking, error)
	ClaimReminder(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	ReleaseReminder(ctx context.Context, id int64) error
}

// Notifier queues the reminder task for a booking.
type Notifier interface {
	ReminderDue(ctx context.Context, bookingID int64) error
}

type Config struct {
	// Lead is how long before the start a reminder goes out.
	Lead time.Duration
	// Interval between scans.
	Interval time.Duration
	// ClaimTTL is how long a queued reminder blocks another enqueue for the
	// same booking. A claim older than this is treated as lost.
	ClaimTTL time.Duration
	Location *time.Location
	Clock    booking.Clock
}

type Scheduler struct {
	store    Store
	notifier Notifier
	cfg      Config
}

func NewScheduler(store Store, notifier Notifier, cfg Config) *Scheduler {
	if cfg.Lead <= 0 {
		cfg.Lead = time.Hour
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 30 * time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Clock == nil {
		cfg.Clock = booking.RealClock{}
	}
	return &Scheduler{store: store, notifier: notifier, cfg: cfg}
}

// Tick queues a reminder for every confirmed booking that starts within
// [now, now+Lead] and has not been reminded or claimed. It returns how many
// reminders were queued.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	now := s.cfg.Clock.Now()
	until := now.Add(s.cfg.Lead)
	staleBefore := now.Add(-s.cfg.ClaimTTL)

	from := timeslot.DateOf(now, s.cfg.Location)
	to := timeslot.DateOf(until, s.cfg.Location)

	candidates, err := s.store.ListReminderCandidates(ctx, from, to, staleBefore)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, b := range candidates {
		start := b.StartInstant(s.cfg.Location)
		if start.IsZero() || start.Before(now) || start.After(until) {
			continue
		}

		claimed, err := s.store.ClaimReminder(ctx, b.ID, now, staleBefore)
		if err != nil {
			return queued, err
		}
		if !claimed {
			continue
		}

		if err := s.notifier.ReminderDue(ctx, b.ID); err != nil {
			log.Printf("enqueue reminder failed: booking_id=%d err=%v", b.ID, err)
			if rerr := s.store.ReleaseReminder(context.WithoutCancel(ctx), b.ID); rerr != nil {
				log.Printf("release reminder claim failed: booking_id=%d err=%v", b.ID, rerr)
			}
			continue
		}
		queued++
	}
	return queued, nil
}

// Run calls Tick every Interval until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	log.Printf("reminder scheduler started: interval=%s lead=%s", s.cfg.Interval, s.cfg.Lead)
	for {
		if n, err := s.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("reminder scan failed: err=%v", err)
		} else if n > 0 {
			log.Printf("reminders queued: count=%d", n)
		}

		select {
		case <-ctx.Done():
			log.Printf("reminder scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

package notification

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nekogravitycat/zone-booking-backend/internal/booking"
	"github.com/nekogravitycat/zone-booking-backend/internal/queue"
)

// ErrDeliveryInProgress means another worker holds the delivery lease. The
// task is retried and finds the flag set once that worker finishes.
var ErrDeliveryInProgress = errors.New("notification delivery in progress")

const (
	defaultLeaseTTL = 2 * time.Minute
	markTimeout     = 5 * time.Second
)

// BookingStore is the part of the booking store tasks need.
type BookingStore interface {
	GetByID(ctx context.Context, id int64) (*booking.Booking, error)
	LeaseConfirmation(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	LeaseReminder(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
	MarkConfirmationSent(ctx context.Context, id int64) (bool, error)
	MarkReminderSent(ctx context.Context, id int64) (bool, error)
}

// Handler executes notification tasks. Each delivery takes a lease first,
// sends, and only then flips the booking's flag with a conditional update.
// A worker that dies mid-send leaves an unflipped flag and a lease that
// expires after LeaseTTL, so a redelivered task can send again.
type Handler struct {
	store       BookingStore
	email       Sender
	sms         Sender
	composer    Composer
	countryCode string
	leaseTTL    time.Duration
	clock       booking.Clock
}

type HandlerConfig struct {
	Email       Sender
	SMS         Sender
	Composer    Composer
	CountryCode string
	// LeaseTTL bounds how long a crashed delivery blocks a retry. It should
	// exceed the task timeout.
	LeaseTTL time.Duration
	Clock    booking.Clock
}

func NewHandler(store BookingStore, cfg HandlerConfig) *Handler {
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = defaultLeaseTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = booking.RealClock{}
	}
	return &Handler{
		store:       store,
		email:       cfg.Email,
		sms:         cfg.SMS,
		composer:    cfg.Composer,
		countryCode: cfg.CountryCode,
		leaseTTL:    cfg.LeaseTTL,
		clock:       cfg.Clock,
	}
}

// Handle is a queue.Handler.
func (h *Handler) Handle(ctx context.Context, t queue.Task) error {
	switch t.Kind {
	case KindBookingConfirmation:
		p, err := queue.Decode[BookingConfirmation](t)
		if err != nil {
			return err
		}
		return h.confirm(ctx, p.BookingID)
	case KindReminder:
		p, err := queue.Decode[Reminder](t)
		if err != nil {
			return err
		}
		return h.remind(ctx, p.BookingID)
	default:
		return queue.Permanent(fmt.Errorf("unknown task kind %q", t.Kind))
	}
}

// load returns nil when there is nobody left to notify.
func (h *Handler) load(ctx context.Context, id int64) (*booking.Booking, error) {
	b, err := h.store.GetByID(ctx, id)
	if errors.Is(err, booking.ErrNotFound) {
		log.Printf("notification skipped: booking_id=%d reason=booking not found", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load booking %d: %w", id, err)
	}
	if b.User == nil {
		log.Printf("notification skipped: booking_id=%d reason=customer not found", id)
		return nil, nil
	}
	return b, nil
}

func (h *Handler) confirm(ctx context.Context, id int64) error {
	b, err := h.load(ctx, id)
	if err != nil || b == nil {
		return err
	}
	if b.ConfirmationSent {
		return nil
	}
	return h.send(ctx, b, "confirmation", h.composer.Confirmation(b),
		h.store.LeaseConfirmation, h.store.MarkConfirmationSent)
}

func (h *Handler) remind(ctx context.Context, id int64) error {
	b, err := h.load(ctx, id)
	if err != nil || b == nil {
		return err
	}
	if b.ReminderSent || b.Status != booking.StatusConfirmed {
		return nil
	}
	return h.send(ctx, b, "reminder", h.composer.Reminder(b),
		h.store.LeaseReminder, h.store.MarkReminderSent)
}

type leaseFunc func(ctx context.Context, id int64, now, staleBefore time.Time) (bool, error)
type markFunc func(ctx context.Context, id int64) (bool, error)

// send runs lease, deliver, mark. The flag is set only after delivery was
// attempted, and its update still runs when the task context has expired.
func (h *Handler) send(ctx context.Context, b *booking.Booking, what string, msg Message, lease leaseFunc, mark markFunc) error {
	now := h.clock.Now()
	leased, err := lease(ctx, b.ID, now, now.Add(-h.leaseTTL))
	if err != nil {
		return fmt.Errorf("lease %s %d: %w", what, b.ID, err)
	}
	if !leased {
		return fmt.Errorf("%s for booking %d: %w", what, b.ID, ErrDeliveryInProgress)
	}

	h.deliver(ctx, b, msg)

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), markTimeout)
	defer cancel()
	if _, err := mark(markCtx, b.ID); err != nil {
		return fmt.Errorf("mark %s sent %d: %w", what, b.ID, err)
	}
	return nil
}

// deliver sends msg on every channel the customer can be reached on.
// Channel failures are logged only.
func (h *Handler) deliver(ctx context.Context, b *booking.Booking, msg Message) {
	if h.email != nil && b.User.Email != nil && *b.User.Email != "" {
		if err := h.email.Send(ctx, *b.User.Email, msg); err != nil {
			log.Print(&DeliveryError{Channel: "email", BookingID: b.ID, Err: err})
		}
	}

	if h.sms != nil && b.User.Phone != "" {
		to := FormatE164(b.User.Phone, h.countryCode)
		if err := h.sms.Send(ctx, to, msg); err != nil {
			log.Print(&DeliveryError{Channel: "sms", BookingID: b.ID, Err: err})
		}
	}
}

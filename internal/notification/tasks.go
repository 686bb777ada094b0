package notification

import (
	"context"
)

// Task kinds carried on the queue.
const (
	KindBookingConfirmation = "bookingConfirmation"
	KindReminder            = "reminder"
)

type BookingConfirmation struct {
	BookingID int64 `json:"bookingId"`
}

type Reminder struct {
	BookingID int64 `json:"bookingId"`
}

// Enqueuer is the producing side of a task queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) error
}

// Dispatcher turns booking events into queued notification tasks.
type Dispatcher struct {
	queue Enqueuer
}

func NewDispatcher(queue Enqueuer) *Dispatcher {
	return &Dispatcher{queue: queue}
}

func (d *Dispatcher) BookingConfirmed(ctx context.Context, bookingID int64) error {
	return d.queue.Enqueue(ctx, KindBookingConfirmation, BookingConfirmation{BookingID: bookingID})
}

func (d *Dispatcher) ReminderDue(ctx context.Context, bookingID int64) error {
	return d.queue.Enqueue(ctx, KindReminder, Reminder{BookingID: bookingID})
}

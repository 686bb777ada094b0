package booking

import (
	"context"
	"log"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nekogravitycat/zone-booking-backend/internal/db"
	"github.com/nekogravitycat/zone-booking-backend/internal/timeslot"
	"github.com/nekogravitycat/zone-booking-backend/internal/user"
)

var tracer = otel.Tracer("github.com/nekogravitycat/zone-booking-backend/internal/booking")

type CreateRequest struct {
	Name      string
	Phone     string
	Email     string
	ZoneID    int64
	Date      string
	StartTime string
}

// Notifier is told about every committed booking.
type Notifier interface {
	BookingConfirmed(ctx context.Context, bookingID int64) error
}

type Service interface {
	Availability(ctx context.Context, zoneID int64, date string) (*Availability, error)
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	GetByID(ctx context.Context, id int64) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, error)
}

type Config struct {
	Policy       Policy
	StoreTimeout time.Duration
	Clock        Clock
}

type service struct {
	repo     Repository
	notifier Notifier
	policy   Policy
	timeout  time.Duration
	clock    Clock
}

func NewService(repo Repository, notifier Notifier, cfg Config) Service {
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 5 * time.Second
	}
	return &service{
		repo:     repo,
		notifier: notifier,
		policy:   cfg.Policy,
		timeout:  cfg.StoreTimeout,
		clock:    cfg.Clock,
	}
}

func (s *service) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *service) Availability(ctx context.Context, zoneID int64, date string) (*Availability, error) {
	ctx, span := tracer.Start(ctx, "booking.Availability",
		trace.WithAttributes(attribute.Int64("zone.id", zoneID), attribute.String("booking.date", date)))
	defer span.End()

	if zoneID <= 0 {
		return nil, fail(span, ErrInvalidZone)
	}
	day, err := timeslot.ParseDate(date)
	if err != nil {
		return nil, fail(span, ErrInvalidDate)
	}

	now := s.clock.Now()
	result := &Availability{Date: day, ZoneID: zoneID, Slots: []Slot{}}
	if len(s.policy.Candidates(day, now)) == 0 {
		return result, nil
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	booked, err := s.repo.BookedSlots(storeCtx, zoneID, day)
	if err != nil {
		return nil, fail(span, db.Classify(err))
	}

	result.Slots = s.policy.ResolveSlots(day, now, booked)
	return result, nil
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.Create",
		trace.WithAttributes(attribute.Int64("zone.id", req.ZoneID), attribute.String("booking.date", req.Date)))
	defer span.End()

	b, customer, err := s.validate(req)
	if err != nil {
		return nil, fail(span, err)
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	if err := s.repo.CreateWithCustomer(storeCtx, b, customer); err != nil {
		return nil, fail(span, db.Classify(err))
	}
	span.SetAttributes(attribute.Int64("booking.id", b.ID))

	s.notify(ctx, b.ID)
	return b, nil
}

// validate turns req into the booking and customer to persist.
func (s *service) validate(req CreateRequest) (*Booking, *user.User, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	date := strings.TrimSpace(req.Date)
	start := strings.TrimSpace(req.StartTime)

	if name == "" || phone == "" || req.ZoneID == 0 || date == "" || start == "" {
		return nil, nil, ErrMissingFields
	}
	if req.ZoneID < 0 {
		return nil, nil, ErrInvalidZone
	}
	if !user.ValidPhone(phone) {
		return nil, nil, ErrInvalidPhone
	}
	email := user.NormalizeEmail(req.Email)
	if email != nil && !strings.Contains(*email, "@") {
		return nil, nil, ErrInvalidEmail
	}

	day, err := timeslot.ParseDate(date)
	if err != nil {
		return nil, nil, ErrInvalidDate
	}
	if err := s.policy.Bookable(day, start, s.clock.Now()); err != nil {
		return nil, nil, err
	}
	end, err := timeslot.EndOf(start)
	if err != nil {
		return nil, nil, ErrInvalidStart
	}

	b := &Booking{
		ZoneID:    req.ZoneID,
		Date:      day,
		StartTime: start,
		EndTime:   end,
		Status:    StatusConfirmed,
	}
	customer := &user.User{Name: name, Phone: phone, Email: email}
	return b, customer, nil
}

// notify enqueues the confirmation task. The booking is already committed,
// so a failure here is only logged.
func (s *service) notify(ctx context.Context, bookingID int64) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := s.notifier.BookingConfirmed(ctx, bookingID); err != nil {
		log.Printf("enqueue booking confirmation failed: booking_id=%d err=%v", bookingID, err)
		trace.SpanFromContext(ctx).AddEvent("confirmation enqueue failed",
			trace.WithAttributes(attribute.String("error", err.Error())))
	}
}

func (s *service) GetByID(ctx context.Context, id int64) (*Booking, error) {
	if id <= 0 {
		return nil, ErrNotFound
	}
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	b, err := s.repo.GetByID(storeCtx, id)
	if err != nil {
		return nil, db.Classify(err)
	}
	return b, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, error) {
	ctx, span := tracer.Start(ctx, "booking.List")
	defer span.End()

	if filter.ZoneID < 0 {
		return nil, fail(span, ErrInvalidZone)
	}
	if filter.Status != "" {
		if _, ok := ParseStatus(string(filter.Status)); !ok {
			return nil, fail(span, ErrInvalidStatus)
		}
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	bookings, err := s.repo.List(storeCtx, filter)
	if err != nil {
		return nil, fail(span, db.Classify(err))
	}
	return bookings, nil
}

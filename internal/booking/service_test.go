package booking

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/zone-booking-backend/internal/db"
	"github.com/nekogravitycat/zone-booking-backend/internal/pkg/apperror"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

var testNow = time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)

func newTestService(repo Repository, notifier Notifier) Service {
	return NewService(repo, notifier, Config{
		Policy:       DefaultPolicy(),
		StoreTimeout: time.Second,
		Clock:        fixedClock{t: testNow},
	})
}

func pcZone() *zone.Zone {
	return &zone.Zone{ID: 1, Name: "PC Zone", PricePerHour: 150, Description: "High-refresh gaming PCs"}
}

func validRequest() CreateRequest {
	return CreateRequest{
		Name:      "Asha",
		Phone:     "9876543210",
		ZoneID:    1,
		Date:      "2026-10-15",
		StartTime: "14:00",
	}
}

func slotStatus(t *testing.T, a *Availability, start string) SlotStatus {
	t.Helper()
	for _, s := range a.Slots {
		if s.StartTime == start {
			return s.Status
		}
	}
	t.Fatalf("slot %s not offered", start)
	return ""
}

func TestCreateAndAvailabilityRoundTrip(t *testing.T) {
	repo := newMemRepo(pcZone())
	notifier := &recordingNotifier{}
	svc := newTestService(repo, notifier)
	ctx := context.Background()

	before, err := svc.Availability(ctx, 1, "2026-10-15")
	require.NoError(t, err)
	require.Len(t, before.Slots, 12)
	assert.Equal(t, SlotAvailable, slotStatus(t, before, "14:00"))

	b, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	assert.Equal(t, "14:00", b.StartTime)
	assert.Equal(t, "15:00", b.EndTime)
	assert.Equal(t, StatusConfirmed, b.Status)
	assert.False(t, b.ReminderSent)
	require.NotNil(t, b.User)
	assert.Equal(t, "Asha", b.User.Name)
	require.NotNil(t, b.Zone)
	assert.Equal(t, "PC Zone", b.Zone.Name)
	assert.Equal(t, []int64{b.ID}, notifier.calls())

	after, err := svc.Availability(ctx, 1, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, slotStatus(t, after, "14:00"))
	assert.Equal(t, SlotAvailable, slotStatus(t, after, "15:00"))

	_, err = svc.Create(ctx, validRequest())
	assert.ErrorIs(t, err, ErrSlotTaken)
	assert.Equal(t, http.StatusConflict, apperror.StatusOf(err))
	assert.Len(t, notifier.calls(), 1)
}

func TestCancelledBookingFreesSlot(t *testing.T) {
	repo := newMemRepo(pcZone())
	svc := newTestService(repo, nil)
	ctx := context.Background()

	b, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	repo.cancel(b.ID)

	a, err := svc.Availability(ctx, 1, "2026-10-15")
	require.NoError(t, err)
	assert.Equal(t, SlotAvailable, slotStatus(t, a, "14:00"))

	_, err = svc.Create(ctx, validRequest())
	assert.NoError(t, err)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	repo := newMemRepo(pcZone())
	svc := newTestService(repo, &recordingNotifier{})

	const n = 25
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := validRequest()
			req.Phone = fmt.Sprintf("98765432%02d", i)
			_, errs[i] = svc.Create(context.Background(), req)
		}(i)
	}
	wg.Wait()

	success, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			success++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, success)
	assert.Equal(t, n-1, conflicts)
}

func TestCreateUpsertsCustomerByPhone(t *testing.T) {
	repo := newMemRepo(pcZone())
	svc := newTestService(repo, nil)
	ctx := context.Background()

	req := validRequest()
	req.Email = "asha@example.com"
	first, err := svc.Create(ctx, req)
	require.NoError(t, err)

	req = validRequest()
	req.Name = "Asha K"
	req.StartTime = "15:00"
	second, err := svc.Create(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.Len(t, repo.users, 1)
	stored := repo.users["9876543210"]
	assert.Equal(t, "Asha K", stored.Name)
	require.NotNil(t, stored.Email)
	assert.Equal(t, "asha@example.com", *stored.Email)
}

func TestCreateValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CreateRequest)
		want   error
	}{
		{"missing name", func(r *CreateRequest) { r.Name = " " }, ErrMissingFields},
		{"missing phone", func(r *CreateRequest) { r.Phone = "" }, ErrMissingFields},
		{"missing zone", func(r *CreateRequest) { r.ZoneID = 0 }, ErrMissingFields},
		{"missing date", func(r *CreateRequest) { r.Date = "" }, ErrMissingFields},
		{"missing start", func(r *CreateRequest) { r.StartTime = "" }, ErrMissingFields},
		{"negative zone", func(r *CreateRequest) { r.ZoneID = -3 }, ErrInvalidZone},
		{"short phone", func(r *CreateRequest) { r.Phone = "12345" }, ErrInvalidPhone},
		{"phone with letters", func(r *CreateRequest) { r.Phone = "98765abcde" }, ErrInvalidPhone},
		{"bad email", func(r *CreateRequest) { r.Email = "asha.example.com" }, ErrInvalidEmail},
		{"bad date", func(r *CreateRequest) { r.Date = "15-10-2026" }, ErrInvalidDate},
		{"off grid start", func(r *CreateRequest) { r.StartTime = "14:30" }, ErrInvalidStart},
		{"before opening", func(r *CreateRequest) { r.StartTime = "09:00" }, ErrInvalidStart},
		{"past date", func(r *CreateRequest) { r.Date = "2026-10-13" }, ErrSlotUnavailable},
		{"beyond horizon", func(r *CreateRequest) { r.Date = "2026-10-22" }, ErrSlotUnavailable},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo(pcZone())
			notifier := &recordingNotifier{}
			svc := newTestService(repo, notifier)

			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Create(context.Background(), req)

			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
			assert.Empty(t, repo.bookings)
			assert.Empty(t, repo.users)
			assert.Empty(t, notifier.calls())
		})
	}
}

func TestCreateUnknownZone(t *testing.T) {
	svc := newTestService(newMemRepo(pcZone()), nil)
	req := validRequest()
	req.ZoneID = 42

	_, err := svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrZoneNotFound)
	assert.Equal(t, http.StatusNotFound, apperror.StatusOf(err))
}

func TestCreateSurvivesNotifierFailure(t *testing.T) {
	repo := newMemRepo(pcZone())
	notifier := &recordingNotifier{err: errors.New("queue down")}
	svc := newTestService(repo, notifier)

	b, err := svc.Create(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Len(t, repo.bookings, 1)
	assert.Equal(t, []int64{b.ID}, notifier.calls())
}

func TestStoreTimeoutIsTransient(t *testing.T) {
	repo := newMemRepo(pcZone())
	repo.err = fmt.Errorf("create booking failed: %w", context.DeadlineExceeded)
	svc := newTestService(repo, nil)

	_, err := svc.Create(context.Background(), validRequest())
	assert.ErrorIs(t, err, db.ErrUnavailable)
	assert.Equal(t, http.StatusInternalServerError, apperror.StatusOf(err))
	assert.Empty(t, repo.users)

	_, err = svc.Availability(context.Background(), 1, "2026-10-15")
	assert.ErrorIs(t, err, db.ErrUnavailable)
}

func TestAvailabilityOutsideWindowSkipsStore(t *testing.T) {
	repo := newMemRepo(pcZone())
	svc := newTestService(repo, nil)

	for _, date := range []string{"2026-10-13", "2026-10-22", "2027-01-01"} {
		a, err := svc.Availability(context.Background(), 1, date)
		require.NoError(t, err)
		assert.NotNil(t, a.Slots)
		assert.Empty(t, a.Slots)
	}
	assert.Zero(t, repo.bookedCalls)

	_, err := svc.Availability(context.Background(), 1, "2026-10-21")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.bookedCalls)
}

func TestAvailabilityValidation(t *testing.T) {
	svc := newTestService(newMemRepo(pcZone()), nil)

	_, err := svc.Availability(context.Background(), 0, "2026-10-15")
	assert.ErrorIs(t, err, ErrInvalidZone)

	_, err = svc.Availability(context.Background(), 1, "tomorrow")
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestList(t *testing.T) {
	repo := newMemRepo(pcZone(), &zone.Zone{ID: 2, Name: "Console Zone"})
	svc := newTestService(repo, nil)
	ctx := context.Background()

	_, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)
	req := validRequest()
	req.ZoneID = 2
	_, err = svc.Create(ctx, req)
	require.NoError(t, err)

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyConsole, err := svc.List(ctx, Filter{ZoneID: 2})
	require.NoError(t, err)
	require.Len(t, onlyConsole, 1)
	assert.Equal(t, "Console Zone", onlyConsole[0].Zone.Name)

	_, err = svc.List(ctx, Filter{Status: "PENDING"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestGetByID(t *testing.T) {
	svc := newTestService(newMemRepo(pcZone()), nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, validRequest())
	require.NoError(t, err)

	got, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "14:00", got.StartTime)
	assert.Equal(t, "Asha", got.User.Name)

	_, err = svc.GetByID(ctx, created.ID+1)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetByID(ctx, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

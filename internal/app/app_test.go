package app

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/zone-booking-backend/internal/auth"
	"github.com/nekogravitycat/zone-booking-backend/internal/config"
	"github.com/nekogravitycat/zone-booking-backend/internal/db"
	"github.com/nekogravitycat/zone-booking-backend/internal/queue"
	"github.com/nekogravitycat/zone-booking-backend/internal/timeslot"
	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

var (
	testPool      *pgxpool.Pool
	testContainer *Container
	testTasks     *queue.Memory
)

var skipReason string

// These tests need a disposable Postgres database in TEST_DB_DSN. Without one
// every test is reported as skipped.
func TestMain(m *testing.M) {
	if err := godotenv.Load("../../.env"); err != nil {
		log.Printf("No .env file found or failed to load: %v", err)
	}

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		skipReason = "TEST_DB_DSN is not set; database integration tests did not run"
		log.Printf("SKIP: %s", skipReason)
		os.Exit(m.Run())
	}

	ctx := context.Background()
	var err error
	testPool, err = db.NewPool(ctx, dsn, db.PoolOptions{MaxConns: 20})
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	if err := db.Migrate(ctx, testPool); err != nil {
		log.Fatalf("Unable to apply schema: %v", err)
	}

	cfg := &config.Config{
		JWTSecret:          "integration-secret",
		JWTAccessTokenTTL:  30 * time.Minute,
		BcryptCost:         4, // Lower cost for testing purposes
		StoreTimeout:       5 * time.Second,
		OpenHour:           timeslot.DefaultOpenHour,
		CloseHour:          timeslot.DefaultCloseHour,
		BookingHorizonDays: 7,
		Location:           time.UTC,
	}
	testTasks = queue.NewMemory(queue.Options{})
	testContainer = NewContainer(cfg, testPool, testTasks)

	gin.SetMode(gin.TestMode)

	exitCode := m.Run()

	_ = testTasks.Close()
	testPool.Close()
	os.Exit(exitCode)
}

// resetTables skips the test when no database is configured.
func resetTables(t *testing.T) []*zone.Zone {
	t.Helper()
	if skipReason != "" {
		t.Skip(skipReason)
	}
	ctx := context.Background()
	_, err := testPool.Exec(ctx, "TRUNCATE TABLE public.bookings, public.users, public.admins RESTART IDENTITY CASCADE")
	require.NoError(t, err)

	_, err = testContainer.ZoneService.EnsureSeeded(ctx, zone.DefaultZones())
	require.NoError(t, err)
	zones, err := testContainer.ZoneService.List(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, zones)
	return zones
}

func executeRequest(method, path string, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}

	req, _ := http.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	w := httptest.NewRecorder()
	testContainer.Router.ServeHTTP(w, req)
	return w
}

func tomorrow() string {
	return timeslot.DateOf(time.Now(), time.UTC).AddDays(1).String()
}

type createdBooking struct {
	Message string `json:"message"`
	Booking struct {
		ID     int64 `json:"id"`
		UserID int64 `json:"userId"`
	} `json:"booking"`
}

func TestConcurrentBookingsOneWinner(t *testing.T) {
	zones := resetTables(t)
	date := tomorrow()

	const attempts = 10
	codes := make([]int, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := executeRequest(http.MethodPost, "/api/bookings", map[string]any{
				"name":      "Racer",
				"phone":     "98765" + string(rune('0'+i)) + "0000",
				"zoneId":    zones[0].ID,
				"date":      date,
				"startTime": "10:00",
			}, nil)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	created, conflicts := 0, 0
	for _, c := range codes {
		switch c {
		case http.StatusCreated:
			created++
		case http.StatusConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, attempts-1, conflicts)

	var live int
	err := testPool.QueryRow(context.Background(),
		"SELECT count(*) FROM public.bookings WHERE zone_id = $1 AND date = $2 AND start_time = '10:00' AND status <> 'CANCELLED'",
		zones[0].ID, date).Scan(&live)
	require.NoError(t, err)
	assert.Equal(t, 1, live)

	w := executeRequest(http.MethodGet, "/api/availability?zoneId="+strconv.FormatInt(zones[0].ID, 10)+"&date="+date, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var avail struct {
		Slots []struct {
			StartTime string `json:"startTime"`
			Status    string `json:"status"`
		} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &avail))
	require.Len(t, avail.Slots, 12)
	assert.Equal(t, "booked", avail.Slots[0].Status)
	assert.Equal(t, "available", avail.Slots[1].Status)
}

func TestCustomerUpsertedByPhone(t *testing.T) {
	zones := resetTables(t)
	date := tomorrow()

	first := executeRequest(http.MethodPost, "/api/bookings", map[string]any{
		"name": "Asha", "phone": "9123456789", "zoneId": zones[0].ID, "date": date, "startTime": "11:00",
	}, nil)
	require.Equal(t, http.StatusCreated, first.Code)

	second := executeRequest(http.MethodPost, "/api/bookings", map[string]any{
		"name": "Asha K", "phone": "9123456789", "email": "asha@example.com",
		"zoneId": zones[1].ID, "date": date, "startTime": "11:00",
	}, nil)
	require.Equal(t, http.StatusCreated, second.Code)

	var a, b createdBooking
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	assert.Equal(t, "Booking confirmed!", a.Message)
	assert.Equal(t, a.Booking.UserID, b.Booking.UserID)

	var users int
	var name string
	require.NoError(t, testPool.QueryRow(context.Background(),
		"SELECT count(*), max(name) FROM public.users WHERE phone = '9123456789'").Scan(&users, &name))
	assert.Equal(t, 1, users)
	assert.Equal(t, "Asha K", name)
}

func TestNotificationFlagsFlipOnce(t *testing.T) {
	zones := resetTables(t)
	w := executeRequest(http.MethodPost, "/api/bookings", map[string]any{
		"name": "Ravi", "phone": "9000000001", "zoneId": zones[0].ID, "date": tomorrow(), "startTime": "12:00",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created createdBooking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	ctx := context.Background()
	repo := testContainer.BookingRepo

	const racers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkReminderSent(ctx, created.Booking.ID)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)

	ok, err := repo.MarkConfirmationSent(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.MarkConfirmationSent(ctx, created.Booking.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeliveryLeaseHeldOnce(t *testing.T) {
	zones := resetTables(t)
	w := executeRequest(http.MethodPost, "/api/bookings", map[string]any{
		"name": "Meera", "phone": "9000000002", "zoneId": zones[0].ID, "date": tomorrow(), "startTime": "13:00",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	var created createdBooking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	ctx := context.Background()
	repo := testContainer.BookingRepo
	id := created.Booking.ID
	now := time.Now()

	ok, err := repo.LeaseReminder(ctx, id, now, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	// A fresh lease blocks others, a stale one can be taken over.
	ok, err = repo.LeaseReminder(ctx, id, now, now.Add(-time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)
	later := now.Add(2 * time.Minute)
	ok, err = repo.LeaseReminder(ctx, id, later, later.Add(-time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	b, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.False(t, b.ReminderSent)

	ok, err = repo.MarkReminderSent(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	// Once sent, no lease is granted however old.
	ok, err = repo.LeaseReminder(ctx, id, later.Add(time.Hour), later.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdminSessionFlow(t *testing.T) {
	resetTables(t)
	_, err := testContainer.AdminService.EnsureAdmin(context.Background(), "admin@hive.local", "admin123")
	require.NoError(t, err)

	w := executeRequest(http.MethodGet, "/api/admin/bookings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = executeRequest(http.MethodPost, "/api/admin/login", map[string]string{"email": "admin@hive.local", "password": "bad"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = executeRequest(http.MethodPost, "/api/admin/login", map[string]string{"email": "admin@hive.local", "password": "admin123"}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == auth.CookieName {
			session = c
		}
	}
	require.NotNil(t, session)

	w = executeRequest(http.MethodGet, "/api/admin/bookings", nil, session)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/nekogravitycat/zone-booking-backend/internal/zone"
)

type stubService struct {
	zones []*zone.Zone
	err   error
}

func (s *stubService) List(ctx context.Context) ([]*zone.Zone, error) { return s.zones, s.err }
func (s *stubService) GetByID(ctx context.Context, id int64) (*zone.Zone, error) {
	for _, z := range s.zones {
		if z.ID == id {
			return z, nil
		}
	}
	return nil, zone.ErrNotFound
}
func (s *stubService) EnsureSeeded(ctx context.Context, zones []zone.Zone) (int, error) {
	return 0, nil
}

func newRouter(svc zone.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r.Group("/api"), NewHandler(svc))
	return r
}

func TestListZones(t *testing.T) {
	svc := &stubService{zones: []*zone.Zone{
		{ID: 1, Name: "PC Zone", PricePerHour: 150, Description: "High-refresh gaming PCs"},
		{ID: 2, Name: "Console Zone", PricePerHour: 120, Description: "PS5 / Xbox area"},
	}}

	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/zones", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[
		{"id":1,"name":"PC Zone","pricePerHour":150,"description":"High-refresh gaming PCs"},
		{"id":2,"name":"Console Zone","pricePerHour":120,"description":"PS5 / Xbox area"}
	]`, w.Body.String())
}

func TestListZonesEmptyAndFailure(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(&stubService{zones: []*zone.Zone{}}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/zones", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	w = httptest.NewRecorder()
	newRouter(&stubService{err: errors.New("db down")}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/zones", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"Something went wrong"}`, w.Body.String())
}

func TestGetZone(t *testing.T) {
	r := newRouter(&stubService{zones: []*zone.Zone{{ID: 3, Name: "Snooker Table", PricePerHour: 200}}})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/zones/3", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":3,"name":"Snooker Table","pricePerHour":200,"description":""}`, w.Body.String())

	for _, path := range []string{"/api/zones/4", "/api/zones/0", "/api/zones/pc"} {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, path)
		assert.JSONEq(t, `{"message":"Zone not found"}`, w.Body.String(), path)
	}
}

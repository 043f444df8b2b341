package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"resort/internal/availability"
	"resort/internal/config"
	"resort/internal/database"
	"resort/internal/events"
	"resort/internal/models"
	"resort/internal/report"
	"resort/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

var (
	adminHeaders  = map[string]string{"x-api-key": "admin-key", "x-api-extra": "admin-extra"}
	readerHeaders = map[string]string{"x-api-key": "reader-key", "x-api-extra": "reader-extra"}
	frontHeaders  = map[string]string{"x-api-key": "front-key", "x-api-extra": "front-extra"}
)

type testEnv struct {
	db     *database.DB
	server *HTTPServer
	user   *models.User
	room   *models.Accommodation
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "admin-key", Extra: "admin-extra", Name: "staff", Permissions: []string{PermAdmin}},
				{Key: "reader-key", Extra: "reader-extra", Name: "widget", Permissions: []string{PermReadAvailability}},
				{Key: "front-key", Extra: "front-extra", Name: "frontend", Permissions: []string{PermReadAvailability, PermWriteBookings}},
			},
		},
	}
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	clock := func() time.Time { return testNow }
	bus := events.NewEventBus(&logger)
	policy := service.Policy{MaxBookingDays: 365, HoldTTL: 48 * time.Hour}

	engine := availability.NewEngine(db, clock, 0, &logger)
	pricing := service.NewPricingService(db, &logger)
	svc := Services{
		Availability:   engine,
		Bookings:       service.NewBookingService(db, engine, pricing, nil, bus, policy, clock, &logger),
		EventBookings:  service.NewEventBookingService(db, engine, pricing, nil, bus, policy, clock, &logger),
		WalkIns:        service.NewWalkInService(db, engine, bus, clock, &logger),
		Pricing:        pricing,
		Accommodations: service.NewAccommodationService(db, &logger),
		Users:          db,
		Reports:        report.NewExporter(db, t.TempDir(), &logger),
	}

	ctx := context.Background()
	env := &testEnv{db: db, server: NewHTTPServer(cfg, svc, &logger)}
	env.user = &models.User{Name: "Guest", Email: "guest@example.com"}
	require.NoError(t, db.CreateUser(ctx, env.user))
	env.room = &models.Accommodation{
		Name: "Room 1", Type: models.TypeRoom, Capacity: 4, Price: 1000,
		SupportsMorning: true, SupportsNight: true, SupportsWholeDay: true,
	}
	require.NoError(t, db.CreateAccommodation(ctx, env.room))
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (e *testEnv) createBooking(t *testing.T, checkIn, checkOut, slot string) *models.Booking {
	t.Helper()
	body := gin.H{
		"user_id": e.user.ID, "accommodation_id": e.room.ID,
		"check_in_date": checkIn, "time_slot": slot, "adults": 2,
	}
	if checkOut != "" {
		body["check_out_date"] = checkOut
	}
	w := e.do(t, http.MethodPost, "/api/v1/bookings", body, frontHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[*models.Booking](t, w)
}

func TestHealthNeedsNoAuth(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	w := env.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	t.Run("MissingHeaders", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/accommodations", nil, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("WrongExtra", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/accommodations", nil,
			map[string]string{"x-api-key": "reader-key", "x-api-extra": "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("ReaderCannotBook", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/bookings", gin.H{}, readerHeaders)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("FrontendCannotApprove", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/v1/bookings/1/approve", gin.H{"version": 1}, frontHeaders)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("AdminImpliesRead", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/v1/accommodations", nil, adminHeaders)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestAuthDisabled(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{})
	w := env.do(t, http.MethodGet, "/api/v1/time-slots", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[map[string][]models.TimeSlotSetting](t, w)
	assert.NotEmpty(t, resp["time_slots"])
}

func TestRateLimitPerKey(t *testing.T) {
	cfg := testAPIConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 0.001, Burst: 1}
	env := newTestEnv(t, cfg)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/accommodations", nil, readerHeaders).Code)
	assert.Equal(t, http.StatusTooManyRequests, env.do(t, http.MethodGet, "/api/v1/accommodations", nil, readerHeaders).Code)
	// a different key has its own bucket
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/api/v1/accommodations", nil, adminHeaders).Code)
}

// An approved stay from the 10th to the 12th blocks the 11th but not the 12th.
func TestAvailabilityExclusiveCheckOut(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	b := env.createBooking(t, "2024-06-10", "2024-06-12", "night")

	w := env.do(t, http.MethodPost, "/api/v1/bookings/"+itoa(b.ID)+"/approve", gin.H{"version": b.Version}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.StatusApproved, decode[*models.Booking](t, w).Status)

	check := func(checkIn string) models.AvailabilityResult {
		w := env.do(t, http.MethodGet, "/api/v1/availability/regular?accommodation_id="+itoa(env.room.ID)+"&check_in_date="+checkIn, nil, readerHeaders)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		return decode[models.AvailabilityResult](t, w)
	}

	res := check("2024-06-11")
	assert.False(t, res.Available)
	require.NotNil(t, res.ConflictingBooking)
	assert.Equal(t, b.ID, res.ConflictingBooking.ID)

	assert.True(t, check("2024-06-12").Available)
}

func TestCreateBookingValidation(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	w := env.do(t, http.MethodPost, "/api/v1/bookings", gin.H{
		"user_id": env.user.ID, "accommodation_id": env.room.ID,
		"check_in_date": "10/06/2024", "time_slot": "night", "adults": 1,
	}, frontHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CheckInDate", decode[errorResponse](t, w).Field)

	w = env.do(t, http.MethodPost, "/api/v1/bookings", gin.H{
		"user_id": env.user.ID, "accommodation_id": env.room.ID,
		"check_in_date": "2024-06-10", "time_slot": "night", "adults": 0,
	}, frontHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "adults", decode[errorResponse](t, w).Field)

	w = env.do(t, http.MethodGet, "/api/v1/availability/event?booking_date=2024-06-10&event_type=brunch", nil, readerHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOverlappingBookingConflicts(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	first := env.createBooking(t, "2024-06-10", "2024-06-12", "night")

	w := env.do(t, http.MethodPost, "/api/v1/bookings", gin.H{
		"user_id": env.user.ID, "accommodation_id": env.room.ID,
		"check_in_date": "2024-06-11", "time_slot": "night", "adults": 1,
	}, frontHeaders)
	require.Equal(t, http.StatusConflict, w.Code)
	resp := decode[errorResponse](t, w)
	assert.Equal(t, first.ID, resp.ConflictingID)
	assert.Equal(t, "2024-06-10", resp.ConflictingDate)
}

func TestTransitionErrors(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	b := env.createBooking(t, "2024-06-10", "", "morning")
	path := "/api/v1/bookings/" + itoa(b.ID)

	w := env.do(t, http.MethodPost, path+"/approve", gin.H{"version": b.Version + 5}, adminHeaders)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, path+"/approve", gin.H{"version": b.Version}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	approved := decode[*models.Booking](t, w)

	w = env.do(t, http.MethodPost, path+"/reject", gin.H{"version": approved.Version}, adminHeaders)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = env.do(t, http.MethodPost, path+"/approve", nil, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/bookings/999", nil, frontHeaders)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/bookings/abc", nil, frontHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEventBookingFlow(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	w := env.do(t, http.MethodPost, "/api/v1/event-bookings", gin.H{
		"user_id": env.user.ID, "event_type": "whole_day", "booking_date": "2024-07-01", "guest_count": 50,
	}, frontHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	e := decode[*models.EventBooking](t, w)

	// a pending whole-day event blocks the morning
	w = env.do(t, http.MethodGet, "/api/v1/availability/event?booking_date=2024-07-01&event_type=morning", nil, readerHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[models.AvailabilityResult](t, w).Available)

	w = env.do(t, http.MethodGet, "/api/v1/availability/event-conflicts?date=2024-07-01", nil, readerHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	conflicts := decode[models.EventConflicts](t, w)
	assert.True(t, conflicts.HasWholeDay)
	assert.Empty(t, conflicts.AvailableSlots)

	path := "/api/v1/event-bookings/" + itoa(e.ID)
	w = env.do(t, http.MethodPost, path+"/approve", gin.H{"version": e.Version}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	e = decode[*models.EventBooking](t, w)

	w = env.do(t, http.MethodPost, path+"/confirm", gin.H{"version": e.Version}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatusConfirmed, decode[*models.EventBooking](t, w).Status)
}

func TestWalkInFlow(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	w := env.do(t, http.MethodPost, "/api/v1/walk-ins", gin.H{
		"client_name": "Walk In", "accommodation_id": env.room.ID, "time_slot": "morning",
	}, adminHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	walkIn := decode[*models.WalkInLog](t, w)

	w = env.do(t, http.MethodGet, "/api/v1/accommodations/"+itoa(env.room.ID), nil, readerHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BookedStatus(models.SlotMorning), decode[*models.Accommodation](t, w).Status)

	w = env.do(t, http.MethodGet, "/api/v1/availability/regular?accommodation_id="+itoa(env.room.ID)+
		"&check_in_date=2024-06-01&time_slot=morning", nil, readerHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[*models.AvailabilityResult](t, w)
	assert.False(t, res.Available)
	require.NotNil(t, res.ConflictingWalkIn)
	assert.Equal(t, walkIn.ID, res.ConflictingWalkIn.ID)

	w = env.do(t, http.MethodGet, "/api/v1/walk-ins?date=2024-06-01", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string][]models.WalkInLog](t, w)["walk_ins"], 1)

	w = env.do(t, http.MethodPost, "/api/v1/walk-ins/"+itoa(walkIn.ID)+"/checkout", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[*models.WalkInLog](t, w).CheckedOut)
}

func TestDateSummary(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	env.createBooking(t, "2024-06-10", "2024-06-12", "night")

	w := env.do(t, http.MethodGet, "/api/v1/availability/summary?date=2024-06-11", nil, readerHeaders)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		RegularBookings []map[string]any `json:"regular_bookings"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.RegularBookings, 1)
	assert.Equal(t, models.EntryBooking, resp.RegularBookings[0]["kind"])
}

func TestAccommodationsAndPricing(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	w := env.do(t, http.MethodPost, "/api/v1/accommodations", gin.H{
		"name": "Cottage A", "type": "cottage", "capacity": 8, "price": 500, "supports_whole_day": true,
	}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/accommodations", gin.H{
		"name": "Cottage A", "type": "cottage", "capacity": 8, "price": 500, "supports_morning": true,
	}, adminHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	require.NoError(t, env.db.EnsurePricing(context.Background(), &models.PricingSetting{
		Category: models.PricingCategoryEntrance, Type: models.PricingTypeAdult, Price: 100,
	}))
	w = env.do(t, http.MethodGet, "/api/v1/pricing", nil, readerHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	prices := decode[map[string][]models.PricingSetting](t, w)["pricing"]
	require.Len(t, prices, 1)

	w = env.do(t, http.MethodPut, "/api/v1/pricing", gin.H{
		"updates": []gin.H{{"id": prices[0].ID, "price": 150}},
	}, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 150.0, decode[map[string][]models.PricingSetting](t, w)["pricing"][0].Price)
}

func TestUsers(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())

	w := env.do(t, http.MethodPost, "/api/v1/users", gin.H{"name": "Desk", "email": "not-an-email"}, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/users", gin.H{"name": "Desk", "email": "desk@example.com", "role": "staff"}, adminHeaders)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	u := decode[*models.User](t, w)

	w = env.do(t, http.MethodGet, "/api/v1/users/"+itoa(u.ID), nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RoleStaff, decode[*models.User](t, w).Role)
}

func TestBookingReport(t *testing.T) {
	env := newTestEnv(t, testAPIConfig())
	env.createBooking(t, "2024-06-10", "2024-06-12", "night")

	w := env.do(t, http.MethodGet, "/api/v1/reports/bookings.xlsx?start_date=2024-06-01&end_date=2024-06-30", nil, adminHeaders)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "bookings_2024-06-01_to_2024-06-30.xlsx")
	assert.NotZero(t, w.Body.Len())

	w = env.do(t, http.MethodGet, "/api/v1/reports/bookings.xlsx?start_date=2024-06-30&end_date=2024-06-01", nil, adminHeaders)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

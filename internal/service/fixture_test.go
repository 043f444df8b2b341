package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"resort/internal/availability"
	"resort/internal/database"
	"resort/internal/domain"
	"resort/internal/events"
	"resort/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

type mockLimiter struct {
	mock.Mock
}

func (m *mockLimiter) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, userID, limit, window)
	return args.Bool(0), args.Error(1)
}

// recorder collects published event types.
type recorder struct {
	mu    sync.Mutex
	types []string
}

func (r *recorder) handle(e *events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types = append(r.types, e.Type)
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.types...)
}

type fixture struct {
	db       *database.DB
	now      time.Time
	engine   *availability.Engine
	pricing  *PricingService
	bookings *BookingService
	events   *EventBookingService
	walkIns  *WalkInService
	sweeper  *HoldSweeper
	recorder *recorder
	user     *models.User
}

func newFixtureWith(t *testing.T, path string, limiter *mockLimiter) *fixture {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(path, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{db: db, now: fixedNow, recorder: &recorder{}}
	clock := func() time.Time { return f.now }

	bus := events.NewEventBus(&logger)
	bus.Subscribe(f.recorder.handle, events.BookingTypes...)
	bus.Subscribe(f.recorder.handle, events.WalkInCheckedIn, events.WalkInCheckedOut)

	policy := Policy{MaxBookingDays: 365, HoldTTL: 48 * time.Hour, RateLimit: 10, RateLimitWindow: time.Hour}

	f.engine = availability.NewEngine(db, clock, 0, &logger)
	f.pricing = NewPricingService(db, &logger)
	var rl domain.RateLimiter
	if limiter != nil {
		rl = limiter
	}
	f.bookings = NewBookingService(db, f.engine, f.pricing, rl, bus, policy, clock, &logger)
	f.events = NewEventBookingService(db, f.engine, f.pricing, rl, bus, policy, clock, &logger)
	f.walkIns = NewWalkInService(db, f.engine, bus, clock, &logger)
	f.sweeper = NewHoldSweeper(db, bus, clock, &logger)

	ctx := context.Background()
	f.user = &models.User{Name: "Guest", Email: "guest@example.com"}
	require.NoError(t, db.CreateUser(ctx, f.user))

	for _, p := range []models.PricingSetting{
		{Category: models.PricingCategoryEntrance, Type: models.PricingTypeAdult, Price: 100},
		{Category: models.PricingCategoryEntrance, Type: models.PricingTypeChild, Price: 50},
		{Category: models.PricingCategoryEvent, Type: string(models.EventWholeDay), Price: 20000},
		{Category: models.PricingCategoryEvent, Type: string(models.EventMorning), Price: 12000},
		{Category: models.PricingCategoryEvent, Type: string(models.EventEvening), Price: 15000},
	} {
		require.NoError(t, db.EnsurePricing(ctx, &p))
	}
	return f
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, ":memory:", nil)
}

func (f *fixture) room(t *testing.T, name string) *models.Accommodation {
	t.Helper()
	a := &models.Accommodation{
		Name: name, Type: models.TypeRoom, Capacity: 4, Price: 1000, AddPrice: 200,
		SupportsMorning: true, SupportsNight: true, SupportsWholeDay: true,
	}
	require.NoError(t, f.db.CreateAccommodation(context.Background(), a))
	return a
}

func (f *fixture) cottage(t *testing.T, name string) *models.Accommodation {
	t.Helper()
	a := &models.Accommodation{
		Name: name, Type: models.TypeCottage, Capacity: 8, Price: 500,
		SupportsMorning: true, SupportsNight: true,
	}
	require.NoError(t, f.db.CreateAccommodation(context.Background(), a))
	return a
}

func (f *fixture) accommodationStatus(t *testing.T, id int64) models.AccommodationStatus {
	t.Helper()
	a, err := f.db.GetAccommodation(context.Background(), id)
	require.NoError(t, err)
	return a.Status
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	require.NoError(t, err)
	return d
}

func dayPtr(t *testing.T, s string) *time.Time {
	d := day(t, s)
	return &d
}

func (f *fixture) book(t *testing.T, acc *models.Accommodation, in string, out *time.Time, slot models.TimeSlot) *models.Booking {
	t.Helper()
	b, err := f.bookings.CreateBooking(context.Background(), models.CreateBookingRequest{
		UserID: f.user.ID, AccommodationID: acc.ID, CheckIn: day(t, in), CheckOut: out, TimeSlot: slot, Adults: 1,
	})
	require.NoError(t, err)
	return b
}

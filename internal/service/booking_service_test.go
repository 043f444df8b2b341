package service

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"resort/internal/domain"
	"resort/internal/events"
	"resort/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "Room 1")

	b, err := f.bookings.CreateBooking(context.Background(), models.CreateBookingRequest{
		UserID:          f.user.ID,
		AccommodationID: room.ID,
		CheckIn:         day(t, "2024-06-10"),
		CheckOut:        dayPtr(t, "2024-06-12"),
		TimeSlot:        models.SlotWholeDay,
		Adults:          2,
		Children:        1,
		Notes:           "  late arrival ",
	})
	require.NoError(t, err)

	assert.NotZero(t, b.ID)
	assert.Equal(t, models.StatusPending, b.Status)
	assert.Equal(t, int64(1), b.Version)
	assert.Equal(t, "late arrival", b.Notes)
	// two days at 1000 + 200 whole-day surcharge, two adults at 100, one child at 50
	assert.InDelta(t, 2650.0, b.TotalPrice, 0.001)
	require.NotNil(t, b.HoldExpiresAt)
	assert.True(t, b.HoldExpiresAt.Equal(fixedNow.Add(48*time.Hour)))

	assert.Equal(t, models.AccommodationPending, f.accommodationStatus(t, room.ID))
	assert.Equal(t, []string{events.BookingCreated}, f.recorder.seen())

	stored, err := f.bookings.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.TotalPrice, stored.TotalPrice)
}

func TestCreateBooking_PriceIsSnapshot(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "Room 1")
	b := f.book(t, room, "2024-06-10", nil, models.SlotMorning)
	assert.InDelta(t, 1100.0, b.TotalPrice, 0.001)

	prices, err := f.pricing.List(context.Background())
	require.NoError(t, err)
	updates := make([]models.PriceUpdate, 0, len(prices))
	for _, p := range prices {
		updates = append(updates, models.PriceUpdate{ID: p.ID, Price: p.Price * 3})
	}
	require.NoError(t, f.pricing.BulkUpdate(context.Background(), updates))

	stored, err := f.bookings.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.InDelta(t, 1100.0, stored.TotalPrice, 0.001)
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "Room 1")
	cottage := f.cottage(t, "Cottage A")

	base := models.CreateBookingRequest{
		UserID: f.user.ID, AccommodationID: room.ID, CheckIn: day(t, "2024-06-10"),
		TimeSlot: models.SlotMorning, Adults: 1,
	}

	tests := []struct {
		name   string
		modify func(r *models.CreateBookingRequest)
		target error
	}{
		{"MissingUser", func(r *models.CreateBookingRequest) { r.UserID = 0 }, domain.ErrValidation},
		{"MissingSlot", func(r *models.CreateBookingRequest) { r.TimeSlot = "" }, domain.ErrValidation},
		{"NoAdults", func(r *models.CreateBookingRequest) { r.Adults = 0 }, domain.ErrValidation},
		{"CheckOutBeforeCheckIn", func(r *models.CreateBookingRequest) { r.CheckOut = dayPtr(t, "2024-06-09") }, domain.ErrValidation},
		{"PastDate", func(r *models.CreateBookingRequest) { r.CheckIn = day(t, "2024-05-31") }, domain.ErrValidation},
		{"TooFarAhead", func(r *models.CreateBookingRequest) { r.CheckIn = day(t, "2025-06-02") }, domain.ErrValidation},
		{"OverCapacity", func(r *models.CreateBookingRequest) { r.Adults = 4; r.Children = 1 }, domain.ErrValidation},
		{"CottageWholeDay", func(r *models.CreateBookingRequest) {
			r.AccommodationID = cottage.ID
			r.TimeSlot = models.SlotWholeDay
		}, domain.ErrValidation},
		{"UnknownUser", func(r *models.CreateBookingRequest) { r.UserID = 999 }, domain.ErrNotFound},
		{"UnknownAccommodation", func(r *models.CreateBookingRequest) { r.AccommodationID = 999 }, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base
			tt.modify(&req)
			_, err := f.bookings.CreateBooking(context.Background(), req)
			assert.ErrorIs(t, err, tt.target)
		})
	}

	t.Run("TodayIsAllowed", func(t *testing.T) {
		req := base
		req.CheckIn = day(t, "2024-06-01")
		_, err := f.bookings.CreateBooking(context.Background(), req)
		assert.NoError(t, err)
	})
}

func TestCreateBooking_Conflict(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "Room 1")
	first := f.book(t, room, "2024-06-10", dayPtr(t, "2024-06-13"), models.SlotWholeDay)

	_, err := f.bookings.CreateBooking(context.Background(), models.CreateBookingRequest{
		UserID: f.user.ID, AccommodationID: room.ID, CheckIn: day(t, "2024-06-12"),
		TimeSlot: models.SlotMorning, Adults: 1,
	})
	require.ErrorIs(t, err, domain.ErrConflict)

	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, first.ID, conflict.ConflictingID)
	assert.True(t, conflict.ConflictingDate.Equal(first.CheckInDate))

	// the departure day is free
	f.book(t, room, "2024-06-13", nil, models.SlotMorning)
}

func TestCreateBooking_SlotsShareADay(t *testing.T) {
	f := newFixture(t)
	cottage := f.cottage(t, "Cottage A")

	f.book(t, cottage, "2024-06-10", nil, models.SlotMorning)
	f.book(t, cottage, "2024-06-10", nil, models.SlotNight)

	_, err := f.bookings.CreateBooking(context.Background(), models.CreateBookingRequest{
		UserID: f.user.ID, AccommodationID: cottage.ID, CheckIn: day(t, "2024-06-10"),
		TimeSlot: models.SlotNight, Adults: 1,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCreateBooking_RateLimit(t *testing.T) {
	limiter := new(mockLimiter)
	f := newFixtureWith(t, ":memory:", limiter)
	room := f.room(t, "Room 1")

	req := models.CreateBookingRequest{
		UserID: f.user.ID, AccommodationID: room.ID, CheckIn: day(t, "2024-06-10"),
		TimeSlot: models.SlotMorning, Adults: 1,
	}

	limiter.On("CheckRateLimit", mock.Anything, f.user.ID, 10, time.Hour).Return(false, nil).Once()
	_, err := f.bookings.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrRateLimited)

	limiter.On("CheckRateLimit", mock.Anything, f.user.ID, 10, time.Hour).Return(false, errors.New("redis down")).Once()
	_, err = f.bookings.CreateBooking(context.Background(), req)
	assert.NoError(t, err, "a broken limiter must not block bookings")

	limiter.AssertExpectations(t)
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "Room 1")
	b := f.book(t, room, "2024-06-01", dayPtr(t, "2024-06-03"), models.SlotWholeDay)

	approved, err := f.bookings.Approve(ctx, b.ID, b.Version)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.Equal(t, b.Version+1, approved.Version)
	assert.Nil(t, approved.HoldExpiresAt)
	assert.Equal(t, models.BookedStatus(models.SlotWholeDay), f.accommodationStatus(t, room.ID))

	_, err = f.bookings.Approve(ctx, b.ID, approved.Version)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.bookings.Reject(ctx, b.ID, approved.Version)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.bookings.Checkout(ctx, b.ID, b.Version)
	assert.ErrorIs(t, err, domain.ErrConflict, "stale version")

	done, err := f.bookings.Checkout(ctx, b.ID, approved.Version)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, models.AccommodationVacant, f.accommodationStatus(t, room.ID))

	_, err = f.bookings.Cancel(ctx, b.ID, done.Version)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, []string{events.BookingCreated, events.BookingApproved, events.BookingCompleted}, f.recorder.seen())

	_, err = f.bookings.Approve(ctx, 999, 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestBookingRejectAndCancelRecomputeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "Room 1")

	future := f.book(t, room, "2024-06-20", nil, models.SlotMorning)
	current := f.book(t, room, "2024-06-01", nil, models.SlotNight)

	approved, err := f.bookings.Approve(ctx, current.ID, current.Version)
	require.NoError(t, err)
	assert.Equal(t, models.BookedStatus(models.SlotNight), f.accommodationStatus(t, room.ID))

	// the future request still holds the unit
	_, err = f.bookings.Cancel(ctx, current.ID, approved.Version)
	require.NoError(t, err)
	assert.Equal(t, models.AccommodationPending, f.accommodationStatus(t, room.ID))

	rejected, err := f.bookings.Reject(ctx, future.ID, future.Version)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, rejected.Status)
	assert.Equal(t, models.AccommodationVacant, f.accommodationStatus(t, room.ID))

	// cancelled dates can be booked again
	f.book(t, room, "2024-06-20", nil, models.SlotMorning)
}

func TestApproveRechecksAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "Room 1")

	stale := f.book(t, room, "2024-06-10", nil, models.SlotMorning)

	// the first hold lapses and someone else takes the slot
	f.now = fixedNow.Add(49 * time.Hour)
	fresh := f.book(t, room, "2024-06-10", nil, models.SlotMorning)

	_, err := f.bookings.Approve(ctx, stale.ID, stale.Version)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, fresh.ID, conflict.ConflictingID)

	_, err = f.bookings.Approve(ctx, fresh.ID, fresh.Version)
	assert.NoError(t, err)
}

func TestListBookingsInRange(t *testing.T) {
	f := newFixture(t)
	room := f.room(t, "Room 1")
	f.book(t, room, "2024-06-05", dayPtr(t, "2024-06-08"), models.SlotWholeDay)
	f.book(t, room, "2024-06-20", nil, models.SlotMorning)

	list, err := f.bookings.ListBookingsInRange(context.Background(), day(t, "2024-06-07"), day(t, "2024-06-10"))
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].CheckInDate.Equal(day(t, "2024-06-05")))

	_, err = f.bookings.ListBookingsInRange(context.Background(), day(t, "2024-06-10"), day(t, "2024-06-07"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateBooking_ConcurrentRequestsForSameSlot(t *testing.T) {
	f := newFixtureWith(t, filepath.Join(t.TempDir(), "race.db"), nil)
	room := f.room(t, "Room 1")

	const workers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.bookings.CreateBooking(context.Background(), models.CreateBookingRequest{
				UserID: f.user.ID, AccommodationID: room.ID, CheckIn: day(t, "2024-06-15"),
				TimeSlot: models.SlotWholeDay, Adults: 2,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
}

func TestCreateBooking_BlockedByOpenWalkIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "Room 1")

	walkIn, err := f.walkIns.CheckIn(ctx, models.WalkInRequest{
		ClientName: "Ben", AccommodationID: room.ID, TimeSlot: models.SlotWholeDay,
	})
	require.NoError(t, err)

	res, err := f.engine.CheckRegularBookingAvailability(ctx, models.RegularCheck{
		AccommodationID: room.ID, CheckIn: day(t, "2024-06-01"), TimeSlot: models.SlotWholeDay,
	})
	require.NoError(t, err)
	assert.False(t, res.Available)
	require.NotNil(t, res.ConflictingWalkIn)
	assert.Equal(t, walkIn.ID, res.ConflictingWalkIn.ID)

	_, err = f.bookings.CreateBooking(ctx, models.CreateBookingRequest{
		UserID: f.user.ID, AccommodationID: room.ID, CheckIn: day(t, "2024-06-01"),
		TimeSlot: models.SlotWholeDay, Adults: 1,
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, walkIn.ID, conflict.ConflictingID)
	assert.True(t, conflict.ConflictingDate.Equal(day(t, "2024-06-01")))

	// a request written before the walk-in arrived cannot be approved over it
	stale := &models.Booking{
		UserID: f.user.ID, AccommodationID: room.ID, CheckInDate: day(t, "2024-05-31"),
		CheckOutDate: dayPtr(t, "2024-06-02"), TimeSlot: models.SlotNight, Adults: 1, Status: models.StatusPending,
	}
	require.NoError(t, f.db.CreateBooking(ctx, stale))
	_, err = f.bookings.Approve(ctx, stale.ID, 1)
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = f.bookings.Cancel(ctx, stale.ID, 1)
	require.NoError(t, err)

	// the day after is free, and so is today once the guest leaves
	f.book(t, room, "2024-06-02", nil, models.SlotMorning)
	_, err = f.walkIns.CheckOut(ctx, walkIn.ID)
	require.NoError(t, err)
	f.book(t, room, "2024-06-01", nil, models.SlotMorning)
}

func TestCreateBooking_WalkInSlotSharesTheDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cottage := f.cottage(t, "Cottage A")

	_, err := f.walkIns.CheckIn(ctx, models.WalkInRequest{
		ClientName: "Ben", AccommodationID: cottage.ID, TimeSlot: models.SlotMorning,
	})
	require.NoError(t, err)

	_, err = f.bookings.CreateBooking(ctx, models.CreateBookingRequest{
		UserID: f.user.ID, AccommodationID: cottage.ID, CheckIn: day(t, "2024-06-01"),
		TimeSlot: models.SlotMorning, Adults: 1,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	f.book(t, cottage, "2024-06-01", nil, models.SlotNight)
}

func TestApproveKeepsStatusConsistent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cottage := f.cottage(t, "Cottage A")

	walkIn, err := f.walkIns.CheckIn(ctx, models.WalkInRequest{
		ClientName: "Ben", AccommodationID: cottage.ID, TimeSlot: models.SlotMorning,
	})
	require.NoError(t, err)

	later := f.book(t, cottage, "2024-06-10", nil, models.SlotNight)
	_, err = f.bookings.Approve(ctx, later.ID, later.Version)
	require.NoError(t, err)
	assert.Equal(t, models.BookedStatus(models.SlotMorning), f.accommodationStatus(t, cottage.ID), "the walk-in is still on site")

	_, err = f.walkIns.CheckOut(ctx, walkIn.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookedStatus(models.SlotNight), f.accommodationStatus(t, cottage.ID), "the approved stay is next")

	status, err := deriveStatus(ctx, f.db, cottage.ID, f.now)
	require.NoError(t, err)
	assert.Equal(t, f.accommodationStatus(t, cottage.ID), status)
}

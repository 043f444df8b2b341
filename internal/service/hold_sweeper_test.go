package service

import (
	"context"
	"testing"
	"time"

	"resort/internal/events"
	"resort/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpireHolds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	room := f.room(t, "Room 1")

	lapsed := f.book(t, room, "2024-06-10", nil, models.SlotMorning)
	kept := f.book(t, room, "2024-06-12", nil, models.SlotMorning)
	_, err := f.bookings.Approve(ctx, kept.ID, kept.Version)
	require.NoError(t, err)
	evt := f.event(t, "2024-06-15", models.EventMorning, 20)

	n, err := f.sweeper.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "nothing has lapsed yet")

	f.now = fixedNow.Add(48*time.Hour + time.Minute)
	n, err = f.sweeper.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := f.bookings.GetBooking(ctx, lapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)

	still, err := f.bookings.GetBooking(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, still.Status)

	gotEvt, err := f.events.Get(ctx, evt.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, gotEvt.Status)

	seen := f.recorder.seen()
	assert.Contains(t, seen, events.BookingExpired)
	assert.Contains(t, seen, events.EventBookingExpired)

	n, err = f.sweeper.ExpireHolds(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

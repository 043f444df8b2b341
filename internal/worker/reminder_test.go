package worker

import (
	"context"
	"testing"
	"time"

	"resort/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestReminderSendTomorrow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	guest := &models.User{Name: "Ana", Email: "ana@example.com"}
	require.NoError(t, db.CreateUser(ctx, guest))
	room := &models.Accommodation{Name: "Room 1", Type: models.TypeRoom, Capacity: 4, SupportsNight: true}
	require.NoError(t, db.CreateAccommodation(ctx, room))

	tomorrow := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	arrival := &models.Booking{
		UserID: guest.ID, AccommodationID: room.ID, CheckInDate: tomorrow,
		TimeSlot: models.SlotNight, Adults: 2, Status: models.StatusApproved,
	}
	require.NoError(t, db.CreateBooking(ctx, arrival))

	// pending and already-running stays get no reminder
	require.NoError(t, db.CreateBooking(ctx, &models.Booking{
		UserID: guest.ID, AccommodationID: room.ID, CheckInDate: tomorrow,
		TimeSlot: models.SlotNight, Adults: 1, Status: models.StatusPending,
	}))
	out := tomorrow.AddDate(0, 0, 2)
	require.NoError(t, db.CreateBooking(ctx, &models.Booking{
		UserID: guest.ID, AccommodationID: room.ID, CheckInDate: tomorrow.AddDate(0, 0, -1), CheckOutDate: &out,
		TimeSlot: models.SlotNight, Adults: 1, Status: models.StatusApproved,
	}))

	require.NoError(t, db.CreateEventBooking(ctx, &models.EventBooking{
		UserID: guest.ID, EventType: models.EventEvening, BookingDate: tomorrow,
		GuestCount: 40, Status: models.StatusConfirmed,
	}))

	queue := new(mockQueue)
	var sent []*models.Notification
	queue.On("Enqueue", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = append(sent, args.Get(1).(*models.Notification))
	}).Return(nil)

	logger := zerolog.Nop()
	now := func() time.Time { return time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC) }
	n, err := NewReminder(db, queue, now, &logger).SendTomorrow(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, sent, 2)
	assert.Equal(t, arrival.ID, sent[0].RelatedID)
	assert.Contains(t, sent[0].Body, "Room 1")
	assert.Equal(t, KindReminder, sent[0].Kind)
	assert.Contains(t, sent[1].Body, "evening event")
}

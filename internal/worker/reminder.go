package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"resort/internal/domain"
	"resort/internal/models"

	"github.com/rs/zerolog"
)

const KindReminder = "booking.reminder"

// Reminder emails guests whose stay or event starts tomorrow.
type Reminder struct {
	store  domain.Store
	queue  domain.NotificationQueue
	now    domain.Clock
	logger *zerolog.Logger
}

func NewReminder(store domain.Store, queue domain.NotificationQueue, now domain.Clock, logger *zerolog.Logger) *Reminder {
	if now == nil {
		now = time.Now
	}
	return &Reminder{store: store, queue: queue, now: now, logger: logger}
}

// SendTomorrow enqueues one reminder per approved arrival or confirmed event and returns how many.
func (r *Reminder) SendTomorrow(ctx context.Context) (int, error) {
	tomorrow := models.DateOf(r.now()).AddDate(0, 0, 1)

	bookings, err := r.store.ListBookingsOnDate(ctx, tomorrow)
	if err != nil {
		return 0, fmt.Errorf("list bookings: %w", err)
	}
	sent := 0
	for _, b := range bookings {
		if b.Status != models.StatusApproved || !b.CheckInDate.Equal(tomorrow) {
			continue
		}
		name := fmt.Sprintf("accommodation #%d", b.AccommodationID)
		if acc, err := r.store.GetAccommodation(ctx, b.AccommodationID); err == nil {
			name = acc.Name
		}
		body := fmt.Sprintf("Reminder: your stay at %s starts tomorrow, %s (%s).",
			name, models.FormatDate(b.CheckInDate), strings.ReplaceAll(string(b.TimeSlot), "_", " "))
		if r.remind(ctx, b.UserID, b.ID, body) {
			sent++
		}
	}

	evts, err := r.store.ListEventBookingsOnDate(ctx, tomorrow)
	if err != nil {
		return sent, fmt.Errorf("list event bookings: %w", err)
	}
	for _, e := range evts {
		if e.Status != models.StatusApproved && e.Status != models.StatusConfirmed {
			continue
		}
		body := fmt.Sprintf("Reminder: your %s event is tomorrow, %s, for %d guests.",
			strings.ReplaceAll(string(e.EventType), "_", " "), models.FormatDate(e.BookingDate), e.GuestCount)
		if r.remind(ctx, e.UserID, e.ID, body) {
			sent++
		}
	}

	if sent > 0 {
		r.logger.Info().Int("count", sent).Str("date", models.FormatDate(tomorrow)).Msg("Reminders queued")
	}
	return sent, nil
}

func (r *Reminder) remind(ctx context.Context, userID, relatedID int64, body string) bool {
	user, err := r.store.GetUserByID(ctx, userID)
	if err != nil {
		r.logger.Error().Err(err).Int64("user_id", userID).Msg("reminder: load user error")
		return false
	}
	if user.Email == "" {
		return false
	}
	err = r.queue.Enqueue(ctx, &models.Notification{
		Channel:   models.ChannelEmail,
		Recipient: user.Email,
		Subject:   "See you tomorrow",
		Body:      fmt.Sprintf("Hello %s,\n\n%s\n\nResort reservations", user.Name, body),
		Kind:      KindReminder,
		RelatedID: relatedID,
	})
	if err != nil {
		r.logger.Error().Err(err).Int64("related_id", relatedID).Msg("reminder: enqueue error")
		return false
	}
	return true
}

package service

import (
	"context"
	"errors"
	"time"

	"resort/internal/domain"
	"resort/internal/events"
	"resort/internal/metrics"
	"resort/internal/models"

	"github.com/rs/zerolog"
)

// HoldSweeper cancels pending requests whose hold ran out so the dates show as free
// and the accommodation status stops reporting them.
type HoldSweeper struct {
	store    domain.TxStore
	eventBus domain.EventPublisher
	now      domain.Clock
	logger   *zerolog.Logger
}

func NewHoldSweeper(store domain.TxStore, eventBus domain.EventPublisher, now domain.Clock, logger *zerolog.Logger) *HoldSweeper {
	if now == nil {
		now = time.Now
	}
	return &HoldSweeper{store: store, eventBus: eventBus, now: now, logger: logger}
}

// ExpireHolds returns how many bookings of both kinds it cancelled.
func (s *HoldSweeper) ExpireHolds(ctx context.Context) (int, error) {
	now := s.now()

	regular, err := s.expireBookings(ctx, now)
	if err != nil {
		return regular, err
	}
	evts, err := s.expireEventBookings(ctx, now)
	total := regular + evts
	if total > 0 {
		s.logger.Info().Int("bookings", regular).Int("event_bookings", evts).Msg("Expired pending holds")
	}
	return total, err
}

func (s *HoldSweeper) expireBookings(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpiredHolds(ctx, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range expired {
		var accName string
		err := s.store.WithTx(ctx, func(tx domain.Store) error {
			if err := tx.UpdateBookingStatus(ctx, b.ID, b.Version, models.StatusCancelled); err != nil {
				return err
			}
			if _, err := recomputeStatus(ctx, tx, b.AccommodationID, now); err != nil {
				return err
			}
			acc, err := tx.GetAccommodation(ctx, b.AccommodationID)
			if err != nil {
				return err
			}
			accName = acc.Name
			return nil
		})
		if errors.Is(err, domain.ErrConflict) {
			// approved or cancelled since it was listed
			continue
		}
		if err != nil {
			return count, err
		}

		count++
		metrics.IncBooking("regular", "expired")
		b.Status = models.StatusCancelled
		publishBooking(s.eventBus, s.logger, events.BookingExpired, b, accName, models.StatusPending)
	}
	return count, nil
}

func (s *HoldSweeper) expireEventBookings(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.store.ListExpiredEventHolds(ctx, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, e := range expired {
		err := s.store.UpdateEventBookingStatus(ctx, e.ID, e.Version, models.StatusCancelled)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return count, err
		}

		count++
		metrics.IncBooking("event", "expired")
		e.Status = models.StatusCancelled
		publishEventBooking(s.eventBus, s.logger, events.EventBookingExpired, e, models.StatusPending)
	}
	return count, nil
}

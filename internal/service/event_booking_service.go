package service

import (
	"context"
	"strings"
	"time"

	"resort/internal/availability"
	"resort/internal/domain"
	"resort/internal/events"
	"resort/internal/metrics"
	"resort/internal/models"

	"github.com/rs/zerolog"
)

type EventBookingService struct {
	store    domain.TxStore
	engine   *availability.Engine
	pricing  *PricingService
	limiter  domain.RateLimiter
	eventBus domain.EventPublisher
	policy   Policy
	now      domain.Clock
	logger   *zerolog.Logger
}

var _ domain.EventBookingService = (*EventBookingService)(nil)

func NewEventBookingService(
	store domain.TxStore,
	engine *availability.Engine,
	pricing *PricingService,
	limiter domain.RateLimiter,
	eventBus domain.EventPublisher,
	policy Policy,
	now domain.Clock,
	logger *zerolog.Logger,
) *EventBookingService {
	if now == nil {
		now = time.Now
	}
	if policy.MaxBookingDays <= 0 {
		policy.MaxBookingDays = models.DefaultMaxBookingDays
	}
	return &EventBookingService{
		store:    store,
		engine:   engine,
		pricing:  pricing,
		limiter:  limiter,
		eventBus: eventBus,
		policy:   policy,
		now:      now,
		logger:   logger,
	}
}

// quote charges the event package for the type plus the adult entrance fee per guest.
func (s *EventBookingService) quote(ctx context.Context, req models.CreateEventBookingRequest) (float64, error) {
	pkg, err := s.pricing.fee(ctx, models.PricingCategoryEvent, string(req.EventType))
	if err != nil {
		return 0, err
	}
	entrance, err := s.pricing.fee(ctx, models.PricingCategoryEntrance, models.PricingTypeAdult)
	if err != nil {
		return 0, err
	}
	return pkg + float64(req.GuestCount)*entrance, nil
}

func (s *EventBookingService) Create(ctx context.Context, req models.CreateEventBookingRequest) (*models.EventBooking, error) {
	req.Notes = strings.TrimSpace(req.Notes)
	switch {
	case req.UserID <= 0:
		return nil, domain.NewValidationError("user_id", "is required")
	case req.BookingDate.IsZero():
		return nil, domain.NewValidationError("booking_date", "is required")
	case !req.EventType.Valid():
		return nil, domain.NewValidationError("event_type", "must be one of whole_day, morning, evening")
	case req.GuestCount < 1:
		return nil, domain.NewValidationError("guest_count", "must be positive")
	}

	now := s.now()
	if err := validateWindow("booking_date", req.BookingDate, models.DateOf(now), s.policy.MaxBookingDays); err != nil {
		return nil, err
	}
	if _, err := s.store.GetUserByID(ctx, req.UserID); err != nil {
		return nil, err
	}
	if err := enforceRateLimit(ctx, s.limiter, s.policy, req.UserID, s.logger); err != nil {
		return nil, err
	}

	price, err := s.quote(ctx, req)
	if err != nil {
		return nil, err
	}

	booking := &models.EventBooking{
		UserID:        req.UserID,
		EventType:     req.EventType,
		BookingDate:   models.DateOf(req.BookingDate),
		GuestCount:    req.GuestCount,
		TotalPrice:    price,
		Status:        models.StatusPending,
		HoldExpiresAt: s.policy.holdUntil(now),
		Notes:         req.Notes,
	}

	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		res, err := s.engine.WithStore(tx).CheckEventSlot(ctx, booking.BookingDate, booking.EventType, 0)
		if err != nil {
			return err
		}
		if !res.Available {
			return conflictFrom(res)
		}
		return tx.CreateEventBooking(ctx, booking)
	})
	if err != nil {
		metrics.IncBooking("event", "rejected_on_create")
		return nil, err
	}

	metrics.IncBooking("event", "created")
	s.logger.Info().
		Int64("event_booking_id", booking.ID).
		Str("date", models.FormatDate(booking.BookingDate)).
		Str("event_type", string(booking.EventType)).
		Msg("Event booking created")
	publishEventBooking(s.eventBus, s.logger, events.EventBookingCreated, booking, "")

	return booking, nil
}

func (s *EventBookingService) Get(ctx context.Context, id int64) (*models.EventBooking, error) {
	return s.store.GetEventBooking(ctx, id)
}

func (s *EventBookingService) ListInRange(ctx context.Context, start, end time.Time) ([]*models.EventBooking, error) {
	if end.Before(start) {
		return nil, domain.NewValidationError("end_date", "must not be before start_date")
	}
	return s.store.ListEventBookingsInRange(ctx, models.DateOf(start), models.DateOf(end))
}

func (s *EventBookingService) Approve(ctx context.Context, id, version int64) (*models.EventBooking, error) {
	return s.transition(ctx, id, version, models.StatusApproved, events.EventBookingApproved)
}

func (s *EventBookingService) Confirm(ctx context.Context, id, version int64) (*models.EventBooking, error) {
	return s.transition(ctx, id, version, models.StatusConfirmed, events.EventBookingConfirmed)
}

func (s *EventBookingService) Reject(ctx context.Context, id, version int64) (*models.EventBooking, error) {
	return s.transition(ctx, id, version, models.StatusRejected, events.EventBookingRejected)
}

func (s *EventBookingService) Cancel(ctx context.Context, id, version int64) (*models.EventBooking, error) {
	return s.transition(ctx, id, version, models.StatusCancelled, events.EventBookingCancelled)
}

func (s *EventBookingService) Complete(ctx context.Context, id, version int64) (*models.EventBooking, error) {
	return s.transition(ctx, id, version, models.StatusCompleted, events.EventBookingCompleted)
}

func (s *EventBookingService) transition(ctx context.Context, id, version int64, to models.BookingStatus, eventType string) (*models.EventBooking, error) {
	var (
		updated  *models.EventBooking
		previous models.BookingStatus
	)

	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		e, err := tx.GetEventBooking(ctx, id)
		if err != nil {
			return err
		}
		if e.Version != version {
			return domain.ErrStaleVersion
		}
		previous = e.Status

		if err := eventBookingTransitions.check("event booking", e.Status, to); err != nil {
			return err
		}

		if to == models.StatusApproved {
			res, err := s.engine.WithStore(tx).CheckEventSlot(ctx, e.BookingDate, e.EventType, e.ID)
			if err != nil {
				return err
			}
			if !res.Available {
				return conflictFrom(res)
			}
		}

		if err := tx.UpdateEventBookingStatus(ctx, id, version, to); err != nil {
			return err
		}
		updated, err = tx.GetEventBooking(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBooking("event", string(to))
	s.logger.Info().
		Int64("event_booking_id", id).
		Str("from", string(previous)).
		Str("to", string(updated.Status)).
		Msg("Event booking status changed")
	publishEventBooking(s.eventBus, s.logger, eventType, updated, previous)

	return updated, nil
}

func publishEventBooking(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, e *models.EventBooking, previous models.BookingStatus) {
	if bus == nil {
		return
	}

	payload := events.BookingEventPayload{
		Kind:           models.EntryEventBooking,
		BookingID:      e.ID,
		UserID:         e.UserID,
		EventType:      string(e.EventType),
		Status:         string(e.Status),
		PreviousStatus: string(previous),
		Date:           e.BookingDate,
		GuestCount:     e.GuestCount,
		TotalPrice:     e.TotalPrice,
	}

	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Int64("event_booking_id", e.ID).Msg("publish event error")
	}
}

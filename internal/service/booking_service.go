package service

import (
	"context"
	"strings"
	"time"

	"resort/internal/availability"
	"resort/internal/config"
	"resort/internal/domain"
	"resort/internal/events"
	"resort/internal/metrics"
	"resort/internal/models"

	"github.com/rs/zerolog"
)

// Policy holds the booking rules shared by regular and event bookings.
type Policy struct {
	MaxBookingDays  int
	HoldTTL         time.Duration
	RateLimit       int
	RateLimitWindow time.Duration
}

func PolicyFromConfig(cfg config.BookingConfig) Policy {
	p := Policy{
		MaxBookingDays:  cfg.MaxBookingDays,
		HoldTTL:         cfg.PendingHoldTTL,
		RateLimit:       cfg.RateLimitRequests,
		RateLimitWindow: cfg.RateLimitWindow,
	}
	if p.MaxBookingDays <= 0 {
		p.MaxBookingDays = models.DefaultMaxBookingDays
	}
	if p.RateLimitWindow <= 0 {
		p.RateLimitWindow = time.Hour
	}
	return p
}

// holdUntil returns the hold expiry for a request created at now, nil when holds never expire.
func (p Policy) holdUntil(now time.Time) *time.Time {
	if p.HoldTTL <= 0 {
		return nil
	}
	t := now.Add(p.HoldTTL).UTC()
	return &t
}

type BookingService struct {
	store    domain.TxStore
	engine   *availability.Engine
	pricing  *PricingService
	limiter  domain.RateLimiter
	eventBus domain.EventPublisher
	policy   Policy
	now      domain.Clock
	logger   *zerolog.Logger
}

var _ domain.BookingService = (*BookingService)(nil)

func NewBookingService(
	store domain.TxStore,
	engine *availability.Engine,
	pricing *PricingService,
	limiter domain.RateLimiter,
	eventBus domain.EventPublisher,
	policy Policy,
	now domain.Clock,
	logger *zerolog.Logger,
) *BookingService {
	if now == nil {
		now = time.Now
	}
	if policy.MaxBookingDays <= 0 {
		policy.MaxBookingDays = models.DefaultMaxBookingDays
	}
	return &BookingService{
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

func validateBookingRequest(req *models.CreateBookingRequest) error {
	req.Notes = strings.TrimSpace(req.Notes)
	switch {
	case req.UserID <= 0:
		return domain.NewValidationError("user_id", "is required")
	case req.AccommodationID <= 0:
		return domain.NewValidationError("accommodation_id", "is required")
	case req.CheckIn.IsZero():
		return domain.NewValidationError("check_in_date", "is required")
	case !req.TimeSlot.Valid():
		return domain.NewValidationError("time_slot", "must be one of morning, night, whole_day")
	case req.Adults < 1:
		return domain.NewValidationError("adults", "at least one adult is required")
	case req.Children < 0:
		return domain.NewValidationError("children", "must not be negative")
	}
	if req.CheckOut != nil && models.DateOf(*req.CheckOut).Before(models.DateOf(req.CheckIn)) {
		return domain.NewValidationError("check_out_date", "must not be before check_in_date")
	}
	return nil
}

// enforceRateLimit lets the request through when the limiter itself fails.
func enforceRateLimit(ctx context.Context, limiter domain.RateLimiter, policy Policy, userID int64, logger *zerolog.Logger) error {
	if limiter == nil || policy.RateLimit <= 0 {
		return nil
	}
	allowed, err := limiter.CheckRateLimit(ctx, userID, policy.RateLimit, policy.RateLimitWindow)
	if err != nil {
		logger.Warn().Err(err).Int64("user_id", userID).Msg("Rate limiter unavailable, allowing request")
		return nil
	}
	if !allowed {
		return rateLimitedError(policy.RateLimit, policy.RateLimitWindow)
	}
	return nil
}

// quote prices a stay from the nightly rate, the whole-day surcharge and entrance fees.
func (s *BookingService) quote(ctx context.Context, acc *models.Accommodation, req models.CreateBookingRequest) (float64, error) {
	days := float64(models.NewDateRange(req.CheckIn, req.CheckOut).Days())
	total := days * acc.Price
	if req.TimeSlot == models.SlotWholeDay {
		total += days * acc.AddPrice
	}

	adult, err := s.pricing.fee(ctx, models.PricingCategoryEntrance, models.PricingTypeAdult)
	if err != nil {
		return 0, err
	}
	child, err := s.pricing.fee(ctx, models.PricingCategoryEntrance, models.PricingTypeChild)
	if err != nil {
		return 0, err
	}
	total += float64(req.Adults)*adult + float64(req.Children)*child
	return total, nil
}

// CreateBooking validates the request, prices it and inserts it as a pending
// hold. The availability check and the insert share one write transaction.
func (s *BookingService) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if err := validateBookingRequest(&req); err != nil {
		return nil, err
	}

	now := s.now()
	if err := validateWindow("check_in_date", req.CheckIn, models.DateOf(now), s.policy.MaxBookingDays); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUserByID(ctx, req.UserID); err != nil {
		return nil, err
	}
	acc, err := s.store.GetAccommodation(ctx, req.AccommodationID)
	if err != nil {
		return nil, err
	}
	if !acc.Supports(req.TimeSlot) {
		return nil, domain.NewValidationError("time_slot", "%s does not offer the %s slot", acc.Name, req.TimeSlot)
	}
	if acc.Capacity > 0 && req.Guests() > acc.Capacity {
		return nil, domain.NewValidationError("guests", "%d guests exceed the capacity of %d", req.Guests(), acc.Capacity)
	}

	if err := enforceRateLimit(ctx, s.limiter, s.policy, req.UserID, s.logger); err != nil {
		return nil, err
	}

	price, err := s.quote(ctx, acc, req)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		UserID:          req.UserID,
		AccommodationID: req.AccommodationID,
		CheckInDate:     models.DateOf(req.CheckIn),
		TimeSlot:        req.TimeSlot,
		Adults:          req.Adults,
		Children:        req.Children,
		TotalPrice:      price,
		Status:          models.StatusPending,
		HoldExpiresAt:   s.policy.holdUntil(now),
		Notes:           req.Notes,
	}
	if req.CheckOut != nil {
		out := models.DateOf(*req.CheckOut)
		booking.CheckOutDate = &out
	}

	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		res, err := s.engine.WithStore(tx).CheckRegularBookingAvailability(ctx, models.RegularCheck{
			AccommodationID: booking.AccommodationID,
			CheckIn:         booking.CheckInDate,
			CheckOut:        booking.CheckOutDate,
			TimeSlot:        booking.TimeSlot,
		})
		if err != nil {
			return err
		}
		if !res.Available {
			return conflictFrom(res)
		}

		if err := tx.CreateBooking(ctx, booking); err != nil {
			return err
		}

		current, err := tx.GetAccommodation(ctx, booking.AccommodationID)
		if err != nil {
			return err
		}
		if current.Status == models.AccommodationVacant {
			return tx.UpdateAccommodationStatus(ctx, booking.AccommodationID, models.AccommodationPending)
		}
		return nil
	})
	if err != nil {
		metrics.IncBooking("regular", "rejected_on_create")
		return nil, err
	}

	metrics.IncBooking("regular", "created")
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("accommodation_id", booking.AccommodationID).
		Str("stay", booking.Interval().String()).
		Str("slot", string(booking.TimeSlot)).
		Msg("Booking created")
	publishBooking(s.eventBus, s.logger, events.BookingCreated, booking, acc.Name, "")

	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) ListBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error) {
	if end.Before(start) {
		return nil, domain.NewValidationError("end_date", "must not be before start_date")
	}
	return s.store.ListBookingsInRange(ctx, models.DateOf(start), models.DateOf(end))
}

// Approve re-checks availability without the booking itself, then recomputes
// the accommodation status so the approved slot shows unless a walk-in or an
// earlier stay holds the unit.
func (s *BookingService) Approve(ctx context.Context, id, version int64) (*models.Booking, error) {
	return s.transition(ctx, id, version, models.StatusApproved, events.BookingApproved)
}

// Reject declines a pending request.
func (s *BookingService) Reject(ctx context.Context, id, version int64) (*models.Booking, error) {
	return s.transition(ctx, id, version, models.StatusCancelled, events.BookingRejected)
}

func (s *BookingService) Cancel(ctx context.Context, id, version int64) (*models.Booking, error) {
	return s.transition(ctx, id, version, models.StatusCancelled, events.BookingCancelled)
}

func (s *BookingService) Checkout(ctx context.Context, id, version int64) (*models.Booking, error) {
	return s.transition(ctx, id, version, models.StatusCompleted, events.BookingCompleted)
}

func (s *BookingService) transition(ctx context.Context, id, version int64, to models.BookingStatus, eventType string) (*models.Booking, error) {
	var (
		updated  *models.Booking
		previous models.BookingStatus
		accName  string
	)

	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		b, err := tx.GetBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Version != version {
			return domain.ErrStaleVersion
		}
		previous = b.Status

		// reject only applies to requests nobody has approved yet
		if eventType == events.BookingRejected && b.Status != models.StatusPending {
			return &domain.TransitionError{Entity: "booking", From: string(b.Status), To: "rejected"}
		}
		if err := bookingTransitions.check("booking", b.Status, to); err != nil {
			return err
		}

		now := s.now()
		if to == models.StatusApproved {
			res, err := s.engine.WithStore(tx).CheckRegularBookingAvailability(ctx, models.RegularCheck{
				AccommodationID:  b.AccommodationID,
				CheckIn:          b.CheckInDate,
				CheckOut:         b.CheckOutDate,
				TimeSlot:         b.TimeSlot,
				ExcludeBookingID: b.ID,
			})
			if err != nil {
				return err
			}
			if !res.Available {
				return conflictFrom(res)
			}
		}

		if err := tx.UpdateBookingStatus(ctx, id, version, to); err != nil {
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

		updated, err = tx.GetBooking(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	action := eventType[strings.LastIndexByte(eventType, '.')+1:]
	metrics.IncBooking("regular", action)
	s.logger.Info().
		Int64("booking_id", id).
		Str("from", string(previous)).
		Str("to", string(updated.Status)).
		Msg("Booking status changed")
	publishBooking(s.eventBus, s.logger, eventType, updated, accName, previous)

	return updated, nil
}

func publishBooking(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, b *models.Booking, accName string, previous models.BookingStatus) {
	if bus == nil {
		return
	}

	payload := events.BookingEventPayload{
		Kind:              models.EntryBooking,
		BookingID:         b.ID,
		UserID:            b.UserID,
		AccommodationID:   b.AccommodationID,
		AccommodationName: accName,
		TimeSlot:          string(b.TimeSlot),
		Status:            string(b.Status),
		PreviousStatus:    string(previous),
		Date:              b.CheckInDate,
		CheckOut:          b.CheckOutDate,
		GuestCount:        b.Adults + b.Children,
		TotalPrice:        b.TotalPrice,
	}

	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}

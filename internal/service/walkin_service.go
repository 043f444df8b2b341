package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"resort/internal/availability"
	"resort/internal/domain"
	"resort/internal/events"
	"resort/internal/metrics"
	"resort/internal/models"

	"github.com/rs/zerolog"
)

type WalkInService struct {
	store    domain.TxStore
	engine   *availability.Engine
	eventBus domain.EventPublisher
	now      domain.Clock
	logger   *zerolog.Logger
}

var _ domain.WalkInService = (*WalkInService)(nil)

func NewWalkInService(store domain.TxStore, engine *availability.Engine, eventBus domain.EventPublisher, now domain.Clock, logger *zerolog.Logger) *WalkInService {
	if now == nil {
		now = time.Now
	}
	return &WalkInService{store: store, engine: engine, eventBus: eventBus, now: now, logger: logger}
}

// CheckIn records a guest arriving without a booking and marks the unit booked.
func (s *WalkInService) CheckIn(ctx context.Context, req models.WalkInRequest) (*models.WalkInLog, error) {
	req.ClientName = strings.TrimSpace(req.ClientName)
	switch {
	case req.ClientName == "":
		return nil, domain.NewValidationError("client_name", "is required")
	case req.AccommodationID <= 0:
		return nil, domain.NewValidationError("accommodation_id", "is required")
	case !req.TimeSlot.Valid():
		return nil, domain.NewValidationError("time_slot", "must be one of morning, night, whole_day")
	}

	now := s.now()
	today := models.DateOf(now)
	accID := req.AccommodationID
	log := &models.WalkInLog{
		ClientName:      req.ClientName,
		AccommodationID: &accID,
		TimeSlot:        req.TimeSlot,
		CheckInDate:     today,
		CreatedBy:       req.CreatedBy,
	}

	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		acc, err := tx.GetAccommodation(ctx, accID)
		if err != nil {
			return err
		}
		if !acc.Supports(req.TimeSlot) {
			return domain.NewValidationError("time_slot", "%s does not offer the %s slot", acc.Name, req.TimeSlot)
		}

		open, err := tx.GetOpenWalkIn(ctx, accID)
		switch {
		case err == nil:
			return &domain.ConflictError{
				Reason:          "accommodation is occupied by a walk-in guest",
				ConflictingID:   open.ID,
				ConflictingDate: open.CheckInDate,
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		res, err := s.engine.WithStore(tx).CheckRegularBookingAvailability(ctx, models.RegularCheck{
			AccommodationID: accID,
			CheckIn:         today,
			TimeSlot:        req.TimeSlot,
		})
		if err != nil {
			return err
		}
		if !res.Available {
			return conflictFrom(res)
		}

		if err := tx.CreateWalkIn(ctx, log); err != nil {
			return err
		}
		return tx.UpdateAccommodationStatus(ctx, accID, models.BookedStatus(req.TimeSlot))
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBooking("walk_in", "checked_in")
	s.logger.Info().Int64("walk_in_id", log.ID).Int64("accommodation_id", accID).Msg("Walk-in checked in")
	s.publish(events.WalkInCheckedIn, log, now)

	return log, nil
}

// CheckOut closes the walk-in and recomputes the accommodation status.
func (s *WalkInService) CheckOut(ctx context.Context, id int64) (*models.WalkInLog, error) {
	now := s.now()
	var log *models.WalkInLog

	err := s.store.WithTx(ctx, func(tx domain.Store) error {
		if err := tx.CloseWalkIn(ctx, id, now); err != nil {
			return err
		}
		var err error
		log, err = tx.GetWalkIn(ctx, id)
		if err != nil {
			return err
		}
		if log.AccommodationID == nil {
			return nil
		}
		_, err = recomputeStatus(ctx, tx, *log.AccommodationID, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	metrics.IncBooking("walk_in", "checked_out")
	s.logger.Info().Int64("walk_in_id", id).Msg("Walk-in checked out")
	s.publish(events.WalkInCheckedOut, log, now)

	return log, nil
}

func (s *WalkInService) ListByDate(ctx context.Context, date time.Time) ([]*models.WalkInLog, error) {
	if date.IsZero() {
		date = s.now()
	}
	return s.store.ListWalkInsByDate(ctx, models.DateOf(date))
}

func (s *WalkInService) publish(eventType string, w *models.WalkInLog, at time.Time) {
	if s.eventBus == nil {
		return
	}
	payload := events.WalkInEventPayload{
		WalkInID:   w.ID,
		ClientName: w.ClientName,
		TimeSlot:   string(w.TimeSlot),
		At:         at,
	}
	if w.AccommodationID != nil {
		payload.AccommodationID = *w.AccommodationID
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("walk_in_id", w.ID).Msg("publish event error")
	}
}

package service

import (
	"context"
	"strings"

	"resort/internal/domain"
	"resort/internal/models"

	"github.com/rs/zerolog"
)

type AccommodationService struct {
	store  domain.Store
	logger *zerolog.Logger
}

var _ domain.AccommodationService = (*AccommodationService)(nil)

func NewAccommodationService(store domain.Store, logger *zerolog.Logger) *AccommodationService {
	return &AccommodationService{store: store, logger: logger}
}

func (s *AccommodationService) Create(ctx context.Context, a *models.Accommodation) error {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return domain.NewValidationError("name", "is required")
	}
	if !a.Type.Valid() {
		return domain.NewValidationError("type", "must be room or cottage")
	}
	if a.Capacity <= 0 {
		return domain.NewValidationError("capacity", "must be positive")
	}
	if a.Price < 0 || a.AddPrice < 0 {
		return domain.NewValidationError("price", "must not be negative")
	}
	if a.Type == models.TypeCottage && a.SupportsWholeDay {
		return domain.NewValidationError("supports_whole_day", "cottages cannot be booked for the whole day")
	}
	if !a.SupportsMorning && !a.SupportsNight && !a.SupportsWholeDay {
		return domain.NewValidationError("time_slots", "at least one time slot must be supported")
	}

	a.Status = models.AccommodationVacant
	if err := s.store.CreateAccommodation(ctx, a); err != nil {
		return err
	}

	s.logger.Info().Int64("accommodation_id", a.ID).Str("name", a.Name).Msg("Accommodation created")
	return nil
}

func (s *AccommodationService) Get(ctx context.Context, id int64) (*models.Accommodation, error) {
	return s.store.GetAccommodation(ctx, id)
}

func (s *AccommodationService) List(ctx context.Context) ([]*models.Accommodation, error) {
	return s.store.ListAccommodations(ctx)
}

func (s *AccommodationService) TimeSlots(ctx context.Context) ([]*models.TimeSlotSetting, error) {
	return s.store.ListTimeSlotSettings(ctx)
}

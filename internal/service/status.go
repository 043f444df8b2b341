package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"resort/internal/domain"
	"resort/internal/models"
)

// transitions lists the statuses each target may be reached from.
type transitions map[models.BookingStatus][]models.BookingStatus

func (t transitions) check(entity string, from, to models.BookingStatus) error {
	if slices.Contains(t[to], from) {
		return nil
	}
	return &domain.TransitionError{Entity: entity, From: string(from), To: string(to)}
}

var bookingTransitions = transitions{
	models.StatusApproved:  {models.StatusPending},
	models.StatusCancelled: {models.StatusPending, models.StatusApproved},
	models.StatusCompleted: {models.StatusApproved},
}

var eventBookingTransitions = transitions{
	models.StatusApproved:  {models.StatusPending},
	models.StatusConfirmed: {models.StatusApproved},
	models.StatusRejected:  {models.StatusPending},
	models.StatusCancelled: {models.StatusPending, models.StatusApproved, models.StatusConfirmed},
	models.StatusCompleted: {models.StatusApproved, models.StatusConfirmed},
}

// recomputeStatus derives the accommodation status from the claims left on it:
// an open walk-in, then an approved stay covering today, then the next approved
// stay, then any live pending hold.
func recomputeStatus(ctx context.Context, tx domain.Store, accommodationID int64, now time.Time) (models.AccommodationStatus, error) {
	status, err := deriveStatus(ctx, tx, accommodationID, now)
	if err != nil {
		return "", err
	}
	if err := tx.UpdateAccommodationStatus(ctx, accommodationID, status); err != nil {
		return "", err
	}
	return status, nil
}

func deriveStatus(ctx context.Context, tx domain.Store, accommodationID int64, now time.Time) (models.AccommodationStatus, error) {
	walkIn, err := tx.GetOpenWalkIn(ctx, accommodationID)
	switch {
	case err == nil:
		return models.BookedStatus(walkIn.TimeSlot), nil
	case !errors.Is(err, domain.ErrNotFound):
		return "", err
	}

	today := models.DateOf(now)
	claims, err := tx.FindOverlappingBookings(ctx, domain.OverlapQuery{
		AccommodationID: accommodationID,
		Start:           today,
		ActiveAt:        now,
	})
	if err != nil {
		return "", err
	}

	var next *models.Booking
	held := false
	for _, b := range claims {
		if b.Status == models.StatusApproved {
			if b.Interval().Contains(today) {
				return models.BookedStatus(b.TimeSlot), nil
			}
			if next == nil {
				next = b
			}
		}
		if b.HoldActive(now) {
			held = true
		}
	}
	switch {
	case next != nil:
		return models.BookedStatus(next.TimeSlot), nil
	case held:
		return models.AccommodationPending, nil
	}
	return models.AccommodationVacant, nil
}

// validateWindow keeps a start date between today and maxDays ahead.
func validateWindow(field string, date, today time.Time, maxDays int) error {
	day := models.DateOf(date)
	if day.Before(today) {
		return domain.NewValidationError(field, "must not be in the past")
	}
	if limit := today.AddDate(0, 0, maxDays); day.After(limit) {
		return domain.NewValidationError(field, "must be within %d days", maxDays)
	}
	return nil
}

func conflictFrom(res *models.AvailabilityResult) error {
	c := &domain.ConflictError{Reason: res.Reason}
	switch {
	case res.ConflictingBooking != nil:
		c.ConflictingID = res.ConflictingBooking.ID
		c.ConflictingDate = res.ConflictingBooking.CheckInDate
	case res.ConflictingEvent != nil:
		c.ConflictingID = res.ConflictingEvent.ID
		c.ConflictingDate = res.ConflictingEvent.BookingDate
	case res.ConflictingWalkIn != nil:
		c.ConflictingID = res.ConflictingWalkIn.ID
		c.ConflictingDate = res.ConflictingWalkIn.CheckInDate
	}
	return c
}

func rateLimitedError(limit int, window time.Duration) error {
	return fmt.Errorf("%w: at most %d booking requests per %s", domain.ErrRateLimited, limit, window)
}

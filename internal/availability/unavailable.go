package availability

import (
	"context"
	"time"

	"resort/internal/domain"
	"resort/internal/models"
)

// GetUnavailableDates classifies each day of [start, end] (inclusive). With an
// accommodation id, a day is unavailable when every supported slot is taken
// and partial when only some are. With id 0 a day is unavailable only when
// every accommodation is full, and per-unit occupancy is listed as partial.
func (e *Engine) GetUnavailableDates(ctx context.Context, accommodationID int64, start, end *time.Time) (*models.UnavailableDates, error) {
	from, to, err := e.window(start, end)
	if err != nil {
		return nil, err
	}

	var units []*models.Accommodation
	if accommodationID != 0 {
		a, err := e.store.GetAccommodation(ctx, accommodationID)
		if err != nil {
			return nil, err
		}
		units = []*models.Accommodation{a}
	} else {
		if units, err = e.store.ListAccommodations(ctx); err != nil {
			return nil, err
		}
	}

	bookings, err := e.store.FindOverlappingBookings(ctx, domain.OverlapQuery{
		AccommodationID: accommodationID,
		Start:           from,
		End:             to.AddDate(0, 0, 1),
		ActiveAt:        e.now(),
	})
	if err != nil {
		return nil, err
	}
	byUnit := make(map[int64][]*models.Booking)
	for _, b := range bookings {
		byUnit[b.AccommodationID] = append(byUnit[b.AccommodationID], b)
	}

	// open walk-ins only occupy days up to today
	today := e.today()
	walkIns := make(map[int64]*models.WalkInLog)
	if !from.After(today) {
		for _, unit := range units {
			w, err := e.openWalkIn(ctx, unit.ID)
			if err != nil {
				return nil, err
			}
			if w != nil {
				walkIns[unit.ID] = w
			}
		}
	}

	res := &models.UnavailableDates{
		AccommodationID:    accommodationID,
		StartDate:          from,
		EndDate:            to,
		Dates:              []time.Time{},
		PartiallyAvailable: []models.PartialAvailability{},
	}

	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		fullUnits, bookable := 0, 0
		var partial []models.PartialAvailability

		for _, unit := range units {
			slots := unit.SupportedSlots()
			if len(slots) == 0 {
				continue
			}
			bookable++

			booked, free := classifySlots(slots, byUnit[unit.ID], walkIns[unit.ID], day, today)
			if len(booked) == 0 {
				continue
			}
			if len(free) == 0 {
				fullUnits++
				if accommodationID != 0 {
					continue
				}
			}
			partial = append(partial, models.PartialAvailability{
				AccommodationID: unit.ID,
				Date:            day,
				BookedSlots:     booked,
				AvailableSlots:  free,
			})
		}

		if bookable > 0 && fullUnits == bookable {
			res.Dates = append(res.Dates, day)
			continue
		}
		res.PartiallyAvailable = append(res.PartiallyAvailable, partial...)
	}

	return res, nil
}

func (e *Engine) window(start, end *time.Time) (time.Time, time.Time, error) {
	from := e.today()
	if start != nil {
		from = models.DateOf(*start)
	}
	to := from.AddDate(0, 0, e.windowDays)
	if end != nil {
		to = models.DateOf(*end)
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, domain.NewValidationError("end_date", "must not be before start_date")
	}
	if days := int(to.Sub(from).Hours()/24) + 1; days > models.MaxUnavailableWindowDays {
		return time.Time{}, time.Time{}, domain.NewValidationError("end_date", "window may span at most %d days", models.MaxUnavailableWindowDays)
	}
	return from, to, nil
}

// classifySlots splits slots into those blocked by a booking or an open walk-in
// covering day and those still free.
func classifySlots(slots []models.TimeSlot, bookings []*models.Booking, walkIn *models.WalkInLog, day, today time.Time) (booked, free []models.TimeSlot) {
	booked = []models.TimeSlot{}
	free = []models.TimeSlot{}
	dayRange := models.NewDateRange(day, nil)

	for _, slot := range slots {
		taken := walkIn != nil && walkInConflicts(dayRange, slot, walkIn, today)
		for i := 0; !taken && i < len(bookings); i++ {
			taken = stayConflicts(dayRange, slot, bookings[i])
		}
		if taken {
			booked = append(booked, slot)
		} else {
			free = append(free, slot)
		}
	}
	return booked, free
}

// Package availability decides whether accommodations and event slots can be
// booked. It only reads; callers that write run it on a transactional store.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resort/internal/domain"
	"resort/internal/metrics"
	"resort/internal/models"

	"github.com/rs/zerolog"
)

type Engine struct {
	store      domain.Store
	now        domain.Clock
	windowDays int
	logger     *zerolog.Logger
}

var _ domain.AvailabilityChecker = (*Engine)(nil)

func NewEngine(store domain.Store, now domain.Clock, windowDays int, logger *zerolog.Logger) *Engine {
	if now == nil {
		now = time.Now
	}
	switch {
	case windowDays <= 0:
		windowDays = models.DefaultUnavailableWindowDays
	case windowDays >= models.MaxUnavailableWindowDays:
		// the default window includes its first day
		windowDays = models.MaxUnavailableWindowDays - 1
	}
	return &Engine{store: store, now: now, windowDays: windowDays, logger: logger}
}

// WithStore returns a copy of the engine reading through store, typically a transaction.
func (e *Engine) WithStore(store domain.Store) *Engine {
	cp := *e
	cp.store = store
	return &cp
}

func (e *Engine) today() time.Time {
	return models.DateOf(e.now())
}

func (e *Engine) CheckRegularBookingAvailability(ctx context.Context, req models.RegularCheck) (*models.AvailabilityResult, error) {
	if req.AccommodationID <= 0 {
		return nil, domain.NewValidationError("accommodation_id", "is required")
	}
	if req.CheckIn.IsZero() {
		return nil, domain.NewValidationError("check_in_date", "is required")
	}
	if req.CheckOut != nil && models.DateOf(*req.CheckOut).Before(models.DateOf(req.CheckIn)) {
		return nil, domain.NewValidationError("check_out_date", "must not be before check_in_date")
	}
	if req.TimeSlot != "" && !req.TimeSlot.Valid() {
		return nil, domain.NewValidationError("time_slot", "unknown time slot %q", req.TimeSlot)
	}

	if _, err := e.store.GetAccommodation(ctx, req.AccommodationID); err != nil {
		return nil, err
	}

	stay := models.NewDateRange(req.CheckIn, req.CheckOut)
	existing, err := e.store.FindOverlappingBookings(ctx, domain.OverlapQuery{
		AccommodationID: req.AccommodationID,
		Start:           stay.Start,
		End:             stay.End,
		ExcludeID:       req.ExcludeBookingID,
		ActiveAt:        e.now(),
	})
	if err != nil {
		return nil, err
	}

	for _, b := range existing {
		if !stayConflicts(stay, req.TimeSlot, b) {
			continue
		}
		metrics.IncAvailabilityCheck("regular", false)
		return &models.AvailabilityResult{
			Available:          false,
			Reason:             conflictReason(b),
			ConflictingBooking: b,
		}, nil
	}

	walkIn, err := e.openWalkIn(ctx, req.AccommodationID)
	if err != nil {
		return nil, err
	}
	if walkIn != nil && walkInConflicts(stay, req.TimeSlot, walkIn, e.today()) {
		metrics.IncAvailabilityCheck("regular", false)
		return &models.AvailabilityResult{
			Available:         false,
			Reason:            "accommodation is occupied by a walk-in guest",
			ConflictingWalkIn: walkIn,
		}, nil
	}

	metrics.IncAvailabilityCheck("regular", true)
	return &models.AvailabilityResult{Available: true}, nil
}

// openWalkIn returns the walk-in still occupying the accommodation, or nil.
func (e *Engine) openWalkIn(ctx context.Context, accommodationID int64) (*models.WalkInLog, error) {
	w, err := e.store.GetOpenWalkIn(ctx, accommodationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return w, err
}

// walkInConflicts treats an open walk-in as occupying every day from its
// check-in through today, refined by slot when both sides span a single day.
func walkInConflicts(stay models.DateRange, slot models.TimeSlot, w *models.WalkInLog, today time.Time) bool {
	occupied := models.DateRange{Start: models.DateOf(w.CheckInDate)}
	last := occupied.Start
	if today.After(last) {
		last = today
	}
	occupied.End = last.AddDate(0, 0, 1)
	if !stay.Overlaps(occupied) {
		return false
	}
	if slot == "" || stay.Days() != 1 || occupied.Days() != 1 {
		return true
	}
	return slot.Conflicts(w.TimeSlot)
}

// stayConflicts refines date overlap by time slot when both stays are single days.
func stayConflicts(stay models.DateRange, slot models.TimeSlot, b *models.Booking) bool {
	if !stay.Overlaps(b.Interval()) {
		return false
	}
	if slot == "" || stay.Days() != 1 || b.Interval().Days() != 1 {
		return true
	}
	return slot.Conflicts(b.TimeSlot)
}

func conflictReason(b *models.Booking) string {
	if b.Status == models.StatusPending {
		return "accommodation is held by a pending booking for the selected dates"
	}
	return "accommodation is already booked for the selected dates"
}

func (e *Engine) CheckEventBookingAvailability(ctx context.Context, date time.Time, eventType models.EventType) (*models.AvailabilityResult, error) {
	return e.CheckEventSlot(ctx, date, eventType, 0)
}

// CheckEventSlot is CheckEventBookingAvailability ignoring one event booking,
// used when re-validating a request on approval.
func (e *Engine) CheckEventSlot(ctx context.Context, date time.Time, eventType models.EventType, excludeID int64) (*models.AvailabilityResult, error) {
	if date.IsZero() {
		return nil, domain.NewValidationError("booking_date", "is required")
	}
	if !eventType.Valid() {
		return nil, domain.NewValidationError("event_type", "unknown event type %q", eventType)
	}

	active, err := e.store.ListActiveEventBookings(ctx, models.DateOf(date), e.now(), excludeID)
	if err != nil {
		return nil, err
	}

	for _, ev := range active {
		if !eventType.Conflicts(ev.EventType) {
			continue
		}
		metrics.IncAvailabilityCheck("event", false)
		return &models.AvailabilityResult{
			Available:        false,
			Reason:           fmt.Sprintf("a %s event is already reserved on this date", ev.EventType),
			ConflictingEvent: ev,
		}, nil
	}

	metrics.IncAvailabilityCheck("event", true)
	return &models.AvailabilityResult{Available: true}, nil
}

func (e *Engine) CheckEventConflictsForDate(ctx context.Context, date time.Time) (*models.EventConflicts, error) {
	if date.IsZero() {
		return nil, domain.NewValidationError("date", "is required")
	}
	day := models.DateOf(date)

	active, err := e.store.ListActiveEventBookings(ctx, day, e.now(), 0)
	if err != nil {
		return nil, err
	}

	res := &models.EventConflicts{
		Date:              day,
		AvailableSlots:    []models.EventType{},
		ConflictingEvents: []*models.EventBooking{},
	}
	for _, ev := range active {
		switch ev.EventType {
		case models.EventWholeDay:
			res.HasWholeDay = true
		case models.EventMorning:
			res.HasMorning = true
		case models.EventEvening:
			res.HasEvening = true
		}
		res.ConflictingEvents = append(res.ConflictingEvents, ev)
	}

	if res.HasWholeDay {
		return res, nil
	}
	if !res.HasMorning {
		res.AvailableSlots = append(res.AvailableSlots, models.EventMorning)
	}
	if !res.HasEvening {
		res.AvailableSlots = append(res.AvailableSlots, models.EventEvening)
	}
	return res, nil
}

func (e *Engine) GetDateBookingSummary(ctx context.Context, date time.Time) (*models.DateSummary, error) {
	if date.IsZero() {
		return nil, domain.NewValidationError("date", "is required")
	}
	day := models.DateOf(date)

	bookings, err := e.store.ListBookingsOnDate(ctx, day)
	if err != nil {
		return nil, err
	}
	events, err := e.store.ListEventBookingsOnDate(ctx, day)
	if err != nil {
		return nil, err
	}
	walkIns, err := e.store.ListWalkInsByDate(ctx, day)
	if err != nil {
		return nil, err
	}

	summary := &models.DateSummary{
		Date:            day,
		RegularBookings: make([]models.SummaryEntry, 0, len(bookings)),
		EventBookings:   make([]models.SummaryEntry, 0, len(events)),
		WalkIns:         make([]models.SummaryEntry, 0, len(walkIns)),
	}
	for _, b := range bookings {
		summary.RegularBookings = append(summary.RegularBookings, models.SummaryEntry{Kind: models.EntryBooking, Record: b})
	}
	for _, ev := range events {
		summary.EventBookings = append(summary.EventBookings, models.SummaryEntry{Kind: models.EntryEventBooking, Record: ev})
	}
	for _, w := range walkIns {
		summary.WalkIns = append(summary.WalkIns, models.SummaryEntry{Kind: models.EntryWalkIn, Record: w})
	}
	return summary, nil
}

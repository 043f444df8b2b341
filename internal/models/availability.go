package models

import (
	"encoding/json"
	"time"
)

// RegularCheck asks whether an accommodation is free for a stay.
type RegularCheck struct {
	AccommodationID  int64
	CheckIn          time.Time
	CheckOut         *time.Time
	TimeSlot         TimeSlot // optional
	ExcludeBookingID int64
}

type AvailabilityResult struct {
	Available          bool          `json:"available"`
	Reason             string        `json:"reason,omitempty"`
	ConflictingBooking *Booking      `json:"conflicting_booking,omitempty"`
	ConflictingEvent   *EventBooking `json:"conflicting_event,omitempty"`
	ConflictingWalkIn  *WalkInLog    `json:"conflicting_walk_in,omitempty"`
}

type PartialAvailability struct {
	AccommodationID int64      `json:"accommodation_id"`
	Date            time.Time  `json:"date"`
	BookedSlots     []TimeSlot `json:"booked_slots"`
	AvailableSlots  []TimeSlot `json:"available_slots"`
}

type UnavailableDates struct {
	AccommodationID    int64                 `json:"accommodation_id,omitempty"`
	StartDate          time.Time             `json:"start_date"`
	EndDate            time.Time             `json:"end_date"`
	Dates              []time.Time           `json:"dates"`
	PartiallyAvailable []PartialAvailability `json:"partially_available"`
}

const (
	EntryBooking      = "booking"
	EntryEventBooking = "event_booking"
	EntryWalkIn       = "walk_in"
)

// SummaryEntry tags a record with its source kind. It serializes as the
// record's own fields plus "kind".
type SummaryEntry struct {
	Kind   string
	Record any
}

func (e SummaryEntry) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(e.Record)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	kind, _ := json.Marshal(e.Kind)
	fields["kind"] = kind
	return json.Marshal(fields)
}

type DateSummary struct {
	Date            time.Time      `json:"date"`
	RegularBookings []SummaryEntry `json:"regular_bookings"`
	EventBookings   []SummaryEntry `json:"event_bookings"`
	WalkIns         []SummaryEntry `json:"walk_ins"`
}

type EventConflicts struct {
	Date              time.Time       `json:"date"`
	HasWholeDay       bool            `json:"has_whole_day"`
	HasMorning        bool            `json:"has_morning"`
	HasEvening        bool            `json:"has_evening"`
	AvailableSlots    []EventType     `json:"available_slots"`
	ConflictingEvents []*EventBooking `json:"conflicting_events"`
}

package models

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

type TimeSlot string

const (
	SlotMorning  TimeSlot = "morning"
	SlotNight    TimeSlot = "night"
	SlotWholeDay TimeSlot = "whole_day"
)

// AllTimeSlots lists the slots in canonical order.
var AllTimeSlots = []TimeSlot{SlotMorning, SlotNight, SlotWholeDay}

func (s TimeSlot) Valid() bool {
	switch s {
	case SlotMorning, SlotNight, SlotWholeDay:
		return true
	}
	return false
}

// Conflicts reports whether two slots booked on the same day collide.
func (s TimeSlot) Conflicts(other TimeSlot) bool {
	return s == other || s == SlotWholeDay || other == SlotWholeDay
}

type EventType string

const (
	EventWholeDay EventType = "whole_day"
	EventMorning  EventType = "morning"
	EventEvening  EventType = "evening"
)

func (t EventType) Valid() bool {
	switch t {
	case EventWholeDay, EventMorning, EventEvening:
		return true
	}
	return false
}

// Conflicts mirrors TimeSlot.Conflicts for event types: a whole-day event occupies the entire day.
func (t EventType) Conflicts(other EventType) bool {
	return t == other || t == EventWholeDay || other == EventWholeDay
}

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusApproved  BookingStatus = "approved"
	StatusConfirmed BookingStatus = "confirmed"
	StatusRejected  BookingStatus = "rejected"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

type AccommodationType string

const (
	TypeRoom    AccommodationType = "room"
	TypeCottage AccommodationType = "cottage"
)

func (t AccommodationType) Valid() bool {
	return t == TypeRoom || t == TypeCottage
}

type AccommodationStatus string

const (
	AccommodationVacant  AccommodationStatus = "vacant"
	AccommodationPending AccommodationStatus = "pending"
)

// BookedStatus returns the booked(<slot>) status for a slot.
func BookedStatus(slot TimeSlot) AccommodationStatus {
	return AccommodationStatus("booked(" + string(slot) + ")")
}

type UserRole string

const (
	RoleGuest UserRole = "guest"
	RoleStaff UserRole = "staff"
	RoleAdmin UserRole = "admin"
)

const (
	// DefaultMaxBookingDays limits how far ahead a booking may start.
	DefaultMaxBookingDays = 365

	// DefaultPendingHoldHours is how long an unapproved request blocks its slot.
	DefaultPendingHoldHours = 48

	// DefaultUnavailableWindowDays is the scan window when no end date is given.
	DefaultUnavailableWindowDays = 90

	// MaxUnavailableWindowDays caps the days, both ends included, of one unavailable-dates scan.
	MaxUnavailableWindowDays = 366

	// WorkerQueueSize is the in-memory notification queue capacity.
	WorkerQueueSize = 128
)

// Pricing categories and types looked up when a booking is priced.
const (
	PricingCategoryEntrance = "entrance_fee"
	PricingCategoryEvent    = "event"
	PricingTypeAdult        = "adult"
	PricingTypeChild        = "child"
)

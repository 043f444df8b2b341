package models

import "time"

type Booking struct {
	ID              int64         `json:"id"`
	UserID          int64         `json:"user_id"`
	AccommodationID int64         `json:"accommodation_id"`
	CheckInDate     time.Time     `json:"check_in_date"`
	CheckOutDate    *time.Time    `json:"check_out_date,omitempty"`
	TimeSlot        TimeSlot      `json:"time_slot"`
	Adults          int           `json:"adults"`
	Children        int           `json:"children"`
	TotalPrice      float64       `json:"total_price"`
	Status          BookingStatus `json:"status"` // pending, approved, cancelled, completed
	HoldExpiresAt   *time.Time    `json:"hold_expires_at,omitempty"`
	Notes           string        `json:"notes,omitempty"`
	Version         int64         `json:"version"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Interval is the half-open range of days the booking occupies.
func (b *Booking) Interval() DateRange {
	return NewDateRange(b.CheckInDate, b.CheckOutDate)
}

// HoldActive reports whether a pending booking still reserves its dates at the given instant.
func (b *Booking) HoldActive(at time.Time) bool {
	if b.Status != StatusPending {
		return false
	}
	return b.HoldExpiresAt == nil || b.HoldExpiresAt.After(at)
}

// Blocks reports whether the booking participates in conflict detection at the given instant.
func (b *Booking) Blocks(at time.Time) bool {
	return b.Status == StatusApproved || b.HoldActive(at)
}

type EventBooking struct {
	ID            int64         `json:"id"`
	UserID        int64         `json:"user_id"`
	EventType     EventType     `json:"event_type"`
	BookingDate   time.Time     `json:"booking_date"`
	GuestCount    int           `json:"guest_count"`
	TotalPrice    float64       `json:"total_price"`
	Status        BookingStatus `json:"status"` // pending, approved, confirmed, rejected, cancelled, completed
	HoldExpiresAt *time.Time    `json:"hold_expires_at,omitempty"`
	Notes         string        `json:"notes,omitempty"`
	Version       int64         `json:"version"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Blocks reports whether the event request reserves its (date, type) at the given instant.
func (e *EventBooking) Blocks(at time.Time) bool {
	switch e.Status {
	case StatusApproved, StatusConfirmed:
		return true
	case StatusPending:
		return e.HoldExpiresAt == nil || e.HoldExpiresAt.After(at)
	}
	return false
}

type WalkInLog struct {
	ID              int64      `json:"id"`
	ClientName      string     `json:"client_name"`
	AccommodationID *int64     `json:"accommodation_id,omitempty"`
	TimeSlot        TimeSlot   `json:"time_slot"`
	CheckInDate     time.Time  `json:"check_in_date"`
	CheckedOut      bool       `json:"checked_out"`
	CheckedOutAt    *time.Time `json:"checked_out_at,omitempty"`
	CreatedBy       int64      `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

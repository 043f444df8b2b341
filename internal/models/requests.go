package models

import "time"

type CreateBookingRequest struct {
	UserID          int64
	AccommodationID int64
	CheckIn         time.Time
	CheckOut        *time.Time
	TimeSlot        TimeSlot
	Adults          int
	Children        int
	Notes           string
}

func (r CreateBookingRequest) Guests() int { return r.Adults + r.Children }

type CreateEventBookingRequest struct {
	UserID      int64
	EventType   EventType
	BookingDate time.Time
	GuestCount  int
	Notes       string
}

type WalkInRequest struct {
	ClientName      string
	AccommodationID int64
	TimeSlot        TimeSlot
	CreatedBy       int64
}

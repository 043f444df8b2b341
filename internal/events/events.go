package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	BookingCreated   = "booking.created"
	BookingApproved  = "booking.approved"
	BookingRejected  = "booking.rejected"
	BookingCancelled = "booking.cancelled"
	BookingCompleted = "booking.completed"
	BookingExpired   = "booking.expired"

	EventBookingCreated   = "event_booking.created"
	EventBookingApproved  = "event_booking.approved"
	EventBookingConfirmed = "event_booking.confirmed"
	EventBookingRejected  = "event_booking.rejected"
	EventBookingCancelled = "event_booking.cancelled"
	EventBookingCompleted = "event_booking.completed"
	EventBookingExpired   = "event_booking.expired"

	WalkInCheckedIn  = "walk_in.checked_in"
	WalkInCheckedOut = "walk_in.checked_out"
)

// BookingTypes lists every regular and event booking lifecycle event.
var BookingTypes = []string{
	BookingCreated, BookingApproved, BookingRejected, BookingCancelled, BookingCompleted, BookingExpired,
	EventBookingCreated, EventBookingApproved, EventBookingConfirmed, EventBookingRejected,
	EventBookingCancelled, EventBookingCompleted, EventBookingExpired,
}

// BookingEventPayload is the snapshot handed to subscribers. Regular bookings
// fill the accommodation fields, event bookings fill EventType.
type BookingEventPayload struct {
	Kind              string     `json:"kind"`
	BookingID         int64      `json:"booking_id"`
	UserID            int64      `json:"user_id"`
	AccommodationID   int64      `json:"accommodation_id,omitempty"`
	AccommodationName string     `json:"accommodation_name,omitempty"`
	TimeSlot          string     `json:"time_slot,omitempty"`
	EventType         string     `json:"event_type,omitempty"`
	Status            string     `json:"status"`
	PreviousStatus    string     `json:"previous_status,omitempty"`
	Date              time.Time  `json:"date"`
	CheckOut          *time.Time `json:"check_out,omitempty"`
	GuestCount        int        `json:"guest_count"`
	TotalPrice        float64    `json:"total_price"`
}

type WalkInEventPayload struct {
	WalkInID        int64     `json:"walk_in_id"`
	ClientName      string    `json:"client_name"`
	AccommodationID int64     `json:"accommodation_id"`
	TimeSlot        string    `json:"time_slot"`
	At              time.Time `json:"at"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged when logger is set.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish notifies subscribers of the event type. Handlers run synchronously
// and a failing handler does not stop the others.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Error().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}

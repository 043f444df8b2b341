package worker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"resort/internal/domain"
	"resort/internal/events"
	"resort/internal/models"

	"github.com/rs/zerolog"
)

const handlerTimeout = 5 * time.Second

// NotificationSubscriber turns booking lifecycle events into outbox rows:
// an email to the guest, and staff alerts for new requests and walk-ins.
type NotificationSubscriber struct {
	store       domain.Store
	queue       domain.NotificationQueue
	telegram    bool
	staffChatID int64
	logger      *zerolog.Logger
}

func NewNotificationSubscriber(store domain.Store, queue domain.NotificationQueue, staffChatID int64, logger *zerolog.Logger) *NotificationSubscriber {
	return &NotificationSubscriber{
		store:       store,
		queue:       queue,
		telegram:    staffChatID != 0,
		staffChatID: staffChatID,
		logger:      logger,
	}
}

// Register subscribes the handlers to every event they react to.
func (s *NotificationSubscriber) Register(bus *events.EventBus) {
	bus.Subscribe(s.HandleBookingEvent, events.BookingTypes...)
	bus.Subscribe(s.HandleWalkInEvent, events.WalkInCheckedIn, events.WalkInCheckedOut)
}

var guestSubjects = map[string]string{
	events.BookingCreated:        "We received your booking request",
	events.BookingApproved:       "Your booking is approved",
	events.BookingRejected:       "Your booking request was declined",
	events.BookingCancelled:      "Your booking was cancelled",
	events.BookingCompleted:      "Thank you for staying with us",
	events.BookingExpired:        "Your booking request expired",
	events.EventBookingCreated:   "We received your event request",
	events.EventBookingApproved:  "Your event is approved",
	events.EventBookingConfirmed: "Your event is confirmed",
	events.EventBookingRejected:  "Your event request was declined",
	events.EventBookingCancelled: "Your event was cancelled",
	events.EventBookingCompleted: "Thank you for celebrating with us",
	events.EventBookingExpired:   "Your event request expired",
}

func (s *NotificationSubscriber) HandleBookingEvent(event *events.Event) error {
	var p events.BookingEventPayload
	if err := event.Decode(&p); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	user, err := s.store.GetUserByID(ctx, p.UserID)
	if err != nil {
		return fmt.Errorf("load guest %d: %w", p.UserID, err)
	}

	body := s.describeBooking(ctx, &p)
	if user.Email != "" {
		s.enqueue(ctx, &models.Notification{
			Channel:   models.ChannelEmail,
			Recipient: user.Email,
			Subject:   guestSubjects[event.Type],
			Body:      fmt.Sprintf("Hello %s,\n\n%s\n\nResort reservations", user.Name, body),
			Kind:      event.Type,
			RelatedID: p.BookingID,
		})
	}

	if event.Type != events.BookingCreated && event.Type != events.EventBookingCreated {
		return nil
	}

	alert := fmt.Sprintf("New %s request #%d from %s awaiting approval.\n%s", kindLabel(p.Kind), p.BookingID, user.Name, body)
	return s.alertStaff(ctx, event.Type, p.BookingID, "New booking request", alert)
}

func (s *NotificationSubscriber) HandleWalkInEvent(event *events.Event) error {
	var p events.WalkInEventPayload
	if err := event.Decode(&p); err != nil {
		return fmt.Errorf("decode %s payload: %w", event.Type, err)
	}
	if !s.telegram {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	name := "accommodation #" + strconv.FormatInt(p.AccommodationID, 10)
	if acc, err := s.store.GetAccommodation(ctx, p.AccommodationID); err == nil {
		name = acc.Name
	}

	verb := "checked in to"
	if event.Type == events.WalkInCheckedOut {
		verb = "checked out of"
	}
	s.enqueue(ctx, &models.Notification{
		Channel:   models.ChannelTelegram,
		Recipient: strconv.FormatInt(s.staffChatID, 10),
		Body:      fmt.Sprintf("Walk-in %s %s %s (%s).", p.ClientName, verb, name, p.TimeSlot),
		Kind:      event.Type,
		RelatedID: p.WalkInID,
	})
	return nil
}

// alertStaff emails every staff member and posts to the staff chat when configured.
func (s *NotificationSubscriber) alertStaff(ctx context.Context, kind string, relatedID int64, subject, body string) error {
	staff, err := s.store.ListUsersByRole(ctx, models.RoleStaff)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	for _, u := range staff {
		if u.Email == "" {
			continue
		}
		s.enqueue(ctx, &models.Notification{
			Channel:   models.ChannelEmail,
			Recipient: u.Email,
			Subject:   subject,
			Body:      body,
			Kind:      kind,
			RelatedID: relatedID,
		})
	}

	if s.telegram {
		s.enqueue(ctx, &models.Notification{
			Channel:   models.ChannelTelegram,
			Recipient: strconv.FormatInt(s.staffChatID, 10),
			Subject:   subject,
			Body:      body,
			Kind:      kind,
			RelatedID: relatedID,
		})
	}
	return nil
}

func (s *NotificationSubscriber) enqueue(ctx context.Context, n *models.Notification) {
	if err := s.queue.Enqueue(ctx, n); err != nil {
		s.logger.Error().Err(err).Str("kind", n.Kind).Int64("related_id", n.RelatedID).Msg("Failed to enqueue notification")
	}
}

func kindLabel(kind string) string {
	if kind == models.EntryEventBooking {
		return "event"
	}
	return "booking"
}

func (s *NotificationSubscriber) describeBooking(ctx context.Context, p *events.BookingEventPayload) string {
	var b strings.Builder
	if p.Kind == models.EntryEventBooking {
		fmt.Fprintf(&b, "Event: %s on %s\n", strings.ReplaceAll(p.EventType, "_", " "), models.FormatDate(p.Date))
	} else {
		fmt.Fprintf(&b, "Accommodation: %s\n", p.AccommodationName)
		fmt.Fprintf(&b, "Stay: %s", models.FormatDate(p.Date))
		if p.CheckOut != nil && p.CheckOut.After(p.Date) {
			fmt.Fprintf(&b, " to %s", models.FormatDate(*p.CheckOut))
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "Time slot: %s\n", s.slotLabel(ctx, p))
	}
	fmt.Fprintf(&b, "Guests: %d\n", p.GuestCount)
	fmt.Fprintf(&b, "Total: %.2f\n", p.TotalPrice)
	fmt.Fprintf(&b, "Status: %s", p.Status)
	return b.String()
}

// slotLabel renders the configured hours of the booked slot, falling back to the slot name.
func (s *NotificationSubscriber) slotLabel(ctx context.Context, p *events.BookingEventPayload) string {
	slot := models.TimeSlot(p.TimeSlot)
	acc, err := s.store.GetAccommodation(ctx, p.AccommodationID)
	if err != nil {
		return p.TimeSlot
	}
	setting, err := s.store.GetTimeSlotSetting(ctx, slot, acc.Type)
	if err != nil {
		return p.TimeSlot
	}
	return fmt.Sprintf("%s (%s)", strings.ReplaceAll(p.TimeSlot, "_", " "), setting.Label())
}

package domain

import (
	"context"
	"time"

	"resort/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// OverlapQuery selects bookings that still claim their dates at ActiveAt and
// whose effective interval intersects [Start, End). A zero End means unbounded
// and a zero AccommodationID means every accommodation.
type OverlapQuery struct {
	AccommodationID int64
	Start           time.Time
	End             time.Time
	ExcludeID       int64
	ActiveAt        time.Time
}

type AccommodationRepository interface {
	CreateAccommodation(ctx context.Context, a *models.Accommodation) error
	GetAccommodation(ctx context.Context, id int64) (*models.Accommodation, error)
	ListAccommodations(ctx context.Context) ([]*models.Accommodation, error)
	UpdateAccommodationStatus(ctx context.Context, id int64, status models.AccommodationStatus) error
}

type BookingRepository interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	FindOverlappingBookings(ctx context.Context, q OverlapQuery) ([]*models.Booking, error)
	ListBookingsOnDate(ctx context.Context, date time.Time) ([]*models.Booking, error)
	ListBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	ListExpiredHolds(ctx context.Context, at time.Time) ([]*models.Booking, error)
	UpdateBookingStatus(ctx context.Context, id, version int64, status models.BookingStatus) error
}

type EventBookingRepository interface {
	CreateEventBooking(ctx context.Context, e *models.EventBooking) error
	GetEventBooking(ctx context.Context, id int64) (*models.EventBooking, error)
	ListActiveEventBookings(ctx context.Context, date, at time.Time, excludeID int64) ([]*models.EventBooking, error)
	ListEventBookingsOnDate(ctx context.Context, date time.Time) ([]*models.EventBooking, error)
	ListEventBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.EventBooking, error)
	ListExpiredEventHolds(ctx context.Context, at time.Time) ([]*models.EventBooking, error)
	UpdateEventBookingStatus(ctx context.Context, id, version int64, status models.BookingStatus) error
}

type WalkInRepository interface {
	CreateWalkIn(ctx context.Context, w *models.WalkInLog) error
	GetWalkIn(ctx context.Context, id int64) (*models.WalkInLog, error)
	GetOpenWalkIn(ctx context.Context, accommodationID int64) (*models.WalkInLog, error)
	ListWalkInsByDate(ctx context.Context, date time.Time) ([]*models.WalkInLog, error)
	CloseWalkIn(ctx context.Context, id int64, at time.Time) error
}

type PricingRepository interface {
	GetPrice(ctx context.Context, category, typ string) (float64, error)
	ListPricing(ctx context.Context) ([]*models.PricingSetting, error)
	UpdatePrice(ctx context.Context, id int64, price float64) error
}

type TimeSlotRepository interface {
	ListTimeSlotSettings(ctx context.Context) ([]*models.TimeSlotSetting, error)
	GetTimeSlotSetting(ctx context.Context, slot models.TimeSlot, accType models.AccommodationType) (*models.TimeSlotSetting, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	ListUsersByRole(ctx context.Context, role models.UserRole) ([]*models.User, error)
}

type NotificationRepository interface {
	EnqueueNotification(ctx context.Context, n *models.Notification) error
	GetNotification(ctx context.Context, id int64) (*models.Notification, error)
	GetPendingNotifications(ctx context.Context, limit int, now time.Time) ([]*models.Notification, error)
	UpdateNotificationStatus(ctx context.Context, n *models.Notification) error
}

// Store is every repository backed by one connection or transaction.
type Store interface {
	AccommodationRepository
	BookingRepository
	EventBookingRepository
	WalkInRepository
	PricingRepository
	TimeSlotRepository
	UserRepository
	NotificationRepository
}

// TxStore runs fn inside a write-locking transaction. fn must use the Store it
// is given, never the outer one.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(tx Store) error) error
}

// Clock returns the current instant; injected so tests can pin "today".
type Clock func() time.Time

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error)
}

// Sender delivers one notification over a single channel.
type Sender interface {
	Send(ctx context.Context, n *models.Notification) error
}

type NotificationQueue interface {
	Enqueue(ctx context.Context, n *models.Notification) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type AvailabilityChecker interface {
	CheckRegularBookingAvailability(ctx context.Context, req models.RegularCheck) (*models.AvailabilityResult, error)
	CheckEventBookingAvailability(ctx context.Context, date time.Time, eventType models.EventType) (*models.AvailabilityResult, error)
	GetUnavailableDates(ctx context.Context, accommodationID int64, start, end *time.Time) (*models.UnavailableDates, error)
	GetDateBookingSummary(ctx context.Context, date time.Time) (*models.DateSummary, error)
	CheckEventConflictsForDate(ctx context.Context, date time.Time) (*models.EventConflicts, error)
}

type BookingService interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	Approve(ctx context.Context, id, version int64) (*models.Booking, error)
	Reject(ctx context.Context, id, version int64) (*models.Booking, error)
	Cancel(ctx context.Context, id, version int64) (*models.Booking, error)
	Checkout(ctx context.Context, id, version int64) (*models.Booking, error)
	ListBookingsInRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
}

type EventBookingService interface {
	Create(ctx context.Context, req models.CreateEventBookingRequest) (*models.EventBooking, error)
	Get(ctx context.Context, id int64) (*models.EventBooking, error)
	Approve(ctx context.Context, id, version int64) (*models.EventBooking, error)
	Confirm(ctx context.Context, id, version int64) (*models.EventBooking, error)
	Reject(ctx context.Context, id, version int64) (*models.EventBooking, error)
	Cancel(ctx context.Context, id, version int64) (*models.EventBooking, error)
	Complete(ctx context.Context, id, version int64) (*models.EventBooking, error)
	ListInRange(ctx context.Context, start, end time.Time) ([]*models.EventBooking, error)
}

type WalkInService interface {
	CheckIn(ctx context.Context, req models.WalkInRequest) (*models.WalkInLog, error)
	CheckOut(ctx context.Context, id int64) (*models.WalkInLog, error)
	ListByDate(ctx context.Context, date time.Time) ([]*models.WalkInLog, error)
}

type PricingService interface {
	Lookup(ctx context.Context, category, typ string) (float64, error)
	List(ctx context.Context) ([]*models.PricingSetting, error)
	BulkUpdate(ctx context.Context, updates []models.PriceUpdate) error
}

type AccommodationService interface {
	Create(ctx context.Context, a *models.Accommodation) error
	Get(ctx context.Context, id int64) (*models.Accommodation, error)
	List(ctx context.Context) ([]*models.Accommodation, error)
	TimeSlots(ctx context.Context) ([]*models.TimeSlotSetting, error)
}

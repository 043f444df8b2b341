package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"resort/internal/domain"
	"resort/internal/models"
	"resort/internal/report"

	"github.com/gin-gonic/gin"
)

type createBookingRequest struct {
	UserID          int64  `json:"user_id" binding:"required,gt=0"`
	AccommodationID int64  `json:"accommodation_id" binding:"required,gt=0"`
	CheckInDate     string `json:"check_in_date" binding:"required,ymd"`
	CheckOutDate    string `json:"check_out_date" binding:"omitempty,ymd"`
	TimeSlot        string `json:"time_slot" binding:"required,oneof=morning night whole_day"`
	Adults          int    `json:"adults" binding:"gte=0"`
	Children        int    `json:"children" binding:"gte=0"`
	Notes           string `json:"notes" binding:"max=1000"`
}

type createEventBookingRequest struct {
	UserID      int64  `json:"user_id" binding:"required,gt=0"`
	EventType   string `json:"event_type" binding:"required,oneof=whole_day morning evening"`
	BookingDate string `json:"booking_date" binding:"required,ymd"`
	GuestCount  int    `json:"guest_count" binding:"required,gt=0"`
	Notes       string `json:"notes" binding:"max=1000"`
}

// transitionRequest carries the version the caller last read.
type transitionRequest struct {
	Version int64 `json:"version" binding:"required,gt=0"`
}

type walkInRequest struct {
	ClientName      string `json:"client_name" binding:"required,max=100"`
	AccommodationID int64  `json:"accommodation_id" binding:"required,gt=0"`
	TimeSlot        string `json:"time_slot" binding:"required,oneof=morning night whole_day"`
	CreatedBy       int64  `json:"created_by" binding:"gte=0"`
}

type optionalDateQuery struct {
	Date string `form:"date" binding:"omitempty,ymd"`
}

func (s *HTTPServer) handleCreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	b, err := s.svc.Bookings.CreateBooking(c.Request.Context(), models.CreateBookingRequest{
		UserID:          req.UserID,
		AccommodationID: req.AccommodationID,
		CheckIn:         mustDate(req.CheckInDate),
		CheckOut:        parseDate(req.CheckOutDate),
		TimeSlot:        models.TimeSlot(req.TimeSlot),
		Adults:          req.Adults,
		Children:        req.Children,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (s *HTTPServer) handleGetBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	b, err := s.svc.Bookings.GetBooking(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

func (s *HTTPServer) handleListBookings(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	items, err := s.svc.Bookings.ListBookingsInRange(c.Request.Context(), mustDate(q.StartDate), mustDate(q.EndDate))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": items})
}

type bookingTransition func(ctx context.Context, id, version int64) (*models.Booking, error)

func (s *HTTPServer) handleBookingTransition(fn bookingTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, version, ok := bindTransition(c)
		if !ok {
			return
		}
		b, err := fn(c.Request.Context(), id, version)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

func (s *HTTPServer) handleCreateEventBooking(c *gin.Context) {
	var req createEventBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	e, err := s.svc.EventBookings.Create(c.Request.Context(), models.CreateEventBookingRequest{
		UserID:      req.UserID,
		EventType:   models.EventType(req.EventType),
		BookingDate: mustDate(req.BookingDate),
		GuestCount:  req.GuestCount,
		Notes:       req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, e)
}

func (s *HTTPServer) handleGetEventBooking(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	e, err := s.svc.EventBookings.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *HTTPServer) handleListEventBookings(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	items, err := s.svc.EventBookings.ListInRange(c.Request.Context(), mustDate(q.StartDate), mustDate(q.EndDate))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event_bookings": items})
}

type eventTransition func(ctx context.Context, id, version int64) (*models.EventBooking, error)

func (s *HTTPServer) handleEventTransition(fn eventTransition) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, version, ok := bindTransition(c)
		if !ok {
			return
		}
		e, err := fn(c.Request.Context(), id, version)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, e)
	}
}

func bindTransition(c *gin.Context) (int64, int64, bool) {
	id, ok := pathID(c)
	if !ok {
		return 0, 0, false
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return 0, 0, false
	}
	return id, req.Version, true
}

func (s *HTTPServer) handleWalkInCheckIn(c *gin.Context) {
	var req walkInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	w, err := s.svc.WalkIns.CheckIn(c.Request.Context(), models.WalkInRequest{
		ClientName:      req.ClientName,
		AccommodationID: req.AccommodationID,
		TimeSlot:        models.TimeSlot(req.TimeSlot),
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (s *HTTPServer) handleWalkInCheckOut(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	w, err := s.svc.WalkIns.CheckOut(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (s *HTTPServer) handleListWalkIns(c *gin.Context) {
	var q optionalDateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	var date time.Time
	if d := parseDate(q.Date); d != nil {
		date = *d
	}
	items, err := s.svc.WalkIns.ListByDate(c.Request.Context(), date)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"walk_ins": items})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleBookingReport(c *gin.Context) {
	var q rangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}
	if s.svc.Reports == nil {
		respondError(c, domain.NewNotFoundError("report exporter", nil))
		return
	}

	start, end := mustDate(q.StartDate), mustDate(q.EndDate)
	var buf bytes.Buffer
	if err := s.svc.Reports.Write(c.Request.Context(), &buf, start, end); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.FileName(start, end)))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

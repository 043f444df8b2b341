package api

import (
	"net/http"
	"strconv"

	"resort/internal/domain"
	"resort/internal/models"

	"github.com/gin-gonic/gin"
)

type regularAvailabilityQuery struct {
	AccommodationID  int64  `form:"accommodation_id" binding:"required,gt=0"`
	CheckInDate      string `form:"check_in_date" binding:"required,ymd"`
	CheckOutDate     string `form:"check_out_date" binding:"omitempty,ymd"`
	TimeSlot         string `form:"time_slot" binding:"omitempty,oneof=morning night whole_day"`
	ExcludeBookingID int64  `form:"exclude_booking_id" binding:"gte=0"`
}

type eventAvailabilityQuery struct {
	BookingDate string `form:"booking_date" binding:"required,ymd"`
	EventType   string `form:"event_type" binding:"required,oneof=whole_day morning evening"`
}

type unavailableDatesQuery struct {
	AccommodationID int64  `form:"accommodation_id" binding:"gte=0"`
	StartDate       string `form:"start_date" binding:"omitempty,ymd"`
	EndDate         string `form:"end_date" binding:"omitempty,ymd"`
}

type dateQuery struct {
	Date string `form:"date" binding:"required,ymd"`
}

type rangeQuery struct {
	StartDate string `form:"start_date" binding:"required,ymd"`
	EndDate   string `form:"end_date" binding:"required,ymd"`
}

func (s *HTTPServer) handleRegularAvailability(c *gin.Context) {
	var q regularAvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := s.svc.Availability.CheckRegularBookingAvailability(c.Request.Context(), models.RegularCheck{
		AccommodationID:  q.AccommodationID,
		CheckIn:          mustDate(q.CheckInDate),
		CheckOut:         parseDate(q.CheckOutDate),
		TimeSlot:         models.TimeSlot(q.TimeSlot),
		ExcludeBookingID: q.ExcludeBookingID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) handleEventAvailability(c *gin.Context) {
	var q eventAvailabilityQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := s.svc.Availability.CheckEventBookingAvailability(c.Request.Context(), mustDate(q.BookingDate), models.EventType(q.EventType))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) handleUnavailableDates(c *gin.Context) {
	var q unavailableDatesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := s.svc.Availability.GetUnavailableDates(c.Request.Context(), q.AccommodationID, parseDate(q.StartDate), parseDate(q.EndDate))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) handleDateSummary(c *gin.Context) {
	var q dateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := s.svc.Availability.GetDateBookingSummary(c.Request.Context(), mustDate(q.Date))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) handleEventConflicts(c *gin.Context) {
	var q dateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondBindError(c, err)
		return
	}

	res, err := s.svc.Availability.CheckEventConflictsForDate(c.Request.Context(), mustDate(q.Date))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *HTTPServer) handleListAccommodations(c *gin.Context) {
	items, err := s.svc.Accommodations.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accommodations": items})
}

func (s *HTTPServer) handleGetAccommodation(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	acc, err := s.svc.Accommodations.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, acc)
}

type createAccommodationRequest struct {
	Name             string  `json:"name" binding:"required,max=100"`
	Type             string  `json:"type" binding:"required,oneof=room cottage"`
	Capacity         int     `json:"capacity" binding:"required,gt=0"`
	Price            float64 `json:"price" binding:"gte=0"`
	AddPrice         float64 `json:"add_price" binding:"gte=0"`
	SupportsMorning  bool    `json:"supports_morning"`
	SupportsNight    bool    `json:"supports_night"`
	SupportsWholeDay bool    `json:"supports_whole_day"`
}

func (s *HTTPServer) handleCreateAccommodation(c *gin.Context) {
	var req createAccommodationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	acc := &models.Accommodation{
		Name:             req.Name,
		Type:             models.AccommodationType(req.Type),
		Capacity:         req.Capacity,
		Price:            req.Price,
		AddPrice:         req.AddPrice,
		SupportsMorning:  req.SupportsMorning,
		SupportsNight:    req.SupportsNight,
		SupportsWholeDay: req.SupportsWholeDay,
	}
	if err := s.svc.Accommodations.Create(c.Request.Context(), acc); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, acc)
}

func (s *HTTPServer) handleTimeSlots(c *gin.Context) {
	slots, err := s.svc.Accommodations.TimeSlots(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"time_slots": slots})
}

func (s *HTTPServer) handleListPricing(c *gin.Context) {
	prices, err := s.svc.Pricing.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pricing": prices})
}

type updatePricingRequest struct {
	Updates []models.PriceUpdate `json:"updates" binding:"required,min=1,dive"`
}

func (s *HTTPServer) handleUpdatePricing(c *gin.Context) {
	var req updatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	if err := s.svc.Pricing.BulkUpdate(c.Request.Context(), req.Updates); err != nil {
		respondError(c, err)
		return
	}
	s.handleListPricing(c)
}

type createUserRequest struct {
	Name  string `json:"name" binding:"required,max=100"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"max=30"`
	Role  string `json:"role" binding:"omitempty,oneof=guest staff admin"`
}

func (s *HTTPServer) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	u := &models.User{Name: req.Name, Email: req.Email, Phone: req.Phone, Role: models.UserRole(req.Role)}
	if err := s.svc.Users.CreateUser(c.Request.Context(), u); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *HTTPServer) handleGetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	u, err := s.svc.Users.GetUserByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// pathID parses :id and answers 400 itself when it is malformed.
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, domain.NewValidationError("id", "must be a positive integer"))
		return 0, false
	}
	return id, true
}

// Package api serves the booking engine over HTTP for the resort front end.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"resort/internal/config"
	"resort/internal/domain"
	"resort/internal/report"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Services are the collaborators the handlers call.
type Services struct {
	Availability   domain.AvailabilityChecker
	Bookings       domain.BookingService
	EventBookings  domain.EventBookingService
	WalkIns        domain.WalkInService
	Pricing        domain.PricingService
	Accommodations domain.AccommodationService
	Users          domain.UserRepository
	Reports        *report.Exporter
}

type HTTPServer struct {
	svc    Services
	router *gin.Engine
	server *http.Server
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	registerValidators()

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(logger), corsMiddleware(cfg.CORS))

	s := &HTTPServer{svc: svc, router: router, logger: logger}
	s.routes(NewAuth(cfg))

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return s
}

func corsMiddleware(cfg config.APICORSConfig) gin.HandlerFunc {
	c := cors.DefaultConfig()
	c.AddAllowHeaders("X-API-Key", "X-API-Extra", headerRequestID)
	c.AddExposeHeaders(headerRequestID)
	if len(cfg.AllowedOrigins) == 0 {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}

func (s *HTTPServer) routes(auth *Auth) {
	s.router.GET("/healthz", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	v1.Use(auth.RateLimit())

	read := v1.Group("", auth.Require(PermReadAvailability))
	{
		read.GET("/accommodations", s.handleListAccommodations)
		read.GET("/accommodations/:id", s.handleGetAccommodation)
		read.GET("/time-slots", s.handleTimeSlots)
		read.GET("/pricing", s.handleListPricing)

		read.GET("/availability/regular", s.handleRegularAvailability)
		read.GET("/availability/event", s.handleEventAvailability)
		read.GET("/availability/unavailable-dates", s.handleUnavailableDates)
		read.GET("/availability/summary", s.handleDateSummary)
		read.GET("/availability/event-conflicts", s.handleEventConflicts)
	}

	write := v1.Group("", auth.Require(PermWriteBookings))
	{
		write.POST("/bookings", s.handleCreateBooking)
		write.GET("/bookings/:id", s.handleGetBooking)
		write.POST("/bookings/:id/cancel", s.handleBookingTransition(s.svc.Bookings.Cancel))

		write.POST("/event-bookings", s.handleCreateEventBooking)
		write.GET("/event-bookings/:id", s.handleGetEventBooking)
		write.POST("/event-bookings/:id/cancel", s.handleEventTransition(s.svc.EventBookings.Cancel))
	}

	admin := v1.Group("", auth.Require(PermAdmin))
	{
		admin.POST("/accommodations", s.handleCreateAccommodation)
		admin.PUT("/pricing", s.handleUpdatePricing)
		admin.POST("/users", s.handleCreateUser)
		admin.GET("/users/:id", s.handleGetUser)

		admin.GET("/bookings", s.handleListBookings)
		admin.POST("/bookings/:id/approve", s.handleBookingTransition(s.svc.Bookings.Approve))
		admin.POST("/bookings/:id/reject", s.handleBookingTransition(s.svc.Bookings.Reject))
		admin.POST("/bookings/:id/checkout", s.handleBookingTransition(s.svc.Bookings.Checkout))

		admin.GET("/event-bookings", s.handleListEventBookings)
		admin.POST("/event-bookings/:id/approve", s.handleEventTransition(s.svc.EventBookings.Approve))
		admin.POST("/event-bookings/:id/confirm", s.handleEventTransition(s.svc.EventBookings.Confirm))
		admin.POST("/event-bookings/:id/reject", s.handleEventTransition(s.svc.EventBookings.Reject))
		admin.POST("/event-bookings/:id/complete", s.handleEventTransition(s.svc.EventBookings.Complete))

		admin.POST("/walk-ins", s.handleWalkInCheckIn)
		admin.GET("/walk-ins", s.handleListWalkIns)
		admin.POST("/walk-ins/:id/checkout", s.handleWalkInCheckOut)

		admin.GET("/reports/bookings.xlsx", s.handleBookingReport)
	}
}

// Handler exposes the router for tests and embedding.
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

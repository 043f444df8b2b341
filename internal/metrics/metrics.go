package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "resort"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "availability_checks_total",
			Help:      "Availability checks by kind and outcome.",
		},
		[]string{"kind", "result"},
	)

	bookings = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking lifecycle actions by booking kind.",
		},
		[]string{"kind", "action"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification delivery attempts by channel and status.",
		},
		[]string{"channel", "status"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, availabilityChecks, bookings, notifications)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncAvailabilityCheck(kind string, available bool) {
	result := "conflict"
	if available {
		result = "available"
	}
	availabilityChecks.WithLabelValues(kind, result).Inc()
}

func IncBooking(kind, action string) {
	bookings.WithLabelValues(kind, action).Inc()
}

func IncNotification(channel, status string) {
	notifications.WithLabelValues(channel, status).Inc()
}

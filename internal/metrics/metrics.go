package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	chatMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medbook",
			Name:      "chat_messages_total",
			Help:      "Chat messages handled, by classified intent.",
		},
		[]string{"intent"},
	)

	bookingsCommitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "medbook",
			Name:      "bookings_committed_total",
			Help:      "Bookings written to storage.",
		},
	)

	bookingsCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "medbook",
			Name:      "bookings_cancelled_total",
			Help:      "Drafts cancelled at confirmation.",
		},
	)

	slotConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medbook",
			Name:      "slot_conflicts_total",
			Help:      "Slot conflicts detected, by stage (advisory or commit).",
		},
		[]string{"stage"},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medbook",
			Name:      "notifications_total",
			Help:      "Confirmation emails by result.",
		},
		[]string{"result"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "medbook",
			Name:      "rate_limited_total",
			Help:      "Chat messages rejected by the per-session rate limit.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, chatMessages, bookingsCommitted, bookingsCancelled,
			slotConflicts, notifications, rateLimited)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncChatMessage(intent string) {
	chatMessages.WithLabelValues(intent).Inc()
}

func IncBookingCommitted() {
	bookingsCommitted.Inc()
}

func IncBookingCancelled() {
	bookingsCancelled.Inc()
}

func IncConflict(stage string) {
	slotConflicts.WithLabelValues(stage).Inc()
}

// IncNotification records a confirmation email outcome.
func IncNotification(sent bool) {
	result := "failed"
	if sent {
		result = "sent"
	}
	notifications.WithLabelValues(result).Inc()
}

func IncRateLimited() {
	rateLimited.Inc()
}

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesBooked        = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "rides_booked_total", Help: "Total ride bookings accepted"})
	RidesQueuedOffline = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "rides_queued_offline_total", Help: "Bookings spooled while the store was unreachable"})
	RidesReplayed      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "rides_replayed_total", Help: "Spooled bookings replayed after reconnect"})
	RidesAccepted      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "rides_accepted_total", Help: "Ride requests accepted by a driver"})
	RidesCompleted     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "rides_completed_total", Help: "Rides settled to Completed"})
	RidesCancelled     = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "rides_cancelled_total", Help: "Rides cancelled by riders"})
	RidesExpired       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "rides_expired_total", Help: "Scheduled rides expired unmatched"})
	AcceptConflicts    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "ride_accept_conflicts_total", Help: "Accept attempts that lost the claim race"})
	WaitlistJoins      = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "waitlist_joins_total", Help: "Riders placed on the waitlist"})
	WaitlistMatches    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "campusgo", Name: "waitlist_matches_total", Help: "Waitlisted riders matched to a driver"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "campusgo", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campusgo",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

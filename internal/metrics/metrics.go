package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coworkd",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status.",
		},
		[]string{"endpoint", "status"},
	)

	reservationOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coworkd",
			Name:      "reservation_operations_total",
			Help:      "Reservation mutations by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, reservationOps)
	})
}

// IncHTTP increments the counter for an endpoint/status pair.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

// IncReservationOp increments the counter for a reservation action outcome.
func IncReservationOp(action, outcome string) {
	reservationOps.WithLabelValues(action, outcome).Inc()
}

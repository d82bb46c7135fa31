package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	HTTPRequestDuration  *prometheus.HistogramVec
	ReservationsAdmitted *prometheus.CounterVec
	ReservationsRejected *prometheus.CounterVec
	HoldsExpired         prometheus.Counter
	SlotsMaterialized    *prometheus.CounterVec
	RaceRetries          prometheus.Counter
}

func New(namespace string) *Metrics {
	return &Metrics{
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method, path and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		ReservationsAdmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_admitted_total",
			Help:      "Reservations admitted by the capacity ledger, by initial status.",
		}, []string{"status"}),

		ReservationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_rejected_total",
			Help:      "Reservation attempts rejected, by reason code.",
		}, []string{"reason"}),

		HoldsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "holds_expired_total",
			Help:      "Pending-request holds cancelled by the expiry sweep.",
		}),

		SlotsMaterialized: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_materialized_total",
			Help:      "Slots touched by materialization plans, by action.",
		}, []string{"action"}),

		RaceRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "race_retries_total",
			Help:      "Serialization conflicts retried in slot critical sections.",
		}),
	}
}

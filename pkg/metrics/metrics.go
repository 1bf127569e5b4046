package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "turfbook"

// Admission outcomes.
const (
	OutcomeReserved  = "reserved"
	OutcomeWaived    = "waived"
	OutcomeConflict  = "conflict"
	OutcomeNotFound  = "not_found"
	OutcomeInvalid   = "invalid"
	OutcomeError     = "error"
	OutcomeConfirmed = "confirmed"
	OutcomeReplayed  = "replayed"
	OutcomeFailed    = "payment_failed"
	OutcomeExpired   = "expired"
)

var (
	Admissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "admissions_total",
		Help:      "Reservation attempts by outcome.",
	}, []string{"outcome"})

	Confirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmations_total",
		Help:      "Confirmation calls by outcome.",
	}, []string{"outcome"})

	Cancellations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancellations_total",
		Help:      "Booking cancellations by reason.",
	}, []string{"reason"})

	HoldsReaped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "holds_reaped_total",
		Help:      "Pending holds released after expiry.",
	})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	KafkaMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kafka_messages_total",
		Help:      "Kafka messages by direction, topic and result.",
	}, []string{"direction", "topic", "result"})

	KafkaLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "kafka_operation_duration_seconds",
		Help:      "Kafka publish and handle latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"direction", "topic"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

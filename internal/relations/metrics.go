package relations

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"moodiary/backend/internal/apperr"
)

// Metrics counts engine operations. A nil registerer yields unregistered collectors.
type Metrics struct {
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	auditFailures prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relations_operations_total",
			Help: "Relationship engine operations by outcome.",
		}, []string{"operation", "result"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relations_operation_duration_seconds",
			Help:    "Relationship engine operation latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		auditFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "relations_audit_failures_total",
			Help: "Activity log writes that failed after the primary operation committed.",
		}),
	}
}

// track is deferred with a pointer to the operation's named error result.
func (m *Metrics) track(operation string, start time.Time, errp *error) {
	result := "ok"
	if errp != nil && *errp != nil {
		result = string(apperr.KindOf(*errp))
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

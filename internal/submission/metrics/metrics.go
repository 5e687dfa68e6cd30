package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission module.
// Tracks transitions per operation and outcome, screening hits and effect
// delivery.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
	ScreeningMatches   *prometheus.CounterVec
	EffectsPublished   *prometheus.CounterVec
	PublishFailures    prometheus.Counter
	StatusEntered      *prometheus.CounterVec
}

// New registers the submission metrics with reg. A nil reg builds
// unregistered collectors, which is what tests use.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierflow_transitions_total",
			Help: "Submission operations by operation and result code",
		}, []string{"operation", "result"}),
		TransitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "supplierflow_transition_duration_seconds",
			Help:    "Duration of submission operations including lock wait and persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
		ScreeningMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierflow_screening_matches_total",
			Help: "Duplicate screening matches by classification",
		}, []string{"classification"}),
		EffectsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierflow_effects_published_total",
			Help: "Side-effect requests handed to the publisher, by kind",
		}, []string{"kind"}),
		PublishFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierflow_effect_publish_failures_total",
			Help: "Batches of side-effect requests that could not be published",
		}),
		StatusEntered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "supplierflow_status_entered_total",
			Help: "Submissions that have entered each status since start-up",
		}, []string{"status"}),
	}
}

// ObserveTransition records one operation. Call with time.Now() at the start
// of the operation and the result code ("ok" on success).
func (m *Metrics) ObserveTransition(operation, result string, start time.Time) {
	m.Transitions.WithLabelValues(operation, result).Inc()
	m.TransitionDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementScreeningMatch(classification string) {
	m.ScreeningMatches.WithLabelValues(classification).Inc()
}

func (m *Metrics) IncrementEffectPublished(kind string) {
	m.EffectsPublished.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncrementPublishFailure() {
	m.PublishFailures.Inc()
}

func (m *Metrics) IncrementStatusEntered(status string) {
	m.StatusEntered.WithLabelValues(status).Inc()
}

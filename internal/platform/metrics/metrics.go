// Package metrics holds the HTTP-level Prometheus collectors shared by every
// router.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the request collectors.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
	InFlight        prometheus.Gauge
	Panics          prometheus.Counter
}

// New registers the collectors on reg. A nil reg keeps them unregistered,
// which lets tests build as many instances as they like.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "supplierflow_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern, method and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
		InFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "supplierflow_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
		Panics: factory.NewCounter(prometheus.CounterOpts{
			Name: "supplierflow_http_panics_total",
			Help: "Handler panics recovered by the middleware",
		}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(route, method, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())
}

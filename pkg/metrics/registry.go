// Copyright 2025 Certen Protocol
//
// Prometheus metrics for the trust graph service

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry wraps a Prometheus registry with the service metric set
type Registry struct {
	registry *prometheus.Registry

	// HTTP metrics
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	// Graph metrics
	graphOpsTotal   *prometheus.CounterVec
	certsEnumerated prometheus.Histogram
}

// NewRegistry creates a registry with all service metrics registered
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trustgraph",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method and status",
		}, []string{"method", "status"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "trustgraph",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration by method",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		requestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trustgraph",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "HTTP requests currently being served",
		}),

		graphOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trustgraph",
			Subsystem: "graph",
			Name:      "operations_total",
			Help:      "Graph operations by kind and outcome",
		}, []string{"operation", "outcome"}),

		certsEnumerated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trustgraph",
			Subsystem: "graph",
			Name:      "certificates_enumerated",
			Help:      "Certificates returned per enumeration",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		}),
	}

	r.registry.MustRegister(
		r.requestsTotal,
		r.requestDuration,
		r.requestsInFlight,
		r.graphOpsTotal,
		r.certsEnumerated,
	)

	return r
}

// Handler returns the HTTP handler exposing the metrics
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one served HTTP request
func (r *Registry) ObserveRequest(method, status string, seconds float64) {
	r.requestsTotal.WithLabelValues(method, status).Inc()
	r.requestDuration.WithLabelValues(method).Observe(seconds)
}

// RequestStarted marks a request entering the handler
func (r *Registry) RequestStarted() {
	r.requestsInFlight.Inc()
}

// RequestFinished marks a request leaving the handler
func (r *Registry) RequestFinished() {
	r.requestsInFlight.Dec()
}

// ObserveGraphOp records one graph operation and its outcome
func (r *Registry) ObserveGraphOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.graphOpsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveCertificates records the size of one enumeration result
func (r *Registry) ObserveCertificates(count int) {
	r.certsEnumerated.Observe(float64(count))
}

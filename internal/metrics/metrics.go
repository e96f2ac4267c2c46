// Package metrics exposes Prometheus instruments for search operations, the
// HTTP surface and the notification sweep. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plotsearch"

type Metrics struct {
	registry *prometheus.Registry

	operationDuration *prometheus.HistogramVec
	resultSize        *prometheus.HistogramVec
	sweepEvaluations  *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New builds a registry with Go and process collectors plus the service
// instruments.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	_ = reg.Register(prometheus.NewGoCollector())
	_ = reg.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of search, geo and saved-search operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		resultSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_results",
			Help:      "Number of listings matched per operation.",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
		}, []string{"operation"}),
		sweepEvaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_evaluations_total",
			Help:      "Saved searches evaluated by the notification sweep.",
		}, []string{"outcome"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.operationDuration, m.resultSize, m.sweepEvaluations, m.httpDuration)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveOperation records how long op took and whether it failed.
func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operationDuration.WithLabelValues(op, outcome).Observe(time.Since(start).Seconds())
}

// ObserveResults records the match count of an operation.
func (m *Metrics) ObserveResults(op string, n int) {
	if m == nil {
		return
	}
	m.resultSize.WithLabelValues(op).Observe(float64(n))
}

// SweepEvaluated counts one saved search processed by the sweep.
func (m *Metrics) SweepEvaluated(outcome string) {
	if m == nil {
		return
	}
	m.sweepEvaluations.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records a served request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

package worker

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes per-job run counters on a dedicated registry.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	failuresTotal *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	transitioned  *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// NewMetrics builds and registers the worker metric set.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cets_worker",
			Name:      "runs_total",
			Help:      "Completed scheduled runs per job.",
		}, []string{"job"}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cets_worker",
			Name:      "run_failures_total",
			Help:      "Failed scheduled runs per job.",
		}, []string{"job"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cets_worker",
			Name:      "run_duration_seconds",
			Help:      "Wall time of one scheduled run.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"job"}),
		transitioned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cets_worker",
			Name:      "records_transitioned_total",
			Help:      "Records advanced to a new status per job.",
		}, []string{"job"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cets_worker",
			Name:      "notifications_total",
			Help:      "Notification dispatch outcomes per job.",
		}, []string{"job", "result"}),
	}

	m.registry.MustRegister(m.runsTotal, m.failuresTotal, m.runDuration, m.transitioned, m.notifications)
	return m
}

// ObserveRun records one completed run.
func (m *Metrics) ObserveRun(job string, elapsed time.Duration, err error) {
	m.runsTotal.WithLabelValues(job).Inc()
	m.runDuration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		m.failuresTotal.WithLabelValues(job).Inc()
	}
}

// ObserveBatch records the per-record outcome counts of one batch.
func (m *Metrics) ObserveBatch(job string, transitioned, sent, sendErrors int) {
	m.transitioned.WithLabelValues(job).Add(float64(transitioned))
	m.notifications.WithLabelValues(job, "sent").Add(float64(sent))
	m.notifications.WithLabelValues(job, "error").Add(float64(sendErrors))
}

// ObserveSweep records the notification outcomes of one warning sweep. A
// sweep mutates no records, so the transition counter stays untouched.
func (m *Metrics) ObserveSweep(job string, warned, sendErrors int) {
	m.notifications.WithLabelValues(job, "sent").Add(float64(warned))
	m.notifications.WithLabelValues(job, "error").Add(float64(sendErrors))
}

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rundash/internal/runs"
)

const Namespace = "rundash"

// Document kinds used as the "kind" label.
const (
	KindIndex   = "index"
	KindSummary = "summary"
)

// Metrics holds the collectors for one process. All methods are no-ops on a nil receiver,
// so callers that do not export metrics can pass nil.
type Metrics struct {
	registry *prometheus.Registry

	fetchTotal    *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	batchesTotal  prometheus.Counter
	rows          *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		fetchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_total",
			Help:      "Count of store document fetches by kind and result",
		}, []string{"kind", "result"}),
		fetchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Latency of store document fetches",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		batchesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "batches_total",
			Help:      "Count of fetch batches started",
		}),
		rows: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "rows",
			Help:      "Rows of the current batch by derived status",
		}, []string{"status"}),
	}
}

func (m *Metrics) ObserveFetch(kind string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.fetchTotal.WithLabelValues(kind, result).Inc()
	m.fetchDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) BatchStarted() {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
}

// SetRows publishes the per-status row counts of the current snapshot.
func (m *Metrics) SetRows(counts map[runs.Status]int) {
	if m == nil {
		return
	}
	for _, st := range []runs.Status{runs.StatusPass, runs.StatusFail, runs.StatusError, runs.StatusLoading} {
		m.rows.WithLabelValues(string(st)).Set(float64(counts[st]))
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

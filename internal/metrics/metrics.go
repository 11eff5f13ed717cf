// Package metrics exposes pipeline counters for Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mfenderov/filingflow/pkg/models"
)

// Metrics holds the pipeline collectors.
type Metrics struct {
	runs          *prometheus.CounterVec
	runDuration   prometheus.Histogram
	filings       *prometheus.CounterVec
	providerFetch *prometheus.CounterVec
	lastSuccessTS prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filingflow",
			Name:      "runs_total",
			Help:      "Number of pipeline runs by result status",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "filingflow",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		filings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filingflow",
			Name:      "filings_total",
			Help:      "Number of filing documents by terminal status",
		}, []string{"status"}),
		providerFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filingflow",
			Name:      "provider_requests_total",
			Help:      "Number of provider fetches by status",
		}, []string{"status"}),
		lastSuccessTS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "filingflow",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix timestamp of the last successful run",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.runs, m.runDuration, m.filings, m.providerFetch, m.lastSuccessTS)
	}
	return m
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.runDuration.Observe(d.Seconds())
	if status == "success" {
		m.lastSuccessTS.Set(float64(time.Now().Unix()))
	}
}

// FilingStatus counts one document reaching a terminal status.
func (m *Metrics) FilingStatus(s models.Status) {
	if m == nil {
		return
	}
	m.filings.WithLabelValues(string(s)).Inc()
}

// ProviderFetch counts a provider call.
func (m *Metrics) ProviderFetch(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.providerFetch.WithLabelValues(status).Inc()
}

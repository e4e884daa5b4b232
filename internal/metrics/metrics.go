// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics exposes download activity as Prometheus metrics. A
// *Metrics satisfies the pipeline's Recorder interface.
package metrics

import (
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/paperfetch/pkg/types"
)

const namespace = "paperfetch"

// Metrics holds the collectors for one process.
type Metrics struct {
	outcomes        *prometheus.CounterVec
	attempts        *prometheus.CounterVec
	attemptSeconds  *prometheus.HistogramVec
	durationSeconds *prometheus.HistogramVec
	fileSizeBytes   prometheus.Histogram
	inFlight        prometheus.Gauge
}

// New creates the collectors and registers them with reg. It panics if a
// collector is already registered, as prometheus.MustRegister does.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Identifiers processed, by terminal status and winning provider.",
		}, []string{"status", "provider"}),

		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_attempts_total",
			Help:      "Content fetch attempts per provider, by result.",
		}, []string{"provider", "result"}),

		attemptSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_attempt_duration_seconds",
			Help:      "Time spent in one provider content fetch, including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),

		durationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "identifier_duration_seconds",
			Help:      "Time from start to terminal outcome for one identifier.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"status"}),

		fileSizeBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pdf_size_bytes",
			Help:      "Size of committed PDFs.",
			Buckets:   prometheus.ExponentialBuckets(10240, 4, 8), // 10KB .. ~160MB
		}),

		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "identifiers_in_flight",
			Help:      "Identifiers currently being processed.",
		}),
	}

	reg.MustRegister(
		m.outcomes,
		m.attempts,
		m.attemptSeconds,
		m.durationSeconds,
		m.fileSizeBytes,
		m.inFlight,
	)
	return m
}

// Attempt records one provider content fetch.
func (m *Metrics) Attempt(provider string, ok bool, elapsed time.Duration) {
	result := "fail"
	if ok {
		result = "ok"
	}
	m.attempts.WithLabelValues(provider, result).Inc()
	m.attemptSeconds.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// Outcome records a terminal outcome. Successful downloads also record the
// committed file size.
func (m *Metrics) Outcome(o types.Outcome) {
	m.outcomes.WithLabelValues(string(o.Status), o.Provider).Inc()
	m.durationSeconds.WithLabelValues(string(o.Status)).Observe(o.Duration.Seconds())
	if o.Status == types.StatusSuccess && o.Path != "" {
		if info, err := os.Stat(o.Path); err == nil {
			m.fileSizeBytes.Observe(float64(info.Size()))
		}
	}
}

// InFlight adjusts the in-flight gauge.
func (m *Metrics) InFlight(delta int) {
	m.inFlight.Add(float64(delta))
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

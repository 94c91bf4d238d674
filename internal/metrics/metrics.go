// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus instruments recorded during a scan.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "paper_scanner"

// Call outcomes recorded on LLMCalls.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Finding kinds recorded on Findings.
const (
	FindingsCreated      = "created"
	FindingsUpdated      = "updated"
	FindingsConsolidated = "consolidated"
)

// Metrics holds the scanner's collectors. A nil *Metrics records nothing, so
// components can be built without instrumentation.
type Metrics struct {
	LLMCalls        *prometheus.CounterVec
	LLMRetries      *prometheus.CounterVec
	ChunksProcessed prometheus.Counter
	Findings        *prometheus.CounterVec
	RunDuration     prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		LLMCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Extraction model calls by prompt and final outcome.",
		}, []string{"prompt", "outcome"}),
		LLMRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_retries_total",
			Help:      "Retried extraction model attempts by prompt.",
		}, []string{"prompt"}),
		ChunksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_processed_total",
			Help:      "Chunks that completed the extraction loop.",
		}),
		Findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "findings_total",
			Help:      "Finding mutations committed, by kind (created, updated, consolidated).",
		}, []string{"kind"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of complete scan runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}

	for _, c := range []prometheus.Collector{m.LLMCalls, m.LLMRetries, m.ChunksProcessed, m.Findings, m.RunDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveCall records the final outcome of one extraction call.
func (m *Metrics) ObserveCall(prompt, outcome string) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(prompt, outcome).Inc()
}

// ObserveRetry records one retried attempt.
func (m *Metrics) ObserveRetry(prompt string) {
	if m == nil {
		return
	}
	m.LLMRetries.WithLabelValues(prompt).Inc()
}

// ObserveChunk records a processed chunk.
func (m *Metrics) ObserveChunk() {
	if m == nil {
		return
	}
	m.ChunksProcessed.Inc()
}

// ObserveFindings adds n finding mutations of the given kind.
func (m *Metrics) ObserveFindings(kind string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Findings.WithLabelValues(kind).Add(float64(n))
}

// ObserveRun records a run's duration in seconds.
func (m *Metrics) ObserveRun(seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(seconds)
}

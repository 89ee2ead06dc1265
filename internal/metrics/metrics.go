// Package metrics exposes Prometheus counters for the analysis pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "echo"

// Metrics holds all Prometheus metrics for the service. Each instance
// carries its own registry so Handler serves exactly these collectors.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration prometheus.Histogram
	StageErrors     *prometheus.CounterVec
	Tokens          *prometheus.CounterVec
}

// New creates and registers all pipeline metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of analysis requests by outcome",
		}, []string{"outcome"}),
		RequestDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "End-to-end duration of analysis requests in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		StageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Total number of pipeline stage failures",
		}, []string{"stage"}),
		Tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total model tokens consumed by stage and direction",
		}, []string{"stage", "direction"}),
	}
}

// Handler serves the registered metrics in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordRequest records a completed request and its duration.
func (m *Metrics) RecordRequest(outcome string, seconds float64) {
	m.RequestsTotal.WithLabelValues(outcome).Inc()
	m.RequestDuration.Observe(seconds)
}

// RecordStageError records a failure in the named pipeline stage.
func (m *Metrics) RecordStageError(stage string) {
	m.StageErrors.WithLabelValues(stage).Inc()
}

// RecordTokens records model token usage for the named stage.
func (m *Metrics) RecordTokens(stage string, input, output int) {
	m.Tokens.WithLabelValues(stage, "input").Add(float64(input))
	m.Tokens.WithLabelValues(stage, "output").Add(float64(output))
}

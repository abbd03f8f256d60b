package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "meraki_mcp"

// Metrics exposes execution statistics to Prometheus
type Metrics struct {
	registry *prometheus.Registry

	executions *prometheus.CounterVec
	attempts   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cacheHits  prometheus.Counter
}

// NewMetrics creates the execution metrics on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "executions_total",
				Help:      "Total number of operation executions by outcome",
			},
			[]string{"operation", "outcome"},
		),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "execution_attempts_total",
				Help:      "Total number of outbound attempts, retries included",
			},
			[]string{"operation"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "execution_duration_seconds",
				Help:      "Duration of operation executions in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 90},
			},
			[]string{"operation"},
		),
		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of executions served from the response cache",
			},
		),
	}

	m.registry.MustRegister(m.executions, m.attempts, m.duration, m.cacheHits)
	return m
}

// Observe records one finished execution
func (m *Metrics) Observe(e Execution) {
	m.executions.WithLabelValues(e.OperationID, e.Outcome()).Inc()
	m.duration.WithLabelValues(e.OperationID).Observe(e.Duration.Seconds())
	if e.FromCache {
		m.cacheHits.Inc()
		return
	}
	if e.Attempts > 0 {
		m.attempts.WithLabelValues(e.OperationID).Add(float64(e.Attempts))
	}
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

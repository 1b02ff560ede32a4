package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "statepath"

// Metrics holds the collectors. Safe for concurrent use.
type Metrics struct {
	gatherer prometheus.Gatherer

	resolves    *prometheus.CounterVec
	evaluations *prometheus.CounterVec
	duration    prometheus.Histogram
}

// Option configures Metrics.
type Option func(*config)

type config struct {
	registerer prometheus.Registerer
	gatherer   prometheus.Gatherer
}

// WithRegistry registers the collectors on reg instead of a private
// registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *config) {
		c.registerer, c.gatherer = reg, reg
	}
}

// NewMetrics creates and registers the collectors.
func NewMetrics(opts ...Option) (*Metrics, error) {
	reg := prometheus.NewRegistry()
	cfg := &config{registerer: reg, gatherer: reg}
	for _, opt := range opts {
		opt(cfg)
	}

	m := &Metrics{
		gatherer: cfg.gatherer,
		resolves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "resolve_total",
				Help:      "Path reads, writes and removals by resolver and outcome.",
			},
			[]string{"op", "resolver", "result"},
		),
		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Expression evaluations by outcome.",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Time spent parsing and evaluating expressions.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 8),
			},
		),
	}

	for _, c := range []prometheus.Collector{m.resolves, m.evaluations, m.duration} {
		if err := cfg.registerer.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveResolve counts one dispatch of op ("get", "set" or "remove") to
// the named resolver.
func (m *Metrics) ObserveResolve(op, resolver string, err error) {
	m.resolves.WithLabelValues(op, resolver, result(err)).Inc()
}

// ObserveEvaluation records one expression evaluation.
func (m *Metrics) ObserveEvaluation(d time.Duration, err error) {
	m.evaluations.WithLabelValues(result(err)).Inc()
	m.duration.Observe(d.Seconds())
}

// Gatherer returns the registry the collectors were registered on.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.gatherer
}

// Handler serves the collected metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

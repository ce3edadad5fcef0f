// Package metrics exports optimizer activity as Prometheus metrics.
package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/yashagw/selopt/internal/optimizer"
)

const namespace = "selopt"

var _ optimizer.Recorder = (*Metrics)(nil)

// Metrics collects optimizer statistics on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	queries  *prometheus.CounterVec
	splits   *prometheus.CounterVec
	subsets  prometheus.Counter
	planCost prometheus.Histogram
	duration prometheus.Histogram
}

// New creates and registers the optimizer metrics.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "queries_total",
			Help:      "Queries handed to the optimizer, by outcome.",
		}, []string{"outcome"}),
		splits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "splits_total",
			Help:      "Candidate left && right splits, by what happened to them.",
		}, []string{"result"}),
		subsets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subsets_total",
			Help:      "Subset plans created in search spaces.",
		}),
		planCost: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "plan_cost",
			Help:      "Expected per-row cost of chosen plans.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "optimize_duration_seconds",
			Help:      "Time spent optimizing one query.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
	}
	m.registry.MustRegister(m.queries, m.splits, m.subsets, m.planCost, m.duration)
	return m
}

// Registry returns the registry holding the metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a successful optimization.
func (m *Metrics) ObserveRun(stats optimizer.Stats, cost float64) {
	m.queries.WithLabelValues("optimized").Inc()
	m.subsets.Add(float64(stats.Subsets))
	m.splits.WithLabelValues("costed").Add(float64(stats.Splits - stats.Pruned()))
	m.splits.WithLabelValues("pruned_c").Add(float64(stats.PrunedC))
	m.splits.WithLabelValues("pruned_d").Add(float64(stats.PrunedD))
	m.splits.WithLabelValues("replaced").Add(float64(stats.Replaced))
	m.planCost.Observe(cost)
	m.duration.Observe(stats.Elapsed.Seconds())
}

// ObserveRejected records a query that failed validation.
func (m *Metrics) ObserveRejected() {
	m.queries.WithLabelValues("rejected").Inc()
}

// WriteTextfile writes the current metrics in the text exposition format,
// for collection by the node exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "writing metrics to %s", path)
	}
	return nil
}

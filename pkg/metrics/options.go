package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Defaults for the rigmatch collectors. Latencies are recorded in
// milliseconds, so the buckets are too.
const (
	defaultNamespace = "rigmatch"
	defaultSubsystem = "recommender"
)

var (
	defaultLatencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500}      //nolint:gochecknoglobals // read-only defaults
	defaultRebuildBuckets = []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000} //nolint:gochecknoglobals // read-only defaults
)

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace replaces the "rigmatch" metric namespace.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem replaces the "recommender" metric subsystem.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHistogramBuckets sets the millisecond buckets of the query and HTTP
// latency histograms.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.histogramBuckets = buckets
		}
	}
}

// WithRebuildBuckets sets the millisecond buckets of the catalog rebuild
// duration histogram.
func WithRebuildBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.rebuildBuckets = buckets
		}
	}
}

// WithCustomLabels adds constant labels, such as an instance name, to all metrics.
func WithCustomLabels(labels map[string]string) Option {
	return func(m *Manager) {
		if labels != nil {
			m.customLabels = labels
		}
	}
}

// WithPrometheusRegistry sets a custom Prometheus registry.
func WithPrometheusRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

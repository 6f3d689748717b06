package observability

import (
	"errors"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusFactory is a MetricFactory backed by a Prometheus registry.
// Dotted metric names become underscored, so "tally.transfer.completed"
// is exported as tally_transfer_completed_total.
type PrometheusFactory struct {
	registry *prometheus.Registry
}

var _ MetricFactory = (*PrometheusFactory)(nil)

// NewPrometheusFactory returns a factory registering into reg. A nil
// registry gets a fresh one.
func NewPrometheusFactory(reg *prometheus.Registry) *PrometheusFactory {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &PrometheusFactory{registry: reg}
}

// Registry returns the underlying registry.
func (f *PrometheusFactory) Registry() *prometheus.Registry { return f.registry }

// Handler exposes the registry in the Prometheus text format.
func (f *PrometheusFactory) Handler() http.Handler {
	return promhttp.HandlerFor(f.registry, promhttp.HandlerOpts{})
}

// Counter implements MetricFactory. Asking twice for the same name returns
// the collector registered first.
func (f *PrometheusFactory) Counter(name string) Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricName(name) + "_total",
		Help: "Count of " + name + " events.",
	})
	if err := f.registry.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

// Histogram implements MetricFactory.
func (f *PrometheusFactory) Histogram(name string) Histogram {
	h := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    metricName(name),
		Help:    "Distribution of " + name + ".",
		Buckets: prometheus.ExponentialBuckets(1, 10, 12),
	})
	if err := f.registry.Register(h); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing
			}
		}
		panic(err)
	}
	return h
}

func metricName(name string) string {
	return strings.NewReplacer(".", "_", "-", "_").Replace(name)
}

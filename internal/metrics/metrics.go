// Package metrics collects per-run crawl counters in a private Prometheus
// registry, optionally exported in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/henrybloomingdale/pubcrawl/internal/article"
)

const namespace = "pubcrawl"

// ResultSuccess is the outcome label for fetched records.
const ResultSuccess = "success"

// Run holds the collectors for one crawl.
type Run struct {
	Registry *prometheus.Registry

	outcomes     *prometheus.CounterVec
	linkTagged   prometheus.Counter
	fetchSeconds prometheus.Histogram
}

// NewRun registers a fresh set of collectors.
func NewRun() *Run {
	r := &Run{
		Registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outcomes_total",
				Help:      "Identifiers processed, by result.",
			},
			[]string{"result"},
		),
		linkTagged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "link_tagged_total",
				Help:      "Records emitted as link-tagged documents.",
			},
		),
		fetchSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fetch_duration_seconds",
				Help:      "Time spent fetching one identifier, including rate limiting.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
			},
		),
	}
	r.Registry.MustRegister(r.outcomes, r.linkTagged, r.fetchSeconds)

	// Pre-create every label so zero counts are exported.
	r.outcomes.WithLabelValues(ResultSuccess)
	for _, k := range article.FailureKinds {
		r.outcomes.WithLabelValues(string(k))
	}
	return r
}

// ObserveOutcome counts o under its result label.
func (r *Run) ObserveOutcome(o article.Outcome) {
	r.outcomes.WithLabelValues(resultLabel(o)).Inc()
}

// ObserveFetch records how long one fetch took.
func (r *Run) ObserveFetch(d time.Duration) {
	r.fetchSeconds.Observe(d.Seconds())
}

// ObserveLinkTagged counts one link-tagged record.
func (r *Run) ObserveLinkTagged() {
	r.linkTagged.Inc()
}

// WriteFile exports the registry to path in the textfile format.
func (r *Run) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.Registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}

func resultLabel(o article.Outcome) string {
	if o.OK() {
		return ResultSuccess
	}
	if o.Failure == nil {
		return string(article.FailureLookup)
	}
	return string(o.Failure.Kind)
}

// Package metrics exposes Prometheus instrumentation for the batch
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Set bundles the pipeline's Prometheus collectors.
type Set struct {
	Decisions       *prometheus.CounterVec
	PricingFailures prometheus.Counter
	SeriesProcessed prometheus.Counter
	SeriesFailed    prometheus.Counter
	PipelineSeconds prometheus.Histogram
}

// New registers the collectors on the given registerer. Pass
// prometheus.DefaultRegisterer in production; tests use a private registry
// to avoid duplicate registration.
func New(reg prometheus.Registerer) *Set {
	factory := promauto.With(reg)
	return &Set{
		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "optionedge_decisions_total",
			Help: "Decisions emitted, by action.",
		}, []string{"action"}),
		PricingFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "optionedge_pricing_failures_total",
			Help: "Pricing requests rejected by numerical guards.",
		}),
		SeriesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "optionedge_series_processed_total",
			Help: "Price series fully processed.",
		}),
		SeriesFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "optionedge_series_failed_total",
			Help: "Price series aborted by data errors.",
		}),
		PipelineSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "optionedge_pipeline_duration_seconds",
			Help:    "Wall time of one series through the full pipeline.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

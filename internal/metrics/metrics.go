// Package metrics exposes Prometheus metrics for schedule generation, the HTTP
// API and event delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// GenerationsTotal counts generation runs by outcome (ok, error).
var GenerationsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rps",
	Subsystem: "schedule",
	Name:      "generations_total",
	Help:      "Schedule generation runs by outcome",
}, []string{"outcome"})

var GenerationDurationSeconds = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "rps",
	Subsystem: "schedule",
	Name:      "generation_duration_seconds",
	Help:      "Time taken to load inputs, match and persist one schedule",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
})

// LastPairs is the number of pairs in the most recent generated schedule.
var LastPairs = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "rps",
	Subsystem: "schedule",
	Name:      "last_pairs",
	Help:      "Pairs produced by the most recent generation",
})

var LastUnpaired = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "rps",
	Subsystem: "schedule",
	Name:      "last_unpaired",
	Help:      "Unpaired agents (bye included) in the most recent generation",
})

var LastEligibleEdges = factory.NewGauge(prometheus.GaugeOpts{
	Namespace: "rps",
	Subsystem: "schedule",
	Name:      "last_eligible_edges",
	Help:      "Eligible pairs in the graph of the most recent generation",
})

var ManualSetsTotal = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "rps",
	Subsystem: "schedule",
	Name:      "manual_sets_total",
	Help:      "Schedules stored through a manual edit",
})

// HTTPRequestsTotal counts API requests by method, route and status.
var HTTPRequestsTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rps",
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by method, route and status code",
}, []string{"method", "route", "status"})

var HTTPRequestDurationSeconds = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "rps",
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency",
	Buckets:   prometheus.DefBuckets,
}, []string{"method", "route"})

// DeliveriesTotal counts event deliveries by sink kind and outcome.
var DeliveriesTotal = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "rps",
	Subsystem: "notify",
	Name:      "deliveries_total",
	Help:      "Event deliveries by sink and outcome",
}, []string{"sink", "outcome"})

// ObserveGeneration records one successful generation.
func ObserveGeneration(seconds float64, pairs, unpaired, edges int) {
	GenerationsTotal.WithLabelValues("ok").Inc()
	GenerationDurationSeconds.Observe(seconds)
	LastPairs.Set(float64(pairs))
	LastUnpaired.Set(float64(unpaired))
	LastEligibleEdges.Set(float64(edges))
}

// GenerationFailed records one failed generation.
func GenerationFailed(seconds float64) {
	GenerationsTotal.WithLabelValues("error").Inc()
	GenerationDurationSeconds.Observe(seconds)
}

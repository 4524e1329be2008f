// Package metrics defines the Prometheus collectors for the search and
// synchronization pipeline and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aman-CERP/mdsearch/internal/index"
	"github.com/Aman-CERP/mdsearch/internal/search"
)

const namespace = "mdsearch"

// Metrics holds all Prometheus collectors. It implements index.Observer and
// search.Observer.
type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal       *prometheus.CounterVec
	QueryLatency       *prometheus.HistogramVec
	ResultsCount       prometheus.Histogram
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	DocsIndexedTotal   prometheus.Counter
	DocsRemovedTotal   prometheus.Counter
	ExtractionFailures prometheus.Counter
	QueueDepthGauge    prometheus.Gauge
	QueueOverflows     prometheus.Counter
	RebuildsTotal      *prometheus.CounterVec
	RebuildDuration    prometheus.Histogram
	IndexGeneration    prometheus.Gauge
	DocumentCount      prometheus.Gauge
}

var (
	_ index.Observer  = (*Metrics)(nil)
	_ search.Observer = (*Metrics)(nil)
)

// New creates the collectors and registers them, with the Go and process
// collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		QueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_queries_total",
				Help:      "Total search queries by result type (ok, zero_result, error, cancelled).",
			},
			[]string{"result_type"},
		),
		QueryLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "Search query latency in seconds.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"result_type"},
		),
		ResultsCount: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_results_count",
				Help:      "Number of results returned per search query.",
				Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
			},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of result cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of result cache misses.",
			},
		),
		DocsIndexedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "docs_indexed_total",
				Help:      "Total documents indexed incrementally.",
			},
		),
		DocsRemovedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "docs_removed_total",
				Help:      "Total documents removed incrementally.",
			},
		),
		ExtractionFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "extraction_failures_total",
				Help:      "Total documents skipped because their content could not be extracted.",
			},
		),
		QueueDepthGauge: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "queue_depth",
				Help:      "Events waiting to be applied.",
			},
		),
		QueueOverflows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_overflows_total",
				Help:      "Times events were lost and a rebuild was scheduled.",
			},
		),
		RebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rebuilds_total",
				Help:      "Total full rebuilds by status.",
			},
			[]string{"status"},
		),
		RebuildDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rebuild_duration_seconds",
				Help:      "Full rebuild duration in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		IndexGeneration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "index_generation",
				Help:      "Generation of the published index.",
			},
		),
		DocumentCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "document_count",
				Help:      "Documents in the published index.",
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.QueriesTotal,
		m.QueryLatency,
		m.ResultsCount,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DocsIndexedTotal,
		m.DocsRemovedTotal,
		m.ExtractionFailures,
		m.QueueDepthGauge,
		m.QueueOverflows,
		m.RebuildsTotal,
		m.RebuildDuration,
		m.IndexGeneration,
		m.DocumentCount,
	)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus scrape HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// QueryServed implements search.Observer.
func (m *Metrics) QueryServed(result string, d time.Duration, results int) {
	m.QueriesTotal.WithLabelValues(result).Inc()
	m.QueryLatency.WithLabelValues(result).Observe(d.Seconds())
	if result == search.ResultOK || result == search.ResultZero {
		m.ResultsCount.Observe(float64(results))
	}
}

// CacheHit implements search.Observer.
func (m *Metrics) CacheHit() { m.CacheHitsTotal.Inc() }

// CacheMiss implements search.Observer.
func (m *Metrics) CacheMiss() { m.CacheMissesTotal.Inc() }

// DocumentIndexed implements index.Observer.
func (m *Metrics) DocumentIndexed() { m.DocsIndexedTotal.Inc() }

// DocumentRemoved implements index.Observer.
func (m *Metrics) DocumentRemoved() { m.DocsRemovedTotal.Inc() }

// ExtractionFailed implements index.Observer.
func (m *Metrics) ExtractionFailed() { m.ExtractionFailures.Inc() }

// QueueDepth implements index.Observer.
func (m *Metrics) QueueDepth(n int) { m.QueueDepthGauge.Set(float64(n)) }

// QueueOverflow implements index.Observer.
func (m *Metrics) QueueOverflow() { m.QueueOverflows.Inc() }

// RebuildFinished implements index.Observer.
func (m *Metrics) RebuildFinished(status string, d time.Duration) {
	m.RebuildsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.RebuildDuration.Observe(d.Seconds())
	}
}

// IndexState implements index.Observer.
func (m *Metrics) IndexState(generation uint64, documents int) {
	m.IndexGeneration.Set(float64(generation))
	m.DocumentCount.Set(float64(documents))
}

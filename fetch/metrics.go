package fetch

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for fetches and item outcomes.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ErrorsTotal     *prometheus.CounterVec
	CacheHitsTotal  prometheus.Counter
	ItemsTotal      *prometheus.CounterVec
	CheckpointTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_fetch_requests_total",
			Help: "Total page fetches issued, by fetcher and phase.",
		},
		[]string{"fetcher", "phase"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "enricher_fetch_duration_seconds",
			Help:    "Page fetch latency by fetcher.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"fetcher"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_fetch_errors_total",
			Help: "Total fetch errors by fetcher and kind.",
		},
		[]string{"fetcher", "error_type"},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "enricher_fetch_cache_hits_total",
			Help: "Fetches served from the page cache.",
		},
	)
	items := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_items_total",
			Help: "Catalog items by enrichment outcome.",
		},
		[]string{"outcome"},
	)
	checkpoints := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "enricher_checkpoints_total",
			Help: "Checkpoint sync attempts by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(requests, requestDuration, errorsTotal, cacheHits, items, checkpoints)

	return &Metrics{
		Registry:        registry,
		RequestsTotal:   requests,
		RequestDuration: requestDuration,
		ErrorsTotal:     errorsTotal,
		CacheHitsTotal:  cacheHits,
		ItemsTotal:      items,
		CheckpointTotal: checkpoints,
	}
}

// IncRequest increments the requests counter.
func (m *Metrics) IncRequest(fetcher, phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(fetcher, phase).Inc()
}

// ObserveDuration records a fetch duration.
func (m *Metrics) ObserveDuration(fetcher string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(fetcher).Observe(d.Seconds())
}

// IncError increments the errors counter for a kind label.
func (m *Metrics) IncError(fetcher, errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(fetcher, errorType).Inc()
}

// IncCacheHit counts a fetch answered from cache.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// IncItem counts an item outcome: completed, error or skipped.
func (m *Metrics) IncItem(outcome string) {
	if m == nil {
		return
	}
	m.ItemsTotal.WithLabelValues(outcome).Inc()
}

// IncCheckpoint counts a checkpoint sync by result: ok or failed.
func (m *Metrics) IncCheckpoint(result string) {
	if m == nil {
		return
	}
	m.CheckpointTotal.WithLabelValues(result).Inc()
}

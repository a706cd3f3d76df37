package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics contains Prometheus metrics for the indexed-table cache.
type CacheMetrics struct {
	lookupsTotal       *prometheus.CounterVec
	invalidationsTotal *prometheus.CounterVec
	entries            prometheus.Gauge
}

// NewCacheMetrics creates and registers new cache metrics.
func NewCacheMetrics(registry *prometheus.Registry) (*CacheMetrics, error) {
	m := &CacheMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *CacheMetrics) initMetrics() {
	m.lookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelgrid_cache_lookups_total",
			Help: "Total number of cache lookups by cache and result",
		},
		[]string{"cache", "result"}, // cache: tables, thumbnails; result: hit, miss
	)

	m.invalidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelgrid_cache_invalidations_total",
			Help: "Total number of cache invalidations by reason",
		},
		[]string{"reason"}, // reason: watch, manual, flush
	)

	m.entries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "labelgrid_cache_entries",
			Help: "Number of indexed snapshots currently cached",
		},
	)
}

func (m *CacheMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.lookupsTotal,
		m.invalidationsTotal,
		m.entries,
	}
}

// Describe implements the Collector interface
func (m *CacheMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *CacheMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordLookup records a cache hit or miss.
func (m *CacheMetrics) RecordLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	result := ResultMiss
	if hit {
		result = ResultHit
	}
	m.lookupsTotal.WithLabelValues(cache, result).Inc()
}

// RecordInvalidation records dropped entries.
func (m *CacheMetrics) RecordInvalidation(reason string) {
	if m == nil {
		return
	}
	m.invalidationsTotal.WithLabelValues(reason).Inc()
}

// SetEntries sets the number of cached snapshots.
func (m *CacheMetrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.entries.Set(float64(n))
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DatasetMetrics contains Prometheus metrics for dataset indexing and paging.
type DatasetMetrics struct {
	indexScansTotal    *prometheus.CounterVec
	indexScanDuration  *prometheus.HistogramVec
	itemsIndexed       *prometheus.GaugeVec
	labelsIndexed      *prometheus.GaugeVec
	pageSelectionTotal *prometheus.CounterVec
}

// NewDatasetMetrics creates and registers new dataset metrics.
func NewDatasetMetrics(registry *prometheus.Registry) (*DatasetMetrics, error) {
	m := &DatasetMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *DatasetMetrics) initMetrics() {
	m.indexScansTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelgrid_index_scans_total",
			Help: "Total number of dataset directory scans",
		},
		[]string{"version", "status"}, // version: full, tiny; status: success, error
	)

	m.indexScanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "labelgrid_index_scan_duration_seconds",
			Help:    "Time taken to scan a dataset root",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"version"},
	)

	m.itemsIndexed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labelgrid_items_indexed",
			Help: "Number of items in the most recent item table",
		},
		[]string{"version"},
	)

	m.labelsIndexed = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "labelgrid_labels_indexed",
			Help: "Number of labels in the most recent label table",
		},
		[]string{"version", "labelspace"},
	)

	m.pageSelectionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "labelgrid_page_selections_total",
			Help: "Total number of label page selections",
		},
		[]string{"version", "status"},
	)
}

func (m *DatasetMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.indexScansTotal,
		m.indexScanDuration,
		m.itemsIndexed,
		m.labelsIndexed,
		m.pageSelectionTotal,
	}
}

// Describe implements the Collector interface
func (m *DatasetMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *DatasetMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// RecordIndexScan records a finished scan. Table sizes are only updated on success.
func (m *DatasetMetrics) RecordIndexScan(version, labelspace string, seconds float64, items, labels int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.indexScansTotal.WithLabelValues(version, StatusError).Inc()
		return
	}
	m.indexScansTotal.WithLabelValues(version, StatusSuccess).Inc()
	m.indexScanDuration.WithLabelValues(version).Observe(seconds)
	m.itemsIndexed.WithLabelValues(version).Set(float64(items))
	m.labelsIndexed.WithLabelValues(version, labelspace).Set(float64(labels))
}

// RecordPageSelection records a page lookup.
func (m *DatasetMetrics) RecordPageSelection(version string, err error) {
	if m == nil {
		return
	}
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.pageSelectionTotal.WithLabelValues(version, status).Inc()
}

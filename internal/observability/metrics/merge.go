package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MergeMetrics contains Prometheus metrics for dataset merge runs
type MergeMetrics struct {
	registry *prometheus.Registry

	// Per split counters
	imagesCopiedTotal  *prometheus.CounterVec
	labelFilesTotal    *prometheus.CounterVec
	boxesEmittedTotal  *prometheus.CounterVec
	fallbackLinesTotal *prometheus.CounterVec

	// Run level metrics
	datasetsSkippedTotal *prometheus.CounterVec
	classBoxes           *prometheus.GaugeVec
	runsTotal            *prometheus.CounterVec
	runDurationSeconds   prometheus.Histogram
}

// NewMergeMetrics creates and registers new merge metrics
func NewMergeMetrics(registry *prometheus.Registry) (*MergeMetrics, error) {
	m := &MergeMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *MergeMetrics) initMetrics() {
	m.imagesCopiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamerge_images_copied_total",
			Help: "Total number of images copied (or counted in preview) per dataset and split",
		},
		[]string{"dataset", "split"},
	)

	m.labelFilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamerge_label_files_total",
			Help: "Total number of label files remapped per dataset and split",
		},
		[]string{"dataset", "split"},
	)

	m.boxesEmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamerge_boxes_emitted_total",
			Help: "Total number of annotation lines emitted per dataset and split",
		},
		[]string{"dataset", "split"},
	)

	m.fallbackLinesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamerge_fallback_lines_total",
			Help: "Total number of malformed annotation lines emitted through the fallback path",
		},
		[]string{"dataset", "split"},
	)

	m.datasetsSkippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamerge_datasets_skipped_total",
			Help: "Total number of resolved datasets skipped during a run",
		},
		[]string{"reason"},
	)

	m.classBoxes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "datamerge_class_boxes",
			Help: "Boxes per unified class in the last completed run",
		},
		[]string{"class"},
	)

	m.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datamerge_runs_total",
			Help: "Total number of merge runs by outcome",
		},
		[]string{"status"}, // status: success, failed, cancelled
	)

	m.runDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "datamerge_run_duration_seconds",
		Help:    "Time taken by a merge run",
		Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount15), // 10ms to ~5min
	})
}

// Describe implements the Collector interface
func (m *MergeMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.imagesCopiedTotal.Describe(ch)
	m.labelFilesTotal.Describe(ch)
	m.boxesEmittedTotal.Describe(ch)
	m.fallbackLinesTotal.Describe(ch)
	m.datasetsSkippedTotal.Describe(ch)
	m.classBoxes.Describe(ch)
	m.runsTotal.Describe(ch)
	m.runDurationSeconds.Describe(ch)
}

// Collect implements the Collector interface
func (m *MergeMetrics) Collect(ch chan<- prometheus.Metric) {
	m.imagesCopiedTotal.Collect(ch)
	m.labelFilesTotal.Collect(ch)
	m.boxesEmittedTotal.Collect(ch)
	m.fallbackLinesTotal.Collect(ch)
	m.datasetsSkippedTotal.Collect(ch)
	m.classBoxes.Collect(ch)
	m.runsTotal.Collect(ch)
	m.runDurationSeconds.Collect(ch)
}

// RecordSplit records the counters of one merged split
func (m *MergeMetrics) RecordSplit(dataset, split string, images, labelFiles, boxes, fallbacks int) {
	m.imagesCopiedTotal.WithLabelValues(dataset, split).Add(float64(images))
	m.labelFilesTotal.WithLabelValues(dataset, split).Add(float64(labelFiles))
	m.boxesEmittedTotal.WithLabelValues(dataset, split).Add(float64(boxes))
	m.fallbackLinesTotal.WithLabelValues(dataset, split).Add(float64(fallbacks))
}

// RecordSkippedDataset records a dataset excluded from a run
func (m *MergeMetrics) RecordSkippedDataset(reason string) {
	m.datasetsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordClassBoxes sets the box total of one class
func (m *MergeMetrics) RecordClassBoxes(class string, boxes int) {
	m.classBoxes.WithLabelValues(class).Set(float64(boxes))
}

// RecordRun records the outcome and duration of a run
func (m *MergeMetrics) RecordRun(status string, duration time.Duration) {
	m.runsTotal.WithLabelValues(status).Inc()
	m.runDurationSeconds.Observe(duration.Seconds())
}

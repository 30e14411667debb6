package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewMergeMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordSplit("credit-cards.yolov11", "train", 10, 9, 12, 1)
	m.RecordSplit("credit-cards.yolov11", "train", 2, 2, 2, 0)
	m.RecordSplit("passport.yolov11", "valid", 3, 3, 3, 0)
	m.RecordSkippedDataset("unmapped")
	m.RecordClassBoxes("credit_card", 14)
	m.RecordClassBoxes("credit_card", 15)
	m.RecordRun("success", 1500*time.Millisecond)

	assert.InDelta(t, 12, testutil.ToFloat64(m.imagesCopiedTotal.WithLabelValues("credit-cards.yolov11", "train")), 0)
	assert.InDelta(t, 14, testutil.ToFloat64(m.boxesEmittedTotal.WithLabelValues("credit-cards.yolov11", "train")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.fallbackLinesTotal.WithLabelValues("credit-cards.yolov11", "train")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.labelFilesTotal.WithLabelValues("passport.yolov11", "valid")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.datasetsSkippedTotal.WithLabelValues("unmapped")), 0)
	assert.InDelta(t, 15, testutil.ToFloat64(m.classBoxes.WithLabelValues("credit_card")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.runsTotal.WithLabelValues("success")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.runDurationSeconds))
}

func TestExportMetrics(t *testing.T) {
	t.Parallel()

	m, err := NewExportMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	var r Recorder = m
	r.RecordOperation(OpConvert, StatusSuccess)
	r.RecordOperation(OpFinalize, StatusError)
	r.RecordError(OpFinalize, "conflict")
	r.RecordDuration(OpConvert, 42)

	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpConvert, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpFinalize, "conflict")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.durationSeconds))
}

func TestDuplicateRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewMergeMetrics(reg)
	require.NoError(t, err)
	_, err = NewMergeMetrics(reg)
	assert.Error(t, err)
}

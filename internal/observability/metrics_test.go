package observability

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteTextfile(t *testing.T) {
	t.Parallel()

	m, err := NewMetrics()
	require.NoError(t, err)

	m.Merge.RecordSplit("credit-cards.yolov11", "train", 4, 4, 5, 0)
	m.Merge.RecordRun("success", time.Second)
	m.Export.RecordOperation("convert", "success")

	path := filepath.Join(t.TempDir(), "textfile", "datamerge.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := string(data)
	assert.Contains(t, body, `datamerge_images_copied_total{dataset="credit-cards.yolov11",split="train"} 4`)
	assert.Contains(t, body, `datamerge_runs_total{status="success"} 1`)
	assert.Contains(t, body, `datamerge_export_operations_total{operation="convert",status="success"} 1`)
}

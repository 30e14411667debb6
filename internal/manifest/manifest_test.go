package manifest

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/datamerge/internal/dataset"
	"github.com/tphakala/datamerge/internal/labels"
	"github.com/tphakala/datamerge/internal/merge"
	"github.com/tphakala/datamerge/internal/schema"
)

var cards = schema.New("credit_card", "id_card", "passport")

func TestWrite(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path, err := New(cards).Write(fs, "/out/merged", false)
	require.NoError(t, err)
	assert.Equal(t, "/out/merged/data.yaml", path)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, ""+
		"train: train/images\n"+
		"val: valid/images\n"+
		"test: test/images\n"+
		"nc: 3\n"+
		"names: [credit_card, id_card, passport]\n", string(data))

	m, err := Load(fs, path)
	require.NoError(t, err)
	assert.Equal(t, New(cards), m)
	assert.Equal(t, cards, m.Schema())
}

func TestWritePreviewSkipsFile(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	path, err := New(cards).Write(fs, "/out", true)
	require.NoError(t, err)
	assert.Equal(t, "/out/data.yaml", path)

	exists, err := afero.Exists(fs, "/out")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLoadRejectsInconsistentDescriptor(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("nc: 2\nnames: [a]\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/broken.yaml", []byte("names: [a\n"), 0o644))

	_, err := Load(fs, "/bad.yaml")
	assert.Error(t, err)
	_, err = Load(fs, "/broken.yaml")
	assert.Error(t, err)
	_, err = Load(fs, "/missing.yaml")
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	t.Parallel()

	stats := &merge.RunStats{
		Datasets: []merge.DatasetStats{
			{
				Name:   "credit-cards.yolov11",
				Target: 0,
				Splits: map[dataset.Split]merge.SplitStats{
					dataset.SplitTrain: {Found: true, ImagesCopied: 2, LabelFiles: 2, Boxes: 3},
					dataset.SplitValid: {Found: true, ImagesCopied: 1, LabelFiles: 1, Boxes: 1, FallbackLines: 1},
				},
			},
		},
		ClassCounts: labels.Tally{0: 3, 7: 1},
		TotalBoxes:  4,
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, cards, stats))

	assert.Equal(t, ""+
		"\nMerge summary:\n"+
		" - credit-cards.yolov11 (class 0 credit_card):\n"+
		"    train: images_copied=2, labels_copied=2, boxes=3\n"+
		"    valid: images_copied=1, labels_copied=1, boxes=1, fallback_lines=1\n"+
		"    test: missing\n"+
		"\nClass counts (post merge):\n"+
		"  class 0 (credit_card): 3\n"+
		"  class 7 (7): 1\n"+
		"  total boxes: 4\n", buf.String())
}

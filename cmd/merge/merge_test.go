package merge

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/datamerge/internal/conf"
	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/history"
	"github.com/tphakala/datamerge/internal/logger"
	"github.com/tphakala/datamerge/internal/merge"
	"github.com/tphakala/datamerge/internal/schema"
)

func testApp(t *testing.T, files map[string]string) (*conf.Context, *bytes.Buffer) {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}

	stdout := &bytes.Buffer{}
	app := conf.NewContext(stdout, &bytes.Buffer{})
	app.Fs = fs
	app.Settings = &conf.Settings{
		Logging: logger.LoggingConfig{DefaultLevel: "error"},
		Schema: conf.SchemaSettings{
			Names: []string{"credit_card", "id_card", "passport"},
		},
		Merge: conf.MergeSettings{
			Root:   "/data",
			Out:    "merged_dataset.yolov11",
			Policy: "forced",
			Suffix: ".yolov11",
		},
	}
	return app, stdout
}

func cardFiles() map[string]string {
	return map[string]string{
		"/data/credit-cards.yolov11/train/images/a.jpg": "a",
		"/data/credit-cards.yolov11/train/labels/a.txt": "0 0.5 0.5 0.2 0.2\n",
		"/data/credit-cards.yolov11/valid/images/b.jpg": "b",
		"/data/credit-cards.yolov11/valid/labels/b.txt": "0 0.5 0.5 0.2 0.2\n0 0.1 0.1 0.1 0.1\n",
		"/data/credit-cards.yolov11/test/images/c.jpg":  "c",
		"/data/notes/readme.txt":                        "not a dataset",
	}
}

func TestRunForced(t *testing.T) {
	app, stdout := testApp(t, cardFiles())
	app.Settings.Merge.ForcedTarget = 1

	require.NoError(t, Run(t.Context(), app))

	out := stdout.String()
	assert.Contains(t, out, "Datasets to merge: [credit-cards.yolov11]")
	assert.Contains(t, out, "Merge summary:")
	assert.Contains(t, out, " - credit-cards.yolov11 (class 1 id_card):")
	assert.Contains(t, out, "    valid: images_copied=1, labels_copied=1, boxes=2")
	assert.Contains(t, out, "  class 1 (id_card): 3")
	assert.Contains(t, out, "  total boxes: 3")
	assert.Contains(t, out, "Merged data.yaml: /data/merged_dataset.yolov11/data.yaml")

	label, err := afero.ReadFile(app.Fs, "/data/merged_dataset.yolov11/train/labels/credit-cards_yolov11_a.txt")
	require.NoError(t, err)
	assert.Equal(t, "1 0.5 0.5 0.2 0.2\n", string(label))

	manifest, err := afero.ReadFile(app.Fs, "/data/merged_dataset.yolov11/data.yaml")
	require.NoError(t, err)
	assert.Contains(t, string(manifest), "nc: 3")
}

func TestRunDryRunWritesNothing(t *testing.T) {
	app, stdout := testApp(t, cardFiles())
	app.Settings.Merge.DryRun = true

	require.NoError(t, Run(t.Context(), app))

	exists, err := afero.DirExists(app.Fs, "/data/merged_dataset.yolov11")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Contains(t, stdout.String(), "  total boxes: 3")
	assert.Contains(t, stdout.String(), "Dry run completed. No files were changed.")
}

func TestRunMappedUsesMappingOrder(t *testing.T) {
	files := cardFiles()
	files["/data/passport.yolov11/train/images/p.jpg"] = "p"
	files["/data/passport.yolov11/train/labels/p.txt"] = "0 0.5 0.5 0.5 0.5\n"
	app, stdout := testApp(t, files)
	app.Settings.Merge.Policy = "mapped"
	app.Settings.Schema.Mapping = []schema.Entry{
		{Dataset: "passport.yolov11", Target: 2},
		{Dataset: "credit-cards.yolov11", Target: 0},
		{Dataset: "missing.yolov11", Target: 1},
	}

	require.NoError(t, Run(t.Context(), app))

	out := stdout.String()
	assert.Contains(t, out, "Datasets to merge: [passport.yolov11, credit-cards.yolov11]")
	assert.Contains(t, out, "  class 0 (credit_card): 3")
	assert.Contains(t, out, "  class 2 (passport): 1")
	assert.Contains(t, out, "    valid: missing")
}

func TestRunWithDefaultConfig(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	settings, err := conf.Load(viper.New(), "")
	require.NoError(t, err)

	files := cardFiles()
	files["/data/credit-cards.yolov11/test/labels/c.txt"] = "0 0.5 0.5 0.2 0.2\n"
	app, stdout := testApp(t, files)
	settings.Merge.Root = "/data"
	settings.Merge.Datasets = []string{"credit*"}
	settings.Logging = app.Settings.Logging
	app.Settings = settings

	require.NoError(t, Run(t.Context(), app))

	out := stdout.String()
	assert.Contains(t, out, "Datasets to merge: [credit-cards.yolov11]")
	assert.Contains(t, out, "  class 0 (credit_card): 4")
	label, err := afero.ReadFile(app.Fs, "/data/merged_dataset.yolov11/test/labels/credit-cards_yolov11_c.txt")
	require.NoError(t, err)
	assert.Equal(t, "0 0.5 0.5 0.2 0.2\n", string(label))
}

func TestRunNoDatasets(t *testing.T) {
	app, _ := testApp(t, map[string]string{"/data/notes/readme.txt": "x"})

	err := Run(t.Context(), app)
	require.Error(t, err)
	assert.ErrorIs(t, err, merge.ErrNoDatasets)
}

func TestRunRecordsHistoryAndMetrics(t *testing.T) {
	dir := t.TempDir()
	app, _ := testApp(t, cardFiles())
	app.Settings.History = conf.HistorySettings{Enabled: true, Path: filepath.Join(dir, "history.db")}
	app.Settings.Metrics = conf.MetricsSettings{Enabled: true, Textfile: filepath.Join(dir, "metrics", "datamerge.prom")}

	require.NoError(t, Run(t.Context(), app))

	store, err := history.Open(app.Settings.History.Path, app.Log())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	runs, err := store.List(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, history.StatusSuccess, runs[0].Status)
	assert.Equal(t, 3, runs[0].Images)
	assert.Equal(t, 3, runs[0].Boxes)
	assert.Equal(t, "/data/merged_dataset.yolov11", runs[0].OutputDir)

	prom, err := os.ReadFile(app.Settings.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "datamerge_images_copied_total")
	assert.Contains(t, string(prom), `datamerge_runs_total{status="success"} 1`)
}

func TestRunFailsBeforeMerging(t *testing.T) {
	dir := t.TempDir()
	app, _ := testApp(t, nil)
	app.Settings.History = conf.HistorySettings{Enabled: true, Path: filepath.Join(dir, "history.db")}

	err := Run(t.Context(), app)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryDiscovery))

	store, err := history.Open(app.Settings.History.Path, app.Log())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	runs, err := store.List(t.Context(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs, "runs that fail before merging are not recorded")
}

// Package merge unifies several YOLO datasets into one output tree with a
// shared class schema.
//
// The engine walks datasets, splits and files strictly in order. Images are
// copied verbatim under a dataset-derived prefix and label files are rewritten
// onto the dataset's target class. A preview run performs every read and count
// but no filesystem mutation, so its statistics match a real run exactly.
package merge

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/datamerge/internal/dataset"
	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/labels"
	"github.com/tphakala/datamerge/internal/logger"
	"github.com/tphakala/datamerge/internal/schema"
)

// ErrNoDatasets is returned when a run has nothing to merge.
var ErrNoDatasets = errors.NewStd("no usable datasets found")

// Config is the run configuration handed to the engine at construction.
type Config struct {
	OutputDir    string
	DryRun       bool
	Schema       schema.Schema
	Policy       schema.Policy
	ForcedTarget int
	Mapping      schema.ClassMapping
}

// Validate checks the policy and that every target id indexes into the schema.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return errors.ValidationError("output directory is required")
	}
	if err := c.Schema.Validate(); err != nil {
		return err
	}
	switch c.Policy {
	case schema.PolicyForced:
		if !c.Schema.Contains(c.ForcedTarget) {
			return errors.Newf("forced target %d is outside schema range [0, %d)", c.ForcedTarget, c.Schema.Len()).
				Component("merge").
				Category(errors.CategoryValidation).
				Build()
		}
	case schema.PolicyMapped:
		return c.Mapping.Validate(c.Schema)
	default:
		_, err := schema.ParsePolicy(string(c.Policy))
		return err
	}
	return nil
}

// tallyPolicy maps the remap policy onto the remapper's counting policy.
func (c *Config) tallyPolicy() labels.TallyPolicy {
	if c.Policy == schema.PolicyMapped {
		return labels.TallyOriginal
	}
	return labels.TallyTarget
}

// Recorder receives run measurements.
type Recorder interface {
	RecordSplit(dataset, split string, images, labelFiles, boxes, fallbacks int)
	RecordSkippedDataset(reason string)
	RecordClassBoxes(class string, boxes int)
	RecordRun(status string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordSplit(string, string, int, int, int, int) {}
func (nopRecorder) RecordSkippedDataset(string)                    {}
func (nopRecorder) RecordClassBoxes(string, int)                   {}
func (nopRecorder) RecordRun(string, time.Duration)                {}

// Option configures an Engine.
type Option func(*Engine)

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// Engine merges datasets according to a Config.
type Engine struct {
	cfg      Config
	fs       afero.Fs
	walker   *dataset.Walker
	mat      *Materializer
	recorder Recorder
	log      logger.Logger
}

// NewEngine validates cfg and returns an engine over fs.
func NewEngine(cfg Config, fs afero.Fs, walker *dataset.Walker, log logger.Logger, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:      cfg,
		fs:       fs,
		walker:   walker,
		mat:      &Materializer{Fs: fs, DryRun: cfg.DryRun},
		recorder: nopRecorder{},
		log:      log.Module("merge"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SelectDatasets picks the datasets for a run: explicit patterns first, then
// the mapping's dataset names under the mapped policy, else discovery.
func SelectDatasets(loc *dataset.Locator, root string, patterns []string, cfg *Config) ([]dataset.Dataset, error) {
	if len(patterns) > 0 {
		return loc.Resolve(root, patterns)
	}
	if cfg.Policy == schema.PolicyMapped && len(cfg.Mapping) > 0 {
		return loc.Named(root, cfg.Mapping.Datasets()), nil
	}
	return loc.Resolve(root, nil)
}

// Run merges datasets in order and returns the accumulated statistics.
func (e *Engine) Run(ctx context.Context, datasets []dataset.Dataset) (*RunStats, error) {
	start := time.Now()
	log := e.log.WithContext(ctx)

	stats, err := e.run(ctx, log, datasets)
	status := "success"
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = "cancelled"
	case err != nil:
		status = "failed"
	}
	e.recorder.RecordRun(status, time.Since(start))
	if err != nil {
		return stats, err
	}

	for _, id := range stats.ClassCounts.Keys() {
		e.recorder.RecordClassBoxes(e.cfg.Schema.Name(id), stats.ClassCounts[id])
	}
	log.Info("Merge finished",
		logger.Int("datasets", len(stats.Datasets)),
		logger.Int("images", stats.Images()),
		logger.Int("boxes", stats.TotalBoxes),
		logger.Bool("dry_run", stats.DryRun),
		logger.Duration("elapsed", time.Since(start)))
	return stats, nil
}

func (e *Engine) run(ctx context.Context, log logger.Logger, datasets []dataset.Dataset) (*RunStats, error) {
	if len(datasets) == 0 {
		return nil, noDatasets("no dataset folders resolved")
	}

	stats := &RunStats{ClassCounts: make(labels.Tally), DryRun: e.cfg.DryRun}
	for _, ds := range datasets {
		if err := ctx.Err(); err != nil {
			return stats, cancelled(err)
		}

		target, ok := e.targetFor(ds)
		if !ok {
			log.Warn("Skipping dataset with no class mapping",
				logger.String("dataset", ds.Name))
			e.recorder.RecordSkippedDataset("unmapped")
			continue
		}

		dsLog := log.With(logger.String("dataset", ds.Name), logger.Int("target", target))
		dsLog.Info("Merging dataset", logger.String("class", e.cfg.Schema.Name(target)))

		dsStats := DatasetStats{Name: ds.Name, Target: target, Splits: make(map[dataset.Split]SplitStats, len(dataset.Splits))}
		prefix := SanitizePrefix(ds.Name)
		for _, split := range dataset.Splits {
			ss, err := e.mergeSplit(ctx, dsLog, ds, split, target, prefix, stats.ClassCounts)
			if err != nil {
				return stats, err
			}
			dsStats.Splits[split] = ss
			stats.TotalBoxes += ss.Boxes
			e.recorder.RecordSplit(ds.Name, string(split), ss.ImagesCopied, ss.LabelFiles, ss.Boxes, ss.FallbackLines)
		}
		stats.Datasets = append(stats.Datasets, dsStats)
	}

	if len(stats.Datasets) == 0 {
		return stats, noDatasets("every resolved dataset was skipped")
	}
	return stats, nil
}

func (e *Engine) targetFor(ds dataset.Dataset) (int, bool) {
	if e.cfg.Policy == schema.PolicyForced {
		return e.cfg.ForcedTarget, true
	}
	return e.cfg.Mapping.Lookup(ds.Name)
}

func (e *Engine) mergeSplit(ctx context.Context, log logger.Logger, ds dataset.Dataset, split dataset.Split, target int, prefix string, tally labels.Tally) (SplitStats, error) {
	var ss SplitStats
	log = log.With(logger.String("split", string(split)))

	dirs, ok := e.walker.FindSplit(ds, split)
	if !ok {
		log.Warn("Split not found, contributing nothing")
		return ss, nil
	}
	ss.Found = true

	outDir := filepath.Join(e.cfg.OutputDir, string(split))
	imagesOut := filepath.Join(outDir, "images")
	labelsOut := filepath.Join(outDir, "labels")

	images, err := e.walker.Images(dirs.ImagesDir)
	if err != nil {
		return ss, err
	}
	if len(images) == 0 {
		log.Warn("No images in split", logger.String("dir", dirs.ImagesDir))
	}
	if err := e.mat.EnsureDir(imagesOut); err != nil {
		return ss, err
	}
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return ss, cancelled(err)
		}
		if _, err := e.mat.CopyImage(img, imagesOut, prefix); err != nil {
			return ss, err
		}
		ss.ImagesCopied++
	}

	if !dirs.HasLabels() {
		log.Info("No labels folder, images copied without annotations")
		return ss, nil
	}
	files, err := e.walker.LabelFiles(dirs.LabelsDir)
	if err != nil {
		return ss, err
	}
	if err := e.mat.EnsureDir(labelsOut); err != nil {
		return ss, err
	}
	policy := e.cfg.tallyPolicy()
	for _, lf := range files {
		if err := ctx.Err(); err != nil {
			return ss, cancelled(err)
		}
		content, err := afero.ReadFile(e.fs, lf)
		if err != nil {
			log.Warn("Skipping unreadable label file",
				logger.String("path", lf),
				logger.Error(err))
			continue
		}
		res := labels.Remap(string(content), target, policy)
		if _, err := e.mat.WriteLabel(labelsOut, prefix, lf, res.Content); err != nil {
			return ss, err
		}
		ss.add(res)
		tally.Merge(res.Tally)
	}

	log.Debug("Split merged",
		logger.Int("images", ss.ImagesCopied),
		logger.Int("label_files", ss.LabelFiles),
		logger.Int("boxes", ss.Boxes),
		logger.Int("fallback_lines", ss.FallbackLines))
	return ss, nil
}

func noDatasets(reason string) error {
	return errors.New(ErrNoDatasets).
		Component("merge").
		Category(errors.CategoryNoDatasets).
		Context("reason", reason).
		Build()
}

func cancelled(err error) error {
	return errors.New(err).
		Component("merge").
		Category(errors.CategoryCancellation).
		Build()
}

// Package merge provides the merge command for datamerge
package merge

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tphakala/datamerge/internal/conf"
	"github.com/tphakala/datamerge/internal/dataset"
	"github.com/tphakala/datamerge/internal/history"
	"github.com/tphakala/datamerge/internal/logger"
	"github.com/tphakala/datamerge/internal/manifest"
	"github.com/tphakala/datamerge/internal/merge"
	"github.com/tphakala/datamerge/internal/observability"
)

// Command creates and returns the merge command
func Command(app *conf.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge YOLO datasets into one unified dataset",
		Long: `Merge copies the images of every selected dataset into one output folder,
rewrites their label files onto the unified class schema and writes data.yaml.

Datasets are taken from --datasets patterns when given, else from the class
mapping under the mapped policy, else discovered under --root by folder suffix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(cmd.Context(), app)
		},
	}

	setupFlags(cmd, app)

	return cmd
}

func setupFlags(cmd *cobra.Command, app *conf.Context) {
	f := cmd.Flags()
	f.String("root", "", "Folder that contains the dataset folders")
	f.String("out", "", "Output folder, created inside root unless absolute")
	f.StringSlice("datasets", nil, `Comma separated dataset folder patterns, e.g. "credit*,passport*"`)
	f.Bool("dry-run", false, "Preview actions without copying files")
	f.String("policy", "", "Class remap policy: mapped or forced")
	f.Int("target", 0, "Class id every box gets under the forced policy")

	cobra.CheckErr(conf.BindFlags(app.Viper, f, map[string]string{
		"root":     "merge.root",
		"out":      "merge.out",
		"datasets": "merge.datasets",
		"dry-run":  "merge.dryrun",
		"policy":   "merge.policy",
		"target":   "merge.forcedtarget",
	}))
}

// Run performs one merge with the loaded settings.
func Run(ctx context.Context, app *conf.Context) error {
	settings := app.Settings
	log := app.Log().Module("cli")

	cfg, err := settings.MergeConfig()
	if err != nil {
		return err
	}

	run := history.NewRun(settings.Merge.Root, cfg.OutputDir, cfg.Policy, cfg.DryRun)
	ctx = logger.WithTraceID(ctx, run.ID)

	var opts []merge.Option
	var m *observability.Metrics
	if settings.Metrics.Enabled {
		if m, err = observability.NewMetrics(); err != nil {
			return err
		}
		opts = append(opts, merge.WithRecorder(m.Merge))
	}

	walker := dataset.NewWalker(app.Fs)
	locator := dataset.NewLocator(app.Fs, walker, settings.Merge.Suffix, app.Log())
	engine, err := merge.NewEngine(cfg, app.Fs, walker, app.Log(), opts...)
	if err != nil {
		return err
	}

	datasets, err := merge.SelectDatasets(locator, settings.Merge.Root, settings.DatasetPatterns(), &cfg)
	if err != nil {
		return err
	}

	out := app.Stdout
	fmt.Fprintf(out, "Root: %s\n", settings.Merge.Root)
	fmt.Fprintf(out, "Output: %s\n", cfg.OutputDir)
	fmt.Fprintf(out, "Datasets to merge: [%s]\n", strings.Join(datasetNames(datasets), ", "))
	fmt.Fprintf(out, "Dry run: %t\n", cfg.DryRun)

	stats, runErr := engine.Run(ctx, datasets)
	if runErr == nil {
		runErr = finish(app, &cfg, stats)
	}

	run.Finish(stats, cfg.Schema, runErr)
	recordHistory(ctx, app, log, run)
	if m != nil {
		if err := m.WriteTextfile(settings.Metrics.Textfile); err != nil {
			log.Warn("Failed to write metrics textfile",
				logger.String("path", settings.Metrics.Textfile),
				logger.Error(err))
		}
	}
	return runErr
}

// finish writes the descriptor and prints the summary of a successful run.
func finish(app *conf.Context, cfg *merge.Config, stats *merge.RunStats) error {
	path, err := manifest.New(cfg.Schema).Write(app.Fs, cfg.OutputDir, cfg.DryRun)
	if err != nil {
		return err
	}
	if err := manifest.WriteSummary(app.Stdout, cfg.Schema, stats); err != nil {
		return err
	}

	if cfg.DryRun {
		_, err = fmt.Fprintln(app.Stdout, "\nDry run completed. No files were changed.")
		return err
	}
	_, err = fmt.Fprintf(app.Stdout, "\nMerged dataset written to: %s\nMerged data.yaml: %s\n", cfg.OutputDir, path)
	return err
}

// recordHistory stores the run when history is enabled. Failures are logged
// and never change the run's outcome.
func recordHistory(ctx context.Context, app *conf.Context, log logger.Logger, run *history.Run) {
	if !app.Settings.History.Enabled {
		return
	}
	store, err := history.Open(app.Settings.History.Path, app.Log())
	if err != nil {
		log.Warn("Failed to open run history", logger.Error(err))
		return
	}
	defer func() { _ = store.Close() }()

	// A cancelled run is still recorded.
	if err := store.Save(context.WithoutCancel(ctx), run); err != nil {
		log.Warn("Failed to record merge run",
			logger.String("run_id", run.ID),
			logger.Error(err))
		return
	}
	log.Debug("Merge run recorded", logger.String("run_id", run.ID), logger.String("status", run.Status))
}

func datasetNames(datasets []dataset.Dataset) []string {
	names := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		names = append(names, ds.Name)
	}
	return names
}

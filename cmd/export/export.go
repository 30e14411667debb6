// Package export provides the Core ML export command for datamerge
package export

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tphakala/datamerge/internal/conf"
	"github.com/tphakala/datamerge/internal/export"
	"github.com/tphakala/datamerge/internal/logger"
	"github.com/tphakala/datamerge/internal/observability"
	"github.com/tphakala/datamerge/internal/observability/metrics"
)

// Command creates and returns the export command
func Command(app *conf.Context) *cobra.Command {
	var noNMS bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export trained YOLO weights to Core ML",
		Long: `Export runs the Ultralytics exporter on the trained weights and copies the
produced .mlmodel or .mlpackage into the working directory under --outname,
never overwriting an earlier export.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("no-nms") {
				app.Settings.Export.NMS = !noNMS
			}
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			conv := &export.CommandConverter{
				Binary: app.Settings.Export.Binary,
				Fs:     app.Fs,
				Stdout: app.Stderr,
				Stderr: app.Stderr,
				Log:    app.Log().Module("export"),
			}
			return Run(cmd.Context(), app, conv, wd)
		},
	}

	setupFlags(cmd, app, &noNMS)

	return cmd
}

func setupFlags(cmd *cobra.Command, app *conf.Context, noNMS *bool) {
	f := cmd.Flags()
	f.String("weights", "", "Path to the trained .pt weights")
	f.Int("imgsz", 0, "Square input size")
	f.Bool("half", false, "Export in FP16")
	f.BoolVar(noNMS, "no-nms", false, "Export without built in NMS")
	f.String("outname", "", "Base name for the Core ML file")

	cobra.CheckErr(conf.BindFlags(app.Viper, f, map[string]string{
		"weights": "export.weights",
		"imgsz":   "export.imgsz",
		"half":    "export.half",
		"outname": "export.outname",
	}))
}

// Run exports the configured weights with conv and places the result in workDir.
func Run(ctx context.Context, app *conf.Context, conv export.Converter, workDir string) error {
	s := app.Settings.Export

	var rec metrics.Recorder
	var m *observability.Metrics
	if app.Settings.Metrics.Enabled {
		var err error
		if m, err = observability.NewMetrics(); err != nil {
			return err
		}
		rec = m.Export
	}

	res, err := export.Run(ctx, app.Fs, conv, export.Options{
		Request: export.Request{
			Weights: s.Weights,
			ImgSize: s.ImgSize,
			Half:    s.Half,
			NMS:     s.NMS,
		},
		OutName:  s.OutName,
		WorkDir:  workDir,
		Log:      app.Log(),
		Recorder: rec,
	})

	if m != nil {
		if werr := m.WriteTextfile(app.Settings.Metrics.Textfile); werr != nil {
			app.Log().Module("cli").Warn("Failed to write metrics textfile",
				logger.String("path", app.Settings.Metrics.Textfile),
				logger.Error(werr))
		}
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(app.Stdout, "\nDone.\nCore ML model saved at: %s\nSettings used: imgsz=%d half=%t nms=%t\n",
		res.Path, res.Request.ImgSize, res.Request.Half, res.Request.NMS)
	return err
}

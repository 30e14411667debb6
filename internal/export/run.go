package export

import (
	"context"
	"io"
	"time"

	"github.com/spf13/afero"

	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/logger"
	"github.com/tphakala/datamerge/internal/observability/metrics"
)

// DefaultOutName is the base name of the exported artifact.
const DefaultOutName = "coreml"

// Options configures one export run.
type Options struct {
	Request
	OutName  string
	WorkDir  string
	Log      logger.Logger
	Recorder metrics.Recorder
}

// Result describes a completed export.
type Result struct {
	Produced string
	Path     string
	Request  Request
	Elapsed  time.Duration
}

// Run checks the weights, converts them and places the artifact in WorkDir.
func Run(ctx context.Context, fs afero.Fs, conv Converter, opts Options) (*Result, error) {
	start := time.Now()
	if opts.OutName == "" {
		opts.OutName = DefaultOutName
	}
	rec := opts.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	log := opts.Log
	if log == nil {
		log = logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	}
	log = log.Module("export").WithContext(ctx)

	res, err := run(ctx, fs, conv, opts, rec, log)
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
		rec.RecordError(metrics.OpExport, string(errorType(err)))
	}
	rec.RecordOperation(metrics.OpExport, status)
	rec.RecordDuration(metrics.OpExport, time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func run(ctx context.Context, fs afero.Fs, conv Converter, opts Options, rec metrics.Recorder, log logger.Logger) (*Result, error) {
	if ok, err := afero.Exists(fs, opts.Weights); err != nil || !ok {
		return nil, errors.New(ErrWeightsMissing).
			Component("export").
			Category(errors.CategoryNotFound).
			FileContext(opts.Weights, 0).
			Build()
	}

	log.Info("Exporting to Core ML",
		logger.String("weights", opts.Weights),
		logger.Int("imgsz", opts.ImgSize),
		logger.Bool("half", opts.Half),
		logger.Bool("nms", opts.NMS))

	convStart := time.Now()
	out, err := conv.Convert(ctx, opts.Request)
	rec.RecordDuration(metrics.OpConvert, time.Since(convStart).Seconds())
	if err != nil {
		rec.RecordOperation(metrics.OpConvert, metrics.StatusError)
		return nil, err
	}
	rec.RecordOperation(metrics.OpConvert, metrics.StatusSuccess)

	produced, ok := out.Select()
	if !ok {
		return nil, errors.New(ErrOutputMissing).
			Component("export").
			Category(errors.CategoryExport).
			Context("reason", "converter reported no artifacts").
			Build()
	}

	target, err := Finalize(fs, produced, opts.WorkDir, opts.OutName)
	if err != nil {
		rec.RecordOperation(metrics.OpFinalize, metrics.StatusError)
		return nil, err
	}
	rec.RecordOperation(metrics.OpFinalize, metrics.StatusSuccess)

	log.Info("Core ML model saved",
		logger.String("path", target),
		logger.String("produced", produced))
	return &Result{Produced: produced, Path: target, Request: opts.Request}, nil
}

func errorType(err error) errors.ErrorCategory {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		return ee.Category
	}
	return errors.CategoryGeneric
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, string) {}
func (nopRecorder) RecordDuration(string, float64) {}
func (nopRecorder) RecordError(string, string)     {}

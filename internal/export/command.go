package export

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/logger"
)

// DefaultBinary is the Ultralytics command line entry point.
const DefaultBinary = "yolo"

// CommandConverter runs the Ultralytics CLI and reports the Core ML artifacts
// it leaves next to the weights file.
type CommandConverter struct {
	Binary string
	Fs     afero.Fs
	Stdout io.Writer
	Stderr io.Writer
	Log    logger.Logger
}

// Args builds the export command line for req.
func (c *CommandConverter) Args(req Request) []string {
	return []string{
		"export",
		"model=" + req.Weights,
		"format=coreml",
		"imgsz=" + strconv.Itoa(req.ImgSize),
		"nms=" + pyBool(req.NMS),
		"half=" + pyBool(req.Half),
		// Static input size, no int8 calibration, no graph optimization.
		"dynamic=False",
		"int8=False",
		"optimize=False",
	}
}

// Convert implements Converter.
func (c *CommandConverter) Convert(ctx context.Context, req Request) (Output, error) {
	bin := c.Binary
	if bin == "" {
		bin = DefaultBinary
	}
	args := c.Args(req)

	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	if c.Log != nil {
		c.Log.Info("Running model export", logger.String("command", bin+" "+strings.Join(args, " ")))
	}
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return Output{}, errors.New(fmt.Errorf("%s export failed: %w", bin, err)).
			Component("export").
			Category(errors.CategoryExport).
			Context("weights", req.Weights).
			Build()
	}
	return c.collect(req.Weights), nil
}

// collect reports the artifacts found next to weights. When none exist the
// expected .mlpackage path is reported so finalization fails on it.
func (c *CommandConverter) collect(weights string) Output {
	stem := strings.TrimSuffix(weights, filepath.Ext(weights))
	candidates := []string{stem + ExtMLPackage, stem + ExtMLModel}

	var found []string
	for _, p := range candidates {
		if ok, err := afero.Exists(c.Fs, p); err == nil && ok {
			found = append(found, p)
		}
	}
	switch len(found) {
	case 0:
		return Single(candidates[0])
	case 1:
		return Single(found[0])
	default:
		return Multiple(found...)
	}
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

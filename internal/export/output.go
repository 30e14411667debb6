// Package export converts trained detection weights into a Core ML artifact and
// places it under a caller-chosen name without overwriting earlier exports.
package export

import (
	"context"
	"path/filepath"
	"slices"
)

// Recognized Core ML artifact extensions. .mlpackage is a directory.
const (
	ExtMLModel   = ".mlmodel"
	ExtMLPackage = ".mlpackage"
)

var preferredExts = []string{ExtMLModel, ExtMLPackage}

// Request describes one conversion.
type Request struct {
	Weights string
	ImgSize int
	Half    bool
	NMS     bool
}

// Output is what a converter reports: either one artifact or several
// candidate artifacts.
type Output struct {
	paths    []string
	multiple bool
}

// Single reports exactly one produced artifact.
func Single(path string) Output {
	return Output{paths: []string{path}}
}

// Multiple reports several candidate artifacts in converter order.
func Multiple(paths ...string) Output {
	return Output{paths: slices.Clone(paths), multiple: true}
}

// IsMultiple reports whether the output carries candidates rather than one path.
func (o Output) IsMultiple() bool {
	return o.multiple
}

// Paths returns the reported paths.
func (o Output) Paths() []string {
	return slices.Clone(o.paths)
}

// Select picks the artifact to keep: the first entry with a recognized Core ML
// extension, else the first entry. It reports false for an empty output.
func (o Output) Select() (string, bool) {
	if len(o.paths) == 0 {
		return "", false
	}
	if !o.multiple {
		return o.paths[0], true
	}
	for _, p := range o.paths {
		if slices.Contains(preferredExts, filepath.Ext(p)) {
			return p, true
		}
	}
	return o.paths[0], true
}

// Converter turns weights into a deployable artifact.
type Converter interface {
	Convert(ctx context.Context, req Request) (Output, error)
}

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/fsutil"
)

// Sentinel errors for the export boundary, matched with errors.Is.
var (
	ErrWeightsMissing      = errors.NewStd("weights file not found")
	ErrOutputMissing       = errors.NewStd("export completed but output was not found")
	ErrDestinationConflict = errors.NewStd("export destination already exists")
)

// NextFreePath returns path if it does not exist, else the first of
// name_1.ext, name_2.ext, ... that does not.
func NextFreePath(fs afero.Fs, path string) (string, error) {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	candidate := path
	for i := 1; ; i++ {
		exists, err := afero.Exists(fs, candidate)
		if err != nil {
			return "", errors.FileError(err, candidate)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
}

// Finalize copies the produced artifact into workDir as outName plus the
// artifact's extension, choosing the next free name when that is taken.
func Finalize(fs afero.Fs, produced, workDir, outName string) (string, error) {
	if ok, err := afero.Exists(fs, produced); err != nil || !ok {
		return "", errors.New(ErrOutputMissing).
			Component("export").
			Category(errors.CategoryExport).
			Context("produced", produced).
			Build()
	}

	target, err := NextFreePath(fs, filepath.Join(workDir, outName+filepath.Ext(produced)))
	if err != nil {
		return "", err
	}
	if err := Place(fs, produced, target); err != nil {
		return "", err
	}
	return target, nil
}

// Place copies produced to target. A directory artifact is never copied onto
// an existing path and a file is never copied onto a directory. Identical
// paths are a no-op.
func Place(fs afero.Fs, produced, target string) error {
	if samePath(produced, target) {
		return nil
	}

	srcDir, err := afero.IsDir(fs, produced)
	if err != nil {
		return errors.FileError(err, produced)
	}
	dstExists, err := afero.Exists(fs, target)
	if err != nil {
		return errors.FileError(err, target)
	}
	dstDir := false
	if dstExists {
		if dstDir, err = afero.IsDir(fs, target); err != nil {
			return errors.FileError(err, target)
		}
	}

	if dstExists && (srcDir || dstDir) {
		return errors.New(ErrDestinationConflict).
			Component("export").
			Category(errors.CategoryConflict).
			Context("target", target).
			Build()
	}
	if err := fsutil.EnsureDir(fs, filepath.Dir(target)); err != nil {
		return err
	}
	if srcDir {
		return fsutil.CopyTree(fs, produced, target)
	}
	return fsutil.CopyFile(fs, produced, target)
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}

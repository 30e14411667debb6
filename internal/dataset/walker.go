package dataset

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/datamerge/internal/errors"
)

// Walker resolves split folders and enumerates their files. Enumeration is
// lexical so repeated passes over an unchanged tree return the same order.
type Walker struct {
	Fs        afero.Fs
	ImageExts []string
	LabelExt  string
}

// NewWalker returns a Walker with the default image and label extensions.
func NewWalker(fs afero.Fs) *Walker {
	return &Walker{
		Fs:        fs,
		ImageExts: DefaultImageExts,
		LabelExt:  DefaultLabelExt,
	}
}

// FindSplit resolves split inside ds. The first alias whose images folder
// exists wins; its labels folder is attached when present.
func (w *Walker) FindSplit(ds Dataset, split Split) (SplitDirs, bool) {
	for _, alias := range SplitAliases[split] {
		images := filepath.Join(ds.Path, alias, "images")
		if !w.isDir(images) {
			continue
		}
		dirs := SplitDirs{Alias: alias, ImagesDir: images}
		if labels := filepath.Join(ds.Path, alias, "labels"); w.isDir(labels) {
			dirs.LabelsDir = labels
		}
		return dirs, true
	}
	return SplitDirs{}, false
}

// HasAllSplits reports whether every canonical split resolves in ds.
func (w *Walker) HasAllSplits(ds Dataset) bool {
	for _, s := range Splits {
		if _, ok := w.FindSplit(ds, s); !ok {
			return false
		}
	}
	return true
}

// Images lists image files under dir recursively.
func (w *Walker) Images(dir string) ([]string, error) {
	return w.collect(dir, w.ImageExts)
}

// LabelFiles lists annotation files under dir recursively.
func (w *Walker) LabelFiles(dir string) ([]string, error) {
	return w.collect(dir, []string{w.LabelExt})
}

func (w *Walker) collect(dir string, exts []string) ([]string, error) {
	var files []string
	err := afero.Walk(w.Fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if hasExt(path, exts) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryDiscovery).
			Context("dir", dir).
			Build()
	}
	return files, nil
}

func (w *Walker) isDir(path string) bool {
	ok, err := afero.IsDir(w.Fs, path)
	return err == nil && ok
}

func hasExt(path string, exts []string) bool {
	ext := filepath.Ext(path)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

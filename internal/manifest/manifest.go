// Package manifest writes the merged dataset descriptor (data.yaml) and the
// run summary printed after a merge.
package manifest

import (
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/datamerge/internal/dataset"
	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/fsutil"
	"github.com/tphakala/datamerge/internal/schema"
)

// FileName is the descriptor written at the root of the merged dataset.
const FileName = "data.yaml"

// Manifest is the unified schema descriptor consumed by training tools.
type Manifest struct {
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"names,flow"`
}

// New builds the descriptor for s with split paths relative to the output root.
func New(s schema.Schema) Manifest {
	return Manifest{
		Train: splitImages(dataset.SplitTrain),
		Val:   splitImages(dataset.SplitValid),
		Test:  splitImages(dataset.SplitTest),
		NC:    s.Len(),
		Names: append([]string(nil), s.Names...),
	}
}

func splitImages(s dataset.Split) string {
	return string(s) + "/images"
}

// Marshal renders the descriptor as YAML.
func (m Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, errors.New(err).
			Component("manifest").
			Category(errors.CategoryFileIO).
			Build()
	}
	return data, nil
}

// Write stores the descriptor under outDir and returns its path. In preview
// mode it returns the path without writing anything.
func (m Manifest) Write(fs afero.Fs, outDir string, dryRun bool) (string, error) {
	path := filepath.Join(outDir, FileName)
	if dryRun {
		return path, nil
	}
	data, err := m.Marshal()
	if err != nil {
		return "", err
	}
	if err := fsutil.EnsureDir(fs, outDir); err != nil {
		return "", err
	}
	if err := fsutil.WriteFile(fs, path, data, fsutil.FilePerm); err != nil {
		return "", err
	}
	return path, nil
}

// Load reads a descriptor from path.
func Load(fs afero.Fs, path string) (Manifest, error) {
	var m Manifest
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return m, errors.FileError(err, path)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, errors.New(err).
			Component("manifest").
			Category(errors.CategoryValidation).
			FileContext(path, int64(len(data))).
			Build()
	}
	if m.NC != len(m.Names) {
		return m, errors.Newf("manifest %s declares nc=%d but lists %d names", path, m.NC, len(m.Names)).
			Component("manifest").
			Category(errors.CategoryValidation).
			Build()
	}
	return m, nil
}

// Schema returns the class schema recorded in the descriptor.
func (m Manifest) Schema() schema.Schema {
	return schema.New(m.Names...)
}

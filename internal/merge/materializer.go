package merge

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/datamerge/internal/fsutil"
)

// Materializer writes merged files into the output tree. In preview mode every
// method reports the destination it would use and touches nothing.
type Materializer struct {
	Fs     afero.Fs
	DryRun bool
}

// SanitizePrefix derives a file-name prefix from a dataset name by replacing
// path separators of either style, spaces and dots with underscores.
func SanitizePrefix(name string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '.':
			return '_'
		}
		return r
	}, name)
}

// DestName returns the output file name for file under prefix.
func DestName(prefix, file string) string {
	return prefix + "_" + filepath.Base(file)
}

// EnsureDir creates dir unless in preview mode.
func (m *Materializer) EnsureDir(dir string) error {
	if m.DryRun {
		return nil
	}
	return fsutil.EnsureDir(m.Fs, dir)
}

// CopyImage copies src into dstDir under its prefixed name and returns the
// destination path. Same-named files from one dataset overwrite each other.
func (m *Materializer) CopyImage(src, dstDir, prefix string) (string, error) {
	dst := filepath.Join(dstDir, DestName(prefix, src))
	if m.DryRun {
		return dst, nil
	}
	return dst, fsutil.CopyFile(m.Fs, src, dst)
}

// WriteLabel writes content into dstDir under the prefixed name of src.
func (m *Materializer) WriteLabel(dstDir, prefix, src, content string) (string, error) {
	dst := filepath.Join(dstDir, DestName(prefix, src))
	if m.DryRun {
		return dst, nil
	}
	return dst, fsutil.WriteFile(m.Fs, dst, []byte(content), fsutil.FilePerm)
}

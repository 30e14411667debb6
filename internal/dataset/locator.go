package dataset

import (
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/logger"
)

// Locator turns a root folder into the ordered list of datasets to merge.
type Locator struct {
	Fs     afero.Fs
	Walker *Walker
	Suffix string
	Logger logger.Logger
}

// NewLocator returns a Locator. An empty suffix falls back to DefaultSuffix.
func NewLocator(fs afero.Fs, walker *Walker, suffix string, log logger.Logger) *Locator {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	return &Locator{
		Fs:     fs,
		Walker: walker,
		Suffix: suffix,
		Logger: log.Module("locator"),
	}
}

// Resolve expands patterns against root, or discovers datasets when no
// patterns are given. Pattern matches are accepted without structural checks;
// discovered folders must carry the suffix and resolve every split.
func (l *Locator) Resolve(root string, patterns []string) ([]Dataset, error) {
	if len(patterns) > 0 {
		return l.expand(root, patterns), nil
	}
	return l.discover(root)
}

func (l *Locator) expand(root string, patterns []string) []Dataset {
	var out []Dataset
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" {
			continue
		}
		matches, err := afero.Glob(l.Fs, filepath.Join(root, pattern))
		if err != nil {
			l.Logger.Warn("Skipping malformed dataset pattern",
				logger.String("pattern", pattern),
				logger.Error(err))
			continue
		}
		found := 0
		for _, m := range matches {
			if seen[m] || !l.Walker.isDir(m) {
				continue
			}
			seen[m] = true
			found++
			out = append(out, Dataset{Name: filepath.Base(m), Path: m})
		}
		if found == 0 {
			l.Logger.Warn("Dataset pattern matched no folders",
				logger.String("pattern", pattern),
				logger.String("root", root))
		}
	}
	return out
}

func (l *Locator) discover(root string) ([]Dataset, error) {
	entries, err := afero.ReadDir(l.Fs, root)
	if err != nil {
		return nil, errors.New(err).
			Component("dataset").
			Category(errors.CategoryDiscovery).
			Context("root", root).
			Build()
	}

	suffix := strings.ToLower(l.Suffix)
	var out []Dataset
	for _, e := range entries {
		if !e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), suffix) {
			continue
		}
		ds := Dataset{Name: e.Name(), Path: filepath.Join(root, e.Name())}
		if !l.Walker.HasAllSplits(ds) {
			l.Logger.Warn("Excluding dataset without train, valid and test splits",
				logger.String("dataset", ds.Name))
			continue
		}
		out = append(out, ds)
	}
	l.Logger.Debug("Discovery finished",
		logger.String("root", root),
		logger.Int("datasets", len(out)))
	return out, nil
}

// Named resolves root/<name> for each name in order. Missing folders are
// logged and skipped.
func (l *Locator) Named(root string, names []string) []Dataset {
	var out []Dataset
	for _, name := range names {
		path := filepath.Join(root, name)
		if !l.Walker.isDir(path) {
			l.Logger.Warn("Configured dataset folder not found",
				logger.String("dataset", name),
				logger.String("path", path))
			continue
		}
		out = append(out, Dataset{Name: name, Path: path})
	}
	return out
}

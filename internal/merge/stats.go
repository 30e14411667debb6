package merge

import (
	"github.com/tphakala/datamerge/internal/dataset"
	"github.com/tphakala/datamerge/internal/labels"
)

// SplitStats counts what one split of one dataset contributed.
type SplitStats struct {
	Found         bool
	ImagesCopied  int
	LabelFiles    int
	Boxes         int
	FallbackLines int
}

// add folds one remapped label file into the split counters.
func (s *SplitStats) add(res labels.Result) {
	s.LabelFiles++
	s.Boxes += res.Lines
	s.FallbackLines += res.Fallbacks
}

// DatasetStats is the per-split breakdown of one merged dataset.
type DatasetStats struct {
	Name   string
	Target int
	Splits map[dataset.Split]SplitStats
}

// Boxes returns the boxes emitted across all splits.
func (d DatasetStats) Boxes() int {
	total := 0
	for _, s := range d.Splits {
		total += s.Boxes
	}
	return total
}

// Images returns the images copied across all splits.
func (d DatasetStats) Images() int {
	total := 0
	for _, s := range d.Splits {
		total += s.ImagesCopied
	}
	return total
}

// RunStats is the aggregate result of one merge run.
type RunStats struct {
	Datasets    []DatasetStats
	ClassCounts labels.Tally
	TotalBoxes  int
	DryRun      bool
}

// Images returns the images copied across all datasets.
func (r *RunStats) Images() int {
	total := 0
	for _, d := range r.Datasets {
		total += d.Images()
	}
	return total
}

package manifest

import (
	"fmt"
	"io"

	"github.com/tphakala/datamerge/internal/dataset"
	"github.com/tphakala/datamerge/internal/merge"
	"github.com/tphakala/datamerge/internal/schema"
)

// WriteSummary prints the per-dataset breakdown and per-class totals of a run.
func WriteSummary(w io.Writer, s schema.Schema, stats *merge.RunStats) error {
	p := &printer{w: w}

	p.printf("\nMerge summary:\n")
	for _, ds := range stats.Datasets {
		p.printf(" - %s (class %d %s):\n", ds.Name, ds.Target, s.Name(ds.Target))
		for _, split := range dataset.Splits {
			ss := ds.Splits[split]
			if !ss.Found {
				p.printf("    %s: missing\n", split)
				continue
			}
			p.printf("    %s: images_copied=%d, labels_copied=%d, boxes=%d", split, ss.ImagesCopied, ss.LabelFiles, ss.Boxes)
			if ss.FallbackLines > 0 {
				p.printf(", fallback_lines=%d", ss.FallbackLines)
			}
			p.printf("\n")
		}
	}

	p.printf("\nClass counts (post merge):\n")
	for _, id := range stats.ClassCounts.Keys() {
		p.printf("  class %d (%s): %d\n", id, s.Name(id), stats.ClassCounts[id])
	}
	p.printf("  total boxes: %d\n", stats.TotalBoxes)
	return p.err
}

// printer keeps the first write error so callers check once.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

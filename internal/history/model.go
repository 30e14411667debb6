// Package history records merge runs in a local SQLite ledger.
package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/datamerge/internal/dataset"
	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/merge"
	"github.com/tphakala/datamerge/internal/schema"
)

// Run status values.
const (
	StatusRunning   = "running"
	StatusSuccess   = "success"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

// Run is one invocation of the merge command.
type Run struct {
	ID         string    `gorm:"primaryKey;size:36"`
	StartedAt  time.Time `gorm:"index"`
	FinishedAt time.Time
	Root       string
	OutputDir  string
	Policy     string
	DryRun     bool
	Status     string `gorm:"size:16;index"`
	Error      string
	Datasets   int
	Images     int
	Boxes      int

	Splits  []SplitRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
	Classes []ClassRecord `gorm:"foreignKey:RunID;constraint:OnDelete:CASCADE"`
}

// SplitRecord is the per-split breakdown of one dataset in a run.
type SplitRecord struct {
	ID            uint   `gorm:"primaryKey"`
	RunID         string `gorm:"size:36;index"`
	Dataset       string
	Split         string `gorm:"size:8"`
	Target        int
	Found         bool
	Images        int
	LabelFiles    int
	Boxes         int
	FallbackLines int
}

// ClassRecord is the box total of one class in a run.
type ClassRecord struct {
	ID      uint   `gorm:"primaryKey"`
	RunID   string `gorm:"size:36;index"`
	ClassID int
	Name    string
	Boxes   int
}

// NewRun starts a run record with a fresh id.
func NewRun(root, outputDir string, policy schema.Policy, dryRun bool) *Run {
	return &Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now(),
		Root:      root,
		OutputDir: outputDir,
		Policy:    string(policy),
		DryRun:    dryRun,
		Status:    StatusRunning,
	}
}

// Finish completes the record from the run outcome. stats may be nil.
func (r *Run) Finish(stats *merge.RunStats, s schema.Schema, runErr error) {
	r.FinishedAt = time.Now()
	switch {
	case runErr == nil:
		r.Status = StatusSuccess
	case errors.IsCategory(runErr, errors.CategoryCancellation):
		r.Status = StatusCancelled
	default:
		r.Status = StatusFailed
	}
	if runErr != nil {
		r.Error = runErr.Error()
	}
	if stats == nil {
		return
	}

	r.Datasets = len(stats.Datasets)
	r.Images = stats.Images()
	r.Boxes = stats.TotalBoxes
	r.Splits = r.Splits[:0]
	for _, ds := range stats.Datasets {
		for _, split := range dataset.Splits {
			ss := ds.Splits[split]
			r.Splits = append(r.Splits, SplitRecord{
				RunID:         r.ID,
				Dataset:       ds.Name,
				Split:         string(split),
				Target:        ds.Target,
				Found:         ss.Found,
				Images:        ss.ImagesCopied,
				LabelFiles:    ss.LabelFiles,
				Boxes:         ss.Boxes,
				FallbackLines: ss.FallbackLines,
			})
		}
	}
	r.Classes = r.Classes[:0]
	for _, id := range stats.ClassCounts.Keys() {
		r.Classes = append(r.Classes, ClassRecord{
			RunID:   r.ID,
			ClassID: id,
			Name:    s.Name(id),
			Boxes:   stats.ClassCounts[id],
		})
	}
}

// Duration returns how long the run took, or zero if it has not finished.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

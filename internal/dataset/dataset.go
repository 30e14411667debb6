// Package dataset locates YOLO-style dataset folders and walks their splits.
package dataset

import "strings"

// Split is one logical partition of a dataset.
type Split string

const (
	SplitTrain Split = "train"
	SplitValid Split = "valid"
	SplitTest  Split = "test"
)

// Splits is the canonical split order used for traversal and output layout.
var Splits = []Split{SplitTrain, SplitValid, SplitTest}

// SplitAliases lists, per split, the on-disk folder names accepted for it in
// priority order.
var SplitAliases = map[Split][]string{
	SplitTrain: {"train"},
	SplitValid: {"valid", "val"},
	SplitTest:  {"test"},
}

// DefaultSuffix is the folder-name suffix recognized in discovery mode.
const DefaultSuffix = ".yolov11"

// DefaultImageExts are the image extensions enumerated by the walker.
var DefaultImageExts = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp", ".tif", ".tiff"}

// DefaultLabelExt is the annotation file extension.
const DefaultLabelExt = ".txt"

// Dataset is one source corpus. Its identity is the folder name.
type Dataset struct {
	Name string
	Path string
}

// SplitDirs is the resolved location of one split inside a dataset.
type SplitDirs struct {
	Alias     string // folder name that matched
	ImagesDir string
	LabelsDir string // empty when the split has no labels folder
}

// HasLabels reports whether a labels folder was found for the split.
func (d SplitDirs) HasLabels() bool {
	return d.LabelsDir != ""
}

// ParseSplit converts a folder name or alias to its canonical split.
func ParseSplit(name string) (Split, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Splits {
		for _, alias := range SplitAliases[s] {
			if alias == name {
				return s, true
			}
		}
	}
	return "", false
}

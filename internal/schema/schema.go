// Package schema defines the unified class schema, the dataset-to-class mapping
// and the remap policy shared by the merge engine and the configuration layer.
package schema

import (
	"fmt"
	"strings"

	"github.com/tphakala/datamerge/internal/errors"
)

// Policy selects how a dataset's boxes are assigned a unified class id.
type Policy string

const (
	// PolicyMapped assigns each dataset the target listed in the ClassMapping.
	PolicyMapped Policy = "mapped"
	// PolicyForced assigns every box of every dataset one forced target id.
	PolicyForced Policy = "forced"
)

// ParsePolicy converts a config or flag value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case PolicyMapped, PolicyForced:
		return p, nil
	default:
		return "", errors.Newf("unknown remap policy %q (want %q or %q)", s, PolicyMapped, PolicyForced).
			Component("schema").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// Schema is the ordered list of unified class names. A name's id is its index.
type Schema struct {
	Names []string
}

// New returns a Schema over a copy of names.
func New(names ...string) Schema {
	return Schema{Names: append([]string(nil), names...)}
}

// Len returns the number of classes.
func (s Schema) Len() int {
	return len(s.Names)
}

// Contains reports whether id is a valid index into the schema.
func (s Schema) Contains(id int) bool {
	return id >= 0 && id < len(s.Names)
}

// Name returns the class name for id, or the id itself when out of range.
func (s Schema) Name(id int) string {
	if s.Contains(id) {
		return s.Names[id]
	}
	return fmt.Sprintf("%d", id)
}

// Validate checks the schema is non-empty and names are unique and non-blank.
func (s Schema) Validate() error {
	if len(s.Names) == 0 {
		return errors.ValidationError("schema must declare at least one class name")
	}
	seen := make(map[string]int, len(s.Names))
	for i, name := range s.Names {
		if strings.TrimSpace(name) == "" {
			return errors.ValidationError(fmt.Sprintf("schema class %d has an empty name", i))
		}
		if prev, ok := seen[name]; ok {
			return errors.ValidationError(fmt.Sprintf("schema class name %q is declared twice (ids %d and %d)", name, prev, i))
		}
		seen[name] = i
	}
	return nil
}

// Entry maps one dataset folder name to a unified class id.
type Entry struct {
	Dataset string `yaml:"dataset" mapstructure:"dataset"`
	Target  int    `yaml:"target" mapstructure:"target"`
}

// ClassMapping is an ordered, many-to-one mapping from dataset identity to target id.
type ClassMapping []Entry

// Lookup returns the target id configured for dataset.
func (m ClassMapping) Lookup(dataset string) (int, bool) {
	for _, e := range m {
		if e.Dataset == dataset {
			return e.Target, true
		}
	}
	return 0, false
}

// Datasets returns the dataset names in mapping order.
func (m ClassMapping) Datasets() []string {
	names := make([]string, 0, len(m))
	for _, e := range m {
		names = append(names, e.Dataset)
	}
	return names
}

// Validate checks every target id indexes into s and no dataset is listed twice.
func (m ClassMapping) Validate(s Schema) error {
	var errs []error
	seen := make(map[string]bool, len(m))
	for _, e := range m {
		if e.Dataset == "" {
			errs = append(errs, fmt.Errorf("mapping entry with target %d has no dataset name", e.Target))
			continue
		}
		if seen[e.Dataset] {
			errs = append(errs, fmt.Errorf("dataset %q is mapped more than once", e.Dataset))
		}
		seen[e.Dataset] = true
		if !s.Contains(e.Target) {
			errs = append(errs, fmt.Errorf("dataset %q maps to class %d, outside schema range [0, %d)", e.Dataset, e.Target, s.Len()))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.New(errors.Join(errs...)).
		Component("schema").
		Category(errors.CategoryValidation).
		Build()
}

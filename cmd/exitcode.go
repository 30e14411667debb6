package cmd

import (
	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/export"
	"github.com/tphakala/datamerge/internal/merge"
)

// Process exit codes.
const (
	ExitOK                  = 0
	ExitFailure             = 1
	ExitOutputMissing       = 2
	ExitDestinationConflict = 3
	ExitNoDatasets          = 4
)

// ExitCode maps a command error onto the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, export.ErrOutputMissing):
		return ExitOutputMissing
	case errors.Is(err, export.ErrDestinationConflict):
		return ExitDestinationConflict
	case errors.Is(err, merge.ErrNoDatasets), errors.IsCategory(err, errors.CategoryNoDatasets):
		return ExitNoDatasets
	default:
		return ExitFailure
	}
}

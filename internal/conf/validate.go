// conf/validate.go

package conf

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tphakala/datamerge/internal/logger"
	"github.com/tphakala/datamerge/internal/schema"
)

var logLevels = []string{
	string(logger.LogLevelTrace),
	string(logger.LogLevelDebug),
	string(logger.LogLevelInfo),
	string(logger.LogLevelWarn),
	string(logger.LogLevelError),
}

func isLogLevel(level string) bool {
	return slices.Contains(logLevels, level)
}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct and reports every
// problem at once. Class ids are checked against the schema here, so a run
// never starts with a target outside it.
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateSchemaSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateMergeSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateExportSettings(&settings.Export); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}
	if err := validateLoggingSettings(&settings.Logging); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Metrics.Enabled && settings.Metrics.Textfile == "" {
		ve.Errors = append(ve.Errors, "metrics.textfile is required when metrics are enabled")
	}
	if settings.History.Enabled && settings.History.Path == "" {
		ve.Errors = append(ve.Errors, "history.path is required when history is enabled")
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSchemaSettings(settings *Settings) error {
	s := settings.ClassSchema()
	if err := s.Validate(); err != nil {
		return err
	}
	return schema.ClassMapping(settings.Schema.Mapping).Validate(s)
}

func validateMergeSettings(settings *Settings) error {
	m := &settings.Merge
	var problems []string

	if strings.TrimSpace(m.Out) == "" {
		problems = append(problems, "merge.out must not be empty")
	}
	if m.Suffix == "" {
		problems = append(problems, "merge.suffix must not be empty")
	}

	policy, err := schema.ParsePolicy(m.Policy)
	switch {
	case err != nil:
		problems = append(problems, err.Error())
	case policy == schema.PolicyMapped:
		if len(settings.Schema.Mapping) == 0 {
			problems = append(problems, "merge.policy mapped requires at least one schema.mapping entry")
		}
	case policy == schema.PolicyForced:
		if n := len(settings.Schema.Names); m.ForcedTarget < 0 || m.ForcedTarget >= n {
			problems = append(problems, fmt.Sprintf("merge.forcedtarget %d is outside schema range [0, %d)", m.ForcedTarget, n))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("merge settings: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateExportSettings(e *ExportSettings) error {
	var problems []string
	if e.ImgSize <= 0 {
		problems = append(problems, fmt.Sprintf("export.imgsz must be positive, got %d", e.ImgSize))
	}
	if e.OutName == "" || strings.ContainsAny(e.OutName, `/\`) {
		problems = append(problems, fmt.Sprintf("export.outname %q must be a plain file name", e.OutName))
	}
	if len(problems) > 0 {
		return fmt.Errorf("export settings: %s", strings.Join(problems, "; "))
	}
	return nil
}

func validateLoggingSettings(l *logger.LoggingConfig) error {
	var bad []string
	check := func(key, level string) {
		if level != "" && !isLogLevel(level) {
			bad = append(bad, fmt.Sprintf("%s %q", key, level))
		}
	}

	check("logging.default_level", l.DefaultLevel)
	if l.Console != nil {
		check("logging.console.level", l.Console.Level)
	}
	if l.FileOutput != nil {
		check("logging.file_output.level", l.FileOutput.Level)
		if l.FileOutput.Enabled && l.FileOutput.Path == "" {
			return fmt.Errorf("logging.file_output.path is required when file output is enabled")
		}
	}
	for module, level := range l.ModuleLevels {
		check("logging.module_levels."+module, level)
	}

	if len(bad) > 0 {
		slices.Sort(bad)
		return fmt.Errorf("invalid log level for %s (want one of %s)", strings.Join(bad, ", "), strings.Join(logLevels, ", "))
	}
	return nil
}

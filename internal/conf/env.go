// env.go - environment variable overrides for datamerge settings
package conf

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/tphakala/datamerge/internal/schema"
)

// envBinding ties a config key to the environment variable overriding it.
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", EnvPrefix + "_DEBUG", validateEnvBool},
		{"logging.default_level", EnvPrefix + "_LOG_LEVEL", validateEnvLogLevel},

		{"merge.root", EnvPrefix + "_MERGE_ROOT", nil},
		{"merge.out", EnvPrefix + "_MERGE_OUT", nil},
		{"merge.dryrun", EnvPrefix + "_MERGE_DRYRUN", validateEnvBool},
		{"merge.policy", EnvPrefix + "_MERGE_POLICY", validateEnvPolicy},
		{"merge.forcedtarget", EnvPrefix + "_MERGE_FORCEDTARGET", validateEnvNonNegativeInt},
		{"merge.suffix", EnvPrefix + "_MERGE_SUFFIX", nil},

		{"metrics.enabled", EnvPrefix + "_METRICS_ENABLED", validateEnvBool},
		{"metrics.textfile", EnvPrefix + "_METRICS_TEXTFILE", nil},
		{"history.enabled", EnvPrefix + "_HISTORY_ENABLED", validateEnvBool},
		{"history.path", EnvPrefix + "_HISTORY_PATH", nil},

		{"export.weights", EnvPrefix + "_EXPORT_WEIGHTS", nil},
		{"export.imgsz", EnvPrefix + "_EXPORT_IMGSZ", validateEnvImgSize},
		{"export.half", EnvPrefix + "_EXPORT_HALF", validateEnvBool},
		{"export.nms", EnvPrefix + "_EXPORT_NMS", validateEnvBool},
		{"export.binary", EnvPrefix + "_EXPORT_BINARY", nil},
	}
}

// configureEnvironmentVariables enables DATAMERGE_* overrides for every key
// and binds the explicitly named variables above.
func configureEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		// Bad values are rejected again by ValidateSettings after unmarshal.
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
}

func bindEnvVars(v *viper.Viper) error {
	var warnings []string
	for _, b := range getEnvBindings() {
		if err := v.BindEnv(b.ConfigKey, b.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", b.EnvVar, err))
			continue
		}
		if b.Validate == nil {
			continue
		}
		if value := os.Getenv(b.EnvVar); value != "" {
			if err := b.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", b.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	if !isLogLevel(value) {
		return fmt.Errorf("must be one of %s", strings.Join(logLevels, ", "))
	}
	return nil
}

func validateEnvPolicy(value string) error {
	_, err := schema.ParsePolicy(value)
	return err
}

func validateEnvNonNegativeInt(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not an integer")
	}
	if n < 0 {
		return fmt.Errorf("must not be negative, got %d", n)
	}
	return nil
}

func validateEnvImgSize(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("not an integer")
	}
	if n <= 0 {
		return fmt.Errorf("must be positive, got %d", n)
	}
	return nil
}

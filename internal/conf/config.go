// conf/config.go

// Package conf loads datamerge settings from config.yaml, the environment and
// command line flags.
package conf

import (
	"bytes"
	_ "embed"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/logger"
	"github.com/tphakala/datamerge/internal/merge"
	"github.com/tphakala/datamerge/internal/schema"
)

//go:embed config.yaml
var defaultConfig []byte

// EnvPrefix prefixes every environment override, e.g. DATAMERGE_MERGE_ROOT.
const EnvPrefix = "DATAMERGE"

// SchemaSettings holds the unified class schema and the dataset mapping.
type SchemaSettings struct {
	Names   []string       `mapstructure:"names"`
	Mapping []schema.Entry `mapstructure:"mapping"`
}

// MergeSettings controls a merge run.
type MergeSettings struct {
	Root         string   `mapstructure:"root"`         // folder holding the dataset folders
	Out          string   `mapstructure:"out"`          // output folder, relative to root unless absolute
	Datasets     []string `mapstructure:"datasets"`     // explicit dataset glob patterns
	DryRun       bool     `mapstructure:"dryrun"`       // preview without touching the filesystem
	Policy       string   `mapstructure:"policy"`       // mapped or forced
	ForcedTarget int      `mapstructure:"forcedtarget"` // class id used by the forced policy
	Suffix       string   `mapstructure:"suffix"`       // dataset folder suffix for discovery
}

// MetricsSettings controls the Prometheus textfile dump.
type MetricsSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// HistorySettings controls the SQLite run ledger.
type HistorySettings struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// ExportSettings controls the Core ML export boundary.
type ExportSettings struct {
	Weights string `mapstructure:"weights"`
	ImgSize int    `mapstructure:"imgsz"`
	Half    bool   `mapstructure:"half"`
	NMS     bool   `mapstructure:"nms"`
	OutName string `mapstructure:"outname"`
	Binary  string `mapstructure:"binary"` // converter executable
}

// Settings is the root of the datamerge configuration.
type Settings struct {
	Debug   bool                 `mapstructure:"debug"`
	Logging logger.LoggingConfig `mapstructure:"logging"`
	Schema  SchemaSettings       `mapstructure:"schema"`
	Merge   MergeSettings        `mapstructure:"merge"`
	Metrics MetricsSettings      `mapstructure:"metrics"`
	History HistorySettings      `mapstructure:"history"`
	Export  ExportSettings       `mapstructure:"export"`
}

// Load reads settings into v. configFile, when set, replaces the search paths.
// A missing config.yaml falls back to the embedded defaults.
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	if err := initViper(v, configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}
	resolveLogLevels(settings)

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component("conf").
			Category(errors.CategoryValidation).
			Build()
	}
	return settings, nil
}

// resolveLogLevels applies --debug and lets empty output levels follow
// default_level.
func resolveLogLevels(s *Settings) {
	l := &s.Logging
	if s.Debug {
		l.DefaultLevel = string(logger.LogLevelDebug)
	}
	if l.Console != nil && (l.Console.Level == "" || s.Debug) {
		l.Console.Level = l.DefaultLevel
	}
	if l.FileOutput != nil && (l.FileOutput.Level == "" || s.Debug) {
		l.FileOutput.Level = l.DefaultLevel
	}
}

func initViper(v *viper.Viper, configFile string) error {
	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		for _, p := range DefaultConfigPaths() {
			v.AddConfigPath(p)
		}
	}

	setDefaultConfig(v)
	configureEnvironmentVariables(v)

	err := v.ReadInConfig()
	if err == nil {
		return nil
	}
	var notFound viper.ConfigFileNotFoundError
	if configFile == "" && errors.As(err, &notFound) {
		// No config on disk, run on the documented defaults.
		return v.ReadConfig(bytes.NewReader(defaultConfig))
	}
	return errors.New(err).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Context("config_file", configFile).
		Build()
}

// loadDotEnv loads path into the process environment when it exists.
// Variables already set are left alone.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("env_file", path).
			Build()
	}
	return nil
}

// DefaultConfigPaths returns the directories searched for config.yaml.
func DefaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "datamerge"))
	}
	return paths
}

// DefaultConfig returns the embedded default config.yaml.
func DefaultConfig() []byte {
	return bytes.Clone(defaultConfig)
}

// ClassSchema returns the configured unified schema.
func (s *Settings) ClassSchema() schema.Schema {
	return schema.New(s.Schema.Names...)
}

// OutputDir resolves the merge output folder against the root.
func (s *Settings) OutputDir() string {
	if filepath.IsAbs(s.Merge.Out) {
		return s.Merge.Out
	}
	return filepath.Join(s.Merge.Root, s.Merge.Out)
}

// MergeConfig builds the engine configuration for a run.
func (s *Settings) MergeConfig() (merge.Config, error) {
	policy, err := schema.ParsePolicy(s.Merge.Policy)
	if err != nil {
		return merge.Config{}, err
	}
	return merge.Config{
		OutputDir:    s.OutputDir(),
		DryRun:       s.Merge.DryRun,
		Schema:       s.ClassSchema(),
		Policy:       policy,
		ForcedTarget: s.Merge.ForcedTarget,
		Mapping:      schema.ClassMapping(s.Schema.Mapping),
	}, nil
}

// DatasetPatterns returns the explicit dataset patterns with blanks removed.
// A single comma separated entry, as given on the command line, is split.
func (s *Settings) DatasetPatterns() []string {
	var out []string
	for _, entry := range s.Merge.Datasets {
		for _, p := range strings.Split(entry, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

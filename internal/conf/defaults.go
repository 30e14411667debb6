// conf/defaults.go

package conf

import (
	"github.com/spf13/viper"

	"github.com/tphakala/datamerge/internal/dataset"
	"github.com/tphakala/datamerge/internal/export"
	"github.com/tphakala/datamerge/internal/logger"
	"github.com/tphakala/datamerge/internal/schema"
)

// setDefaultConfig registers a default for every configuration key.
// Keep in sync with config.yaml.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)

	// Logging
	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", "")
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", "")

	// Class schema
	v.SetDefault("schema.names", []string{"credit_card", "id_card", "passport"})
	v.SetDefault("schema.mapping", []map[string]any{
		{"dataset": "credit-cards.yolov11", "target": 0},
		{"dataset": "card-live-video.yolov11", "target": 0},
		{"dataset": "VKYC.v2i.yolov11", "target": 1},
		{"dataset": "passport.yolov11", "target": 2},
	})

	// Merge
	v.SetDefault("merge.root", ".")
	v.SetDefault("merge.out", "merged_dataset"+dataset.DefaultSuffix)
	v.SetDefault("merge.datasets", []string{})
	v.SetDefault("merge.dryrun", false)
	v.SetDefault("merge.policy", string(schema.PolicyMapped))
	v.SetDefault("merge.forcedtarget", 1)
	v.SetDefault("merge.suffix", dataset.DefaultSuffix)

	// Metrics
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.textfile", "metrics/datamerge.prom")

	// History
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "data/history.db")

	// Export
	v.SetDefault("export.weights", "best.pt")
	v.SetDefault("export.imgsz", 640)
	v.SetDefault("export.half", false)
	v.SetDefault("export.nms", true)
	v.SetDefault("export.outname", export.DefaultOutName)
	v.SetDefault("export.binary", export.DefaultBinary)
}

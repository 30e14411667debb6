// Package cmd wires the datamerge command line.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/datamerge/cmd/export"
	"github.com/tphakala/datamerge/cmd/history"
	"github.com/tphakala/datamerge/cmd/merge"
	"github.com/tphakala/datamerge/internal/buildinfo"
	"github.com/tphakala/datamerge/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(app *conf.Context, info *buildinfo.Context) *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "datamerge",
		Short: "Merge YOLO datasets into one unified class schema",
		Long: `datamerge combines several YOLO object detection datasets into a single
dataset with a unified class schema, writes its data.yaml, and hands trained
weights to the Core ML exporter.`,
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Init(configFile)
		},
	}

	setupFlags(rootCmd, app, &configFile)

	rootCmd.AddCommand(
		merge.Command(app),
		export.Command(app),
		history.Command(app),
	)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, app *conf.Context, configFile *string) {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(configFile, "config", "", "Config file (default: ./config.yaml or ~/.config/datamerge/config.yaml)")
	flags.BoolP("debug", "d", false, "Enable debug output")

	// Flag names are static, a failure here is a programming error.
	cobra.CheckErr(conf.BindFlags(app.Viper, flags, map[string]string{"debug": "debug"}))
}

package conf

import (
	"io"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/logger"
)

// Context carries what every command needs: the loaded settings, the
// filesystem, the output streams and the central logger.
type Context struct {
	Viper    *viper.Viper
	Fs       afero.Fs
	Stdout   io.Writer
	Stderr   io.Writer
	Settings *Settings

	central *logger.CentralLogger
}

// NewContext returns a Context over the real filesystem. Settings are
// loaded later by Init, once command line flags are parsed.
func NewContext(stdout, stderr io.Writer) *Context {
	return &Context{
		Viper:  viper.New(),
		Fs:     afero.NewOsFs(),
		Stdout: stdout,
		Stderr: stderr,
	}
}

// Init loads settings and starts the central logger. Console logs go to
// Stderr so command output on Stdout stays clean.
func (c *Context) Init(configFile string) error {
	settings, err := Load(c.Viper, configFile)
	if err != nil {
		return err
	}
	c.Settings = settings

	central, err := logger.NewCentralLogger(&settings.Logging, logger.WithConsoleWriter(c.Stderr))
	if err != nil {
		return errors.New(err).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Context("operation", "init_logger").
			Build()
	}
	c.central = central
	return nil
}

// Log returns the root logger, or a discarding logger before Init.
// Components derive their own module loggers from it.
func (c *Context) Log() logger.Logger {
	if c.central == nil {
		return logger.NewSlogLogger(io.Discard, logger.LogLevelError, nil)
	}
	return c.central.Module("")
}

// Close flushes and closes the logger.
func (c *Context) Close() error {
	if c.central == nil {
		return nil
	}
	return c.central.Close()
}

// BindFlags binds each named flag to its config key, so a flag given on the
// command line overrides config files and the environment.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		f := flags.Lookup(name)
		if f == nil {
			return errors.Newf("unknown flag %q for config key %q", name, key).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Build()
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.New(err).
				Component("conf").
				Category(errors.CategoryConfiguration).
				Context("flag", name).
				Build()
		}
	}
	return nil
}

package main

import (
	"github.com/fatih/color"
	"github.com/luxifer/ics/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var (
	configFile string
	settings   []string
)

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file to read at startup (default is $XDG_CONFIG_HOME/icsparse/"+config.FileName+")")
	flags.StringArrayVarP(&settings, "set", "o", nil, "override a setting, as `key=value` (max_depth, format, color)")
	flags.Bool("no-color", false, "disable colored output")
}

var cfg = config.Default()

// initConfig finds the configuration file.
func initConfig() {
	if configFile != "" {
		return
	}

	var err error
	configFile, err = config.Find()
	if err != nil {
		D("%v\n", err)
		configFile = ""
		return
	}

	V("config file is %q\n", configFile)
}

func parseConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		V("load config file %q\n", configFile)

		c, err := config.Load(configFile)
		if err != nil {
			return errors.WithMessage(err, "parse config file failed")
		}
		cfg = c
	}

	if err := cfg.Apply(settings); err != nil {
		return err
	}

	if boolFlag(cmd.Flags(), "no-color") {
		cfg.Color = false
	}
	color.NoColor = color.NoColor || !cfg.Color

	D("settings: %+v\n", cfg)
	return nil
}

// boolFlag returns the value of a boolean flag, false if it does not exist.
func boolFlag(fs *pflag.FlagSet, name string) bool {
	v, err := fs.GetBool(name)
	return err == nil && v
}

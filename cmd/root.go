package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/labelgrid/cmd/config"
	"github.com/tphakala/labelgrid/cmd/index"
	"github.com/tphakala/labelgrid/cmd/license"
	"github.com/tphakala/labelgrid/cmd/serve"
	"github.com/tphakala/labelgrid/internal/conf"
	"github.com/tphakala/labelgrid/internal/errors"
	"github.com/tphakala/labelgrid/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "labelgrid",
		Short:         "Image-label dataset previewer",
		Long:          "Browse ImageNet and Tiny ImageNet samples one label at a time.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Set up the global flags for the root command.
	if err := setupFlags(rootCmd, settings); err != nil {
		GetLogger().Warn("failed to bind global flags", logger.Error(err))
	}

	// Add sub-commands to the root command.
	serveCmd := serve.Command(settings)
	indexCmd := index.Command(settings)
	labelsCmd := index.LabelsCommand(settings)
	pageCmd := index.PageCommand(settings)
	configCmd := config.Command(settings)
	licenseCmd := license.Command()

	rootCmd.AddCommand(serveCmd, indexCmd, labelsCmd, pageCmd, configCmd, licenseCmd)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// config and license work without a valid dataset setup
		if cmd == licenseCmd || cmd == configCmd || cmd.Parent() == configCmd {
			return nil
		}
		return initialize(settings)
	}

	return rootCmd
}

// initialize re-validates settings after flags were applied and installs the
// global logger.
func initialize(settings *conf.Settings) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}

	if err := conf.ValidateSettings(settings); err != nil {
		return errors.ConfigError(err).
			Context("operation", "validate_flags").
			Build()
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(central)
	return nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")
	flags.StringVar(&settings.Dataset.RootDirsFile, "rootdirs", viper.GetString("dataset.rootdirsfile"), "Path to the version,path root directory mapping file")
	flags.StringVar(&settings.Dataset.Version, "version", viper.GetString("dataset.version"), "Dataset version: full or tiny")
	flags.IntVar(&settings.Dataset.SamplePerLabel, "sample", viper.GetInt("dataset.sampleperlabel"), "Images kept per label")
	flags.StringVar(&settings.Dataset.Labelspace, "labelspace", viper.GetString("dataset.labelspace"), "Label table source: observed or declared")
	flags.BoolVar(&settings.Dataset.Shuffle, "shuffle", viper.GetBool("dataset.shuffle"), "Accepted for compatibility, tables keep scan order")

	if err := viper.BindPFlags(flags); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}

// GetLogger returns the cli module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("cli")
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardnew/hashspi/config"
	"github.com/ardnew/hashspi/pkg"
)

var (
	version string
	commit  string
	date    string
)

var (
	configPath string
	logLevel   string
	logFormat  string

	// cfg is loaded by the root PersistentPreRunE before any subcommand runs.
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hashspi",
	Short: "hashspi - SPI hashing chip chain driver",
	Long: `hashspi drives a chain of hashing chips over a shared SPI bus.

It keeps every chip's job buffer topped up from a work supply, polls the
chips for nonces, validates them and forwards the good ones to a result
sink. A simulated chain is available for running without hardware.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: loadConfig,
	// Unknown flags are an error
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Errors are printed by the printer, not by cobra
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to hashspi.yml (defaults are used when omitted)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Override log format: text or json")
}

// loadConfig reads the configuration file, applies flag overrides and
// configures the process logger.
func loadConfig(cmd *cobra.Command, args []string) error {
	c := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return Error(cmd.ErrOrStderr(), "Failed to load configuration",
				err.Error(),
				[]string{"Check the file path passed to --config", "Run without --config to use the built-in defaults"})
		}
		c = loaded
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}

	level, err := pkg.ParseLogLevel(c.Log.Level)
	if err != nil {
		return Error(cmd.ErrOrStderr(), "Invalid log level", err.Error(), nil)
	}
	format, err := pkg.ParseLogFormat(c.Log.Format)
	if err != nil {
		return Error(cmd.ErrOrStderr(), "Invalid log format", err.Error(), nil)
	}
	pkg.SetLogFormat(format)
	pkg.SetLogLevel(level)

	cfg = c
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Cloudsky01/qatrun/internal/config"
	"github.com/Cloudsky01/qatrun/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "qatrun",
		Short: "Run the QAT test automation against the latest Jenkins build",
		Long: `qatrun downloads the newest artifact of a Jenkins job, starts the QAT
test automation and gates on the status the run writes to its log file.
The exit code is 0 only when the run reports the success status.

It can also enable the test suites affected by the most recent commit of
a GitHub repository in the test runner's XML configuration.

Get started:
  qatrun init            # Create a configuration file
  qatrun run             # Download, start and gate a test run
  qatrun sync-suites     # Select suites from the latest commit`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: user config merged with ./.qatrun.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")

	rootCmd.SetVersionTemplate(fmt.Sprintf("qatrun {{.Version}} (commit %s, built %s)\n", commit, date))
}

// loadConfig reads the configuration with the command's flags bound on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(configPath, cmd.Flags())
}

func newLogger(cfg *config.Config) (*zap.SugaredLogger, error) {
	level := cfg.Log.Level
	if debug {
		level = "debug"
	}
	return log.New(&log.Config{Level: level, NoCaller: !debug})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

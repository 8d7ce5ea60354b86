package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/ui-builder/internal/config"
	"github.com/jonathan/ui-builder/internal/logger"
)

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "ui_agent",
		Short:         "UI generation pipeline server and tools",
		Long:          "ui_agent turns natural-language UI descriptions into validated, tested React components and optionally deploys them.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (defaults to LOG_LEVEL)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Print detailed output")

	cmd.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newValidateCmd(opts),
		newGenTestsCmd(opts),
		newHistoryCmd(opts),
	)
	return cmd
}

// loadConfig reads the environment, overlays the config file when one is
// given and applies the shared flags that were explicitly set.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	envCfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg := *envCfg
	if o.configPath != "" {
		fileCfg, err := config.LoadConfig(o.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = fileCfg.MergeWithDefaults(*envCfg)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = o.verbose
	}
	return &cfg, nil
}

// newLogger builds the process logger. Local commands log warnings only
// unless verbose output was asked for.
func newLogger(cfg *config.Config, server bool) (logger.Logger, error) {
	level := cfg.LogLevel
	if !server && !cfg.Verbose && level == "info" {
		level = "warn"
	}
	return logger.New(level)
}

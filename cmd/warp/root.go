package main

import (
	"fmt"
	"os"

	"github.com/aretw0/warp"
	"github.com/aretw0/warp/internal/config"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "warp",
	Short:         "Warp runs typed pipelines of steps",
	Long:          `Warp executes Lua scripts as pipelines, from the command line or behind an HTTP server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("full-trace", false, "Record full failure traces in the model")
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("full-trace") {
		cfg.FullTrace, _ = cmd.Flags().GetBool("full-trace")
	}
	return cfg, cfg.Validate()
}

func newRuntime(cmd *cobra.Command, override func(*config.Config)) (*warp.Runtime, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if override != nil {
		override(&cfg)
	}
	return warp.New(cfg)
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/sonicwave/pulse/internal/config"
	"github.com/sonicwave/pulse/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pulse",
	Short: "Pulse drives stimulation sessions",
	Long: `Pulse is the session control core of a stimulation device: keypad entry,
smooth output ramps, countdowns and an operation ledger.`,
	SilenceUsage: true,
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
	rootCmd.PersistentFlags().StringP("config", "c", "pulse.yaml", "Configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("redis", "", "Redis address override")
}

// loadConfig reads the configuration file and applies flag overrides.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("redis") {
		cfg.Redis.Addr, _ = cmd.Flags().GetString("redis")
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config) *slog.Logger {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	if cfg.Log.Format == "json" {
		return logging.NewJSON(os.Stderr, level)
	}
	return logging.New(level)
}

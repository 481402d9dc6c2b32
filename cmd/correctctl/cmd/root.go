package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/langquence/correct-tray/internal/config"
	"github.com/langquence/correct-tray/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "correctctl",
	Short: "Record, frame and submit voice corrections from the terminal",
	Long: `correctctl drives the same capture pipeline as the tray app without a UI.

Commands:
  devices  - list audio inputs and probe the negotiated format
  record   - capture from the microphone and submit for correction
  submit   - post an existing WAV file
  frame    - wrap raw 16-bit mono PCM in a WAV header`,
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (json, yaml or toml; default: platform config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadConfig reads --config (or the platform default) with env overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithOverrides(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	return logging.NewConsole(level)
}

func printError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}

// Package main provides the CLI entrypoint for launchchime.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/launchchime/internal/adapter/output"
	"github.com/jmylchreest/launchchime/internal/config"
	"github.com/jmylchreest/launchchime/internal/core"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
		format     string
		noColor    bool
	}
	logger *slog.Logger

	// services is opened on first use so commands that only read the
	// config file never touch the store.
	services *core.Services
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "launchchime",
	Short: "Play a sound when applications launch",
	Long: `launchchime plays a short sound whenever a configured application starts.

This command manages the per-application configuration, presets, and the
sound library. The launchchimed daemon watches for launches and plays the
sounds.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger()

		var err error
		cfg, err = config.LoadConfig(globalOpts.configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if services != nil {
			err := services.Close()
			services = nil
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/launchchime/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&globalOpts.format, "format", "f", string(output.FormatPlain),
		"Output format (plain, json, ids, dmenu)")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.noColor, "no-color", false,
		"Disable styled output")
}

// setupLogger configures the global slog logger.
func setupLogger() {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	// Log to stderr so stdout is clean for output
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// getServices opens the services on first use.
func getServices() (*core.Services, error) {
	if services != nil {
		return services, nil
	}

	if err := config.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	svc, err := core.Open(cfg, core.Options{}, logger)
	if err != nil {
		return nil, err
	}
	if svc.Seeded {
		logger.Info("installed default app configurations")
	}
	services = svc
	return services, nil
}

// formatter returns the formatter selected by --format.
func formatter(template string) output.Formatter {
	opts := output.DefaultFormatterOptions()
	opts.NoColor = globalOpts.noColor
	opts.Template = template
	return output.NewFormatter(output.FormatType(globalOpts.format), opts)
}

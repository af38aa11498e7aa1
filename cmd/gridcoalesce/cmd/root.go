// Package cmd provides the CLI commands for gridcoalesce.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/carmen-go/gridcoalesce/internal/logging"
	"github.com/carmen-go/gridcoalesce/pkg/version"
)

// Debug logging flag.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the gridcoalesce CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gridcoalesce",
		Short: "Build and query grid-store coalesce fixtures",
		Long: `gridcoalesce is a command line tool around the coalesce engine of a
tiled geocoder's grid-store search layer.

It builds sample grid stores from JSON fixtures, runs the coalesce
engine against a stack of phrase matches, and lets you inspect the
resulting contexts.`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: startLogging,
	}
	cmd.SetVersionTemplate("gridcoalesce version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to "+logging.DefaultLogPath())
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newCoalesceCmd())
	cmd.AddCommand(newExploreCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startLogging enables debug logging when --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}

	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

// stopLogging closes the debug log file, if one was opened.
func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup == nil {
		return nil
	}
	slog.Info("debug logging stopped")
	loggingCleanup()
	loggingCleanup = nil
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

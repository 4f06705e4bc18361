// Package cmd provides the CLI commands for wscompile.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/contextdb/wscompile/internal/logging"
	"github.com/contextdb/wscompile/pkg/version"
)

// Debug logging flag, shared by the PersistentPreRunE/PersistentPostRunE pair.
var (
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the wscompile CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wscompile",
		Short: "Working set compiler for AI agent context",
		Long: `wscompile turns a query and a set of candidate generators into a
budget-constrained, diverse working set: signal derivation, generator
fan-out, fusion and scoring, MMR selection, and hydration.

Point it at one or more remote generators and run a compile:

  wscompile compile "authentication middleware" \
    --lexical http://localhost:8081 \
    --semantic http://localhost:8082 \
    --budget 4000`,
		Version: version.Version,
	}

	cmd.SetVersionTemplate("wscompile version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.wscompile/logs/")
	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newCompileCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func startLogging(_ *cobra.Command, _ []string) error {
	if !debugMode {
		return nil
	}
	logger, cleanup, err := logging.Setup(logging.DebugConfig())
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug logging enabled", slog.String("log_file", logging.DefaultLogPath()))
	return nil
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

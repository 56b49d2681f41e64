// Package cmd provides the CLI commands for minirag.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/config"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/logging"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/internal/profiling"
	"github.com/SubhamAgarwal1/Mini-RAG-Reranker-Sprint/pkg/version"
)

// Profiling flags
var (
	profileCPU   string
	profileMem   string
	profileTrace string
	profiler     = profiling.NewProfiler()
	cpuCleanup   func()
	traceCleanup func()
)

// Debug logging flag
var (
	debugMode      bool
	loggingCleanup func()
)

// configPath is the --config flag, shared by all subcommands.
var configPath string

// NewRootCmd creates the root command for the minirag CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "minirag",
		Short: "Hybrid retrieval and extractive QA over a document corpus",
		Long: `minirag answers questions against an ingested document corpus using
hybrid retrieval: dense vector similarity blended with BM25 keyword
matching. Answers are extracted verbatim from the top passages with
citations, and the service abstains when the evidence is weak.

Typical flow:

  minirag ingest            # index the documents in the manifest
  minirag ask "what is lockout tagout?"
  minirag serve             # expose POST /ask over HTTP`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("minirag version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to minirag.yaml (default: ./minirag.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to file")

	cmd.PersistentFlags().StringVar(&profileCPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileMem, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileTrace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// loadConfig builds the effective configuration for a command run.
func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

// startProfilingAndLogging starts CPU/trace profiling and debug logging
// if the flags are set.
func startProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error

	if debugMode {
		logger, cleanup, err := logging.Setup(logging.DebugConfig())
		if err != nil {
			return fmt.Errorf("failed to setup debug logging: %w", err)
		}
		loggingCleanup = cleanup
		slog.SetDefault(logger)
		slog.Info("debug logging enabled",
			slog.String("log_file", logging.DefaultLogPath()))
	}

	if profileCPU != "" {
		cpuCleanup, err = profiler.StartCPU(profileCPU)
		if err != nil {
			return fmt.Errorf("failed to start CPU profile: %w", err)
		}
	}

	if profileTrace != "" {
		traceCleanup, err = profiler.StartTrace(profileTrace)
		if err != nil {
			if cpuCleanup != nil {
				cpuCleanup()
			}
			return fmt.Errorf("failed to start trace: %w", err)
		}
	}

	return nil
}

// stopProfilingAndLogging stops profiling and logging, and writes the
// memory profile if requested.
func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	if cpuCleanup != nil {
		cpuCleanup()
		cpuCleanup = nil
	}
	if traceCleanup != nil {
		traceCleanup()
		traceCleanup = nil
	}

	if profileMem != "" {
		if err := profiler.WriteHeap(profileMem); err != nil {
			return fmt.Errorf("failed to write memory profile: %w", err)
		}
	}

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

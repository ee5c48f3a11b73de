package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/p4harmonize/pkg/config"
	"github.com/sdejongh/p4harmonize/pkg/executor"
	"github.com/sdejongh/p4harmonize/pkg/logging"
	"github.com/sdejongh/p4harmonize/pkg/models"
	"github.com/sdejongh/p4harmonize/pkg/output"
	"github.com/sdejongh/p4harmonize/pkg/p4"
	"github.com/sdejongh/p4harmonize/pkg/source"
)

// loadConfig reads the config file over the defaults and fills the
// Perforce settings from the environment. Validation is left to the caller
// since clean only needs the destination section.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Decode(globalFlags.ConfigFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// parseBandwidth parses a bandwidth limit like "10M" or "1.5 GB" into
// bytes per second. An empty string means unlimited.
func parseBandwidth(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid bandwidth limit %q: %w", s, err)
	}
	return int64(n), nil
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cfg *config.Config, f *CommonFlags) {
	// Parallel workers
	if f.Parallel > 0 {
		cfg.Performance.MaxWorkers = f.Parallel
	}

	// Output format
	if f.Output != "" {
		cfg.Output.Format = f.Output
	}

	// Logging
	if f.LogFile != "" {
		cfg.Logging.File = f.LogFile
	}
	if f.LogFormat != "" {
		cfg.Logging.Format = f.LogFormat
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Debug logging in verbose mode
	if globalFlags.Verbose {
		cfg.Logging.Level = "debug"
	}
}

// createOperation creates an operation from configuration
func createOperation(cfg *config.Config, dryRun bool) (*models.Operation, error) {
	operation := &models.Operation{
		ID:             uuid.New().String(),
		SourceRoot:     cfg.Source.Root,
		SourceType:     models.SourceType(cfg.Source.Type),
		Revision:       cfg.Source.Revision,
		Stream:         cfg.Destination.Stream,
		WorkspaceRoot:  cfg.Destination.Root,
		SourceIgnore:   cfg.SourceIgnore(),
		DestIgnore:     cfg.DestinationIgnore(),
		DryRun:         dryRun,
		MaxWorkers:     cfg.Workers(),
		BatchByteLimit: cfg.Performance.BatchByteLimit,
		BandwidthLimit: cfg.Performance.BandwidthLimit,
		BufferSize:     cfg.Performance.BufferSize,
		CreatedAt:      time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}

// createLogger logs to the console and, when configured, to a rotating file
func createLogger(cfg *config.Config) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)
	format := logging.Format(cfg.Logging.Format)

	consoleLevel := level
	if cfg.Output.Quiet {
		consoleLevel = logging.ErrorLevel
	}
	console := logging.NewConsoleLogger(logging.ConsoleLoggerConfig{
		Format: format,
		Level:  consoleLevel,
	})

	if cfg.Logging.File == "" {
		return console, nil
	}

	file, err := logging.NewFileLogger(logging.FileLoggerConfig{
		Path:       cfg.Logging.File,
		Format:     format,
		Level:      level,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return nil, err
	}

	return logging.NewMultiLogger(console, file), nil
}

// createFormatter selects the output formatter. Quiet human output prints nothing.
func createFormatter(cfg *config.Config) (output.Formatter, error) {
	if cfg.Output.Quiet && cfg.Output.Format != "json" {
		return output.NullFormatter{}, nil
	}
	return output.New(cfg.Output.Format, cfg.Output.Progress)
}

// createClient opens the Perforce session for the configured workspace
func createClient(cfg *config.Config, dryRun bool, logger logging.Logger) *p4.Client {
	conn := p4.Connection{
		Port:   cfg.Destination.P4Port,
		User:   cfg.Destination.P4User,
		Client: cfg.Destination.P4Client,
	}
	return p4.NewClient(p4.ClientConfig{
		Connection: conn,
		Root:       cfg.Destination.Root,
		Stream:     cfg.Destination.Stream,
		DryRun:     dryRun,
	}, p4.NewCommandRunner(conn, executor.New()), logger)
}

// createLister opens the source tree
func createLister(cfg *config.Config) (source.Lister, error) {
	return source.Open(source.Options{
		Root:     cfg.Source.Root,
		Type:     models.SourceType(cfg.Source.Type),
		Revision: cfg.Source.Revision,
		IsUnreal: cfg.Source.IsUnreal,
	}, executor.New())
}

// commandContext returns the command context, or a background context
func commandContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// writeDifferences writes the differences report when a path is set or
// --diff-format was given. The --diff-report path overrides output.report.
func writeDifferences(cmd *cobra.Command, cfg *config.Config, report *models.Report, path, format string) error {
	if path == "" {
		path = cfg.Output.Report
	}
	if path == "" && !cmd.Flags().Changed("diff-format") {
		return nil
	}
	if err := output.WriteDifferencesReport(report, path, format); err != nil {
		return fmt.Errorf("failed to write differences report: %w", err)
	}
	return nil
}

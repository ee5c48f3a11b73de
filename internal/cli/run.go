package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/p4harmonize/pkg/models"
	"github.com/sdejongh/p4harmonize/pkg/sync"
)

// RunFlags holds run command flags
type RunFlags struct {
	CommonFlags
	BatchLimit int
	Bandwidth  string
	DiffReport string
	DiffFormat string
}

var runFlags RunFlags

// ExitError carries the process exit code of a finished command.
// Err is nil when the command completed but the status is not success.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// statusError converts a report and run error into the command result
func statusError(report *models.Report, err error) error {
	code := 2
	if report != nil {
		code = report.Status.ExitCode()
	}
	if err != nil {
		if code == 0 {
			code = 2
		}
		return &ExitError{Code: code, Err: err}
	}
	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// NewRunCommand creates the run command
func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Stage the source tree into the destination stream",
		Long: `Create a fresh workspace for the destination stream, compare it with the
source tree and open every difference for add, edit, delete or move.
Nothing is submitted: review the pending changelist and submit it yourself.

The workspace root must be empty and the workspace must not exist yet
(use "p4harmonize clean" after submitting).`,
		RunE: runRun,
	}

	addCommonFlags(cmd, &runFlags.CommonFlags)
	cmd.Flags().IntVar(&runFlags.BatchLimit, "batch-limit", 0, "maximum argument bytes per batched p4 command")
	cmd.Flags().StringVarP(&runFlags.Bandwidth, "bandwidth", "b", "", "copy bandwidth limit (e.g., \"10M\", \"1G\")")
	cmd.Flags().StringVar(&runFlags.DiffReport, "diff-report", "", "write differences report to file")
	cmd.Flags().StringVar(&runFlags.DiffFormat, "diff-format", "human", "differences report format: human, json")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd.Context())

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	applyFlagsToConfig(cfg, &runFlags.CommonFlags)
	if runFlags.BatchLimit > 0 {
		cfg.Performance.BatchByteLimit = runFlags.BatchLimit
	}
	if runFlags.Bandwidth != "" {
		limit, err := parseBandwidth(runFlags.Bandwidth)
		if err != nil {
			return err
		}
		cfg.Performance.BandwidthLimit = limit
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	operation, err := createOperation(cfg, runFlags.DryRun)
	if err != nil {
		return fmt.Errorf("failed to create operation: %w", err)
	}

	formatter, err := createFormatter(cfg)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	lister, err := createLister(cfg)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	client := createClient(cfg, operation.DryRun, logger)

	engine := sync.NewEngine(lister, client, formatter, logger, operation)
	engine.SetOutput(cmd.OutOrStdout())

	report, runErr := engine.Run(ctx)

	if runErr == nil {
		if err := writeDifferences(cmd, cfg, report, runFlags.DiffReport, runFlags.DiffFormat); err != nil {
			return err
		}
	}

	return statusError(report, runErr)
}

package cli

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/p4harmonize/pkg/models"
	"github.com/sdejongh/p4harmonize/pkg/sync"
)

var cleanFlags CommonFlags

// NewCleanCommand creates the clean command
func NewCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete the workspace and its root directory",
		Long: `Delete the workspace spec from the server and remove the workspace root
from disk, so the next run starts from a clean state. Submit or revert
the pending changes first: deleting a workspace with opened files fails.`,
		RunE: runClean,
	}

	cmd.Flags().BoolVarP(&cleanFlags.DryRun, "dry-run", "n", false, "log what would be deleted")
	cmd.Flags().StringVar(&cleanFlags.LogFile, "log-file", "", "also write logs to file")
	cmd.Flags().StringVar(&cleanFlags.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&cleanFlags.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	return cmd
}

func runClean(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd.Context())

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagsToConfig(cfg, &cleanFlags)
	if err := cfg.ValidateDestination(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := createLogger(cfg)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	operation := &models.Operation{
		ID:            uuid.New().String(),
		Stream:        cfg.Destination.Stream,
		WorkspaceRoot: cfg.Destination.Root,
		DryRun:        cleanFlags.DryRun,
		BufferSize:    cfg.Performance.BufferSize,
		CreatedAt:     time.Now(),
	}
	client := createClient(cfg, cleanFlags.DryRun, logger)

	engine := sync.NewEngine(nil, client, nil, logger, operation)
	if err := engine.Clean(ctx); err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	if !globalFlags.Quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "Workspace %s cleaned\n", cfg.Destination.P4Client)
	}
	return nil
}

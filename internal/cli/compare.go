package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/p4harmonize/pkg/sync"
)

// CompareFlags holds compare command flags
type CompareFlags struct {
	CommonFlags
	DiffReport string
	DiffFormat string
}

var compareFlags CompareFlags

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the source tree with the destination stream",
		Long: `Classify every file of the source tree and the destination stream and
print the actions a run would stage. Nothing is changed on the server or
on disk. Exits with status 1 when the trees differ.`,
		RunE: runCompare,
	}

	addCommonFlags(cmd, &compareFlags.CommonFlags)
	cmd.Flags().StringVar(&compareFlags.DiffReport, "diff-report", "", "write differences report to file")
	cmd.Flags().StringVar(&compareFlags.DiffFormat, "diff-format", "human", "differences report format: human, json")

	return cmd
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd.Context())

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagsToConfig(cfg, &compareFlags.CommonFlags)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The workspace does not exist yet, so destination paths come from the
	// depot mapping and no command may change anything.
	operation, err := createOperation(cfg, true)
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
	client := createClient(cfg, true, logger)

	engine := sync.NewEngine(lister, client, formatter, logger, operation)
	engine.SetOutput(cmd.OutOrStdout())

	report, compareErr := engine.Compare(ctx)

	if compareErr == nil {
		if err := writeDifferences(cmd, cfg, report, compareFlags.DiffReport, compareFlags.DiffFormat); err != nil {
			return err
		}
	}

	return statusError(report, compareErr)
}

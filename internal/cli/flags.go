package cli

import (
	"github.com/spf13/cobra"

	"github.com/sdejongh/p4harmonize/pkg/config"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(
		&globalFlags.ConfigFile,
		"config",
		"c",
		config.DefaultConfigPath,
		"config file (TOML, or YAML by extension)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output (debug logging)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
}

// CommonFlags are shared by the commands that talk to the server
type CommonFlags struct {
	DryRun    bool
	Parallel  int
	Output    string
	LogFile   string
	LogFormat string
	LogLevel  string
}

func addCommonFlags(cmd *cobra.Command, f *CommonFlags) {
	cmd.Flags().BoolVarP(&f.DryRun, "dry-run", "n", false, "log p4 commands instead of running them, copy nothing")
	cmd.Flags().IntVarP(&f.Parallel, "parallel", "p", 0, "number of parallel workers (default: one per CPU)")
	cmd.Flags().StringVarP(&f.Output, "output", "o", "", "output format: human, json")

	// Logging flags
	cmd.Flags().StringVar(&f.LogFile, "log-file", "", "also write logs to file")
	cmd.Flags().StringVar(&f.LogFormat, "log-format", "", "log format: text, json")
	cmd.Flags().StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}

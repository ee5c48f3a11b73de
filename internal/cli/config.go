package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sdejongh/p4harmonize/pkg/config"
)

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View the effective configuration or write a default configuration file.`,
	}

	cmd.AddCommand(newConfigShowCommand())
	cmd.AddCommand(newConfigInitCommand())

	return cmd
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Config File: %s\n", globalFlags.ConfigFile)
			fmt.Fprintf(w, "Source: %s (%s, revision %s)\n", cfg.Source.Root, cfg.Source.Type, cfg.Source.Revision)
			fmt.Fprintf(w, "Unreal Engine: %v\n", cfg.Source.IsUnreal)
			fmt.Fprintf(w, "Source Ignore: %s\n", strings.Join(cfg.SourceIgnore(), ", "))
			fmt.Fprintf(w, "P4PORT: %s\n", cfg.Destination.P4Port)
			fmt.Fprintf(w, "P4USER: %s\n", cfg.Destination.P4User)
			fmt.Fprintf(w, "P4CLIENT: %s\n", cfg.Destination.P4Client)
			fmt.Fprintf(w, "Stream: %s\n", cfg.Destination.Stream)
			fmt.Fprintf(w, "Workspace Root: %s\n", cfg.Destination.Root)
			fmt.Fprintf(w, "Destination Ignore: %s\n", strings.Join(cfg.DestinationIgnore(), ", "))
			fmt.Fprintf(w, "Max Workers: %d\n", cfg.Workers())
			fmt.Fprintf(w, "Batch Limit: %d bytes\n", cfg.Performance.BatchByteLimit)
			fmt.Fprintf(w, "Output Format: %s\n", cfg.Output.Format)
			fmt.Fprintf(w, "Log Format: %s\n", cfg.Logging.Format)
			fmt.Fprintf(w, "Log Level: %s\n", cfg.Logging.Level)

			if err := cfg.Validate(); err != nil {
				fmt.Fprintf(w, "\nWarning: %v\n", err)
			}
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := globalFlags.ConfigFile
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.SaveToFile(config.Default(), path); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Configuration file created at: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}

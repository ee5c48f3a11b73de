package config

import (
	"os"
	"runtime"
	"strings"

	"github.com/sdejongh/p4harmonize/internal/platform"
	"github.com/sdejongh/p4harmonize/pkg/models"
)

// DefaultBatchByteLimit caps the argument file of a single p4 command
const DefaultBatchByteLimit = 32 * 1024

// Config represents the application configuration
type Config struct {
	Source      SourceConfig      `toml:"source" yaml:"source"`
	Destination DestinationConfig `toml:"destination" yaml:"destination"`
	Performance PerformanceConfig `toml:"performance" yaml:"performance"`
	Output      OutputConfig      `toml:"output" yaml:"output"`
	Logging     LoggingConfig     `toml:"logging" yaml:"logging"`
}

// SourceConfig describes the authoritative tree
type SourceConfig struct {
	Root     string   `toml:"root" yaml:"root"`
	Type     string   `toml:"type" yaml:"type"`         // "git" or "dir"
	Revision string   `toml:"revision" yaml:"revision"` // git revision, defaults to HEAD
	IsUnreal bool     `toml:"is_unreal" yaml:"is_unreal"`
	Ignore   []string `toml:"ignore" yaml:"ignore"` // nil means the defaults
}

// DestinationConfig describes the Perforce stream and the workspace used to write it
type DestinationConfig struct {
	P4Port   string   `toml:"p4port" yaml:"p4port"`
	P4User   string   `toml:"p4user" yaml:"p4user"`
	P4Client string   `toml:"p4client" yaml:"p4client"`
	Root     string   `toml:"root" yaml:"root"`
	Stream   string   `toml:"stream" yaml:"stream"`
	Ignore   []string `toml:"ignore" yaml:"ignore"` // nil means the defaults
}

// PerformanceConfig holds performance-related settings
type PerformanceConfig struct {
	MaxWorkers     int   `toml:"max_workers" yaml:"max_workers"` // 0 = one per CPU
	BufferSize     int   `toml:"buffer_size" yaml:"buffer_size"`
	BatchByteLimit int   `toml:"batch_byte_limit" yaml:"batch_byte_limit"`
	BandwidthLimit int64 `toml:"bandwidth_limit" yaml:"bandwidth_limit"`
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `toml:"format" yaml:"format"`     // "human" or "json"
	Progress bool   `toml:"progress" yaml:"progress"` // Show progress bars
	Quiet    bool   `toml:"quiet" yaml:"quiet"`       // Suppress non-error output
	Report   string `toml:"report" yaml:"report"`     // Differences report path (empty = none)
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Format     string `toml:"format" yaml:"format"` // "json" or "text"
	Level      string `toml:"level" yaml:"level"`   // "debug", "info", "warn", "error"
	File       string `toml:"file" yaml:"file"`     // Log file path (empty = console only)
	MaxSize    int64  `toml:"max_size" yaml:"max_size"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups"`
}

// Files the Unreal Engine repository carries for GitHub that do not belong in Perforce
var UnrealSourceIgnore = []string{
	".gitattributes",
	".gitignore",
	".tgitconfig",
	"LICENSE.md",
	"PULL_REQUEST_TEMPLATE.md",
	"README.md",
	"SECURITY.md",
	"Setup.bat",
	"Setup.command",
	"Setup.sh",
	"*.DS_Store/*",
}

// Files Epic keeps in its Perforce depots that are absent from the git mirror
var UnrealDestinationIgnore = []string{
	".p4ignore.txt",
	"RunUAT.bat",
	"RunUAT.sh",
	"RunUBT.bat",
	"RunUBT.sh",
	"vs-chromium-project.txt",
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			Type:     string(models.SourceGit),
			Revision: "HEAD",
		},
		Performance: PerformanceConfig{
			MaxWorkers:     0,
			BufferSize:     65536,
			BatchByteLimit: DefaultBatchByteLimit,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
		},
		Logging: LoggingConfig{
			Format:     "text",
			Level:      "info",
			MaxSize:    10 * 1024 * 1024,
			MaxBackups: 3,
		},
	}
}

// ApplyEnvOverrides fills unset Perforce connection settings from
// P4PORT, P4USER and P4CLIENT
func (c *Config) ApplyEnvOverrides() {
	fill := func(dst *string, env string) {
		if *dst == "" {
			*dst = os.Getenv(env)
		}
	}
	fill(&c.Destination.P4Port, "P4PORT")
	fill(&c.Destination.P4User, "P4USER")
	fill(&c.Destination.P4Client, "P4CLIENT")
}

// SourceIgnore returns the effective source ignore patterns
func (c *Config) SourceIgnore() []string {
	if c.Source.Ignore == nil && c.Source.IsUnreal {
		return UnrealSourceIgnore
	}
	return c.Source.Ignore
}

// DestinationIgnore returns the effective destination ignore patterns
func (c *Config) DestinationIgnore() []string {
	if c.Destination.Ignore == nil && c.Source.IsUnreal {
		return UnrealDestinationIgnore
	}
	return c.Destination.Ignore
}

// Workers returns the worker pool size
func (c *Config) Workers() int {
	if c.Performance.MaxWorkers <= 0 {
		return runtime.NumCPU()
	}
	return c.Performance.MaxWorkers
}

// Validate checks if the configuration is valid for a full run
func (c *Config) Validate() error {
	if c.Source.Root == "" {
		return &models.ValidationError{Field: "source.root", Message: "is required"}
	}
	if err := platform.ValidatePath(c.Source.Root); err != nil {
		return &models.ValidationError{Field: "source.root", Message: err.Error()}
	}
	switch models.SourceType(c.Source.Type) {
	case models.SourceGit, models.SourceDir:
	default:
		return &models.ValidationError{Field: "source.type", Message: "must be 'git' or 'dir'"}
	}
	if c.Source.IsUnreal && c.Source.Type != string(models.SourceGit) {
		return &models.ValidationError{Field: "source.is_unreal", Message: "requires a git source"}
	}

	if err := c.ValidateDestination(); err != nil {
		return err
	}

	if c.Performance.MaxWorkers < 0 {
		return &models.ValidationError{Field: "performance.max_workers", Message: "must not be negative"}
	}
	if c.Performance.BufferSize < 1024 {
		return &models.ValidationError{Field: "performance.buffer_size", Message: "must be at least 1024 bytes"}
	}
	if c.Performance.BatchByteLimit < 0 {
		return &models.ValidationError{Field: "performance.batch_byte_limit", Message: "must not be negative"}
	}
	if c.Performance.BandwidthLimit < 0 {
		return &models.ValidationError{Field: "performance.bandwidth_limit", Message: "must not be negative"}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &models.ValidationError{Field: "output.format", Message: "must be 'human' or 'json'"}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &models.ValidationError{Field: "logging.format", Message: "must be 'json' or 'text'"}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return &models.ValidationError{Field: "logging.level", Message: "must be 'debug', 'info', 'warn', or 'error'"}
	}

	return nil
}

// ValidateDestination checks only the destination section, which is all clean needs
func (c *Config) ValidateDestination() error {
	if c.Destination.P4Client == "" {
		return &models.ValidationError{Field: "destination.p4client", Message: "is required (or set P4CLIENT)"}
	}
	if c.Destination.Root == "" {
		return &models.ValidationError{Field: "destination.root", Message: "is required"}
	}
	if err := platform.ValidatePath(c.Destination.Root); err != nil {
		return &models.ValidationError{Field: "destination.root", Message: err.Error()}
	}
	if !strings.HasPrefix(c.Destination.Stream, "//") {
		return &models.ValidationError{Field: "destination.stream", Message: "must be a depot path like //depot/main"}
	}
	if strings.HasSuffix(c.Destination.Stream, "/") || strings.HasSuffix(c.Destination.Stream, "...") {
		return &models.ValidationError{Field: "destination.stream", Message: "must not end with '/' or '...'"}
	}
	return nil
}

package logging

import (
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// ConsoleLoggerConfig holds configuration for console logging
type ConsoleLoggerConfig struct {
	// Writer defaults to stderr
	Writer io.Writer
	Format Format
	Level  Level
	// Color forces level colors on or off; nil follows the terminal
	Color *bool
}

// ConsoleLogger writes log lines to a terminal or pipe
type ConsoleLogger struct {
	core
}

// NewConsoleLogger creates a console logger
func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	w := config.Writer
	if w == nil {
		w = color.Error
	}

	colorize := !color.NoColor && w == color.Error
	if config.Color != nil {
		colorize = *config.Color
	}
	if config.Format == FormatJSON {
		colorize = false
	}

	return &ConsoleLogger{core: core{
		level:      config.Level,
		format:     config.Format,
		timeLayout: "15:04:05",
		colorize:   colorize,
		mu:         &sync.Mutex{},
		w:          w,
		now:        time.Now,
	}}
}

// WithFields returns a logger with additional fields
func (l *ConsoleLogger) WithFields(fields Fields) Logger {
	return &ConsoleLogger{core: l.core.with(fields)}
}

// Close is a no-op; the console writer is owned by the caller
func (l *ConsoleLogger) Close() error {
	return nil
}

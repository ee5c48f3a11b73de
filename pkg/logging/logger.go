package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Level represents log severity
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Format represents the log output format
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Fields represents structured log fields
type Fields map[string]interface{}

// Logger defines the interface for logging
type Logger interface {
	// Debug logs a debug message
	Debug(ctx context.Context, msg string, fields Fields)

	// Info logs an info message
	Info(ctx context.Context, msg string, fields Fields)

	// Warn logs a warning message
	Warn(ctx context.Context, msg string, fields Fields)

	// Error logs an error message
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger with additional fields
	WithFields(fields Fields) Logger

	// Close flushes and closes the logger
	Close() error
}

// String returns the upper-case level name
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a log level string, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

var levelColors = map[Level]*color.Color{
	DebugLevel: color.New(color.Faint),
	InfoLevel:  color.New(color.FgCyan),
	WarnLevel:  color.New(color.FgYellow),
	ErrorLevel: color.New(color.FgRed, color.Bold),
}

// core holds what every writer-backed logger shares. Loggers derived with
// WithFields share the writer and its mutex.
type core struct {
	level      Level
	format     Format
	timeLayout string
	colorize   bool
	fields     Fields
	mu         *sync.Mutex
	w          io.Writer
	now        func() time.Time
}

func (c *core) Debug(ctx context.Context, msg string, fields Fields) {
	c.log(DebugLevel, msg, nil, fields)
}

func (c *core) Info(ctx context.Context, msg string, fields Fields) {
	c.log(InfoLevel, msg, nil, fields)
}

func (c *core) Warn(ctx context.Context, msg string, fields Fields) {
	c.log(WarnLevel, msg, nil, fields)
}

func (c *core) Error(ctx context.Context, msg string, err error, fields Fields) {
	c.log(ErrorLevel, msg, err, fields)
}

func (c core) with(fields Fields) core {
	c.fields = merge(c.fields, fields)
	return c
}

func (c *core) log(level Level, msg string, err error, fields Fields) {
	if level < c.level {
		return
	}

	all := merge(c.fields, fields)
	var line []byte
	if c.format == FormatJSON {
		line = c.formatJSON(level, msg, err, all)
	} else {
		line = c.formatText(level, msg, err, all)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = c.w.Write(line)
}

func (c *core) formatJSON(level Level, msg string, err error, fields Fields) []byte {
	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = c.now().UTC().Format(time.RFC3339)
	entry["level"] = level.String()
	entry["message"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		data, _ = json.Marshal(map[string]string{"level": level.String(), "message": msg, "marshal_error": jsonErr.Error()})
	}
	return append(data, '\n')
}

func (c *core) formatText(level Level, msg string, err error, fields Fields) []byte {
	tag := level.String()
	if c.colorize {
		tag = levelColors[level].Sprint(tag)
	}

	var b strings.Builder
	if c.timeLayout != "" {
		b.WriteString(c.now().Format(c.timeLayout))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "[%s] %s", tag, msg)
	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}
	for _, k := range sortedKeys(fields) {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func merge(base, extra Fields) Fields {
	out := make(Fields, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

func sortedKeys(fields Fields) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

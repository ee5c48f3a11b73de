package output

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

// JSONFormatter writes one JSON event per line for automation and scripting.
// Chunk-level copy progress is not emitted.
type JSONFormatter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	now     func() time.Time
}

// JSONEvent represents a single event in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONStartData represents the data for a start event
type JSONStartData struct {
	OperationID string `json:"operation_id"`
	Source      string `json:"source"`
	Stream      string `json:"stream"`
	Workspace   string `json:"workspace"`
	DryRun      bool   `json:"dry_run"`
}

// JSONProgressData represents phase and file events
type JSONProgressData struct {
	Phase        string `json:"phase,omitempty"`
	Path         string `json:"path,omitempty"`
	Current      int    `json:"current,omitempty"`
	Total        int    `json:"total,omitempty"`
	BytesWritten int64  `json:"bytes_written,omitempty"`
	Error        string `json:"error,omitempty"`
}

// JSONClassificationData holds the size of each set
type JSONClassificationData struct {
	SourceOnly   int `json:"source_only"`
	DestOnly     int `json:"dest_only"`
	CaseMismatch int `json:"case_mismatch"`
	Changed      int `json:"changed"`
	Unchanged    int `json:"unchanged"`
}

// JSONPlanData holds the planned action counts
type JSONPlanData struct {
	Delete        int      `json:"delete"`
	CaseRename    int      `json:"case_rename"`
	Add           int      `json:"add"`
	Edit          int      `json:"edit"`
	RequiresRerun bool     `json:"requires_rerun"`
	Warnings      []string `json:"warnings,omitempty"`
}

// JSONReportData represents the final report data
type JSONReportData struct {
	OperationID string            `json:"operation_id"`
	Status      string            `json:"status"`
	ExitCode    int               `json:"exit_code"`
	Duration    string            `json:"duration"`
	DurationMs  int64             `json:"duration_ms"`
	Stats       models.Statistics `json:"stats"`
	Warnings    []string          `json:"warnings,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{
		encoder: json.NewEncoder(io.Discard),
		now:     time.Now,
	}
}

func (f *JSONFormatter) emit(eventType string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.encoder.Encode(JSONEvent{
		Timestamp: f.now(),
		Type:      eventType,
		Data:      data,
	})
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, op *models.Operation) error {
	if writer == nil {
		writer = io.Discard
	}
	f.mu.Lock()
	f.encoder = json.NewEncoder(writer)
	f.mu.Unlock()

	return f.emit("start", JSONStartData{
		OperationID: op.ID,
		Source:      op.SourceRoot,
		Stream:      op.Stream,
		Workspace:   op.WorkspaceRoot,
		DryRun:      op.DryRun,
	})
}

// Progress emits phase, file and batch events
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	if update.Type == UpdateFileProgress || update.Type == UpdateFileStart {
		return nil
	}
	data := JSONProgressData{
		Phase:        update.Phase,
		Path:         update.FilePath,
		Current:      update.CurrentFile,
		Total:        update.TotalFiles,
		BytesWritten: update.BytesWritten,
	}
	if update.Error != nil {
		data.Error = update.Error.Error()
	}
	return f.emit(update.Type, data)
}

// Classification emits the set sizes
func (f *JSONFormatter) Classification(c *models.Classification) error {
	return f.emit("classification", JSONClassificationData{
		SourceOnly:   len(c.SourceOnly),
		DestOnly:     len(c.DestOnly),
		CaseMismatch: len(c.CaseMismatch),
		Changed:      len(c.Changed),
		Unchanged:    c.Unchanged,
	})
}

// Plan emits the action counts
func (f *JSONFormatter) Plan(p *models.Plan) error {
	return f.emit("plan", JSONPlanData{
		Delete:        p.Count(models.ActionDelete),
		CaseRename:    p.Count(models.ActionCaseRename),
		Add:           p.Count(models.ActionAdd),
		Edit:          p.Count(models.ActionEdit),
		RequiresRerun: p.RequiresRerun,
		Warnings:      p.Warnings,
	})
}

// Complete emits the final report
func (f *JSONFormatter) Complete(report *models.Report) error {
	return f.emit("complete", JSONReportData{
		OperationID: report.OperationID,
		Status:      string(report.Status),
		ExitCode:    report.Status.ExitCode(),
		Duration:    report.Duration.Round(time.Millisecond).String(),
		DurationMs:  report.Duration.Milliseconds(),
		Stats:       report.Stats,
		Warnings:    report.Warnings,
	})
}

// Error emits an error event
func (f *JSONFormatter) Error(err error) error {
	return f.emit("error", map[string]string{
		"error": err.Error(),
	})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

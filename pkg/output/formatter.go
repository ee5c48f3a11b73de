package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

// Phases of a run, in order
const (
	PhaseList    = "list"
	PhaseCompare = "compare"
	PhaseCopy    = "copy"
	PhaseStage   = "stage"
)

// Progress update types
const (
	UpdatePhaseStart   = "phase_start"
	UpdateCompared     = "compare_complete"
	UpdateFileStart    = "file_start"
	UpdateFileProgress = "file_progress"
	UpdateFileComplete = "file_complete"
	UpdateFileError    = "file_error"
	UpdateBatch        = "batch_complete"
)

// ProgressUpdate represents a progress notification during a run
type ProgressUpdate struct {
	Type         string
	Phase        string
	FilePath     string
	BytesWritten int64
	TotalBytes   int64
	CurrentFile  int
	TotalFiles   int
	Error        error
}

// Formatter defines the interface for output formatting
// Implementations include human-readable, progress bar and JSON formatters
type Formatter interface {
	// Start initializes the formatter for a new run
	Start(writer io.Writer, op *models.Operation) error

	// Progress reports progress during a phase
	Progress(update ProgressUpdate) error

	// Classification reports the result of comparing both trees
	Classification(c *models.Classification) error

	// Plan reports the actions about to be applied, and their warnings
	Plan(p *models.Plan) error

	// Complete finalizes output and displays summary
	Complete(report *models.Report) error

	// Error reports a fatal error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for a configured output format.
// progress selects progress bars for the human format.
func New(format string, progress bool) (Formatter, error) {
	switch format {
	case "json":
		return NewJSONFormatter(), nil
	case "human", "":
		if progress {
			return NewProgressFormatter(), nil
		}
		return NewHumanFormatter(), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use: human, json)", format)
	}
}

// NullFormatter discards all output
type NullFormatter struct{}

func (NullFormatter) Start(io.Writer, *models.Operation) error { return nil }
func (NullFormatter) Progress(ProgressUpdate) error { return nil }
func (NullFormatter) Classification(*models.Classification) error { return nil }
func (NullFormatter) Plan(*models.Plan) error { return nil }
func (NullFormatter) Complete(*models.Report) error { return nil }
func (NullFormatter) Error(error) error { return nil }
func (NullFormatter) Name() string { return "null" }

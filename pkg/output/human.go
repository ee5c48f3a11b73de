package output

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

// Styles for human-readable output
var (
	styleSuccess = color.New(color.FgGreen).SprintFunc()
	styleError   = color.New(color.FgRed).SprintFunc()
	styleWarning = color.New(color.FgYellow).SprintFunc()
	styleInfo    = color.New(color.FgCyan).SprintFunc()
	styleBold    = color.New(color.Bold).SprintFunc()
)

// HumanFormatter formats output in human-readable format
type HumanFormatter struct {
	mu     sync.Mutex
	writer io.Writer
	op     *models.Operation
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{writer: io.Discard}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, op *models.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = io.Discard
	}
	f.writer = writer
	f.op = op

	mode := ""
	if op.DryRun {
		mode = styleWarning(" (dry run)")
	}
	fmt.Fprintf(writer, "Reconciling %s -> %s%s\n", op.SourceRoot, op.Stream, mode)
	return nil
}

// Progress reports phase changes, copies and errors. Per-chunk progress is ignored.
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case UpdatePhaseStart:
		switch update.Phase {
		case PhaseList:
			fmt.Fprintf(f.writer, "Listing source and destination files...\n")
		case PhaseCompare:
			fmt.Fprintf(f.writer, "Comparing %d shared files...\n", update.TotalFiles)
		case PhaseCopy:
			fmt.Fprintf(f.writer, "Copying %d files to the workspace...\n", update.TotalFiles)
		case PhaseStage:
			fmt.Fprintf(f.writer, "Opening %d files for %s...\n", update.TotalFiles, update.FilePath)
		}

	case UpdateFileComplete:
		fmt.Fprintf(f.writer, "[%d/%d] %s %s (%s)\n",
			update.CurrentFile, update.TotalFiles,
			styleSuccess("✓"), update.FilePath, formatBytes(update.BytesWritten))

	case UpdateFileError:
		fmt.Fprintf(f.writer, "[%d/%d] %s %s: %v\n",
			update.CurrentFile, update.TotalFiles,
			styleError("✗"), update.FilePath, update.Error)
	}
	return nil
}

// Classification prints the size of each set
func (f *HumanFormatter) Classification(c *models.Classification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeClassification(f.writer, c)
	return nil
}

// Plan prints the planned action counts and any warnings
func (f *HumanFormatter) Plan(p *models.Plan) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	writePlan(f.writer, p)
	return nil
}

// Complete finalizes output and displays summary
func (f *HumanFormatter) Complete(report *models.Report) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeSummary(f.writer, report)
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fmt.Fprintf(f.writer, "%s %v\n", styleError("Error:"), err)
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

func writeClassification(w io.Writer, c *models.Classification) {
	fmt.Fprintf(w, "\n%s\n", styleBold("Comparison:"))
	fmt.Fprintf(w, "  Source only:       %d\n", len(c.SourceOnly))
	fmt.Fprintf(w, "  Destination only:  %d\n", len(c.DestOnly))
	fmt.Fprintf(w, "  Case mismatch:     %d\n", len(c.CaseMismatch))
	fmt.Fprintf(w, "  Changed:           %d\n", len(c.Changed))
	fmt.Fprintf(w, "  Unchanged:         %d\n", c.Unchanged)
	if !c.HasDifference() {
		fmt.Fprintf(w, "\n%s\n", styleSuccess("All files in source and destination already match"))
	}
}

func writePlan(w io.Writer, p *models.Plan) {
	if p.Empty() {
		return
	}
	fmt.Fprintf(w, "\n%s\n", styleBold("Plan:"))
	fmt.Fprintf(w, "  Delete:       %d\n", p.Count(models.ActionDelete))
	fmt.Fprintf(w, "  Case rename:  %d\n", p.Count(models.ActionCaseRename))
	fmt.Fprintf(w, "  Add:          %d\n", p.Count(models.ActionAdd))
	fmt.Fprintf(w, "  Edit:         %d\n", p.Count(models.ActionEdit))
	for _, warning := range p.Warnings {
		fmt.Fprintf(w, "\n%s %s\n", styleWarning("Warning:"), warning)
	}
	fmt.Fprintln(w)
}

func writeSummary(w io.Writer, report *models.Report) {
	s := report.Stats

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Finished in %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Summary:\n")
	fmt.Fprintf(w, "  Listed:\n")
	fmt.Fprintf(w, "    Source:         %d files (%d dependencies, %d ignored)\n", s.SourceFiles, s.SourceDeps, s.SourceIgnored)
	fmt.Fprintf(w, "    Destination:    %d files (%d ignored)\n", s.DestFiles, s.DestIgnored)
	fmt.Fprintf(w, "    Digests:        %d computed\n", s.DigestsComputed)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Actions:\n")
	fmt.Fprintf(w, "    Deleted:        %d\n", s.Deleted)
	fmt.Fprintf(w, "    Renamed:        %d\n", s.Renamed)
	fmt.Fprintf(w, "    Added:          %d\n", s.Added)
	fmt.Fprintf(w, "    Edited:         %d\n", s.Edited)
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "  Transfer:\n")
	fmt.Fprintf(w, "    Files copied:   %d\n", s.FilesCopied)
	fmt.Fprintf(w, "    Data:           %s\n", formatBytes(s.BytesCopied))
	if report.Duration.Seconds() > 0 && s.BytesCopied > 0 {
		avgSpeed := float64(s.BytesCopied) / report.Duration.Seconds()
		fmt.Fprintf(w, "    Average speed:  %s/s\n", formatBytes(int64(avgSpeed)))
	}

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Status: %s\n", statusText(report.Status))

	if report.Plan != nil && report.Plan.RequiresRerun {
		fmt.Fprintf(w, "%s\n", styleWarning("Submit the staged deletes, then run again to re-add files with the correct case."))
	}
	if report.Status == models.StatusSuccess && report.Plan != nil && !report.Plan.Empty() && !report.DryRun {
		fmt.Fprintf(w, "%s\n", styleInfo("Changes are staged in the workspace, review and submit when ready."))
	}
}

func statusText(s models.Status) string {
	switch s {
	case models.StatusSuccess:
		return styleSuccess(string(s))
	case models.StatusDifferent:
		return styleWarning(string(s))
	default:
		return styleError(string(s))
	}
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

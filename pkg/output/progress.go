package output

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

// Bar templates per phase
const (
	compareTemplate = `Comparing {{counters . }} {{bar . }} {{percent . }} {{etime . }}`
	copyTemplate    = `Copying   {{counters . }} {{bar . }} {{percent . }} {{string . "bytes"}}`
	stageTemplate   = `Opening   {{counters . }} {{bar . }} {{percent . }} {{string . "action"}}`
)

// refreshRate is the bar redraw interval
const refreshRate = 150 * time.Millisecond

// ProgressFormatter draws a progress bar per phase. When the output is not
// a terminal it prints the same lines as the human formatter.
type ProgressFormatter struct {
	mu      sync.Mutex
	human   *HumanFormatter
	writer  io.Writer
	enabled bool
	width   int
	bar     *pb.ProgressBar
	bytes   int64

	isTerminal func(w io.Writer) (bool, int)
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{
		human:      NewHumanFormatter(),
		writer:     io.Discard,
		isTerminal: terminalWidth,
	}
}

// terminalWidth reports whether w is a terminal, and its width if known
func terminalWidth(w io.Writer) (bool, int) {
	file, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(file.Fd())) {
		return false, 0
	}
	width, _, err := term.GetSize(int(file.Fd()))
	if err != nil {
		return true, 0
	}
	return true, width
}

// Start initializes the formatter
func (f *ProgressFormatter) Start(writer io.Writer, op *models.Operation) error {
	f.mu.Lock()
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.enabled, f.width = f.isTerminal(writer)
	f.mu.Unlock()

	return f.human.Start(writer, op)
}

// Progress advances the bar of the current phase
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.enabled {
		return f.human.Progress(update)
	}

	switch update.Type {
	case UpdatePhaseStart:
		f.finishBar()
		switch update.Phase {
		case PhaseCompare:
			f.startBar(compareTemplate, update.TotalFiles)
		case PhaseCopy:
			f.bytes = 0
			f.startBar(copyTemplate, update.TotalFiles)
			f.bar.Set("bytes", formatBytes(0))
		case PhaseStage:
			f.startBar(stageTemplate, update.TotalFiles)
			f.bar.Set("action", update.FilePath)
		default:
			return f.human.Progress(update)
		}

	case UpdateCompared, UpdateBatch:
		if f.bar != nil {
			f.bar.SetCurrent(int64(update.CurrentFile))
		}

	case UpdateFileComplete:
		if f.bar != nil {
			f.bytes += update.BytesWritten
			f.bar.Set("bytes", formatBytes(f.bytes))
			f.bar.Increment()
		}

	case UpdateFileError:
		f.finishBar()
		return f.human.Progress(update)
	}
	return nil
}

func (f *ProgressFormatter) startBar(template string, total int) {
	f.bar = pb.New(total).
		SetTemplateString(template).
		SetWriter(f.writer).
		SetRefreshRate(refreshRate)
	if f.width > 0 {
		f.bar.SetWidth(f.width)
	}
	f.bar.Start()
}

func (f *ProgressFormatter) finishBar() {
	if f.bar == nil {
		return
	}
	f.bar.Finish()
	f.bar = nil
}

// Classification ends the compare bar and prints the set sizes
func (f *ProgressFormatter) Classification(c *models.Classification) error {
	f.mu.Lock()
	f.finishBar()
	f.mu.Unlock()
	return f.human.Classification(c)
}

// Plan prints the planned actions
func (f *ProgressFormatter) Plan(p *models.Plan) error {
	f.mu.Lock()
	f.finishBar()
	f.mu.Unlock()
	return f.human.Plan(p)
}

// Complete finalizes output and displays summary
func (f *ProgressFormatter) Complete(report *models.Report) error {
	f.mu.Lock()
	f.finishBar()
	f.mu.Unlock()
	return f.human.Complete(report)
}

// Error reports an error
func (f *ProgressFormatter) Error(err error) error {
	f.mu.Lock()
	f.finishBar()
	f.mu.Unlock()
	return f.human.Error(err)
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

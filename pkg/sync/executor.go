package sync

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sdejongh/p4harmonize/pkg/logging"
	"github.com/sdejongh/p4harmonize/pkg/models"
	"github.com/sdejongh/p4harmonize/pkg/output"
)

// ExecutorConfig configures plan execution
type ExecutorConfig struct {
	MaxWorkers     int
	BatchByteLimit int
	DryRun         bool
}

// Executor applies a plan to the destination workspace
type Executor struct {
	control    ControlPlane
	copier     *Copier
	pool       *Pool
	batchLimit int
	dryRun     bool
	formatter  output.Formatter
	logger     logging.Logger

	filesCopied atomic.Int64
	bytesCopied atomic.Int64
}

// NewExecutor creates an executor staging through control and copying with copier
func NewExecutor(control ControlPlane, copier *Copier, config ExecutorConfig, formatter output.Formatter, logger logging.Logger) *Executor {
	if formatter == nil {
		formatter = output.NullFormatter{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Executor{
		control:    control,
		copier:     copier,
		pool:       NewPool(config.MaxWorkers),
		batchLimit: config.BatchByteLimit,
		dryRun:     config.DryRun,
		formatter:  formatter,
		logger:     logger,
	}
}

// Transferred returns the number of files and bytes copied so far
func (e *Executor) Transferred() (int, int64) {
	return int(e.filesCopied.Load()), e.bytesCopied.Load()
}

// Execute applies plan in order: deletes, case renames, copies, then adds
// and edits. The first failure aborts the run; batches already applied stay
// staged in the workspace.
func (e *Executor) Execute(ctx context.Context, plan *models.Plan) error {
	start := time.Now()
	staged := false

	if deletes := destPaths(plan.ByKind(models.ActionDelete)); len(deletes) > 0 {
		if err := e.stage(ctx, models.ActionDelete, deletes); err != nil {
			return err
		}
		staged = true
	}

	renames := plan.ByKind(models.ActionCaseRename)
	for i, action := range renames {
		e.logger.Debug(ctx, "case rename", logging.Fields{
			"from": action.OldDestPath,
			"to":   action.DestPath,
		})
		if err := e.control.Rename(ctx, action.OldDestPath, action.DestPath); err != nil {
			return &models.ExecutionError{Kind: models.ActionCaseRename, Batch: i + 1, Batches: len(renames), Size: 1, Err: err}
		}
		staged = true
	}

	adds := plan.ByKind(models.ActionAdd)
	edits := plan.ByKind(models.ActionEdit)

	// renamed files may have new content too
	copies := make([]models.Action, 0, len(renames)+len(adds)+len(edits))
	copies = append(copies, renames...)
	copies = append(copies, adds...)
	copies = append(copies, edits...)
	if err := e.copyAll(ctx, copies); err != nil {
		return err
	}

	if paths := destPaths(adds); len(paths) > 0 {
		if err := e.stage(ctx, models.ActionAdd, paths); err != nil {
			return err
		}
		staged = true
	}
	if paths := destPaths(edits); len(paths) > 0 {
		if err := e.stage(ctx, models.ActionEdit, paths); err != nil {
			return err
		}
		staged = true
	}

	if staged {
		if err := e.control.RevertUnmodified(ctx); err != nil {
			return err
		}
	}

	files, bytes := e.Transferred()
	e.logger.Info(ctx, "plan executed", logging.Fields{
		"actions":      len(plan.Actions),
		"files_copied": files,
		"bytes_copied": bytes,
		"duration":     time.Since(start).String(),
	})
	return nil
}

// stage sends paths to the control plane in batches
func (e *Executor) stage(ctx context.Context, kind models.ActionKind, paths []string) error {
	batches := BatchPaths(paths, e.batchLimit)
	e.logger.Info(ctx, "staging files", logging.Fields{
		"action":  string(kind),
		"files":   len(paths),
		"batches": len(batches),
	})
	e.formatter.Progress(output.ProgressUpdate{
		Type:       output.UpdatePhaseStart,
		Phase:      output.PhaseStage,
		FilePath:   string(kind),
		TotalFiles: len(paths),
	})

	done := 0
	for i, batch := range batches {
		if err := e.control.Stage(ctx, kind, batch); err != nil {
			e.logger.Error(ctx, "batch failed", err, logging.Fields{
				"action": string(kind),
				"batch":  i + 1,
			})
			return &models.ExecutionError{Kind: kind, Batch: i + 1, Batches: len(batches), Size: len(batch), Err: err}
		}
		done += len(batch)
		e.formatter.Progress(output.ProgressUpdate{
			Type:        output.UpdateBatch,
			Phase:       output.PhaseStage,
			FilePath:    string(kind),
			CurrentFile: done,
			TotalFiles:  len(paths),
		})
	}
	return nil
}

// copyAll copies the sources of actions in parallel
func (e *Executor) copyAll(ctx context.Context, actions []models.Action) error {
	if len(actions) == 0 {
		return nil
	}
	if e.dryRun {
		e.logger.Info(ctx, "dry run: skipping copy", logging.Fields{"files": len(actions)})
		return nil
	}

	e.logger.Info(ctx, "copying files to workspace", logging.Fields{
		"files":   len(actions),
		"workers": e.pool.Size(),
	})
	e.formatter.Progress(output.ProgressUpdate{
		Type:       output.UpdatePhaseStart,
		Phase:      output.PhaseCopy,
		TotalFiles: len(actions),
	})

	return e.pool.Run(ctx, len(actions), func(ctx context.Context, i int) error {
		action := actions[i]
		fileIndex := i + 1

		e.formatter.Progress(output.ProgressUpdate{
			Type:        output.UpdateFileStart,
			Phase:       output.PhaseCopy,
			FilePath:    action.RelativePath,
			CurrentFile: fileIndex,
			TotalFiles:  len(actions),
		})

		written, err := e.copier.Copy(ctx, action.RelativePath, fileIndex)
		if err != nil {
			e.formatter.Progress(output.ProgressUpdate{
				Type:        output.UpdateFileError,
				Phase:       output.PhaseCopy,
				FilePath:    action.RelativePath,
				CurrentFile: fileIndex,
				TotalFiles:  len(actions),
				Error:       err,
			})
			return err
		}

		e.filesCopied.Add(1)
		e.bytesCopied.Add(written)
		e.formatter.Progress(output.ProgressUpdate{
			Type:         output.UpdateFileComplete,
			Phase:        output.PhaseCopy,
			FilePath:     action.RelativePath,
			BytesWritten: written,
			TotalBytes:   written,
			CurrentFile:  fileIndex,
			TotalFiles:   len(actions),
		})
		return nil
	})
}

func destPaths(actions []models.Action) []string {
	paths := make([]string, len(actions))
	for i, a := range actions {
		paths[i] = a.DestPath
	}
	return paths
}

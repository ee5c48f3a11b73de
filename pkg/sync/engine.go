package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sdejongh/p4harmonize/internal/platform"
	"github.com/sdejongh/p4harmonize/pkg/compare"
	"github.com/sdejongh/p4harmonize/pkg/index"
	"github.com/sdejongh/p4harmonize/pkg/logging"
	"github.com/sdejongh/p4harmonize/pkg/models"
	"github.com/sdejongh/p4harmonize/pkg/output"
	"github.com/sdejongh/p4harmonize/pkg/ratelimit"
	"github.com/sdejongh/p4harmonize/pkg/source"
	"github.com/sdejongh/p4harmonize/pkg/storage"
)

// Engine reconciles a destination stream with a source tree
type Engine struct {
	lister      source.Lister
	destination Destination
	digester    *compare.Digester
	comparator  compare.Comparator
	formatter   output.Formatter
	logger      logging.Logger
	operation   *models.Operation
	out         io.Writer
}

// NewEngine creates a new engine for one operation
func NewEngine(
	lister source.Lister,
	destination Destination,
	formatter output.Formatter,
	logger logging.Logger,
	operation *models.Operation,
) *Engine {
	if formatter == nil {
		formatter = output.NullFormatter{}
	}
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	digester := compare.NewDigester(operation.BufferSize)
	return &Engine{
		lister:      lister,
		destination: destination,
		digester:    digester,
		comparator:  compare.NewDigestComparator(digester.Digest),
		formatter:   formatter,
		logger:      logger.WithFields(logging.Fields{"operation_id": operation.ID}),
		operation:   operation,
		out:         os.Stdout,
	}
}

// SetOutput sets the writer the formatter prints to
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

// Run executes one reconciliation: checks preconditions, creates the
// workspace, compares both trees and stages every difference. Staged
// changes are left for the operator to review and submit.
func (e *Engine) Run(ctx context.Context) (*models.Report, error) {
	report := e.newReport()
	if err := e.formatter.Start(e.out, e.operation); err != nil {
		return report, err
	}

	if err := e.run(ctx, report); err != nil {
		return e.fail(ctx, report, err)
	}

	e.formatter.Complete(report)
	e.logger.Info(ctx, "run finished", logging.Fields{
		"status":   string(report.Status),
		"duration": report.Duration.String(),
	})
	if !report.Plan.Empty() && !e.operation.DryRun {
		e.logger.Info(ctx, "changes are staged in the workspace, review and submit when ready", nil)
	}
	return report, nil
}

func (e *Engine) run(ctx context.Context, report *models.Report) error {
	op := e.operation

	if err := e.checkPreconditions(ctx); err != nil {
		return err
	}

	if preparer, ok := e.lister.(source.Preparer); ok {
		if op.DryRun {
			e.logger.Info(ctx, "dry run: skipping source preparation", nil)
		} else if err := preparer.Prepare(ctx); err != nil {
			return fmt.Errorf("failed to prepare source: %w", err)
		}
	}

	if op.DryRun {
		e.logger.Info(ctx, "dry run: skipping workspace creation", nil)
	} else {
		e.logger.Info(ctx, "creating workspace", logging.Fields{"root": op.WorkspaceRoot, "stream": op.Stream})
		if err := e.destination.CreateWorkspace(ctx); err != nil {
			return fmt.Errorf("failed to create workspace: %w", err)
		}
	}

	c, err := e.classify(ctx, report)
	if err != nil {
		return err
	}

	if !c.HasDifference() {
		e.logger.Info(ctx, "all files in source and destination already match", nil)
		report.SetPlan(&models.Plan{})
		report.Finish(models.StatusSuccess)
		return nil
	}

	// head revisions without transferring content, so edits open against head
	if err := e.destination.Flush(ctx, op.Scope()); err != nil {
		return fmt.Errorf("failed to flush workspace: %w", err)
	}

	plan, err := e.plan(ctx, c, report)
	if err != nil {
		return err
	}

	exec, err := e.newExecutor()
	if err != nil {
		return err
	}
	execErr := exec.Execute(ctx, plan)
	report.Stats.FilesCopied, report.Stats.BytesCopied = exec.Transferred()
	report.Stats.DigestsComputed = e.digester.Calls()
	if execErr != nil {
		return execErr
	}

	if op.DryRun {
		report.Finish(models.StatusDifferent)
	} else {
		report.Finish(models.StatusSuccess)
	}
	return nil
}

// Compare classifies both trees and plans the actions without changing
// anything. The status is StatusDifferent when any action is needed.
func (e *Engine) Compare(ctx context.Context) (*models.Report, error) {
	report := e.newReport()
	if err := e.formatter.Start(e.out, e.operation); err != nil {
		return report, err
	}

	c, err := e.classify(ctx, report)
	if err != nil {
		return e.fail(ctx, report, err)
	}
	if _, err := e.plan(ctx, c, report); err != nil {
		return e.fail(ctx, report, err)
	}
	report.Stats.DigestsComputed = e.digester.Calls()

	if c.HasDifference() {
		report.Finish(models.StatusDifferent)
	} else {
		report.Finish(models.StatusSuccess)
	}
	e.formatter.Complete(report)
	return report, nil
}

// Clean deletes the workspace, if present, and removes the workspace root
func (e *Engine) Clean(ctx context.Context) error {
	op := e.operation

	exists, err := e.destination.WorkspaceExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check workspace: %w", err)
	}
	if exists {
		if err := e.destination.DeleteWorkspace(ctx); err != nil {
			return fmt.Errorf("failed to delete workspace: %w", err)
		}
	} else {
		e.logger.Info(ctx, "workspace not found", nil)
	}

	root, err := storage.NewLocal(op.WorkspaceRoot)
	if err != nil {
		return err
	}
	found, err := root.Exists(ctx, "")
	if err != nil {
		return err
	}
	if !found {
		e.logger.Info(ctx, "workspace root not found", logging.Fields{"root": op.WorkspaceRoot})
		return nil
	}

	e.logger.Info(ctx, "deleting workspace root", logging.Fields{"root": op.WorkspaceRoot, "dry_run": op.DryRun})
	if op.DryRun {
		return nil
	}
	return root.Delete(ctx, "")
}

// checkPreconditions fails before any mutation when a previous run left state behind
func (e *Engine) checkPreconditions(ctx context.Context) error {
	op := e.operation

	empty, err := platform.IsEmptyDir(op.WorkspaceRoot)
	if err != nil {
		return &models.PreconditionError{Message: fmt.Sprintf("workspace root %s: %v", op.WorkspaceRoot, err)}
	}
	if !empty {
		return &models.PreconditionError{Message: fmt.Sprintf("workspace root %s is not empty, run clean first", op.WorkspaceRoot)}
	}

	exists, err := e.destination.WorkspaceExists(ctx)
	if err != nil {
		return fmt.Errorf("failed to check workspace: %w", err)
	}
	if exists {
		return &models.PreconditionError{Message: "workspace already exists, run clean first"}
	}
	return nil
}

// classify lists and indexes both trees and reconciles them
func (e *Engine) classify(ctx context.Context, report *models.Report) (*models.Classification, error) {
	op := e.operation
	start := time.Now()

	e.formatter.Progress(output.ProgressUpdate{Type: output.UpdatePhaseStart, Phase: output.PhaseList})

	srcIgnore, err := NewIgnoreList(op.SourceIgnore)
	if err != nil {
		return nil, err
	}
	dstIgnore, err := NewIgnoreList(op.DestIgnore)
	if err != nil {
		return nil, err
	}

	entries, err := e.lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list source files: %w", err)
	}
	srcFiles, srcIgnored := Filter(srcIgnore, source.Records(e.lister.Root(), entries))
	report.Stats.SourceIgnored = srcIgnored
	for _, f := range srcFiles {
		if !f.Primary {
			report.Stats.SourceDeps++
		}
	}

	dstAll, err := e.destination.QueryFiles(ctx, op.Scope())
	if err != nil {
		return nil, fmt.Errorf("failed to query destination files: %w", err)
	}
	dstFiles, dstIgnored := Filter(dstIgnore, dstAll)
	report.Stats.DestIgnored = dstIgnored

	srcIndex, err := index.Build(srcFiles)
	if err != nil {
		return nil, fmt.Errorf("source tree: %w", err)
	}
	dstIndex, err := index.Build(dstFiles)
	if err != nil {
		return nil, fmt.Errorf("destination tree: %w", err)
	}
	if dups := srcIndex.Duplicates(); len(dups) > 0 {
		e.logger.Debug(ctx, "source paths listed more than once", logging.Fields{"paths": dups})
	}
	report.Stats.SourceFiles = srcIndex.Len()
	report.Stats.DestFiles = dstIndex.Len()

	e.logger.Info(ctx, "listed files", logging.Fields{
		"source":         srcIndex.Len(),
		"source_ignored": srcIgnored,
		"dest":           dstIndex.Len(),
		"dest_ignored":   dstIgnored,
		"duration":       time.Since(start).String(),
	})

	reconciler := NewReconciler(e.comparator, op.MaxWorkers, e.formatter, e.logger)
	c, err := reconciler.Reconcile(ctx, srcIndex, dstIndex)
	if err != nil {
		return nil, err
	}

	report.SetClassification(c)
	report.Stats.DigestsComputed = e.digester.Calls()
	e.formatter.Classification(c)
	return c, nil
}

// plan builds the action plan and surfaces its warnings
func (e *Engine) plan(ctx context.Context, c *models.Classification, report *models.Report) (*models.Plan, error) {
	caseSensitive := false
	if len(c.CaseMismatch) > 0 {
		var err error
		caseSensitive, err = e.destination.IsCaseSensitive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query server case handling: %w", err)
		}
	}

	plan := Plan(c, PlanOptions{
		CaseSensitive: caseSensitive,
		WorkspaceRoot: e.operation.WorkspaceRoot,
	})
	for _, w := range plan.Warnings {
		e.logger.Warn(ctx, w, nil)
	}
	for _, pair := range c.CaseMismatch {
		e.logger.Debug(ctx, "case change", logging.Fields{"from": pair.Dest.Path, "to": pair.Source.Path})
	}

	report.SetPlan(plan)
	e.formatter.Plan(plan)
	return plan, nil
}

func (e *Engine) newExecutor() (*Executor, error) {
	op := e.operation

	src, err := storage.NewLocal(e.lister.Root())
	if err != nil {
		return nil, err
	}
	ws, err := storage.NewLocal(op.WorkspaceRoot)
	if err != nil {
		return nil, err
	}

	copier := NewCopier(src, ws, ratelimit.NewLimiter(op.BandwidthLimit), e.formatter)
	return NewExecutor(e.destination, copier, ExecutorConfig{
		MaxWorkers:     op.MaxWorkers,
		BatchByteLimit: op.BatchByteLimit,
		DryRun:         op.DryRun,
	}, e.formatter, e.logger), nil
}

func (e *Engine) newReport() *models.Report {
	return &models.Report{
		OperationID: e.operation.ID,
		SourceRoot:  e.lister.Root(),
		Stream:      e.operation.Stream,
		DryRun:      e.operation.DryRun,
		StartTime:   time.Now(),
	}
}

func (e *Engine) fail(ctx context.Context, report *models.Report, err error) (*models.Report, error) {
	report.Finish(models.StatusFailed)
	e.logger.Error(ctx, "run failed", err, nil)
	e.formatter.Error(err)
	return report, err
}

package sync

import (
	"sort"

	"github.com/sdejongh/p4harmonize/internal/platform"
	"github.com/sdejongh/p4harmonize/pkg/models"
)

// CaseRerunWarning is added to a plan that stages case mismatches as deletes
const CaseRerunWarning = "Found files that differ in case only, but the destination server is case insensitive. " +
	"Perforce can't fix case on a case insensitive server in one submit, so the mismatching files are staged for delete. " +
	"After submitting, run again to re-add them with the correct case. " +
	"See https://portal.perforce.com/s/article/3448 for more details."

// PlanOptions controls how a classification becomes actions
type PlanOptions struct {
	// CaseSensitive is true when the destination server can rename a file
	// to a different letter case in one submit
	CaseSensitive bool

	// WorkspaceRoot is the destination workspace root on disk
	WorkspaceRoot string
}

// Plan turns a classification into ordered actions: deletes, then case
// renames, then adds, then edits. Each kind is sorted by relative path.
func Plan(c *models.Classification, opts PlanOptions) *models.Plan {
	plan := &models.Plan{}
	var deletes, renames, adds, edits []models.Action

	for _, dst := range c.DestOnly {
		deletes = append(deletes, models.Action{
			Kind:         models.ActionDelete,
			RelativePath: dst.Path,
			DestPath:     dst.NativePath(),
		})
	}

	for _, pair := range c.CaseMismatch {
		if opts.CaseSensitive {
			renames = append(renames, models.Action{
				Kind:         models.ActionCaseRename,
				RelativePath: pair.Source.Path,
				OldDestPath:  pair.Dest.NativePath(),
				DestPath:     platform.JoinSlash(opts.WorkspaceRoot, pair.Source.Path),
			})
			continue
		}
		deletes = append(deletes, models.Action{
			Kind:         models.ActionDelete,
			RelativePath: pair.Dest.Path,
			DestPath:     pair.Dest.NativePath(),
		})
	}
	if len(c.CaseMismatch) > 0 && !opts.CaseSensitive {
		plan.RequiresRerun = true
		plan.Warnings = append(plan.Warnings, CaseRerunWarning)
	}

	for _, src := range c.SourceOnly {
		adds = append(adds, copyAction(models.ActionAdd, src, opts.WorkspaceRoot))
	}
	for _, pair := range c.Changed {
		edits = append(edits, copyAction(models.ActionEdit, pair.Source, opts.WorkspaceRoot))
	}

	for _, group := range [][]models.Action{deletes, renames, adds, edits} {
		sortActions(group)
		plan.Actions = append(plan.Actions, group...)
	}
	return plan
}

func copyAction(kind models.ActionKind, src *models.SourceFile, root string) models.Action {
	return models.Action{
		Kind:         kind,
		RelativePath: src.Path,
		DestPath:     platform.JoinSlash(root, src.Path),
	}
}

func sortActions(actions []models.Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actions[i].RelativePath < actions[j].RelativePath
	})
}

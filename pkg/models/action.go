package models

// ActionKind is the type of a planned destination action
type ActionKind string

const (
	// ActionDelete marks a destination file for delete
	ActionDelete ActionKind = "delete"
	// ActionAdd copies a new source file and opens it for add
	ActionAdd ActionKind = "add"
	// ActionEdit copies a changed source file and opens it for edit
	ActionEdit ActionKind = "edit"
	// ActionCaseRename moves a destination file to the source's letter case
	ActionCaseRename ActionKind = "case_rename"
)

// Action is a single planned change. Which fields are set depends on Kind:
//
//	Delete:     DestPath
//	Add, Edit:  DestPath
//	CaseRename: OldDestPath, DestPath
//
// Copies read RelativePath under the source root.
type Action struct {
	Kind ActionKind

	// RelativePath is the slash path under both roots, also used in logs and reports
	RelativePath string

	// DestPath is the destination-native target path
	DestPath string

	// OldDestPath is the destination path being renamed away from
	OldDestPath string
}

// Plan is the ordered list of actions for one run.
// Deletes always come before renames, adds and edits.
type Plan struct {
	Actions []Action

	// Warnings are conditions the operator has to act on
	Warnings []string

	// RequiresRerun is set when case mismatches were staged as deletes
	// on a case-insensitive server: the files are re-added by a second run
	// after the deletes are submitted.
	RequiresRerun bool
}

// ByKind returns the actions of one kind, preserving plan order
func (p *Plan) ByKind(kind ActionKind) []Action {
	var out []Action
	for _, a := range p.Actions {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

// Count returns the number of actions of one kind
func (p *Plan) Count(kind ActionKind) int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Empty reports whether the plan has no actions
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}

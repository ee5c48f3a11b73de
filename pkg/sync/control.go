package sync

import (
	"context"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

// ControlPlane is the destination version control system
type ControlPlane interface {
	// QueryFiles returns the files at head under scope, excluding deleted files
	QueryFiles(ctx context.Context, scope string) ([]*models.DestFile, error)

	// IsCaseSensitive reports whether the server distinguishes paths by case
	IsCaseSensitive(ctx context.Context) (bool, error)

	// Stage opens paths for add, edit or delete
	Stage(ctx context.Context, kind models.ActionKind, paths []string) error

	// Rename opens from for edit and moves it to to
	Rename(ctx context.Context, from, to string) error

	// RevertUnmodified reverts opened files whose content did not change
	RevertUnmodified(ctx context.Context) error
}

// Workspace manages the destination workspace a run stages changes in
type Workspace interface {
	WorkspaceExists(ctx context.Context) (bool, error)
	CreateWorkspace(ctx context.Context) error
	DeleteWorkspace(ctx context.Context) error

	// Flush marks the workspace as having head revisions of scope without
	// transferring content
	Flush(ctx context.Context, scope string) error
}

// Destination is a control plane with workspace management
type Destination interface {
	ControlPlane
	Workspace
}

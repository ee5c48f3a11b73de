// Package source lists the files of the authoritative tree.
package source

import (
	"context"
	"fmt"

	"github.com/sdejongh/p4harmonize/pkg/executor"
	"github.com/sdejongh/p4harmonize/pkg/models"
)

// Entry is one listed file. Primary is false for files that were fetched
// alongside the tree rather than tracked by it.
type Entry struct {
	Path    string
	Primary bool
}

// Lister enumerates the files of a source tree as forward-slash paths
// relative to Root
type Lister interface {
	Root() string
	List(ctx context.Context) ([]Entry, error)
}

// Preparer is implemented by listers that must bring the tree up to date
// before it is listed
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Options selects and configures a lister
type Options struct {
	Root     string
	Type     models.SourceType
	Revision string
	IsUnreal bool
}

// Open builds the lister described by opts. exec runs the Unreal dependency
// fetcher and may be nil for other sources.
func Open(opts Options, exec executor.Executor) (Lister, error) {
	var base Lister
	switch opts.Type {
	case models.SourceGit, "":
		g, err := NewGitLister(opts.Root, opts.Revision)
		if err != nil {
			return nil, err
		}
		base = g
	case models.SourceDir:
		d, err := NewDirLister(opts.Root)
		if err != nil {
			return nil, err
		}
		base = d
	default:
		return nil, &models.ValidationError{Field: "source.type", Message: fmt.Sprintf("unsupported source type %q", opts.Type)}
	}

	if opts.IsUnreal {
		return NewUnrealLister(base, exec), nil
	}
	return base, nil
}

// Records turns entries into source records rooted at root
func Records(root string, entries []Entry) []*models.SourceFile {
	records := make([]*models.SourceFile, 0, len(entries))
	for _, e := range entries {
		records = append(records, models.NewSourceFile(root, e.Path, e.Primary))
	}
	return records
}

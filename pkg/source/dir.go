package source

import (
	"context"

	"github.com/sdejongh/p4harmonize/pkg/storage"
)

// DirLister lists every file below a plain directory, skipping .git
type DirLister struct {
	local *storage.Local
}

// NewDirLister creates a lister for root
func NewDirLister(root string) (*DirLister, error) {
	local, err := storage.NewLocal(root, storage.WithSkipDirs(".git"))
	if err != nil {
		return nil, err
	}
	return &DirLister{local: local}, nil
}

// Root returns the absolute directory root
func (d *DirLister) Root() string {
	return d.local.Root()
}

// List walks the directory. Symbolic links are listed, not followed.
func (d *DirLister) List(ctx context.Context) ([]Entry, error) {
	files, err := d.local.List(ctx, "")
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		entries = append(entries, Entry{Path: f.RelativePath, Primary: true})
	}
	return entries, nil
}

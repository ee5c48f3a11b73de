package source

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GitLister lists the files committed at a revision. Working tree changes
// are not listed, but file contents are read from the working tree.
type GitLister struct {
	root     string
	revision string
	repo     *git.Repository
}

// NewGitLister opens the repository whose work tree is root
func NewGitLister(root, revision string) (*GitLister, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}
	root = abs

	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{EnableDotGitCommonDir: true})
	if err != nil {
		return nil, fmt.Errorf("failed to open git repository %s: %w", root, err)
	}
	return NewGitListerFromRepository(repo, root, revision), nil
}

// NewGitListerFromRepository lists an already opened repository
func NewGitListerFromRepository(repo *git.Repository, root, revision string) *GitLister {
	if revision == "" {
		revision = "HEAD"
	}
	return &GitLister{root: root, revision: revision, repo: repo}
}

// Root returns the work tree root
func (g *GitLister) Root() string {
	return g.root
}

// Revision returns the listed revision
func (g *GitLister) Revision() string {
	return g.revision
}

// List returns every file in the tree of the revision
func (g *GitLister) List(ctx context.Context) ([]Entry, error) {
	tree, err := g.tree()
	if err != nil {
		return nil, err
	}

	var entries []Entry
	files := tree.Files()
	defer files.Close()

	err = files.ForEach(func(f *object.File) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries = append(entries, Entry{Path: f.Name, Primary: true})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk tree at %s: %w", g.revision, err)
	}

	return entries, nil
}

// tree resolves the revision and returns its tree
func (g *GitLister) tree() (*object.Tree, error) {
	hash, err := g.repo.ResolveRevision(plumbing.Revision(g.revision))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve revision %s: %w", g.revision, err)
	}

	commit, err := g.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get commit %s: %w", hash, err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("failed to get tree of %s: %w", hash, err)
	}

	return tree, nil
}

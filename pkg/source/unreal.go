package source

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sdejongh/p4harmonize/pkg/executor"
	"github.com/sdejongh/p4harmonize/pkg/models"
)

// DependencyManifest lists the files GitDependencies downloaded into the tree
const DependencyManifest = ".uedependencies"

// GitDependenciesPath returns the dependency fetcher shipped with the engine for goos
func GitDependenciesPath(goos string) string {
	const dir = "Engine/Binaries/DotNET/GitDependencies"
	switch goos {
	case "windows":
		return dir + "/win-x64/GitDependencies.exe"
	case "darwin":
		return dir + "/osx-x64/GitDependencies"
	default:
		return dir + "/linux-x64/GitDependencies"
	}
}

// UnrealLister adds the binary dependencies of an Unreal Engine checkout to
// the files of its base lister
type UnrealLister struct {
	base Lister
	exec executor.Executor
	goos string
}

// NewUnrealLister wraps base
func NewUnrealLister(base Lister, exec executor.Executor) *UnrealLister {
	if exec == nil {
		exec = executor.New()
	}
	return &UnrealLister{base: base, exec: exec, goos: runtime.GOOS}
}

// Root returns the base root
func (u *UnrealLister) Root() string {
	return u.base.Root()
}

// Prepare runs GitDependencies to download the files named in the manifest
func (u *UnrealLister) Prepare(ctx context.Context) error {
	exe := filepath.Join(u.Root(), filepath.FromSlash(GitDependenciesPath(u.goos)))
	if _, err := os.Stat(exe); err != nil {
		return &models.PreconditionError{Message: fmt.Sprintf("GitDependencies not found: %s", exe)}
	}

	if _, err := u.exec.Execute(ctx, exe, nil, executor.WithWorkingDir(u.Root())); err != nil {
		return fmt.Errorf("failed to update Unreal dependencies: %w", err)
	}
	return nil
}

// List returns the base files followed by the dependency files
func (u *UnrealLister) List(ctx context.Context) ([]Entry, error) {
	entries, err := u.base.List(ctx)
	if err != nil {
		return nil, err
	}

	deps, err := u.Dependencies()
	if err != nil {
		return nil, err
	}
	return append(entries, deps...), nil
}

// Dependencies reads the dependency manifest
func (u *UnrealLister) Dependencies() ([]Entry, error) {
	path := filepath.Join(u.Root(), DependencyManifest)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &models.PreconditionError{Message: fmt.Sprintf("%s doesn't exist, run Setup or GitDependencies first", path)}
	}
	if err != nil {
		return nil, &models.PathError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	names, err := parseManifest(f)
	if err != nil {
		return nil, &models.PathError{Op: "parse", Path: path, Err: err}
	}

	entries := make([]Entry, 0, len(names))
	for _, n := range names {
		entries = append(entries, Entry{Path: n, Primary: false})
	}
	return entries, nil
}

// parseManifest returns the Name attribute of every File element, at any depth
func parseManifest(r io.Reader) ([]string, error) {
	var names []string
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return names, nil
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "File" {
			continue
		}
		for _, attr := range start.Attr {
			if attr.Name.Local == "Name" && attr.Value != "" {
				names = append(names, attr.Value)
			}
		}
	}
}

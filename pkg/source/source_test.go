package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/p4harmonize/pkg/executor"
	"github.com/sdejongh/p4harmonize/pkg/models"
)

var signature = &object.Signature{Name: "Harmonize Test", Email: "test@example.com", When: time.Unix(1700000000, 0)}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for path, content := range files {
		full := filepath.Join(root, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0644))
	}
}

func paths(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}
	sort.Strings(out)
	return out
}

// commitAll stages every file in the work tree and commits it
func commitAll(t *testing.T, repo *git.Repository, msg string) {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))
	_, err = wt.Commit(msg, &git.CommitOptions{Author: signature, Committer: signature})
	require.NoError(t, err)
}

func TestGitListerOnDisk(t *testing.T) {
	root := t.TempDir()
	repo, err := git.PlainInit(root, false)
	require.NoError(t, err)

	writeFiles(t, root, map[string]string{
		"Engine/Source/Main.cpp": "int main() {}",
		"README.md":              "readme",
	})
	commitAll(t, repo, "initial")

	writeFiles(t, root, map[string]string{"Engine/Config/Base.ini": "[Core]"})
	commitAll(t, repo, "add config")

	// untracked files are not listed
	writeFiles(t, root, map[string]string{"untracked.txt": "local"})

	t.Run("Head", func(t *testing.T) {
		lister, err := NewGitLister(root, "")
		require.NoError(t, err)
		assert.Equal(t, "HEAD", lister.Revision())

		entries, err := lister.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Engine/Config/Base.ini", "Engine/Source/Main.cpp", "README.md"}, paths(entries))
		for _, e := range entries {
			assert.True(t, e.Primary)
		}
	})

	t.Run("Revision", func(t *testing.T) {
		lister, err := NewGitLister(root, "HEAD~1")
		require.NoError(t, err)

		entries, err := lister.List(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"Engine/Source/Main.cpp", "README.md"}, paths(entries))
	})

	t.Run("UnknownRevision", func(t *testing.T) {
		lister, err := NewGitLister(root, "does-not-exist")
		require.NoError(t, err)
		_, err = lister.List(context.Background())
		assert.ErrorContains(t, err, "does-not-exist")
	})

	t.Run("Cancelled", func(t *testing.T) {
		lister, err := NewGitLister(root, "")
		require.NoError(t, err)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = lister.List(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestGitListerNotARepository(t *testing.T) {
	_, err := NewGitLister(t.TempDir(), "")
	assert.Error(t, err)
}

func TestGitListerInMemory(t *testing.T) {
	fs := memfs.New()
	repo, err := git.Init(memory.NewStorage(), fs)
	require.NoError(t, err)

	f, err := fs.Create("docs/Guide.md")
	require.NoError(t, err)
	_, err = f.Write([]byte("# guide"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	commitAll(t, repo, "docs")

	lister := NewGitListerFromRepository(repo, "/virtual", "")
	entries, err := lister.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/Guide.md"}, paths(entries))
	assert.Equal(t, "/virtual", lister.Root())
}

func TestDirLister(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.txt":          "a",
		"sub/b.bin":      "b",
		".git/HEAD":      "ref",
		"sub/.git/index": "nested repo",
	})

	lister, err := NewDirLister(root)
	require.NoError(t, err)

	entries, err := lister.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "sub/b.bin"}, paths(entries))
}

func TestRecords(t *testing.T) {
	records := Records("/src", []Entry{{Path: "a/b.txt", Primary: true}, {Path: "dep.bin", Primary: false}})
	require.Len(t, records, 2)
	assert.Equal(t, "/src/a/b.txt", records[0].FullPath)
	assert.True(t, records[0].Primary)
	assert.False(t, records[1].Primary)
}

func TestOpen(t *testing.T) {
	root := t.TempDir()
	_, err := git.PlainInit(root, false)
	require.NoError(t, err)

	l, err := Open(Options{Root: root, Type: models.SourceGit}, nil)
	require.NoError(t, err)
	assert.IsType(t, &GitLister{}, l)

	l, err = Open(Options{Root: root, Type: models.SourceDir}, nil)
	require.NoError(t, err)
	assert.IsType(t, &DirLister{}, l)

	l, err = Open(Options{Root: root, Type: models.SourceGit, IsUnreal: true}, nil)
	require.NoError(t, err)
	_, ok := l.(Preparer)
	assert.True(t, ok, "unreal lister prepares dependencies")

	_, err = Open(Options{Root: root, Type: "svn"}, nil)
	var verr *models.ValidationError
	assert.ErrorAs(t, err, &verr)
}

const manifest = `<?xml version="1.0" encoding="utf-8"?>
<WorkingManifest xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">
  <Files>
    <File Name="Engine/Binaries/ThirdParty/Foo/foo.dll" Hash="abc" Timestamp="1" />
    <File Name="Engine/Content/Bar.uasset" Hash="def" Timestamp="2" />
  </Files>
  <Blobs><Blob Hash="abc" /></Blobs>
</WorkingManifest>`

type recordingExecutor struct {
	program string
	opts    executor.Options
	err     error
}

func (r *recordingExecutor) Execute(ctx context.Context, program string, args []string, opts ...executor.Option) (*executor.Result, error) {
	r.program = program
	for _, o := range opts {
		o(&r.opts)
	}
	return &executor.Result{}, r.err
}

func newUnrealTree(t *testing.T) (string, *DirLister) {
	t.Helper()
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"Engine/Source/Main.cpp": "code",
		DependencyManifest:       manifest,
	})
	base, err := NewDirLister(root)
	require.NoError(t, err)
	return root, base
}

func TestUnrealListerList(t *testing.T) {
	_, base := newUnrealTree(t)
	lister := NewUnrealLister(base, &recordingExecutor{})

	entries, err := lister.List(context.Background())
	require.NoError(t, err)

	primary := map[string]bool{}
	for _, e := range entries {
		primary[e.Path] = e.Primary
	}
	assert.True(t, primary["Engine/Source/Main.cpp"])
	assert.False(t, primary["Engine/Binaries/ThirdParty/Foo/foo.dll"])
	assert.False(t, primary["Engine/Content/Bar.uasset"])
	assert.Len(t, entries, 4, "manifest itself plus source plus two dependencies")
}

func TestUnrealListerMissingManifest(t *testing.T) {
	root := t.TempDir()
	base, err := NewDirLister(root)
	require.NoError(t, err)

	_, err = NewUnrealLister(base, nil).List(context.Background())
	var pre *models.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Contains(t, pre.Message, DependencyManifest)
}

func TestUnrealListerBadManifest(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{DependencyManifest: "<Files><File Name="})
	base, err := NewDirLister(root)
	require.NoError(t, err)

	_, err = NewUnrealLister(base, nil).Dependencies()
	var pathErr *models.PathError
	assert.ErrorAs(t, err, &pathErr)
}

func TestUnrealListerPrepare(t *testing.T) {
	t.Run("RunsGitDependencies", func(t *testing.T) {
		root, base := newUnrealTree(t)
		writeFiles(t, root, map[string]string{GitDependenciesPath(runtime.GOOS): "binary"})

		rec := &recordingExecutor{}
		require.NoError(t, NewUnrealLister(base, rec).Prepare(context.Background()))
		assert.Equal(t, filepath.Join(base.Root(), filepath.FromSlash(GitDependenciesPath(runtime.GOOS))), rec.program)
		assert.Equal(t, base.Root(), rec.opts.WorkingDir)
	})

	t.Run("MissingExecutable", func(t *testing.T) {
		_, base := newUnrealTree(t)
		err := NewUnrealLister(base, &recordingExecutor{}).Prepare(context.Background())
		var pre *models.PreconditionError
		assert.ErrorAs(t, err, &pre)
	})

	t.Run("ExecutableFails", func(t *testing.T) {
		root, base := newUnrealTree(t)
		writeFiles(t, root, map[string]string{GitDependenciesPath(runtime.GOOS): "binary"})

		boom := errors.New("exit status 1")
		err := NewUnrealLister(base, &recordingExecutor{err: boom}).Prepare(context.Background())
		assert.ErrorIs(t, err, boom)
	})
}

func TestGitDependenciesPath(t *testing.T) {
	assert.Equal(t, "Engine/Binaries/DotNET/GitDependencies/win-x64/GitDependencies.exe", GitDependenciesPath("windows"))
	assert.Equal(t, "Engine/Binaries/DotNET/GitDependencies/linux-x64/GitDependencies", GitDependenciesPath("linux"))
	assert.Equal(t, "Engine/Binaries/DotNET/GitDependencies/osx-x64/GitDependencies", GitDependenciesPath("darwin"))
}

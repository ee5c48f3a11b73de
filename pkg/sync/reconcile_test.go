package sync

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sdejongh/p4harmonize/pkg/compare"
	"github.com/sdejongh/p4harmonize/pkg/index"
	"github.com/sdejongh/p4harmonize/pkg/models"
	"github.com/sdejongh/p4harmonize/pkg/output"
	"github.com/sdejongh/p4harmonize/pkg/ratelimit"
	"github.com/sdejongh/p4harmonize/pkg/storage"
)

// scriptedComparator returns outcomes by source path after a random delay
type scriptedComparator struct {
	outcomes map[string]models.Outcome
	fail     string
	calls    atomic.Int64
}

func (c *scriptedComparator) Compare(ctx context.Context, pair models.Pair) (*compare.Result, error) {
	c.calls.Add(1)
	time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pair.Source.Path == c.fail {
		return nil, errors.New("compare failed: " + c.fail)
	}
	return &compare.Result{Pair: pair, Outcome: c.outcomes[pair.Source.Path]}, nil
}

func buildIndices(t *testing.T, srcPaths, dstPaths []string) (*index.Index[*models.SourceFile], *index.Index[*models.DestFile]) {
	t.Helper()
	var srcs []*models.SourceFile
	for _, p := range srcPaths {
		srcs = append(srcs, models.NewSourceFile("/src", p, true))
	}
	var dsts []*models.DestFile
	for _, p := range dstPaths {
		dsts = append(dsts, &models.DestFile{Path: p})
	}
	si, err := index.Build(srcs)
	if err != nil {
		t.Fatal(err)
	}
	di, err := index.Build(dsts)
	if err != nil {
		t.Fatal(err)
	}
	return si, di
}

func TestReconcilePartition(t *testing.T) {
	si, di := buildIndices(t,
		[]string{"a.txt", "B.txt", "c.txt", "same.txt"},
		[]string{"b.txt", "c.txt", "d.txt", "same.txt"},
	)
	cmp := &scriptedComparator{outcomes: map[string]models.Outcome{
		"B.txt":    models.OutcomeCaseMismatch,
		"c.txt":    models.OutcomeChanged,
		"same.txt": models.OutcomeUnchanged,
	}}

	c, err := NewReconciler(cmp, 4, nil, nil).Reconcile(context.Background(), si, di)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(c.SourceOnly) != 1 || c.SourceOnly[0].Path != "a.txt" {
		t.Errorf("SourceOnly = %v", c.SourceOnly)
	}
	if len(c.DestOnly) != 1 || c.DestOnly[0].Path != "d.txt" {
		t.Errorf("DestOnly = %v", c.DestOnly)
	}
	if len(c.CaseMismatch) != 1 || c.CaseMismatch[0].Dest.Path != "b.txt" {
		t.Errorf("CaseMismatch = %v", c.CaseMismatch)
	}
	if len(c.Changed) != 1 || c.Changed[0].Source.Path != "c.txt" {
		t.Errorf("Changed = %v", c.Changed)
	}
	if c.Unchanged != 1 || c.Total() != 5 {
		t.Errorf("Unchanged = %d, Total = %d", c.Unchanged, c.Total())
	}
	if cmp.calls.Load() != 3 {
		t.Errorf("comparator called %d times, want 3 (shared paths only)", cmp.calls.Load())
	}
}

func TestReconcileDeterministic(t *testing.T) {
	var paths []string
	outcomes := map[string]models.Outcome{}
	for i := 0; i < 300; i++ {
		p := fmt.Sprintf("dir%02d/file%03d.txt", i%7, i)
		paths = append(paths, p)
		if i%3 == 0 {
			outcomes[p] = models.OutcomeChanged
		}
	}
	si, di := buildIndices(t, paths, paths)

	var first []string
	for _, workers := range []int{1, 8, 32} {
		cmp := &scriptedComparator{outcomes: outcomes}
		c, err := NewReconciler(cmp, workers, nil, nil).Reconcile(context.Background(), si, di)
		if err != nil {
			t.Fatalf("Reconcile() error = %v", err)
		}
		var changed []string
		for _, pair := range c.Changed {
			changed = append(changed, pair.Source.Path)
		}
		for i := 1; i < len(changed); i++ {
			if index.Key(changed[i-1]) > index.Key(changed[i]) {
				t.Fatalf("Changed not sorted at %d: %s > %s", i, changed[i-1], changed[i])
			}
		}
		if first == nil {
			first = changed
		} else if fmt.Sprint(first) != fmt.Sprint(changed) {
			t.Errorf("result with %d workers differs", workers)
		}
	}
}

func TestReconcileFirstErrorAborts(t *testing.T) {
	var paths []string
	for i := 0; i < 200; i++ {
		paths = append(paths, fmt.Sprintf("f%03d", i))
	}
	si, di := buildIndices(t, paths, paths)
	cmp := &scriptedComparator{fail: "f010"}

	_, err := NewReconciler(cmp, 2, nil, nil).Reconcile(context.Background(), si, di)
	if err == nil || err.Error() != "compare failed: f010" {
		t.Fatalf("Reconcile() error = %v, want the comparator error unmodified", err)
	}
	if cmp.calls.Load() == int64(len(paths)) {
		t.Error("remaining comparisons should be cancelled after the first error")
	}
}

// countingFormatter records progress updates
type countingFormatter struct {
	output.NullFormatter
	mu      sync.Mutex
	updates []output.ProgressUpdate
}

func (f *countingFormatter) Progress(u output.ProgressUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, u)
	return nil
}

func TestReconcileReportsProgress(t *testing.T) {
	var paths []string
	for i := 0; i < 250; i++ {
		paths = append(paths, fmt.Sprintf("f%03d", i))
	}
	si, di := buildIndices(t, paths, paths)
	f := &countingFormatter{}

	if _, err := NewReconciler(&scriptedComparator{}, 4, f, nil).Reconcile(context.Background(), si, di); err != nil {
		t.Fatal(err)
	}

	var compared []int
	for _, u := range f.updates {
		if u.Type == output.UpdateCompared {
			compared = append(compared, u.CurrentFile)
		}
	}
	want := []int{100, 200, 250}
	if fmt.Sprint(compared) != fmt.Sprint(want) {
		t.Errorf("progress at %v, want %v", compared, want)
	}
}

func TestPoolRun(t *testing.T) {
	p := NewPool(3)
	var running, peak atomic.Int64
	var sum atomic.Int64

	err := p.Run(context.Background(), 50, func(ctx context.Context, i int) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(time.Millisecond)
		sum.Add(int64(i))
		running.Add(-1)
		return nil
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if sum.Load() != 49*50/2 {
		t.Errorf("sum = %d, every index should run once", sum.Load())
	}
	if peak.Load() > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestPoolDefaultSize(t *testing.T) {
	if NewPool(0).Size() != runtime.NumCPU() {
		t.Errorf("Size() = %d, want NumCPU", NewPool(0).Size())
	}
}

func TestPoolCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int64
	err := NewPool(2).Run(ctx, 10, func(ctx context.Context, i int) error {
		calls.Add(1)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if calls.Load() != 0 {
		t.Errorf("calls = %d, want 0", calls.Load())
	}
}

func newCopier(t *testing.T, limiter *ratelimit.Limiter) (*Copier, string, string) {
	t.Helper()
	srcRoot, wsRoot := t.TempDir(), filepath.Join(t.TempDir(), "ws")
	src, err := storage.NewLocal(srcRoot)
	if err != nil {
		t.Fatal(err)
	}
	ws, err := storage.NewLocal(wsRoot)
	if err != nil {
		t.Fatal(err)
	}
	return NewCopier(src, ws, limiter, nil), srcRoot, wsRoot
}

func TestCopierPreservesMetadata(t *testing.T) {
	c, srcRoot, wsRoot := newCopier(t, nil)
	writeTree(t, srcRoot, map[string]string{"Engine/Build.sh": "#!/bin/sh\n"})
	full := filepath.Join(srcRoot, "Engine", "Build.sh")
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(full, mtime, mtime); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(full, 0755); err != nil {
		t.Fatal(err)
	}

	n, err := c.Copy(context.Background(), "Engine/Build.sh", 1)
	if err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	if n != int64(len("#!/bin/sh\n")) {
		t.Errorf("Copy() = %d bytes", n)
	}

	info, err := os.Stat(filepath.Join(wsRoot, "Engine", "Build.sh"))
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(mtime) {
		t.Errorf("mtime = %v, want %v", info.ModTime(), mtime)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}

func TestCopierSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	c, srcRoot, wsRoot := newCopier(t, nil)
	if err := os.Symlink("../missing/target", filepath.Join(srcRoot, "link")); err != nil {
		t.Fatal(err)
	}

	if _, err := c.Copy(context.Background(), "link", 1); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}

	info, err := os.Lstat(filepath.Join(wsRoot, "link"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode()&os.ModeSymlink == 0 {
		t.Fatal("link should be recreated as a link")
	}
	if target, _ := os.Readlink(filepath.Join(wsRoot, "link")); target != "../missing/target" {
		t.Errorf("target = %s, want ../missing/target", target)
	}
}

func TestCopierMissingSource(t *testing.T) {
	c, _, _ := newCopier(t, nil)

	_, err := c.Copy(context.Background(), "nope.txt", 1)
	var pathErr *models.PathError
	if !errors.As(err, &pathErr) {
		t.Fatalf("Copy() error = %v, want PathError", err)
	}
	if filepath.Base(pathErr.Path) != "nope.txt" {
		t.Errorf("Path = %s", pathErr.Path)
	}
}

func TestCopierWithLimiter(t *testing.T) {
	c, srcRoot, wsRoot := newCopier(t, ratelimit.NewLimiter(64*1024*1024))
	writeTree(t, srcRoot, map[string]string{"big.bin": string(make([]byte, 200*1024))})

	if _, err := c.Copy(context.Background(), "big.bin", 1); err != nil {
		t.Fatalf("Copy() error = %v", err)
	}
	info, err := os.Stat(filepath.Join(wsRoot, "big.bin"))
	if err != nil || info.Size() != 200*1024 {
		t.Errorf("copied size = %v, %v", info, err)
	}
}

package models

import (
	"errors"
	"io/fs"
	"strings"
	"sync"
	"testing"
	"time"
)

// ============== ContentKind Tests ==============

func TestParseContentKind(t *testing.T) {
	tests := []struct {
		headType string
		want     ContentKind
	}{
		{"text", KindText},
		{"text+x", KindText},
		{"ktext", KindText},
		{"xtext", KindText},
		{"utf8", KindUTF8},
		{"unicode", KindUTF8},
		{"utf16", KindUTF16},
		{"utf16+w", KindUTF16},
		{"binary", KindBinary},
		{"binary+F", KindBinary},
		{"ubinary", KindBinary},
		{"symlink", KindBinary},
		{"apple", KindBinary},
		{"", KindBinary},
	}

	for _, tt := range tests {
		t.Run(tt.headType, func(t *testing.T) {
			if got := ParseContentKind(tt.headType); got != tt.want {
				t.Errorf("ParseContentKind(%q) = %s, want %s", tt.headType, got, tt.want)
			}
		})
	}
}

func TestIsBinaryLike(t *testing.T) {
	tests := []struct {
		headType string
		want     bool
	}{
		{"binary", true},
		{"binary+l", true},
		{"ubinary", true},
		{"apple", true},
		{"symlink", false},
		{"text", false},
		{"utf16", false},
	}

	for _, tt := range tests {
		if got := IsBinaryLike(tt.headType); got != tt.want {
			t.Errorf("IsBinaryLike(%q) = %v, want %v", tt.headType, got, tt.want)
		}
	}
}

func TestContentKindString(t *testing.T) {
	tests := []struct {
		kind ContentKind
		want string
	}{
		{KindBinary, "binary"},
		{KindText, "text"},
		{KindUTF8, "utf8"},
		{KindUTF16, "utf16"},
	}
	for _, tt := range tests {
		if tt.kind.String() != tt.want {
			t.Errorf("String() = %s, want %s", tt.kind.String(), tt.want)
		}
	}
}

// ============== Record Tests ==============

func TestNewSourceFile(t *testing.T) {
	f := NewSourceFile("/src", "Engine\\Source\\Main.cpp", true)

	if f.Path != "Engine/Source/Main.cpp" {
		t.Errorf("Path = %s, want Engine/Source/Main.cpp", f.Path)
	}
	if f.FullPath != "/src/Engine/Source/Main.cpp" {
		t.Errorf("FullPath = %s, want /src/Engine/Source/Main.cpp", f.FullPath)
	}
	if !f.Primary {
		t.Error("Primary should be true")
	}
	if f.RelativePath() != f.Path {
		t.Errorf("RelativePath() = %s, want %s", f.RelativePath(), f.Path)
	}
}

func TestSourceFileDigestComputedOnce(t *testing.T) {
	f := NewSourceFile("/src", "a.txt", true)

	var mu sync.Mutex
	calls := 0
	fn := func(path string, kind ContentKind) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if path != "/src/a.txt" {
			t.Errorf("digest path = %s, want /src/a.txt", path)
		}
		return "ABC", nil
	}

	if _, ok := f.CachedDigest(); ok {
		t.Error("CachedDigest() should be empty before the first computation")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := f.Digest(KindText, fn)
			if err != nil || d != "ABC" {
				t.Errorf("Digest() = %q, %v", d, err)
			}
		}()
	}
	wg.Wait()

	if calls != 1 {
		t.Errorf("digest function called %d times, want 1", calls)
	}
	if d, ok := f.CachedDigest(); !ok || d != "ABC" {
		t.Errorf("CachedDigest() = %q, %v; want ABC, true", d, ok)
	}
}

func TestSourceFileDigestErrorCached(t *testing.T) {
	f := NewSourceFile("/src", "missing.bin", true)
	fn := func(string, ContentKind) (string, error) { return "", fs.ErrNotExist }

	if _, err := f.Digest(KindBinary, fn); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Digest() error = %v, want ErrNotExist", err)
	}
	if _, ok := f.CachedDigest(); ok {
		t.Error("CachedDigest() should not report a failed digest")
	}
}

func TestDestFileNativePath(t *testing.T) {
	f := &DestFile{DepotPath: "//ue/main/a.txt"}
	if f.NativePath() != "//ue/main/a.txt" {
		t.Errorf("NativePath() = %s, want depot path without a client mapping", f.NativePath())
	}

	f.ClientPath = "/ws/a.txt"
	if f.NativePath() != "/ws/a.txt" {
		t.Errorf("NativePath() = %s, want client path", f.NativePath())
	}
}

// ============== Classification Tests ==============

func TestClassification(t *testing.T) {
	c := &Classification{}
	if c.HasDifference() {
		t.Error("empty classification should have no difference")
	}

	c.Unchanged = 3
	if c.HasDifference() {
		t.Error("unchanged files are not a difference")
	}

	c.CaseMismatch = []Pair{{Source: NewSourceFile("/s", "a.txt", true), Dest: &DestFile{Path: "A.txt"}}}
	if !c.HasDifference() {
		t.Error("case mismatch should be a difference")
	}
	if c.Total() != 4 {
		t.Errorf("Total() = %d, want 4", c.Total())
	}
}

func TestOutcomeString(t *testing.T) {
	if OutcomeChanged.String() != "changed" || OutcomeCaseMismatch.String() != "case_mismatch" || OutcomeUnchanged.String() != "unchanged" {
		t.Error("unexpected outcome names")
	}
}

// ============== Plan Tests ==============

func TestPlan(t *testing.T) {
	p := &Plan{Actions: []Action{
		{Kind: ActionDelete, DestPath: "/ws/old.dat"},
		{Kind: ActionAdd, DestPath: "/ws/b.txt"},
		{Kind: ActionAdd, DestPath: "/ws/a.txt"},
		{Kind: ActionEdit, DestPath: "/ws/c.txt"},
	}}

	adds := p.ByKind(ActionAdd)
	if len(adds) != 2 || adds[0].DestPath != "/ws/b.txt" || adds[1].DestPath != "/ws/a.txt" {
		t.Errorf("ByKind(add) = %v, want plan order preserved", adds)
	}
	if p.Count(ActionDelete) != 1 {
		t.Errorf("Count(delete) = %d, want 1", p.Count(ActionDelete))
	}
	if p.Count(ActionCaseRename) != 0 {
		t.Errorf("Count(case_rename) = %d, want 0", p.Count(ActionCaseRename))
	}
	if p.Empty() {
		t.Error("Empty() should be false")
	}
	if !(&Plan{}).Empty() {
		t.Error("Empty() should be true for a new plan")
	}
}

// ============== Operation Tests ==============

func validOperation() *Operation {
	return &Operation{
		ID:             "op-1",
		SourceRoot:     "/src",
		SourceType:     SourceGit,
		Revision:       "HEAD",
		Stream:         "//ue/main",
		WorkspaceRoot:  "/ws",
		MaxWorkers:     4,
		BatchByteLimit: 32768,
		BufferSize:     65536,
		CreatedAt:      time.Now(),
	}
}

func TestOperationValidate(t *testing.T) {
	if err := validOperation().Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Operation)
		field  string
	}{
		{"NoSource", func(o *Operation) { o.SourceRoot = "" }, "SourceRoot"},
		{"NoStream", func(o *Operation) { o.Stream = "" }, "Stream"},
		{"NoWorkspace", func(o *Operation) { o.WorkspaceRoot = "" }, "WorkspaceRoot"},
		{"BadSourceType", func(o *Operation) { o.SourceType = "svn" }, "SourceType"},
		{"NoWorkers", func(o *Operation) { o.MaxWorkers = 0 }, "MaxWorkers"},
		{"NegativeBatch", func(o *Operation) { o.BatchByteLimit = -1 }, "BatchByteLimit"},
		{"SmallBuffer", func(o *Operation) { o.BufferSize = 10 }, "BufferSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := validOperation()
			tt.mutate(op)
			err := op.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() error = %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Field = %s, want %s", verr.Field, tt.field)
			}
		})
	}
}

func TestOperationScope(t *testing.T) {
	op := validOperation()
	if op.Scope() != "//ue/main/..." {
		t.Errorf("Scope() = %s, want //ue/main/...", op.Scope())
	}
}

// ============== Report Tests ==============

func TestStatusExitCode(t *testing.T) {
	tests := []struct {
		status Status
		want   int
	}{
		{StatusSuccess, 0},
		{StatusDifferent, 1},
		{StatusFailed, 2},
		{Status("unknown"), 2},
	}
	for _, tt := range tests {
		if got := tt.status.ExitCode(); got != tt.want {
			t.Errorf("%s.ExitCode() = %d, want %d", tt.status, got, tt.want)
		}
	}
}

func TestReportSetPlan(t *testing.T) {
	r := &Report{StartTime: time.Now()}
	r.SetClassification(&Classification{
		SourceOnly: []*SourceFile{NewSourceFile("/s", "a", true)},
		Unchanged:  2,
	})
	r.SetPlan(&Plan{
		Actions:  []Action{{Kind: ActionAdd}, {Kind: ActionDelete}, {Kind: ActionDelete}},
		Warnings: []string{"re-run required"},
	})
	r.Finish(StatusSuccess)

	if r.Stats.SourceOnly != 1 || r.Stats.Unchanged != 2 {
		t.Errorf("classification stats = %+v", r.Stats)
	}
	if r.Stats.Added != 1 || r.Stats.Deleted != 2 {
		t.Errorf("plan stats = %+v", r.Stats)
	}
	if len(r.Warnings) != 1 {
		t.Errorf("Warnings = %v, want 1 entry", r.Warnings)
	}
	if r.Status != StatusSuccess || r.Duration < 0 {
		t.Errorf("Finish() status = %s, duration = %s", r.Status, r.Duration)
	}
}

// ============== Error Tests ==============

func TestErrors(t *testing.T) {
	base := errors.New("p4 exploded")

	execErr := &ExecutionError{Kind: ActionAdd, Batch: 2, Batches: 3, Size: 10, Err: base}
	if !errors.Is(execErr, base) {
		t.Error("ExecutionError should unwrap to its cause")
	}
	if !strings.Contains(execErr.Error(), "p4 exploded") || !strings.Contains(execErr.Error(), "add batch 2/3") {
		t.Errorf("ExecutionError message = %q", execErr.Error())
	}

	pathErr := &PathError{Op: "digest", Path: "/src/a.txt", Err: base}
	if !errors.Is(pathErr, base) || !strings.Contains(pathErr.Error(), "/src/a.txt") {
		t.Errorf("PathError = %q", pathErr.Error())
	}

	pre := &PreconditionError{Message: "workspace root not empty"}
	if !strings.Contains(pre.Error(), "workspace root not empty") {
		t.Errorf("PreconditionError = %q", pre.Error())
	}
}

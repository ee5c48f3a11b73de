package sync

import (
	"testing"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

func TestIgnoreListMatch(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		want     bool
	}{
		{"Exact", []string{".gitignore"}, ".gitignore", true},
		{"ExactNotNested", []string{".gitignore"}, "Engine/.gitignore", false},
		{"StarCrossesSlash", []string{"*.tmp"}, "a/b/c.tmp", true},
		{"StarAtRoot", []string{"*.tmp"}, "c.tmp", true},
		{"PathPattern", []string{"Engine/*.log"}, "Engine/Saved/x.log", true},
		{"PathPatternAnchored", []string{"Engine/*.log"}, "Game/Engine/x.log", false},
		{"DSStore", []string{"*.DS_Store/*"}, "Engine/.DS_Store/meta", true},
		{"CaseSensitive", []string{"readme.md"}, "README.md", false},
		{"Question", []string{"Setup.???"}, "Setup.bat", true},
		{"QuestionLength", []string{"Setup.??"}, "Setup.bat", false},
		{"Set", []string{"RunU[AB]T.sh"}, "RunUBT.sh", true},
		{"NegatedSet", []string{"RunU[!A]T.sh"}, "RunUAT.sh", false},
		{"UnclosedBracket", []string{"a[b"}, "a[b", true},
		{"RegexMetaIsLiteral", []string{"a+b.txt"}, "a+b.txt", true},
		{"DotIsLiteral", []string{"a.txt"}, "abtxt", false},
		{"DirectoryPattern", []string{"Saved/"}, "Game/Saved/cache.bin", true},
		{"DirectoryPatternAtRoot", []string{"Saved/"}, "Saved/cache.bin", true},
		{"DirectoryPatternPartialName", []string{"Saved/"}, "NotSaved/cache.bin", false},
		{"EmptyPatternSkipped", []string{""}, "a.txt", false},
		{"NoPatterns", nil, "a.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewIgnoreList(tt.patterns)
			if err != nil {
				t.Fatalf("NewIgnoreList() error = %v", err)
			}
			if got := l.Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) with %v = %v, want %v", tt.path, tt.patterns, got, tt.want)
			}
		})
	}
}

func TestIgnoreListInvalidPattern(t *testing.T) {
	if _, err := NewIgnoreList([]string{"[z-a]"}); err == nil {
		t.Error("NewIgnoreList() should reject a reversed range")
	}
}

func TestIgnoreListNil(t *testing.T) {
	var l *IgnoreList
	if l.Match("a.txt") {
		t.Error("nil list should match nothing")
	}
}

func TestFilter(t *testing.T) {
	l, err := NewIgnoreList([]string{"*.md"})
	if err != nil {
		t.Fatal(err)
	}
	records := []*models.DestFile{{Path: "a.txt"}, {Path: "README.md"}, {Path: "docs/b.md"}}

	kept, dropped := Filter(l, records)
	if dropped != 2 || len(kept) != 1 || kept[0].Path != "a.txt" {
		t.Errorf("Filter() = %v, %d", kept, dropped)
	}

	empty, _ := NewIgnoreList(nil)
	if kept, dropped := Filter(empty, records); dropped != 0 || len(kept) != 3 {
		t.Errorf("Filter(empty) = %v, %d", kept, dropped)
	}
}

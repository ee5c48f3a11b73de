package sync

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sdejongh/p4harmonize/pkg/index"
)

// IgnoreList matches relative paths against shell-style patterns.
// Patterns support:
//   - Wildcards matched against the whole relative path: *.tmp, Engine/*.log
//     ("*" also matches "/", so *.tmp matches files in every directory)
//   - Single characters and sets: ?, [abc], [!abc]
//   - Directory patterns: Saved/, .vs/ (the directory at any depth)
//
// Matching is case-sensitive.
type IgnoreList struct {
	patterns []string
	exprs    []*regexp.Regexp
	dirs     []string
}

// NewIgnoreList compiles patterns. Empty patterns are skipped.
func NewIgnoreList(patterns []string) (*IgnoreList, error) {
	l := &IgnoreList{}
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		normalized := filepath.ToSlash(pattern)
		l.patterns = append(l.patterns, normalized)

		// Check if it's a directory pattern (ends with /)
		if strings.HasSuffix(normalized, "/") {
			l.dirs = append(l.dirs, strings.Trim(normalized, "/"))
			continue
		}

		expr, err := regexp.Compile(translate(normalized))
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		l.exprs = append(l.exprs, expr)
	}
	return l, nil
}

// Patterns returns the normalized patterns
func (l *IgnoreList) Patterns() []string {
	return l.patterns
}

// Match reports whether relativePath is ignored
func (l *IgnoreList) Match(relativePath string) bool {
	if l == nil {
		return false
	}
	p := filepath.ToSlash(relativePath)

	for _, dir := range l.dirs {
		if strings.HasPrefix(p, dir+"/") || strings.Contains(p, "/"+dir+"/") {
			return true
		}
	}
	for _, expr := range l.exprs {
		if expr.MatchString(p) {
			return true
		}
	}
	return false
}

// Filter returns the records that are not ignored, and the number dropped
func Filter[T index.Record](l *IgnoreList, records []T) ([]T, int) {
	if l == nil || (len(l.exprs) == 0 && len(l.dirs) == 0) {
		return records, 0
	}
	kept := make([]T, 0, len(records))
	for _, r := range records {
		if !l.Match(r.RelativePath()) {
			kept = append(kept, r)
		}
	}
	return kept, len(records) - len(kept)
}

// translate converts a shell pattern to an anchored regular expression
func translate(pattern string) string {
	var b strings.Builder
	b.WriteString("^(?s:")

	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			// collapse runs of stars
			for i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
			}
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			end := classEnd(pattern, i)
			if end < 0 {
				b.WriteString(`\[`)
				continue
			}
			class := pattern[i+1 : end]
			b.WriteByte('[')
			if strings.HasPrefix(class, "!") {
				b.WriteByte('^')
				class = class[1:]
			} else if strings.HasPrefix(class, "^") {
				b.WriteByte('\\')
			}
			b.WriteString(strings.ReplaceAll(class, `\`, `\\`))
			b.WriteByte(']')
			i = end
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}

	b.WriteString(")$")
	return b.String()
}

// classEnd returns the index of the "]" closing the set opened at start, or -1.
// A "]" right after "[" or "[!" is a literal member of the set.
func classEnd(pattern string, start int) int {
	j := start + 1
	if j < len(pattern) && pattern[j] == '!' {
		j++
	}
	if j < len(pattern) && pattern[j] == ']' {
		j++
	}
	for ; j < len(pattern); j++ {
		if pattern[j] == ']' {
			return j
		}
	}
	return -1
}

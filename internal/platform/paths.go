package platform

import (
	"errors"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
)

// NormalizeRelative converts a relative path to forward slashes, without a
// leading "./" or "/". Relative paths are the comparison keys between trees,
// so every producer must go through here.
func NormalizeRelative(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimLeft(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// JoinSlash joins root and a slash-separated relative path with forward slashes.
// Perforce and the Go file APIs accept forward slashes on every platform.
func JoinSlash(root, rel string) string {
	root = strings.ReplaceAll(root, "\\", "/")
	trimmed := strings.TrimRight(root, "/")
	if trimmed == "" {
		if strings.HasPrefix(root, "/") {
			return "/" + rel
		}
		return rel
	}
	if rel == "" {
		return trimmed
	}
	return trimmed + "/" + rel
}

// RelativeSlash returns target relative to base, using forward slashes.
// Both paths may use either separator. The prefix comparison ignores case
// because Windows clients report roots with arbitrary drive letter case.
func RelativeSlash(base, target string) (string, error) {
	b := strings.TrimRight(strings.ReplaceAll(base, "\\", "/"), "/")
	t := strings.ReplaceAll(target, "\\", "/")
	if len(t) <= len(b) || t[len(b)] != '/' || !strings.EqualFold(t[:len(b)], b) {
		return "", &PathError{Path: target, Message: "not under " + base}
	}
	return NormalizeRelative(t[len(b)+1:]), nil
}

// IsEmptyDir reports whether dir has no entries. A missing directory counts as empty.
func IsEmptyDir(dir string) (bool, error) {
	f, err := os.Open(dir)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, &PathError{Path: dir, Message: "not a directory"}
	}

	_, err = f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return true, nil
	}
	return false, err
}

// IsUNCPath checks if a path is a UNC path (Windows network share)
func IsUNCPath(path string) bool {
	if runtime.GOOS != "windows" {
		return false
	}
	return strings.HasPrefix(path, "\\\\") || strings.HasPrefix(path, "//")
}

// ValidatePath checks if a path is valid for the current platform
func ValidatePath(path string) error {
	if path == "" {
		return &PathError{Path: path, Message: "path is empty"}
	}
	if strings.ContainsRune(path, 0) {
		return &PathError{Path: path, Message: "path contains a NUL byte"}
	}

	if runtime.GOOS == "windows" {
		rest := path
		// drive letter colon is legal
		if len(rest) >= 2 && rest[1] == ':' {
			rest = rest[2:]
		}
		for _, char := range []string{"<", ">", ":", "\"", "|", "?", "*"} {
			if strings.Contains(rest, char) && !IsUNCPath(path) {
				return &PathError{Path: path, Message: "path contains invalid character: " + char}
			}
		}
	}

	return nil
}

// PathError represents a path validation error
type PathError struct {
	Path    string
	Message string
}

func (e *PathError) Error() string {
	return "invalid path '" + e.Path + "': " + e.Message
}

package models

import (
	"sync"
	"sync/atomic"

	"github.com/sdejongh/p4harmonize/internal/platform"
)

// DigestFunc computes the content digest of the file at path
type DigestFunc func(path string, kind ContentKind) (string, error)

// SourceFile is a file of the source tree
type SourceFile struct {
	// Root is the source tree root on disk
	Root string

	// Path is relative to Root, with forward slashes
	Path string

	// FullPath is the location on disk
	FullPath string

	// Primary is false for files that come from a dependency fetch rather
	// than the primary listing. Informational only.
	Primary bool

	once      sync.Once
	digested  atomic.Bool
	digest    string
	digestErr error
}

// NewSourceFile creates a source record for a path relative to root
func NewSourceFile(root, relativePath string, primary bool) *SourceFile {
	rel := platform.NormalizeRelative(relativePath)
	return &SourceFile{
		Root:     root,
		Path:     rel,
		FullPath: platform.JoinSlash(root, rel),
		Primary:  primary,
	}
}

// RelativePath returns the normalized relative path
func (f *SourceFile) RelativePath() string {
	return f.Path
}

// Digest returns the content digest, computing it with fn on first use.
// The result (or error) is cached for the lifetime of the record.
func (f *SourceFile) Digest(kind ContentKind, fn DigestFunc) (string, error) {
	f.once.Do(func() {
		f.digest, f.digestErr = fn(f.FullPath, kind)
		f.digested.Store(true)
	})
	return f.digest, f.digestErr
}

// CachedDigest returns the digest if it has already been computed
func (f *SourceFile) CachedDigest() (string, bool) {
	if !f.digested.Load() || f.digestErr != nil {
		return "", false
	}
	return f.digest, true
}

func (f *SourceFile) String() string {
	return f.Path
}

// DestFile is a file tracked by the destination depot, as reported by fstat
type DestFile struct {
	// Path is relative to the workspace root, with forward slashes
	Path string

	// DepotPath is the depot syntax path (//stream/dir/file)
	DepotPath string

	// ClientPath is the destination-native path used for p4 operations
	ClientPath string

	// HeadType is the Perforce file type at head (e.g. "text+x")
	HeadType string

	// Kind is the digest variant derived from HeadType
	Kind ContentKind

	// HeadAction is the last action on the file (add, edit, delete...)
	HeadAction string

	// HeadChange is the changelist number of the head revision
	HeadChange string

	// Size is the head revision size in bytes, as a decimal string
	Size string

	// Digest is the uppercase MD5 reported by the server
	Digest string
}

// RelativePath returns the normalized relative path
func (f *DestFile) RelativePath() string {
	return f.Path
}

// BinaryLike reports whether sizes can be compared directly
func (f *DestFile) BinaryLike() bool {
	return IsBinaryLike(f.HeadType)
}

// NativePath returns the path to use when issuing p4 operations
func (f *DestFile) NativePath() string {
	if f.ClientPath != "" {
		return f.ClientPath
	}
	return f.DepotPath
}

func (f *DestFile) String() string {
	return f.Path
}

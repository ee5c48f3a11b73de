// Package storage reads source trees and writes the destination workspace.
package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Path         string
	RelativePath string // forward slashes, relative to the backend root
	Size         int64
	ModTime      time.Time
	IsDir        bool
	IsSymlink    bool
	Permissions  uint32
}

// Backend is the filesystem the workspace is written through
type Backend interface {
	// List returns the regular files and symbolic links under path, recursively.
	// Symbolic links are reported, never followed.
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates or replaces a file, creating parent directories.
	// If metadata is provided, modification time and permissions are applied.
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Symlink creates or replaces a symbolic link pointing at target
	Symlink(ctx context.Context, path string, target string) error

	// Readlink returns the target of a symbolic link
	Readlink(ctx context.Context, path string) (string, error)

	// Delete removes a file or directory tree
	Delete(ctx context.Context, path string) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata without following a final symbolic link
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Root returns the absolute root of the backend
	Root() string
}

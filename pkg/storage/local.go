package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
	skipDirs map[string]bool
}

// LocalOption configures a Local backend
type LocalOption func(*Local)

// WithSkipDirs prunes directories with the given base names from List
func WithSkipDirs(names ...string) LocalOption {
	return func(l *Local) {
		for _, n := range names {
			l.skipDirs[n] = true
		}
	}
}

// NewLocal creates a local backend rooted at rootPath.
// The root does not need to exist yet; it is created by the first write.
func NewLocal(rootPath string, opts ...LocalOption) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}
	if err == nil && !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	l := &Local{rootPath: absPath, skipDirs: make(map[string]bool)}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Root returns the absolute root path
func (l *Local) Root() string {
	return l.rootPath
}

func (l *Local) full(path string) string {
	return filepath.Join(l.rootPath, filepath.FromSlash(path))
}

// List returns all files under path recursively
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	var files []FileInfo

	err := filepath.WalkDir(l.full(path), func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if d.IsDir() {
			if p != l.rootPath && l.skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}

		info, err := l.info(p, d)
		if err != nil {
			return err
		}
		files = append(files, *info)
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (l *Local) info(p string, d fs.DirEntry) (*FileInfo, error) {
	info, err := d.Info()
	if err != nil {
		return nil, err
	}
	rel, err := filepath.Rel(l.rootPath, p)
	if err != nil {
		return nil, err
	}
	return &FileInfo{
		Path:         p,
		RelativePath: filepath.ToSlash(rel),
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		IsSymlink:    info.Mode()&fs.ModeSymlink != 0,
		Permissions:  uint32(info.Mode().Perm()),
	}, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := os.Open(l.full(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// prepare creates the parent directory of fullPath and removes whatever is
// already there, so read-only files and links can be replaced
func prepare(fullPath string) error {
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to replace existing file: %w", err)
	}
	return nil
}

// Write creates or replaces a file
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	fullPath := l.full(path)
	if err := prepare(fullPath); err != nil {
		return err
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	written, err := io.Copy(file, reader)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if size >= 0 && written != size {
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	if metadata == nil {
		return nil
	}
	if metadata.Permissions != 0 {
		if err := os.Chmod(fullPath, os.FileMode(metadata.Permissions)); err != nil {
			return fmt.Errorf("failed to set permissions: %w", err)
		}
	}
	if !metadata.ModTime.IsZero() {
		if err := os.Chtimes(fullPath, metadata.ModTime, metadata.ModTime); err != nil {
			return fmt.Errorf("failed to set modification time: %w", err)
		}
	}
	return nil
}

// Symlink creates or replaces a symbolic link
func (l *Local) Symlink(ctx context.Context, path string, target string) error {
	fullPath := l.full(path)
	if err := prepare(fullPath); err != nil {
		return err
	}
	if err := os.Symlink(target, fullPath); err != nil {
		return fmt.Errorf("failed to create symlink: %w", err)
	}
	return nil
}

// Readlink returns the target of a symbolic link, as stored
func (l *Local) Readlink(ctx context.Context, path string) (string, error) {
	target, err := os.Readlink(l.full(path))
	if err != nil {
		return "", fmt.Errorf("failed to read symlink: %w", err)
	}
	return target, nil
}

// Delete removes a file or directory. An empty path removes the root itself.
func (l *Local) Delete(ctx context.Context, path string) error {
	if err := os.RemoveAll(l.full(path)); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Lstat(l.full(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := l.full(path)

	info, err := os.Lstat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return l.info(fullPath, fs.FileInfoToDirEntry(info))
}

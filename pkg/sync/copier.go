package sync

import (
	"context"
	"io"
	"time"

	"github.com/sdejongh/p4harmonize/internal/platform"
	"github.com/sdejongh/p4harmonize/pkg/models"
	"github.com/sdejongh/p4harmonize/pkg/output"
	"github.com/sdejongh/p4harmonize/pkg/ratelimit"
	"github.com/sdejongh/p4harmonize/pkg/storage"
)

// progressReader wraps an io.Reader to report progress
type progressReader struct {
	reader         io.Reader
	read           int64
	lastReported   int64
	lastReportTime time.Time
	onProgress     func(bytesRead int64)
}

// Progress reporting thresholds
const (
	progressReportInterval = 50 * time.Millisecond
	progressReportBytes    = 64 * 1024
)

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.read += int64(n)

		if pr.onProgress != nil {
			shouldReport := pr.read-pr.lastReported >= progressReportBytes ||
				time.Since(pr.lastReportTime) >= progressReportInterval ||
				err != nil
			if shouldReport {
				pr.onProgress(pr.read)
				pr.lastReported = pr.read
				pr.lastReportTime = time.Now()
			}
		}
	}
	return n, err
}

// Copier copies source files into the destination workspace.
// Modification times and permission bits are preserved; symbolic links are
// recreated as links, never followed.
type Copier struct {
	source    storage.Backend
	dest      storage.Backend
	limiter   *ratelimit.Limiter
	formatter output.Formatter
}

// NewCopier creates a copier. limiter may be nil for unlimited bandwidth.
func NewCopier(source, dest storage.Backend, limiter *ratelimit.Limiter, formatter output.Formatter) *Copier {
	if formatter == nil {
		formatter = output.NullFormatter{}
	}
	return &Copier{
		source:    source,
		dest:      dest,
		limiter:   limiter,
		formatter: formatter,
	}
}

// Copy writes the source file at relativePath to the same relative path in
// the workspace and returns the number of bytes written
func (c *Copier) Copy(ctx context.Context, relativePath string, fileIndex int) (int64, error) {
	info, err := c.source.Stat(ctx, relativePath)
	if err != nil {
		return 0, &models.PathError{Op: "copy", Path: c.sourcePath(relativePath), Err: err}
	}

	if info.IsSymlink {
		target, err := c.source.Readlink(ctx, relativePath)
		if err != nil {
			return 0, &models.PathError{Op: "copy", Path: c.sourcePath(relativePath), Err: err}
		}
		if err := c.dest.Symlink(ctx, relativePath, target); err != nil {
			return 0, &models.PathError{Op: "copy", Path: c.destPath(relativePath), Err: err}
		}
		return 0, nil
	}

	reader, err := c.source.Read(ctx, relativePath)
	if err != nil {
		return 0, &models.PathError{Op: "copy", Path: c.sourcePath(relativePath), Err: err}
	}
	defer reader.Close()

	progress := &progressReader{
		reader:         ratelimit.NewReader(ctx, reader, c.limiter),
		lastReportTime: time.Now(),
		onProgress: func(bytesRead int64) {
			c.formatter.Progress(output.ProgressUpdate{
				Type:         output.UpdateFileProgress,
				Phase:        output.PhaseCopy,
				FilePath:     relativePath,
				BytesWritten: bytesRead,
				TotalBytes:   info.Size,
				CurrentFile:  fileIndex,
			})
		},
	}

	if err := c.dest.Write(ctx, relativePath, progress, info.Size, info); err != nil {
		return 0, &models.PathError{Op: "copy", Path: c.destPath(relativePath), Err: err}
	}
	return info.Size, nil
}

func (c *Copier) sourcePath(rel string) string {
	return platform.JoinSlash(c.source.Root(), rel)
}

func (c *Copier) destPath(rel string) string {
	return platform.JoinSlash(c.dest.Root(), rel)
}

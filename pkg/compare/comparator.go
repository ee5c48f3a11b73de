package compare

import (
	"context"
	"os"
	"strconv"

	"github.com/sdejongh/p4harmonize/pkg/models"
)

// Result holds the outcome of comparing one source/destination pair
type Result struct {
	Pair    models.Pair
	Outcome models.Outcome
	Reason  string
}

// Comparator decides whether a destination file already matches its source.
// Implementations must be safe for concurrent use.
type Comparator interface {
	Compare(ctx context.Context, pair models.Pair) (*Result, error)
}

// DigestComparator applies the depot comparison policy, first match wins:
// letter case, then file type (symlink or not), then size (binary types
// only), then content digest. Symbolic links are compared by target and
// never opened.
type DigestComparator struct {
	digest     models.DigestFunc
	linkDigest models.DigestFunc
	lstat      func(string) (os.FileInfo, error)
}

// NewDigestComparator creates a comparator using digest for content checks
func NewDigestComparator(digest models.DigestFunc) *DigestComparator {
	return &DigestComparator{
		digest:     digest,
		linkDigest: DigestLink,
		lstat:      os.Lstat,
	}
}

// Compare classifies a pair of records sharing a case-folded path
func (c *DigestComparator) Compare(ctx context.Context, pair models.Pair) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, dst := pair.Source, pair.Dest
	result := &Result{Pair: pair}

	// case is reported independently of content
	if src.Path != dst.Path {
		result.Outcome = models.OutcomeCaseMismatch
		result.Reason = "case differs: " + dst.Path + " -> " + src.Path
		return result, nil
	}

	info, err := c.lstat(src.FullPath)
	if err != nil {
		return nil, &models.PathError{Op: "stat", Path: src.FullPath, Err: err}
	}
	srcLink := info.Mode()&os.ModeSymlink != 0
	dstLink := models.BaseType(dst.HeadType) == "symlink"
	if srcLink != dstLink {
		result.Outcome = models.OutcomeChanged
		result.Reason = "file type differs: dest=" + dst.HeadType
		return result, nil
	}

	digestFn := c.digest
	if srcLink {
		digestFn = c.linkDigest
	} else if dst.BinaryLike() {
		// line endings make sizes meaningless for text types
		if size := strconv.FormatInt(info.Size(), 10); size != dst.Size {
			result.Outcome = models.OutcomeChanged
			result.Reason = "size mismatch: source=" + size + ", dest=" + dst.Size
			return result, nil
		}
	}

	digest, err := src.Digest(dst.Kind, digestFn)
	if err != nil {
		return nil, err
	}
	if digest != dst.Digest {
		result.Outcome = models.OutcomeChanged
		result.Reason = "digest mismatch: source=" + digest + ", dest=" + dst.Digest
		return result, nil
	}

	result.Outcome = models.OutcomeUnchanged
	result.Reason = "digests match"
	return result, nil
}

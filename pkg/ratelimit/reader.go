package ratelimit

import (
	"context"
	"io"
)

// Reader draws tokens from a Limiter before every read
type Reader struct {
	ctx     context.Context
	r       io.Reader
	limiter *Limiter
}

// NewReader wraps r. With a nil limiter r is returned as is.
func NewReader(ctx context.Context, r io.Reader, limiter *Limiter) io.Reader {
	if limiter == nil {
		return r
	}
	return &Reader{ctx: ctx, r: r, limiter: limiter}
}

func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if int64(len(p)) > r.limiter.burst {
		p = p[:r.limiter.burst]
	}
	if err := r.limiter.WaitN(r.ctx, int64(len(p))); err != nil {
		return 0, err
	}

	n, err := r.r.Read(p)
	if n < len(p) {
		// return the unused grant
		r.limiter.mu.Lock()
		r.limiter.tokens += int64(len(p) - n)
		if r.limiter.tokens > r.limiter.burst {
			r.limiter.tokens = r.limiter.burst
		}
		r.limiter.mu.Unlock()
	}
	return n, err
}

type readCloser struct {
	io.Reader
	io.Closer
}

// NewReadCloser wraps rc, closing the underlying reader on Close
func NewReadCloser(ctx context.Context, rc io.ReadCloser, limiter *Limiter) io.ReadCloser {
	if limiter == nil {
		return rc
	}
	return readCloser{Reader: NewReader(ctx, rc, limiter), Closer: rc}
}

// Package ratelimit caps the bandwidth of workspace copies.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// minBurst keeps small rates from degrading into byte-sized reads
const minBurst = 64 * 1024

// Limiter is a token bucket shared by every copy of a run.
// A nil *Limiter imposes no limit.
type Limiter struct {
	bytesPerSecond int64
	burst          int64

	mu     sync.Mutex
	tokens int64
	last   time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewLimiter returns a limiter allowing bytesPerSecond, or nil when the rate is not positive
func NewLimiter(bytesPerSecond int64) *Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	burst := bytesPerSecond
	if burst < minBurst {
		burst = minBurst
	}

	return &Limiter{
		bytesPerSecond: bytesPerSecond,
		burst:          burst,
		tokens:         burst,
		last:           time.Now(),
		now:            time.Now,
		sleep:          sleepContext,
	}
}

// Rate returns the configured bytes per second
func (l *Limiter) Rate() int64 {
	if l == nil {
		return 0
	}
	return l.bytesPerSecond
}

// Burst returns the largest single grant
func (l *Limiter) Burst() int64 {
	if l == nil {
		return 0
	}
	return l.burst
}

// WaitN blocks until n bytes may be transferred or ctx is done.
// Requests above the burst are clamped to it.
func (l *Limiter) WaitN(ctx context.Context, n int64) error {
	if l == nil {
		return ctx.Err()
	}
	if n > l.burst {
		n = l.burst
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		l.refill()
		if l.tokens >= n {
			l.tokens -= n
			l.mu.Unlock()
			return nil
		}
		deficit := n - l.tokens
		l.mu.Unlock()

		wait := time.Duration(float64(deficit) / float64(l.bytesPerSecond) * float64(time.Second))
		if wait < time.Millisecond {
			wait = time.Millisecond
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// refill adds tokens for the elapsed time; l.mu must be held
func (l *Limiter) refill() {
	now := l.now()
	add := int64(float64(now.Sub(l.last)) / float64(time.Second) * float64(l.bytesPerSecond))
	if add <= 0 {
		return
	}
	l.tokens += add
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

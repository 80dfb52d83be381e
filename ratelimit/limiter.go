package ratelimit

import (
	"context"
	"math"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

const (
	DefaultLimit      = 10
	DefaultWindow     = time.Minute
	DefaultSweepEvery = time.Minute
)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

type window struct {
	count   int
	resetAt time.Time
}

// Limiter counts requests per identifier in fixed windows.
type Limiter struct {
	limit      int
	window     time.Duration
	sweepEvery time.Duration
	now        func() time.Time
	windows    *xsync.MapOf[string, window]
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithSweepEvery sets the janitor interval. Zero disables the janitor.
func WithSweepEvery(d time.Duration) Option {
	return func(l *Limiter) {
		l.sweepEvery = d
	}
}

// NewLimiter returns a limiter allowing limit requests per window.
// Non-positive values fall back to 10 requests per minute.
func NewLimiter(limit int, win time.Duration, opts ...Option) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if win <= 0 {
		win = DefaultWindow
	}
	l := &Limiter{
		limit:      limit,
		window:     win,
		sweepEvery: DefaultSweepEvery,
		now:        time.Now,
		windows:    xsync.NewMapOf[string, window](),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Limit returns the configured request limit.
func (l *Limiter) Limit() int { return l.limit }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Check counts a request for key against the limiter's defaults.
func (l *Limiter) Check(key string) Decision {
	return l.CheckLimit(key, l.limit, l.window)
}

// CheckLimit counts a request for key against an explicit limit and window.
// The read-modify-write on the key's window is atomic.
func (l *Limiter) CheckLimit(key string, limit int, win time.Duration) Decision {
	now := l.now()
	var dec Decision

	l.windows.Compute(key, func(cur window, loaded bool) (window, bool) {
		if !loaded || !now.Before(cur.resetAt) {
			next := window{count: 1, resetAt: now.Add(win)}
			dec = Decision{Allowed: true, Limit: limit, Remaining: limit - 1, ResetAt: next.resetAt}
			return next, false
		}

		if cur.count >= limit {
			dec = Decision{
				Allowed:    false,
				Limit:      limit,
				Remaining:  0,
				RetryAfter: cur.resetAt.Sub(now),
				ResetAt:    cur.resetAt,
			}
			return cur, false
		}

		cur.count++
		dec = Decision{Allowed: true, Limit: limit, Remaining: limit - cur.count, ResetAt: cur.resetAt}
		return cur, false
	})

	return dec
}

// Sweep deletes every window that has ended and returns how many it removed.
// A window renewed concurrently is kept.
func (l *Limiter) Sweep() int {
	now := l.now()
	removed := 0

	l.windows.Range(func(key string, _ window) bool {
		l.windows.Compute(key, func(cur window, loaded bool) (window, bool) {
			if loaded && !now.Before(cur.resetAt) {
				removed++
				return cur, true
			}
			return cur, !loaded
		})
		return true
	})

	return removed
}

// Len returns the number of tracked identifiers.
func (l *Limiter) Len() int {
	return l.windows.Size()
}

// StartJanitor sweeps ended windows every sweep interval until ctx is done.
// The returned channel is closed once the janitor has stopped.
func (l *Limiter) StartJanitor(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	if l.sweepEvery <= 0 {
		close(done)
		return done
	}

	t := time.NewTicker(l.sweepEvery)
	go func() {
		defer close(done)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
	return done
}

package ratestore

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/puzpuzpuz/xsync/v3"
)

// In-process sliding-window limiter, keeping a log of recent timestamps per user. Filter, append, and count happen atomically per user.
type MemRateLimiter struct {
	Windows *xsync.MapOf[string, []time.Time]
	Clock   clock.Clock
	config  Config
}

var _ RateLimiter = (*MemRateLimiter)(nil)

func NewMemRateLimiter(config Config, clk clock.Clock) (*MemRateLimiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if clk == nil {
		clk = clock.New()
	}
	return &MemRateLimiter{
		Windows: xsync.NewMapOf[string, []time.Time](),
		Clock:   clk,
		config:  config,
	}, nil
}

func (l *MemRateLimiter) CheckAndRecord(ctx context.Context, user string) (bool, error) {
	now := l.Clock.Now()
	var count int
	l.Windows.Compute(user, func(times []time.Time, loaded bool) ([]time.Time, bool) {
		times = purgeWindow(times, now, l.config.Window)
		times = append(times, now)
		count = len(times)
		return times, false
	})
	return count > l.config.MaxMessages, nil
}

func (l *MemRateLimiter) Reset(ctx context.Context, user string) error {
	l.Windows.Delete(user)
	return nil
}

// Returns the number of timestamps currently inside the window, without recording a new one.
func (l *MemRateLimiter) Count(user string) int {
	times, ok := l.Windows.Load(user)
	if !ok {
		return 0
	}
	return len(purgeWindow(times, l.Clock.Now(), l.config.Window))
}

// Keeps entries with now-t <= window. Always returns a fresh slice: stored slices are never mutated, so Load is safe alongside Compute.
func purgeWindow(times []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := make([]time.Time, 0, len(times)+1)
	for _, t := range times {
		if now.Sub(t) <= window {
			kept = append(kept, t)
		}
	}
	return kept
}

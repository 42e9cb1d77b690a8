package schedule

import (
	"context"
	"time"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

// fakeSleeper records requested delays and advances the clock instead of
// blocking. It cancels the run on the sleep numbered cancelAt (1-based).
type fakeSleeper struct {
	clock    *fakeClock
	sleeps   []time.Duration
	cancelAt int
	cancel   context.CancelFunc
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.sleeps = append(s.sleeps, d)
	if s.cancelAt > 0 && len(s.sleeps) == s.cancelAt && s.cancel != nil {
		s.cancel()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.clock != nil && d > 0 {
		s.clock.now = s.clock.now.Add(d)
	}
	return nil
}

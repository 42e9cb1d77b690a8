package schedule

import (
	"context"
	"fmt"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Sleeper blocks for a duration. Sleep returns ctx.Err() if the context
// is cancelled first.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}

// TimerSleeper sleeps on a real timer.
type TimerSleeper struct{}

// Sleep waits for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NextWake returns tomorrow (the UTC day after now) at hour:00:00 UTC.
//
// The result is always in the future relative to now, between one and two
// days ahead depending on the time of day.
func NextWake(now time.Time, hour int) (time.Time, error) {
	if hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("%w: got %d", ErrInvalidWakeHour, hour)
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, hour, 0, 0, 0, time.UTC), nil
}

// SleepUntil sleeps until the clock reaches t. A t in the past returns at once.
func SleepUntil(ctx context.Context, clock Clock, sleeper Sleeper, t time.Time) error {
	return sleeper.Sleep(ctx, t.Sub(clock.Now()))
}

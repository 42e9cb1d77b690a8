package schedule

import (
	"context"
	"math"
	"time"

	"github.com/nerrad567/price-collector/internal/infrastructure/logging"
)

// State is the final state of a retry-bounded run.
type State string

// Run states.
const (
	StateDone      State = "done"
	StateExhausted State = "exhausted"
	StateCancelled State = "cancelled"
)

// TickFunc is one attempt. A nil error ends the run.
type TickFunc func(ctx context.Context) error

// Result describes a finished RunWithRetry.
type Result struct {
	Attempts int
	State    State
	LastErr  error
}

// maxShift is the largest exponent whose backoff fits in a time.Duration.
const maxShift = 33

// Backoff returns the delay after failed attempt i: 2^i seconds.
// Negative i is treated as 0. Values too large for time.Duration saturate.
func Backoff(i int) time.Duration {
	if i < 0 {
		i = 0
	}
	if i > maxShift {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(int64(1)<<uint(i)) * time.Second
}

// RunWithRetry invokes tick until it succeeds or maxAttempts attempts fail.
//
// After every failed attempt i it logs the reason and sleeps Backoff(i),
// the last attempt included. There is no jitter and no cap. Exhaustion is
// not an error: the day's data is forfeited and the caller moves on.
//
// Parameters:
//   - ctx: Cancelling it stops the run at the next attempt or during a backoff
//   - maxAttempts: Attempts allowed; values below 1 are treated as 1
//   - tick: The attempt to run
//   - sleeper: Source of backoff delays
//   - logger: Receives one entry per failed attempt
//
// Returns:
//   - Result: Attempts made, final state and the last attempt error
func RunWithRetry(ctx context.Context, maxAttempts int, tick TickFunc, sleeper Sleeper, logger *logging.Logger) Result {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if logger == nil {
		logger = logging.Default()
	}

	var res Result
	for i := 0; i < maxAttempts; i++ {
		if ctx.Err() != nil {
			res.State = StateCancelled
			return res
		}

		res.Attempts = i + 1
		err := tick(ctx)
		if err == nil {
			res.State = StateDone
			res.LastErr = nil
			return res
		}
		res.LastErr = err

		delay := Backoff(i)
		logger.Warn("tick attempt failed", "attempt", i, "error", err)
		logger.Debug("exponential backoff", "delay", delay.String())

		if err := sleeper.Sleep(ctx, delay); err != nil {
			res.State = StateCancelled
			return res
		}
	}

	res.State = StateExhausted
	logger.Error("all tick attempts failed", "attempts", res.Attempts, "error", res.LastErr)
	return res
}

// Package schedule drives the daily collection cycle.
//
// Two state machines live here:
//
//   - RunWithRetry invokes a tick up to maxAttempts times, sleeping
//     Backoff(i) = 2^i seconds after failed attempt i.
//   - Scheduler.Run sleeps until NextWake (tomorrow at the configured UTC
//     hour), runs one retry-bounded cycle and recomputes the wake time,
//     so there is exactly one cycle per calendar day.
//
// Time is injected through Clock and Sleeper. Every sleep ends early when
// the context is cancelled, which is how the daemon shuts down.
package schedule

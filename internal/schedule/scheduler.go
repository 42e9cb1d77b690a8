package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/price-collector/internal/collector"
	"github.com/nerrad567/price-collector/internal/infrastructure/logging"
	"github.com/nerrad567/price-collector/internal/metrics"
)

// recordTimeout bounds how long a finished cycle may take to record.
const recordTimeout = 5 * time.Second

// Ticker runs one fetch-and-persist attempt. *collector.Collector satisfies it.
type Ticker interface {
	Tick(ctx context.Context) (collector.Summary, error)
}

// CycleRecorder persists finished cycles. *ledger.Ledger satisfies it.
type CycleRecorder interface {
	Record(ctx context.Context, c Cycle) error
}

// Config holds the scheduler settings.
type Config struct {
	// WakeHour is the UTC hour the daily cycle starts at.
	WakeHour int

	// Retries is the number of tick attempts per cycle.
	Retries int
}

// Scheduler composes the daily clock and the retry loop.
//
// One goroutine drives everything: ticks never overlap.
type Scheduler struct {
	cfg      Config
	ticker   Ticker
	clock    Clock
	sleeper  Sleeper
	recorder CycleRecorder
	status   *Status
	metrics  *metrics.Metrics
	logger   *logging.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithSleeper replaces the real timer.
func WithSleeper(sl Sleeper) Option {
	return func(s *Scheduler) { s.sleeper = sl }
}

// WithRecorder records every finished cycle.
func WithRecorder(r CycleRecorder) Option {
	return func(s *Scheduler) { s.recorder = r }
}

// WithStatus publishes progress to st.
func WithStatus(st *Status) Option {
	return func(s *Scheduler) { s.status = st }
}

// WithMetrics records cycle metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// New creates a Scheduler. The wake hour is validated by Run.
func New(cfg Config, ticker Ticker, logger *logging.Logger, opts ...Option) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Scheduler{
		cfg:     cfg,
		ticker:  ticker,
		clock:   SystemClock{},
		sleeper: TimerSleeper{},
		logger:  logger.With("component", "scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run loops until ctx is cancelled: sleep until the next wake, run one
// cycle, repeat. The wake time is recomputed from the clock every
// iteration so drift never accumulates.
//
// Returns:
//   - error: ErrInvalidWakeHour for a bad configuration; nil on cancellation
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		now := s.clock.Now()
		wake, err := NextWake(now, s.cfg.WakeHour)
		if err != nil {
			return err
		}

		s.status.SetNextWake(wake)
		s.metrics.SetNextWake(wake)
		s.logger.Info("next collection scheduled", "wake", wake.Format(time.RFC3339), "in", wake.Sub(now).Round(time.Second).String())

		if err := SleepUntil(ctx, s.clock, s.sleeper, wake); err != nil {
			s.logger.Info("scheduler stopped while waiting")
			return nil
		}

		if c := s.RunCycle(ctx); c.State == StateCancelled {
			s.logger.Info("scheduler stopped during cycle", "cycle", c.ID)
			return nil
		}
	}
}

// RunCycle runs one retry-bounded cycle immediately and records it.
func (s *Scheduler) RunCycle(ctx context.Context) Cycle {
	cycle := Cycle{
		ID:         uuid.NewString(),
		TargetDate: collector.TargetDate(s.clock.Now()),
		StartedAt:  s.clock.Now().UTC(),
		State:      StateRunning,
	}
	s.status.CycleStarted(cycle)

	log := s.logger.With("cycle", cycle.ID)
	log.Info("collection cycle started", "date", cycle.TargetDate, "max_attempts", s.cfg.Retries)

	tick := func(ctx context.Context) error {
		summary, err := s.ticker.Tick(ctx)
		if summary.Date != "" {
			cycle.TargetDate = summary.Date
		}
		if err == nil {
			cycle.PointsWritten = summary.Written
			cycle.PointsFailed = summary.Failed
		}
		return err
	}

	res := RunWithRetry(ctx, s.cfg.Retries, tick, s.sleeper, log)

	finished := s.clock.Now().UTC()
	cycle.FinishedAt = &finished
	cycle.Attempts = res.Attempts
	cycle.State = res.State
	if res.LastErr != nil {
		cycle.LastError = res.LastErr.Error()
	}

	log.Info("collection cycle finished",
		"date", cycle.TargetDate,
		"state", string(cycle.State),
		"attempts", cycle.Attempts,
		"written", cycle.PointsWritten,
		"failed", cycle.PointsFailed,
	)

	s.metrics.ObserveCycle(string(cycle.State))
	s.record(ctx, cycle, log)
	s.status.CycleFinished(cycle)

	return cycle
}

// record stores the cycle even when ctx was cancelled during it.
func (s *Scheduler) record(ctx context.Context, c Cycle, log *logging.Logger) {
	if s.recorder == nil {
		return
	}
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()

	if err := s.recorder.Record(recCtx, c); err != nil {
		log.Warn("recording cycle failed", "error", err)
	}
}

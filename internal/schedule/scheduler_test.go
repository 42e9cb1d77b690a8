package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/price-collector/internal/collector"
	"github.com/nerrad567/price-collector/internal/infrastructure/logging"
	"github.com/nerrad567/price-collector/internal/metrics"
)

// scriptedTicker returns the queued errors in order, then succeeds.
type scriptedTicker struct {
	clock *fakeClock
	errs  []error
	ticks []time.Time
}

func (s *scriptedTicker) Tick(context.Context) (collector.Summary, error) {
	s.ticks = append(s.ticks, s.clock.Now())
	date := collector.TargetDate(s.clock.Now())
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		return collector.Summary{Date: date}, err
	}
	return collector.Summary{Date: date, Written: 24}, nil
}

type memRecorder struct {
	cycles []Cycle
	err    error
}

func (m *memRecorder) Record(ctx context.Context, c Cycle) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.cycles = append(m.cycles, c)
	return m.err
}

func TestScheduler_OneCyclePerDay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{now: time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)}
	sleeper := &fakeSleeper{clock: clock, cancelAt: 3, cancel: cancel}
	ticker := &scriptedTicker{clock: clock}
	rec := &memRecorder{}
	status := NewStatus(clock.now)

	s := New(Config{WakeHour: 11, Retries: 10}, ticker, logging.Discard(),
		WithClock(clock), WithSleeper(sleeper), WithRecorder(rec), WithStatus(status))

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	wantTicks := []time.Time{
		time.Date(2024, 3, 11, 11, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 12, 11, 0, 0, 0, time.UTC),
	}
	if len(ticker.ticks) != len(wantTicks) {
		t.Fatalf("ticked at %v, want %v", ticker.ticks, wantTicks)
	}
	for i := range wantTicks {
		if !ticker.ticks[i].Equal(wantTicks[i]) {
			t.Errorf("tick %d at %v, want %v", i, ticker.ticks[i], wantTicks[i])
		}
	}

	wantSleeps := []time.Duration{20 * time.Hour, 24 * time.Hour, 24 * time.Hour}
	for i := range wantSleeps {
		if sleeper.sleeps[i] != wantSleeps[i] {
			t.Errorf("sleep %d = %v, want %v", i, sleeper.sleeps[i], wantSleeps[i])
		}
	}

	if len(rec.cycles) != 2 {
		t.Fatalf("recorded %d cycles, want 2", len(rec.cycles))
	}
	first := rec.cycles[0]
	if first.State != StateDone || first.Attempts != 1 || first.PointsWritten != 24 {
		t.Errorf("first cycle = %+v", first)
	}
	if first.TargetDate != "2024-03-12T00:00:00Z" {
		t.Errorf("first cycle date = %q", first.TargetDate)
	}
	if first.ID == "" || first.ID == rec.cycles[1].ID {
		t.Errorf("cycle IDs not unique: %q, %q", first.ID, rec.cycles[1].ID)
	}

	snap := status.Snapshot()
	if snap.Cycles != 2 || snap.Last == nil || snap.Current != nil {
		t.Errorf("status snapshot = %+v", snap)
	}
	if snap.NextWake == nil || !snap.NextWake.Equal(time.Date(2024, 3, 13, 11, 0, 0, 0, time.UTC)) {
		t.Errorf("status next wake = %v", snap.NextWake)
	}
}

func TestScheduler_RunInvalidWakeHour(t *testing.T) {
	s := New(Config{WakeHour: 24, Retries: 1}, &scriptedTicker{clock: &fakeClock{}}, logging.Discard(),
		WithSleeper(&fakeSleeper{}))

	if err := s.Run(context.Background()); !errors.Is(err, ErrInvalidWakeHour) {
		t.Errorf("Run() error = %v, want ErrInvalidWakeHour", err)
	}
}

func TestScheduler_RunCycleExhausted(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 11, 11, 0, 0, 0, time.UTC)}
	sleeper := &fakeSleeper{clock: clock}
	boom := errors.New("no price info")
	ticker := &scriptedTicker{clock: clock, errs: []error{boom, boom, boom}}
	rec := &memRecorder{}
	m := metrics.New()

	s := New(Config{WakeHour: 11, Retries: 3}, ticker, logging.Discard(),
		WithClock(clock), WithSleeper(sleeper), WithRecorder(rec), WithMetrics(m))

	c := s.RunCycle(context.Background())

	if c.State != StateExhausted || c.Attempts != 3 {
		t.Fatalf("cycle = %+v, want exhausted after 3 attempts", c)
	}
	if c.LastError != "no price info" {
		t.Errorf("LastError = %q", c.LastError)
	}
	if c.PointsWritten != 0 {
		t.Errorf("PointsWritten = %d, want 0", c.PointsWritten)
	}
	if c.FinishedAt == nil || c.FinishedAt.Sub(c.StartedAt) != 7*time.Second {
		t.Errorf("cycle duration = %v, want 7s of backoff", c.FinishedAt)
	}
	if len(rec.cycles) != 1 {
		t.Errorf("recorded %d cycles, want 1", len(rec.cycles))
	}
	if got := testutil.ToFloat64(m.CyclesTotal.WithLabelValues(string(StateExhausted))); got != 1 {
		t.Errorf("exhausted cycles metric = %v, want 1", got)
	}
}

func TestScheduler_RunCycleRecoversAfterFailures(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 11, 11, 0, 0, 0, time.UTC)}
	boom := errors.New("no data")
	ticker := &scriptedTicker{clock: clock, errs: []error{boom, boom}}

	s := New(Config{WakeHour: 11, Retries: 10}, ticker, logging.Discard(),
		WithClock(clock), WithSleeper(&fakeSleeper{clock: clock}))

	c := s.RunCycle(context.Background())

	if c.State != StateDone || c.Attempts != 3 || c.LastError != "" {
		t.Errorf("cycle = %+v, want done on the third attempt", c)
	}
	if c.PointsWritten != 24 {
		t.Errorf("PointsWritten = %d, want 24", c.PointsWritten)
	}
}

func TestScheduler_CancelledCycleIsStillRecorded(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clock := &fakeClock{now: time.Date(2024, 3, 10, 15, 0, 0, 0, time.UTC)}
	// Sleep 1 is the daily wait; sleep 2 is the first backoff.
	sleeper := &fakeSleeper{clock: clock, cancelAt: 2, cancel: cancel}
	ticker := &scriptedTicker{clock: clock, errs: []error{errors.New("no homes")}}
	rec := &memRecorder{}

	s := New(Config{WakeHour: 11, Retries: 10}, ticker, logging.Discard(),
		WithClock(clock), WithSleeper(sleeper), WithRecorder(rec))

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(rec.cycles) != 1 || rec.cycles[0].State != StateCancelled {
		t.Fatalf("recorded cycles = %+v, want one cancelled cycle", rec.cycles)
	}
}

func TestScheduler_RecorderFailureIsNotFatal(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 11, 11, 0, 0, 0, time.UTC)}
	rec := &memRecorder{err: errors.New("database is locked")}

	s := New(Config{WakeHour: 11, Retries: 1}, &scriptedTicker{clock: clock}, logging.Discard(),
		WithClock(clock), WithSleeper(&fakeSleeper{clock: clock}), WithRecorder(rec))

	if c := s.RunCycle(context.Background()); c.State != StateDone {
		t.Errorf("cycle state = %q, want done", c.State)
	}
}

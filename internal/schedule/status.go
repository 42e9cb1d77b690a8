package schedule

import (
	"sync"
	"time"
)

// Cycle is one day's wake-then-retry run.
type Cycle struct {
	ID            string     `json:"id"`
	TargetDate    string     `json:"target_date"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Attempts      int        `json:"attempts"`
	State         State      `json:"state"`
	PointsWritten int        `json:"points_written"`
	PointsFailed  int        `json:"points_failed"`
	LastError     string     `json:"last_error,omitempty"`
}

// StateRunning marks a cycle that has not finished yet.
const StateRunning State = "running"

// StatusSnapshot is a point-in-time copy of the scheduler status.
type StatusSnapshot struct {
	StartedAt time.Time  `json:"started_at"`
	NextWake  *time.Time `json:"next_wake,omitempty"`
	Current   *Cycle     `json:"current_cycle,omitempty"`
	Last      *Cycle     `json:"last_cycle,omitempty"`
	Cycles    int        `json:"cycles"`
}

// Status tracks what the scheduler is doing for readers on other goroutines.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Status struct {
	mu       sync.RWMutex
	started  time.Time
	nextWake time.Time
	current  *Cycle
	last     *Cycle
	cycles   int
}

// NewStatus creates a tracker for a daemon started at startedAt.
func NewStatus(startedAt time.Time) *Status {
	return &Status{started: startedAt}
}

// SetNextWake records the next scheduled wake.
func (s *Status) SetNextWake(t time.Time) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWake = t
}

// CycleStarted records a cycle in progress.
func (s *Status) CycleStarted(c Cycle) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = &c
}

// CycleFinished moves the cycle from current to last.
func (s *Status) CycleFinished(c Cycle) {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = nil
	s.last = &c
	s.cycles++
}

// Snapshot returns a copy safe to hand to other goroutines.
func (s *Status) Snapshot() StatusSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatusSnapshot{StartedAt: s.started, Cycles: s.cycles}
	if !s.nextWake.IsZero() {
		wake := s.nextWake
		snap.NextWake = &wake
	}
	if s.current != nil {
		c := *s.current
		snap.Current = &c
	}
	if s.last != nil {
		c := *s.last
		snap.Last = &c
	}
	return snap
}

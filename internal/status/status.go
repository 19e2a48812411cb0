// Package status provides a thread-safe snapshot tracker for the cp-pilot
// daemon. It feeds the periodic diagnostic log line and shutdown summary.
package status

import (
	"sync"
	"time"

	"github.com/wattline/cp-pilot/internal/cp"
)

// Config contains daemon configuration for display.
type Config struct {
	StatusMs int64
	DiagMs   int64
	Samples  int
	HostPort string
	DiagPort string
}

// Counts tracks committed CP transitions by destination class.
type Counts struct {
	ToConnected int
	ToIdle      int
	ToFault     int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type — safe to use after the lock is released.
type Snapshot struct {
	State      cp.State
	Mode       string
	MVMax      int
	MVMin      int
	MVAvg      int
	MVRobust   int
	PWMEnabled bool
	PWMDuty    int
	PWMHz      int
	OutDuty    int

	Transitions Counts
	StartTime   time.Time
	Now         time.Time
	Config      Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			State:     cp.StateA,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// UpdateCP sets the signal-side fields. Called from the control loop on every
// classification cycle.
func (t *Tracker) UpdateCP(state cp.State, mode string, mvMax, mvMin, mvAvg, mvRobust int, pwmEnabled bool, pwmDuty, pwmHz, outDuty int) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Mode = mode
	t.snap.MVMax = mvMax
	t.snap.MVMin = mvMin
	t.snap.MVAvg = mvAvg
	t.snap.MVRobust = mvRobust
	t.snap.PWMEnabled = pwmEnabled
	t.snap.PWMDuty = pwmDuty
	t.snap.PWMHz = pwmHz
	t.snap.OutDuty = outDuty
	t.mu.Unlock()
}

// CountTransition records a committed CP transition by its destination.
func (t *Tracker) CountTransition(to cp.State) {
	t.mu.Lock()
	switch {
	case to.Connected():
		t.snap.Transitions.ToConnected++
	case to == cp.StateA:
		t.snap.Transitions.ToIdle++
	default:
		t.snap.Transitions.ToFault++
	}
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

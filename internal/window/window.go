// Package window folds per-frame motion flags into fixed wall-clock windows.
//
// Sampling is frame-rate driven (OnMotionSample once per processed frame),
// sealing is clock driven (Tick). Every second therefore yields exactly one
// record, whatever the camera frame rates, and each record is the OR of every
// sample taken during it.
package window

import (
	"fmt"
	"time"

	"github.com/e7canasta/camsens/internal/types"
)

// Clock abstracts time.Now for tests
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time { return time.Now() }

// Config controls window length and session length
type Config struct {
	// Duration of one window (default: 1s)
	Duration time.Duration
	// Cap is the number of windows after which the session is complete (default: 120)
	Cap int
}

// DefaultConfig returns 1s windows and a 120 window cap
func DefaultConfig() Config {
	return Config{Duration: time.Second, Cap: 120}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("window: duration must be > 0, got %v", c.Duration)
	}
	if c.Cap <= 0 {
		return fmt.Errorf("window: cap must be > 0, got %d", c.Cap)
	}
	return nil
}

// Status is the per-camera outcome of a sealed window
type Status int

const (
	// NoMotion means every sample in the window was negative
	NoMotion Status = iota
	// Motion means at least one sample in the window was positive
	Motion
	// Unavailable means the camera had left the session
	Unavailable
)

// String returns a short lowercase name
func (s Status) String() string {
	switch s {
	case NoMotion:
		return "no_motion"
	case Motion:
		return "motion"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Sealed is one completed window
type Sealed struct {
	// Index is 1-based and contiguous within a session
	Index int
	Start time.Time
	End   time.Time
	// Columns lists cameras in header order
	Columns []types.CameraID
	// Status holds one entry per column
	Status map[types.CameraID]Status
	// Samples counts the motion samples folded in per camera
	Samples map[types.CameraID]int
}

// Aggregator accumulates motion flags for the current window.
// It is owned by the session loop and not safe for concurrent use.
type Aggregator struct {
	cfg     Config
	clock   Clock
	columns []types.CameraID

	boundary time.Time
	sealed   int

	motion  map[types.CameraID]bool
	samples map[types.CameraID]int
	dropped map[types.CameraID]bool
}

// New returns an aggregator whose first window starts at clock.Now().
// columns fixes the column order for the whole session.
func New(columns []types.CameraID, cfg Config, clock Clock) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("window: at least one column is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}

	cols := make([]types.CameraID, len(columns))
	copy(cols, columns)

	a := &Aggregator{
		cfg:     cfg,
		clock:   clock,
		columns: cols,
		dropped: make(map[types.CameraID]bool),
	}
	a.Reset(clock.Now())
	return a, nil
}

// Reset starts a fresh window at start and clears the sealed count
func (a *Aggregator) Reset(start time.Time) {
	a.boundary = start
	a.sealed = 0
	a.clearAccumulators()
}

func (a *Aggregator) clearAccumulators() {
	a.motion = make(map[types.CameraID]bool, len(a.columns))
	a.samples = make(map[types.CameraID]int, len(a.columns))
}

// Columns returns the column order
func (a *Aggregator) Columns() []types.CameraID {
	out := make([]types.CameraID, len(a.columns))
	copy(out, a.columns)
	return out
}

func (a *Aggregator) isColumn(id types.CameraID) bool {
	for _, c := range a.columns {
		if c == id {
			return true
		}
	}
	return false
}

// OnMotionSample folds one per-frame flag into the current window.
// Samples for unknown or dropped cameras are ignored.
func (a *Aggregator) OnMotionSample(id types.CameraID, detected bool) {
	if a.dropped[id] || !a.isColumn(id) {
		return
	}
	a.samples[id]++
	if detected {
		a.motion[id] = true
	}
}

// Drop marks a camera unavailable from the current window on
func (a *Aggregator) Drop(id types.CameraID) {
	if a.isColumn(id) {
		a.dropped[id] = true
	}
}

// Due reports whether the current window would seal at now
func (a *Aggregator) Due(now time.Time) bool {
	return !a.IsSessionComplete() && now.Sub(a.boundary) >= a.cfg.Duration
}

// Tick seals the current window when at least one window duration has
// elapsed since its start. At most one window is sealed per call; the next
// window starts exactly one duration after the previous one, so a late tick
// does not shift later boundaries.
func (a *Aggregator) Tick(now time.Time) (Sealed, bool) {
	if !a.Due(now) {
		return Sealed{}, false
	}

	a.sealed++
	end := a.boundary.Add(a.cfg.Duration)
	out := Sealed{
		Index:   a.sealed,
		Start:   a.boundary,
		End:     end,
		Columns: a.Columns(),
		Status:  make(map[types.CameraID]Status, len(a.columns)),
		Samples: make(map[types.CameraID]int, len(a.columns)),
	}
	for _, id := range a.columns {
		switch {
		case a.dropped[id]:
			out.Status[id] = Unavailable
		case a.motion[id]:
			out.Status[id] = Motion
		default:
			out.Status[id] = NoMotion
		}
		out.Samples[id] = a.samples[id]
	}

	a.boundary = end
	a.clearAccumulators()
	return out, true
}

// Sealed returns how many windows have been sealed
func (a *Aggregator) Sealed() int {
	return a.sealed
}

// IsSessionComplete reports whether the window cap has been reached
func (a *Aggregator) IsSessionComplete() bool {
	return a.sealed >= a.cfg.Cap
}

// Clock returns the clock the aggregator was created with
func (a *Aggregator) Clock() Clock {
	return a.clock
}

// Package session drives the recording and sensing lifecycle:
//
//	Idle → Recording → RecordingAndSensing
//	  └──────────┴──────────────┴──→ Terminated
//
// The controller is a single-threaded loop. It polls every source without
// blocking, forwards new frames to the video sinks, feeds the motion detectors
// while sensing, and writes one log row per sealed window. Every path into
// Terminated closes every sink and source exactly once.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/camsens/internal/capture"
	"github.com/e7canasta/camsens/internal/motion"
	"github.com/e7canasta/camsens/internal/sink"
	"github.com/e7canasta/camsens/internal/types"
	"github.com/e7canasta/camsens/internal/window"
)

var (
	// ErrInvalidTransition is returned for commands not valid in the current state
	ErrInvalidTransition = errors.New("session: invalid transition")
	// ErrTerminated is returned for commands after the session ended
	ErrTerminated = errors.New("session: terminated")
	// ErrRequiredSink is returned when a sink of the required camera, or the
	// log, cannot be opened or written
	ErrRequiredSink = errors.New("session: required sink failed")
	// ErrSourceLost is reported when the required camera is lost
	ErrSourceLost = errors.New("session: required source lost")
)

// Mode selects the per-window heuristic
type Mode string

const (
	// ModeMotion flags windows containing frame-to-frame motion
	ModeMotion Mode = "motion"
	// ModeLight flags windows whose mean brightness changed
	ModeLight Mode = "light"
)

// Labels are the strings written to the log for each window status
type Labels struct {
	Positive    string
	Negative    string
	Unavailable string
}

// LabelsFor returns the log labels of a mode
func LabelsFor(mode Mode) Labels {
	if mode == ModeLight {
		return Labels{Positive: sink.StatusChanged, Negative: sink.StatusUnchanged, Unavailable: sink.StatusUnavailable}
	}
	return Labels{Positive: sink.StatusMotion, Negative: sink.StatusNoMotion, Unavailable: sink.StatusUnavailable}
}

func (l Labels) of(s window.Status) string {
	switch s {
	case window.Motion:
		return l.Positive
	case window.Unavailable:
		return l.Unavailable
	default:
		return l.Negative
	}
}

// Config contains session settings
type Config struct {
	Mode      Mode
	Motion    motion.Params
	Light     motion.LightParams
	BlurSigma float32
	Window    window.Config
	// Codec is the FourCC for video sinks (default: mp4v)
	Codec string
	// DefaultFPS is used when a source has neither a measured nor a reported rate
	DefaultFPS float64
	// PollInterval bounds how long Run waits for a command per iteration (default: 1ms)
	PollInterval time.Duration
}

// DefaultConfig returns the reference settings
func DefaultConfig() Config {
	return Config{
		Mode:         ModeMotion,
		Motion:       motion.DefaultParams(),
		Light:        motion.DefaultLightParams(),
		Window:       window.DefaultConfig(),
		Codec:        "mp4v",
		DefaultFPS:   30,
		PollInterval: time.Millisecond,
	}
}

// Option configures a Controller
type Option func(*Controller)

// WithClock replaces the wall clock, for tests
func WithClock(clock window.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithObserver registers an observer
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

// WithRunID sets the run identifier (default: random UUID)
func WithRunID(id string) Option {
	return func(c *Controller) { c.runID = id }
}

// slotState is the controller's view of one camera
type slotState struct {
	id       types.CameraID
	required bool
	source   FrameSource

	active   bool // still part of the session
	dropped  string
	detector motion.Detector

	video         sink.Video
	videoPath     string
	framesWritten uint64
	motionSamples uint64
}

// Controller is the session state machine
type Controller struct {
	cfg       Config
	sinks     sink.Factory
	clock     window.Clock
	observers []Observer
	runID     string
	labels    Labels
	smoother  *motion.Smoother

	mu        sync.RWMutex
	state     State
	reason    Reason
	err       error
	startedAt time.Time
	endedAt   time.Time

	slots   []*slotState
	agg     *window.Aggregator
	columns []types.CameraID
	log     sink.Log
	logPath string
	rows    int

	closeOnce sync.Once
}

// New validates slots and returns an idle controller.
//
// Exactly one slot must be required and it must have a source. Optional
// slots without a source are kept for status reporting only.
func New(cfg Config, slots []*Slot, sinks sink.Factory, opts ...Option) (*Controller, error) {
	if sinks == nil {
		return nil, fmt.Errorf("session: sink factory is required")
	}
	if err := cfg.Window.Validate(); err != nil {
		return nil, fmt.Errorf("session: %w", err)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeMotion
	}
	if cfg.Mode != ModeMotion && cfg.Mode != ModeLight {
		return nil, fmt.Errorf("session: unknown mode %q", cfg.Mode)
	}
	if cfg.Mode == ModeMotion {
		if err := cfg.Motion.Validate(); err != nil {
			return nil, fmt.Errorf("session: %w", err)
		}
	}
	if cfg.Codec == "" {
		cfg.Codec = "mp4v"
	}
	if cfg.DefaultFPS <= 0 {
		cfg.DefaultFPS = 30
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Millisecond
	}

	c := &Controller{
		cfg:      cfg,
		sinks:    sinks,
		clock:    window.SystemClock{},
		labels:   LabelsFor(cfg.Mode),
		smoother: motion.NewSmoother(cfg.BlurSigma),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.runID == "" {
		c.runID = uuid.New().String()
	}

	seen := make(map[types.CameraID]bool)
	required := 0
	for _, s := range slots {
		if s == nil {
			continue
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("session: duplicate camera %s", s.ID)
		}
		seen[s.ID] = true
		if s.Required {
			required++
			if s.Source == nil {
				return nil, fmt.Errorf("%w: %s", ErrRequiredSource, s.ID)
			}
		}
		c.slots = append(c.slots, &slotState{
			id:       s.ID,
			required: s.Required,
			source:   s.Source,
			active:   s.Source != nil,
			dropped:  droppedReason(s.Source),
		})
	}
	if required != 1 {
		return nil, fmt.Errorf("session: exactly one required camera expected, got %d", required)
	}
	sort.Slice(c.slots, func(i, j int) bool { return c.slots[i].id < c.slots[j].id })

	c.startedAt = c.clock.Now()
	return c, nil
}

func droppedReason(src FrameSource) string {
	if src == nil {
		return "not opened"
	}
	return ""
}

// RunID returns the identifier of this session
func (c *Controller) RunID() string {
	return c.runID
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Reason returns why the session terminated, and the error for fatal reasons
func (c *Controller) Reason() (Reason, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.reason, c.err
}

// StartRecording opens a video sink for every available camera.
// Valid only from Idle. A failure on the required camera terminates the
// session; a failure on an optional one drops that camera.
func (c *Controller) StartRecording() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkTransition(Idle, Recording); err != nil {
		return err
	}

	for _, s := range c.slots {
		if !s.active {
			continue
		}
		if err := c.openVideo(s); err != nil {
			if s.required {
				err = fmt.Errorf("%w: %w", ErrRequiredSink, err)
				c.terminateLocked(ReasonSinkFailure, err)
				return err
			}
			c.dropLocked(s, fmt.Sprintf("video sink: %v", err))
		}
	}

	c.setStateLocked(Recording, ReasonNone)
	return nil
}

func (c *Controller) openVideo(s *slotState) error {
	frame, _, ok := s.source.Latest()
	if !ok {
		return fmt.Errorf("session: %s has no frame to size the video", s.id)
	}

	params := sink.VideoParams{
		Width:  frame.Width,
		Height: frame.Height,
		Color:  frame.Channels == 3,
		FPS:    s.source.FrameRate(c.cfg.DefaultFPS),
		Codec:  c.cfg.Codec,
	}
	video, path, err := c.sinks.OpenVideo(s.id, params)
	if err != nil {
		return err
	}
	s.video = video
	s.videoPath = path

	if err := video.Write(frame); err != nil {
		return fmt.Errorf("session: first frame for %s: %w", s.id, err)
	}
	s.framesWritten++
	return nil
}

// StartSensing opens the window log with one column per available camera,
// seeds the detectors from the current frames and starts window 1.
// Valid only from Recording.
func (c *Controller) StartSensing() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkTransition(Recording, RecordingAndSensing); err != nil {
		return err
	}

	var columns []types.CameraID
	var names []string
	for _, s := range c.slots {
		if s.active {
			columns = append(columns, s.id)
			names = append(names, s.id.String())
		}
	}

	agg, err := window.New(columns, c.cfg.Window, c.clock)
	if err != nil {
		return fmt.Errorf("session: %w", err)
	}

	log, path, err := c.sinks.OpenLog(names)
	if err != nil {
		err = fmt.Errorf("%w: log: %w", ErrRequiredSink, err)
		c.terminateLocked(ReasonSinkFailure, err)
		return err
	}
	c.log = log
	c.logPath = path
	c.columns = columns
	c.rows = 0

	for _, s := range c.slots {
		if !s.active {
			continue
		}
		s.detector = c.newDetector()
		if frame, _, ok := s.source.Latest(); ok {
			if err := s.detector.Reset(frame); err != nil {
				slog.Warn("session: baseline not seeded, will seed on next frame",
					"camera", s.id.String(),
					"error", err,
				)
			}
		}
	}

	agg.Reset(c.clock.Now())
	c.agg = agg
	c.setStateLocked(RecordingAndSensing, ReasonNone)
	return nil
}

func (c *Controller) newDetector() motion.Detector {
	if c.cfg.Mode == ModeLight {
		return motion.NewLightTracker(c.cfg.Light)
	}
	return motion.NewTracker(c.cfg.Motion, c.smoother)
}

// Stop terminates the session from any state. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminateLocked(ReasonStop, nil)
}

// Close releases everything. Equivalent to Stop for a running session.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

// Step runs one loop iteration at now.
func (c *Controller) Step(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Terminated {
		return
	}

	if c.checkHealthLocked() {
		return
	}

	recording := c.state == Recording || c.state == RecordingAndSensing
	sensing := c.state == RecordingAndSensing

	for _, s := range c.slots {
		if !s.active {
			continue
		}
		frame, isNew, ok := s.source.Latest()
		if !ok || !isNew {
			continue
		}

		if recording && s.video != nil {
			if err := s.video.Write(frame); err != nil {
				if c.sinkFailedLocked(s, err) {
					return
				}
				continue
			}
			s.framesWritten++
		}

		if sensing && s.detector != nil {
			res, err := s.detector.Step(frame)
			if err != nil {
				slog.Warn("session: motion estimate skipped",
					"camera", s.id.String(),
					"error", err,
				)
				continue
			}
			s.motionSamples++
			c.agg.OnMotionSample(s.id, res.Detected)
		}
	}

	if sensing {
		c.tickLocked(now)
	}
}

// checkHealthLocked drops lost sources. Returns true if the session terminated.
func (c *Controller) checkHealthLocked() bool {
	for _, s := range c.slots {
		if !s.active || s.source.Health() != capture.Lost {
			continue
		}
		if s.required {
			c.terminateLocked(ReasonRequiredSourceLost, fmt.Errorf("%w: %s", ErrSourceLost, s.id))
			return true
		}
		c.dropLocked(s, "source lost")
	}
	return false
}

// sinkFailedLocked handles a video write error like a source loss.
// Returns true if the session terminated.
func (c *Controller) sinkFailedLocked(s *slotState, err error) bool {
	if s.required {
		c.terminateLocked(ReasonSinkFailure, fmt.Errorf("%w: %s: %w", ErrRequiredSink, s.id, err))
		return true
	}
	c.dropLocked(s, fmt.Sprintf("video write: %v", err))
	return false
}

func (c *Controller) tickLocked(now time.Time) {
	if c.agg.Due(now) {
		for _, s := range c.slots {
			if !s.active {
				continue
			}
			if closer, ok := s.detector.(motion.WindowCloser); ok {
				c.agg.OnMotionSample(s.id, closer.CloseWindow())
			}
		}
	}

	sealed, ok := c.agg.Tick(now)
	if !ok {
		return
	}

	statuses := make([]string, len(sealed.Columns))
	for i, id := range sealed.Columns {
		statuses[i] = c.labels.of(sealed.Status[id])
	}
	if err := c.log.WriteRow(sealed.Index, statuses); err != nil {
		c.terminateLocked(ReasonSinkFailure, fmt.Errorf("%w: log: %w", ErrRequiredSink, err))
		return
	}
	c.rows++

	slog.Debug("session: window sealed",
		"index", sealed.Index,
		"statuses", statuses,
	)
	for _, o := range c.observers {
		o.OnWindow(c.runID, sealed)
	}

	if c.agg.IsSessionComplete() {
		slog.Info("session: window cap reached", "windows", sealed.Index)
		c.terminateLocked(ReasonSessionComplete, nil)
	}
}

// dropLocked removes an optional camera from the session. Its log column is
// kept and reads Unavailable from now on.
func (c *Controller) dropLocked(s *slotState, why string) {
	if !s.active {
		return
	}
	s.active = false
	s.dropped = why

	if c.agg != nil {
		c.agg.Drop(s.id)
	}
	c.closeSlot(s)

	slog.Warn("session: optional source dropped",
		"camera", s.id.String(),
		"reason", why,
		"frames_written", s.framesWritten,
	)
}

func (c *Controller) closeSlot(s *slotState) {
	if s.video != nil {
		if err := s.video.Close(); err != nil {
			slog.Error("session: close video failed", "camera", s.id.String(), "error", err)
		}
		s.video = nil
	}
	if s.source != nil {
		if err := s.source.Close(); err != nil {
			slog.Error("session: close source failed", "camera", s.id.String(), "error", err)
		}
	}
}

func (c *Controller) checkTransition(from, to State) error {
	if c.state == Terminated {
		return ErrTerminated
	}
	if c.state != from {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, c.state, to)
	}
	return nil
}

func (c *Controller) setStateLocked(to State, reason Reason) {
	from := c.state
	c.state = to
	slog.Info("session: state changed",
		"run_id", c.runID,
		"from", from.String(),
		"to", to.String(),
		"reason", reason.String(),
	)
	for _, o := range c.observers {
		o.OnStateChange(c.runID, from, to, reason)
	}
}

// terminateLocked moves to Terminated and releases every resource once
func (c *Controller) terminateLocked(reason Reason, err error) {
	if c.state == Terminated {
		return
	}
	c.reason = reason
	c.err = err
	c.endedAt = c.clock.Now()

	c.closeAllLocked()

	if err != nil {
		slog.Error("session: terminated", "reason", reason.String(), "error", err)
	}
	c.setStateLocked(Terminated, reason)
}

func (c *Controller) closeAllLocked() {
	c.closeOnce.Do(func() {
		for _, s := range c.slots {
			if s.source == nil {
				continue
			}
			if s.active {
				c.closeSlot(s)
			}
			s.active = false
		}
		if c.log != nil {
			if err := c.log.Close(); err != nil {
				slog.Error("session: close log failed", "path", c.logPath, "error", err)
			}
		}
		slog.Info("session: all sinks closed",
			"run_id", c.runID,
			"windows", c.rows,
			"log", c.logPath,
		)
	})
}

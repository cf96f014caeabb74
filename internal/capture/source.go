package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/camsens/internal/framebuffer"
	"github.com/e7canasta/camsens/internal/types"
)

// Options configures a Source
type Options struct {
	// LossThreshold is the number of consecutive failed reads after which the
	// source is declared Lost (default: 30)
	LossThreshold int
	// Backoff is the sleep schedule between failed reads
	Backoff BackoffConfig
	// JoinTimeout bounds how long Close waits for the read loop (default: 3s)
	JoinTimeout time.Duration
	// FPSProbe is how long read timestamps are collected after Open to
	// measure the real frame rate. Zero disables the probe.
	FPSProbe time.Duration
}

// DefaultOptions returns the reference capture behaviour
func DefaultOptions() Options {
	return Options{
		LossThreshold: 30,
		Backoff:       DefaultBackoffConfig(),
		JoinTimeout:   3 * time.Second,
		FPSProbe:      time.Second,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.LossThreshold <= 0 {
		o.LossThreshold = def.LossThreshold
	}
	if o.JoinTimeout <= 0 {
		o.JoinTimeout = def.JoinTimeout
	}
	if o.Backoff.Initial < 0 {
		o.Backoff.Initial = 0
	}
	return o
}

// Stats contains per-source counters
type Stats struct {
	FramesRead     uint64
	ReadFailures   uint64
	BufferDrops    uint64
	ConsecutiveErr int
	Health         Health
	Available      bool
	FPS            *FPSStats
}

// Source owns one Reader and the goroutine that drains it
type Source struct {
	id     types.CameraID
	reader Reader
	props  Properties
	opts   Options
	buf    *framebuffer.Buffer

	health    atomic.Int32
	available atomic.Bool
	closed    atomic.Bool

	framesRead   atomic.Uint64
	readFailures atomic.Uint64
	consecutive  atomic.Int32

	stop chan struct{}
	done chan struct{}

	probeMu    sync.Mutex
	probeStart time.Time
	probeTimes []time.Time
	fps        *FPSStats

	seq uint64 // loop goroutine only
}

// Open validates reader with one synchronous read, seeds the buffer and starts
// the background read loop.
//
// If the first read fails the reader is closed and an error wrapping ErrOpen
// is returned. Cancelling ctx stops the loop the same way Close does, but the
// reader is only released by Close.
func Open(ctx context.Context, id types.CameraID, reader Reader, opts Options) (*Source, error) {
	if reader == nil {
		return nil, fmt.Errorf("%w: %s: nil reader", ErrOpen, id)
	}
	opts = opts.withDefaults()

	first, err := reader.Read()
	if err == nil && first.Empty() {
		err = ErrReadFailed
	}
	if err != nil {
		if cerr := reader.Close(); cerr != nil {
			slog.Warn("capture: failed to release reader after open failure",
				"camera", id.String(),
				"error", cerr,
			)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, id, err)
	}

	s := &Source{
		id:     id,
		reader: reader,
		props:  reader.Properties(),
		opts:   opts,
		buf:    framebuffer.New(),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	s.health.Store(int32(Healthy))
	s.available.Store(true)

	now := time.Now()
	if opts.FPSProbe > 0 {
		s.probeStart = now
		s.probeTimes = make([]time.Time, 0, 64)
	}
	s.publish(first, now)

	loopCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-s.stop:
		case <-loopCtx.Done():
		case <-s.done:
		}
		cancel()
	}()
	go s.run(loopCtx)

	slog.Info("capture: source opened",
		"camera", id.String(),
		"width", first.Width,
		"height", first.Height,
		"channels", first.Channels,
		"device_fps", s.props.FPS,
		"loss_threshold", opts.LossThreshold,
	)

	return s, nil
}

// run is the background read loop. It never returns errors: failures are
// folded into health transitions observed by the session loop.
func (s *Source) run(ctx context.Context) {
	defer close(s.done)

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := s.reader.Read()
		if err == nil && frame.Empty() {
			err = ErrReadFailed
		}

		if err == nil {
			if failures > 0 {
				slog.Debug("capture: read recovered",
					"camera", s.id.String(),
					"after_failures", failures,
				)
			}
			failures = 0
			s.consecutive.Store(0)
			s.health.Store(int32(Healthy))
			s.publish(frame, time.Now())
			continue
		}

		failures++
		s.readFailures.Add(1)
		s.consecutive.Store(int32(failures))

		if failures >= s.opts.LossThreshold {
			s.health.Store(int32(Lost))
			s.available.Store(false)
			slog.Error("capture: source lost",
				"camera", s.id.String(),
				"consecutive_failures", failures,
				"last_error", err,
				"frames_read", s.framesRead.Load(),
			)
			return
		}

		s.health.Store(int32(Degraded))
		delay := calculateBackoff(failures, s.opts.Backoff)
		slog.Debug("capture: read failed, backing off",
			"camera", s.id.String(),
			"consecutive_failures", failures,
			"delay", delay,
			"error", err,
		)

		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}

func (s *Source) publish(frame types.Frame, now time.Time) {
	s.seq++
	frame.Seq = s.seq
	frame.Source = s.id
	if frame.Timestamp.IsZero() {
		frame.Timestamp = now
	}
	frame.TraceID = uuid.New().String()

	s.buf.Publish(frame)
	s.framesRead.Add(1)
	s.recordProbe(now)
}

func (s *Source) recordProbe(now time.Time) {
	if s.opts.FPSProbe <= 0 {
		return
	}
	s.probeMu.Lock()
	defer s.probeMu.Unlock()

	if s.fps != nil {
		return
	}
	elapsed := now.Sub(s.probeStart)
	if elapsed < s.opts.FPSProbe {
		s.probeTimes = append(s.probeTimes, now)
		return
	}

	stats := MeasureFPS(s.probeTimes, elapsed)
	s.fps = &stats
	s.probeTimes = nil

	slog.Info("capture: frame rate measured",
		"camera", s.id.String(),
		"fps_mean", fmt.Sprintf("%.2f", stats.FPSMean),
		"fps_stddev", fmt.Sprintf("%.2f", stats.FPSStdDev),
		"jitter_mean_ms", fmt.Sprintf("%.2f", stats.JitterMean*1000),
		"stable", stats.IsStable,
	)
}

// ID returns the camera slot this source serves
func (s *Source) ID() types.CameraID {
	return s.id
}

// Properties returns what the reader reported at open time
func (s *Source) Properties() Properties {
	return s.props
}

// Latest returns a copy of the most recent frame without blocking.
//
// isNew is true only the first time a given frame is returned.
func (s *Source) Latest() (frame types.Frame, isNew bool, ok bool) {
	return s.buf.Take()
}

// Health returns the current health state
func (s *Source) Health() Health {
	return Health(s.health.Load())
}

// Available reports whether the source is still part of the session.
// It turns false once the source is Lost or closed and never turns true again.
func (s *Source) Available() bool {
	return s.available.Load()
}

// FrameRate returns the frame rate to record at.
//
// Order of preference: measured mean FPS when the probe found the stream
// stable, the device-reported FPS, then fallback.
func (s *Source) FrameRate(fallback float64) float64 {
	s.probeMu.Lock()
	measured := s.fps
	s.probeMu.Unlock()

	if measured != nil && measured.IsStable && measured.FPSMean > 0 {
		return measured.FPSMean
	}
	if s.props.FPS > 0 {
		return s.props.FPS
	}
	return fallback
}

// Stats returns current counters
func (s *Source) Stats() Stats {
	_, drops := s.buf.Stats()
	st := Stats{
		FramesRead:     s.framesRead.Load(),
		ReadFailures:   s.readFailures.Load(),
		BufferDrops:    drops,
		ConsecutiveErr: int(s.consecutive.Load()),
		Health:         s.Health(),
		Available:      s.Available(),
	}
	s.probeMu.Lock()
	if s.fps != nil {
		fps := *s.fps
		st.FPS = &fps
	}
	s.probeMu.Unlock()
	return st
}

// Done is closed when the read loop has exited
func (s *Source) Done() <-chan struct{} {
	return s.done
}

// Close stops the read loop and releases the reader.
//
// Close is idempotent and never blocks longer than Options.JoinTimeout. If
// the loop is stuck in a device read past the timeout, the reader is released
// as soon as that read returns.
func (s *Source) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.available.Store(false)
	close(s.stop)

	select {
	case <-s.done:
	case <-time.After(s.opts.JoinTimeout):
		slog.Warn("capture: read loop did not exit in time, deferring reader release",
			"camera", s.id.String(),
			"timeout", s.opts.JoinTimeout,
		)
		go func() {
			<-s.done
			if err := s.reader.Close(); err != nil {
				slog.Warn("capture: deferred reader release failed",
					"camera", s.id.String(),
					"error", err,
				)
			}
		}()
		return nil
	}

	if err := s.reader.Close(); err != nil {
		return fmt.Errorf("capture: %s: release reader: %w", s.id, err)
	}

	slog.Info("capture: source closed",
		"camera", s.id.String(),
		"frames_read", s.framesRead.Load(),
		"read_failures", s.readFailures.Load(),
	)
	return nil
}

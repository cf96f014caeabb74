package capture

import (
	"sync"
	"time"

	"github.com/e7canasta/camsens/internal/types"
)

// Step is one scripted read result. A nil Err with a nil Frame.Data means the
// reader generates a frame with the configured pattern.
type Step struct {
	Frame types.Frame
	Err   error
	// Delay is slept before returning, to emulate a blocking device
	Delay time.Duration
}

// SyntheticConfig configures a SyntheticReader
type SyntheticConfig struct {
	Width    int
	Height   int
	Channels int     // 1 or 3 (default: 3)
	FPS      float64 // Read pacing; zero means no pacing
	// Script is replayed in order before generated frames are produced
	Script []Step
	// Loop replays Script forever instead of falling through to generated frames
	Loop bool
	// FailAfterScript makes every read after the script fail with ErrReadFailed
	FailAfterScript bool
}

// SyntheticReader produces generated or scripted frames without hardware.
//
// Generated frames are a gradient whose offset moves one pixel per read, so
// consecutive frames differ by a small uniform amount and never trigger motion
// at default thresholds.
type SyntheticReader struct {
	cfg SyntheticConfig

	mu     sync.Mutex
	pos    int
	n      int
	closed bool
	last   time.Time
}

// NewSyntheticReader returns a reader that serves cfg.Script, then generated frames
func NewSyntheticReader(cfg SyntheticConfig) *SyntheticReader {
	if cfg.Width <= 0 {
		cfg.Width = 64
	}
	if cfg.Height <= 0 {
		cfg.Height = 48
	}
	if cfg.Channels != 1 {
		cfg.Channels = 3
	}
	return &SyntheticReader{cfg: cfg}
}

// Read implements Reader
func (r *SyntheticReader) Read() (types.Frame, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return types.Frame{}, ErrClosed
	}

	var step Step
	scripted := false
	if len(r.cfg.Script) > 0 && (r.cfg.Loop || r.pos < len(r.cfg.Script)) {
		step = r.cfg.Script[r.pos%len(r.cfg.Script)]
		r.pos++
		scripted = true
	}
	failing := !scripted && r.cfg.FailAfterScript
	r.n++
	n := r.n
	r.mu.Unlock()

	if step.Delay > 0 {
		time.Sleep(step.Delay)
	}
	r.pace()

	switch {
	case step.Err != nil:
		return types.Frame{}, step.Err
	case failing:
		return types.Frame{}, ErrReadFailed
	case scripted && step.Frame.Data != nil:
		return step.Frame.Clone(), nil
	default:
		return r.generate(n), nil
	}
}

func (r *SyntheticReader) pace() {
	if r.cfg.FPS <= 0 {
		return
	}
	interval := time.Duration(float64(time.Second) / r.cfg.FPS)

	r.mu.Lock()
	wait := time.Until(r.last.Add(interval))
	r.mu.Unlock()
	if wait > 0 {
		time.Sleep(wait)
	}

	r.mu.Lock()
	r.last = time.Now()
	r.mu.Unlock()
}

func (r *SyntheticReader) generate(n int) types.Frame {
	w, h, c := r.cfg.Width, r.cfg.Height, r.cfg.Channels
	data := make([]byte, w*h*c)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := byte((x + y + n) % 256)
			off := (y*w + x) * c
			for k := 0; k < c; k++ {
				data[off+k] = v
			}
		}
	}
	return types.Frame{
		Width:    w,
		Height:   h,
		Channels: c,
		Data:     data,
	}
}

// Properties implements Reader
func (r *SyntheticReader) Properties() Properties {
	return Properties{Width: r.cfg.Width, Height: r.cfg.Height, FPS: r.cfg.FPS}
}

// Close implements Reader
func (r *SyntheticReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}

// Reads returns how many times Read was called
func (r *SyntheticReader) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// SolidFrame returns a frame filled with one intensity, for scripts
func SolidFrame(width, height, channels int, value byte) types.Frame {
	data := make([]byte, width*height*channels)
	for i := range data {
		data[i] = value
	}
	return types.Frame{Width: width, Height: height, Channels: channels, Data: data}
}

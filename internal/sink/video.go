package sink

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/e7canasta/camsens/internal/types"
)

// Video receives the frames of one camera
type Video interface {
	Write(frame types.Frame) error
	Close() error
}

// VideoParams describes the stream written to a video file
type VideoParams struct {
	Width  int
	Height int
	Color  bool
	FPS    float64
	// Codec is a FourCC such as "mp4v" or "MJPG"
	Codec string
}

// Validate checks the parameters
func (p VideoParams) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("sink: invalid frame size %dx%d", p.Width, p.Height)
	}
	if p.FPS <= 0 {
		return fmt.Errorf("sink: invalid frame rate %.2f", p.FPS)
	}
	if len(p.Codec) != 4 {
		return fmt.Errorf("sink: codec %q is not a FourCC", p.Codec)
	}
	return nil
}

// VideoFile writes frames through OpenCV's VideoWriter
type VideoFile struct {
	path   string
	params VideoParams

	mu     sync.Mutex
	writer *gocv.VideoWriter
	frames uint64
}

// OpenVideo creates path and prepares it for frames of the given geometry
func OpenVideo(path string, params VideoParams) (*VideoFile, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	w, err := gocv.VideoWriterFile(path, params.Codec, params.FPS, params.Width, params.Height, params.Color)
	if err != nil {
		return nil, fmt.Errorf("sink: open video %s: %w", path, err)
	}
	if !w.IsOpened() {
		w.Close()
		return nil, fmt.Errorf("sink: video writer for %s not opened (codec %s)", path, params.Codec)
	}

	return &VideoFile{path: path, params: params, writer: w}, nil
}

// Write appends one frame. Frames must match the geometry given at open.
func (v *VideoFile) Write(frame types.Frame) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.writer == nil {
		return fmt.Errorf("sink: write to closed video %s", v.path)
	}
	if frame.Width != v.params.Width || frame.Height != v.params.Height {
		return fmt.Errorf("sink: frame %dx%d does not match video %dx%d",
			frame.Width, frame.Height, v.params.Width, v.params.Height)
	}

	matType := gocv.MatTypeCV8UC3
	if frame.Channels == 1 {
		matType = gocv.MatTypeCV8UC1
	}
	mat, err := gocv.NewMatFromBytes(frame.Height, frame.Width, matType, frame.Data)
	if err != nil {
		return fmt.Errorf("sink: wrap frame: %w", err)
	}
	defer mat.Close()

	if err := v.writer.Write(mat); err != nil {
		return fmt.Errorf("sink: write %s: %w", v.path, err)
	}
	v.frames++
	return nil
}

// Frames returns the number of frames written
func (v *VideoFile) Frames() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.frames
}

// Close finalizes the container. Safe to call more than once.
func (v *VideoFile) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.writer == nil {
		return nil
	}
	err := v.writer.Close()
	v.writer = nil
	if err != nil {
		return fmt.Errorf("sink: close video %s: %w", v.path, err)
	}
	return nil
}

// Discard is a Video that counts frames and stores nothing
type Discard struct {
	mu     sync.Mutex
	frames uint64
	closed bool
}

// Write implements Video
func (d *Discard) Write(types.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("sink: write to closed discard sink")
	}
	d.frames++
	return nil
}

// Close implements Video
func (d *Discard) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

// Frames returns the number of frames accepted
func (d *Discard) Frames() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

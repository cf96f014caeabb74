package types

import (
	"fmt"
	"time"
)

// CameraID identifies a capture slot. Slot 0 is the required primary camera,
// slot 1 the optional secondary one.
type CameraID int

const (
	// Primary is the required camera slot
	Primary CameraID = 0
	// Secondary is the optional camera slot
	Secondary CameraID = 1
)

// String returns the column label used in logs ("Cam1", "Cam2", ...)
func (id CameraID) String() string {
	return fmt.Sprintf("Cam%d", int(id)+1)
}

// Frame represents a single captured video frame
type Frame struct {
	// Seq is the monotonic sequence number within one source
	Seq uint64
	// Timestamp is when the frame was read from the device
	Timestamp time.Time
	// Width in pixels
	Width int
	// Height in pixels
	Height int
	// Channels is 3 for BGR24 and 1 for GRAY8
	Channels int
	// Data contains interleaved pixel data, row-major, no padding
	Data []byte
	// Source identifies the camera that produced the frame
	Source CameraID
	// TraceID is a unique identifier for following a frame through the logs
	TraceID string
}

// Empty reports whether the frame carries no pixel data
func (f Frame) Empty() bool {
	return len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0
}

// Clone returns a deep copy of the frame. Data is never shared between copies.
func (f Frame) Clone() Frame {
	out := f
	if f.Data != nil {
		out.Data = make([]byte, len(f.Data))
		copy(out.Data, f.Data)
	}
	return out
}

// Validate checks that Data matches the declared geometry
func (f Frame) Validate() error {
	if f.Channels != 1 && f.Channels != 3 {
		return fmt.Errorf("frame: unsupported channel count %d", f.Channels)
	}
	if want := f.Width * f.Height * f.Channels; len(f.Data) != want {
		return fmt.Errorf("frame: %dx%dx%d needs %d bytes, got %d",
			f.Width, f.Height, f.Channels, want, len(f.Data))
	}
	return nil
}

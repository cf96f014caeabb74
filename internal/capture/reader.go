package capture

import (
	"errors"

	"github.com/e7canasta/camsens/internal/types"
)

var (
	// ErrOpen is returned by Open when the validating first read fails
	ErrOpen = errors.New("capture: source failed to open")
	// ErrReadFailed is returned by readers when a frame could not be read
	ErrReadFailed = errors.New("capture: read failed")
	// ErrEndOfStream is returned by readers whose input is exhausted
	ErrEndOfStream = errors.New("capture: end of stream")
	// ErrClosed is returned by readers after Close
	ErrClosed = errors.New("capture: reader closed")
)

// Properties describes what a reader reports about its input
type Properties struct {
	Width  int
	Height int
	// FPS as reported by the device or pipeline. Zero when unknown.
	FPS float64
}

// Reader is a blocking frame producer owned by exactly one Source.
//
// Read may block for as long as the device needs. Read and Close are never
// called concurrently by Source.
type Reader interface {
	// Read returns the next frame. The returned Data may be reused by the
	// reader on the next call.
	Read() (types.Frame, error)

	// Properties returns the negotiated geometry and frame rate
	Properties() Properties

	// Close releases the underlying device
	Close() error
}

package motion

import (
	"fmt"
	"image"

	"github.com/e7canasta/camsens/internal/types"
)

// Detector turns consecutive frames of one camera into per-frame flags.
// Implementations keep their own baseline and are not safe for concurrent use.
type Detector interface {
	// Reset replaces the baseline with frame
	Reset(frame types.Frame) error
	// Step compares frame with the baseline and makes frame the new baseline.
	// Without a baseline it only seeds one and reports no motion.
	Step(frame types.Frame) (Result, error)
}

// WindowCloser is implemented by detectors that decide once per window
// rather than per frame
type WindowCloser interface {
	CloseWindow() bool
}

// Tracker is the frame-differencing Detector
type Tracker struct {
	params   Params
	smoother *Smoother
	prev     *image.Gray
}

// NewTracker returns a Tracker. smoother may be nil.
func NewTracker(params Params, smoother *Smoother) *Tracker {
	return &Tracker{params: params, smoother: smoother}
}

func (t *Tracker) prepare(frame types.Frame) (*image.Gray, error) {
	gray, err := ToGray(frame)
	if err != nil {
		return nil, fmt.Errorf("motion: %w", err)
	}
	return t.smoother.Apply(gray), nil
}

// Reset implements Detector
func (t *Tracker) Reset(frame types.Frame) error {
	gray, err := t.prepare(frame)
	if err != nil {
		return err
	}
	t.prev = gray
	return nil
}

// Step implements Detector.
//
// On ErrDimensionMismatch the baseline is replaced by the new frame so the
// next step compares like with like.
func (t *Tracker) Step(frame types.Frame) (Result, error) {
	gray, err := t.prepare(frame)
	if err != nil {
		return Result{}, err
	}

	prev := t.prev
	t.prev = gray
	if prev == nil {
		return Result{}, nil
	}

	return Estimate(prev, gray, t.params.DiffThreshold, t.params.MotionRatio)
}

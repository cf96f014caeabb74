package motion

import (
	"fmt"
	"math"

	"github.com/e7canasta/camsens/internal/types"
)

// LightParams are the light-change thresholds
type LightParams struct {
	// AbsDelta is the mean-intensity change that counts as a light change
	AbsDelta float64
	// RelDelta is the change relative to the previous window's mean
	RelDelta float64
}

// DefaultLightParams returns 8.0 intensity levels or 10%
func DefaultLightParams() LightParams {
	return LightParams{AbsDelta: 8.0, RelDelta: 0.10}
}

// LightTracker reports whether the mean intensity of a window differs from
// the previous window's. It never flags individual frames; the verdict comes
// from CloseWindow.
type LightTracker struct {
	params LightParams

	sum   float64
	count int

	prevMean float64
	hasPrev  bool
}

// NewLightTracker returns a LightTracker
func NewLightTracker(params LightParams) *LightTracker {
	return &LightTracker{params: params}
}

// Reset implements Detector. The reference window is cleared, so the first
// window after a reset is always reported unchanged.
func (l *LightTracker) Reset(frame types.Frame) error {
	l.sum, l.count = 0, 0
	l.hasPrev = false
	_, err := l.Step(frame)
	return err
}

// Step implements Detector. It accumulates the frame's mean intensity.
func (l *LightTracker) Step(frame types.Frame) (Result, error) {
	gray, err := ToGray(frame)
	if err != nil {
		return Result{}, fmt.Errorf("motion: %w", err)
	}
	l.sum += MeanIntensity(gray)
	l.count++
	return Result{}, nil
}

// CloseWindow implements WindowCloser. A window without frames keeps the
// previous reference and reports no change.
func (l *LightTracker) CloseWindow() bool {
	if l.count == 0 {
		return false
	}
	mean := l.sum / float64(l.count)
	l.sum, l.count = 0, 0

	changed := false
	if l.hasPrev {
		delta := math.Abs(mean - l.prevMean)
		changed = delta >= l.params.AbsDelta ||
			(l.prevMean > 0 && delta/l.prevMean >= l.params.RelDelta)
	}

	l.prevMean = mean
	l.hasPrev = true
	return changed
}

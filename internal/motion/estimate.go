package motion

import (
	"errors"
	"fmt"
	"image"
)

// ErrDimensionMismatch is returned when the two frames differ in size
var ErrDimensionMismatch = errors.New("motion: frame dimensions differ")

// Params are the motion thresholds
type Params struct {
	// DiffThreshold is the intensity delta a pixel must exceed to count as changed
	DiffThreshold uint8
	// MotionRatio is the changed-pixel fraction at which motion is reported
	MotionRatio float64
}

// DefaultParams returns 25/255 and 2%
func DefaultParams() Params {
	return Params{DiffThreshold: 25, MotionRatio: 0.02}
}

// Validate checks parameter ranges
func (p Params) Validate() error {
	if p.MotionRatio <= 0 || p.MotionRatio > 1 {
		return fmt.Errorf("motion: invalid motion ratio %.4f (must be in (0, 1])", p.MotionRatio)
	}
	return nil
}

// Result is the outcome of comparing two frames
type Result struct {
	ChangedPixels int
	TotalPixels   int
	ChangedRatio  float64
	Detected      bool
}

// Estimate compares two grayscale frames of identical size
func Estimate(prev, cur *image.Gray, diffThreshold uint8, motionRatio float64) (Result, error) {
	if prev == nil || cur == nil {
		return Result{}, fmt.Errorf("motion: nil frame")
	}
	pb, cb := prev.Bounds(), cur.Bounds()
	if pb.Dx() != cb.Dx() || pb.Dy() != cb.Dy() {
		return Result{}, fmt.Errorf("%w: %dx%d vs %dx%d", ErrDimensionMismatch, pb.Dx(), pb.Dy(), cb.Dx(), cb.Dy())
	}

	w, h := pb.Dx(), pb.Dy()
	total := w * h
	if total == 0 {
		return Result{}, nil
	}

	changed := 0
	for y := 0; y < h; y++ {
		prow := prev.Pix[y*prev.Stride : y*prev.Stride+w]
		crow := cur.Pix[y*cur.Stride : y*cur.Stride+w]
		for x := 0; x < w; x++ {
			d := int(prow[x]) - int(crow[x])
			if d < 0 {
				d = -d
			}
			if d > int(diffThreshold) {
				changed++
			}
		}
	}

	ratio := float64(changed) / float64(total)
	return Result{
		ChangedPixels: changed,
		TotalPixels:   total,
		ChangedRatio:  ratio,
		Detected:      ratio >= motionRatio,
	}, nil
}

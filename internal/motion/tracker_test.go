package motion

import (
	"errors"
	"testing"

	"github.com/e7canasta/camsens/internal/types"
)

func solid(w, h int, v byte) types.Frame {
	data := make([]byte, w*h*3)
	for i := range data {
		data[i] = v
	}
	return types.Frame{Width: w, Height: h, Channels: 3, Data: data}
}

func TestTracker_Step(t *testing.T) {
	tr := NewTracker(DefaultParams(), nil)

	res, err := tr.Step(solid(10, 10, 0))
	if err != nil || res.Detected {
		t.Fatalf("first step without baseline: res=%+v err=%v", res, err)
	}

	res, err = tr.Step(solid(10, 10, 200))
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if !res.Detected || res.ChangedRatio != 1 {
		t.Errorf("full-frame change not detected: %+v", res)
	}

	res, _ = tr.Step(solid(10, 10, 200))
	if res.Detected {
		t.Error("baseline not updated: identical frame reported motion")
	}
}

func TestTracker_Reset(t *testing.T) {
	tr := NewTracker(DefaultParams(), NewSmoother(1))
	if err := tr.Reset(solid(10, 10, 100)); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	res, err := tr.Step(solid(10, 10, 100))
	if err != nil || res.Detected {
		t.Errorf("step against reset baseline: res=%+v err=%v", res, err)
	}
}

func TestTracker_DimensionMismatchReseeds(t *testing.T) {
	tr := NewTracker(DefaultParams(), nil)
	tr.Reset(solid(10, 10, 0))

	if _, err := tr.Step(solid(8, 8, 0)); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("error = %v, want ErrDimensionMismatch", err)
	}
	if _, err := tr.Step(solid(8, 8, 0)); err != nil {
		t.Errorf("baseline not reseeded after mismatch: %v", err)
	}
}

func TestLightTracker(t *testing.T) {
	tests := []struct {
		name    string
		windows [][]byte // per-window frame intensities
		want    []bool
	}{
		{"first window unchanged", [][]byte{{100}}, []bool{false}},
		{"absolute jump", [][]byte{{100}, {110}}, []bool{false, true}},
		{"small drift", [][]byte{{100}, {105}}, []bool{false, false}},
		{"relative change in the dark", [][]byte{{40}, {44}}, []bool{false, true}},
		{"window mean not per-frame", [][]byte{{100}, {90, 110}}, []bool{false, false}},
		{"empty window", [][]byte{{100}, {}, {100}}, []bool{false, false, false}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lt := NewLightTracker(DefaultLightParams())
			for i, frames := range tt.windows {
				for _, v := range frames {
					if _, err := lt.Step(solid(4, 4, v)); err != nil {
						t.Fatalf("Step: %v", err)
					}
				}
				if got := lt.CloseWindow(); got != tt.want[i] {
					t.Errorf("window %d: changed = %v, want %v", i+1, got, tt.want[i])
				}
			}
		})
	}
}

func TestDetectorInterfaces(t *testing.T) {
	var _ Detector = (*Tracker)(nil)
	var _ Detector = (*LightTracker)(nil)
	var _ WindowCloser = (*LightTracker)(nil)
}

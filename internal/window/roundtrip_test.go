package window_test

import (
	"testing"
	"time"

	"github.com/e7canasta/camsens/internal/motion"
	"github.com/e7canasta/camsens/internal/types"
	"github.com/e7canasta/camsens/internal/window"
)

type stepClock struct{ now time.Time }

func (c *stepClock) Now() time.Time { return c.now }

func solid(v byte) types.Frame {
	data := make([]byte, 16*16*3)
	for i := range data {
		data[i] = v
	}
	return types.Frame{Width: 16, Height: 16, Channels: 3, Data: data}
}

// A frame sequence alternating between two fixed images over exactly one
// window must seal with the OR of the flags computed pair by pair.
func TestRoundTrip_AlternatingFrames(t *testing.T) {
	tests := []struct {
		name string
		a, b byte
	}{
		{"large difference", 10, 200},
		{"below threshold", 100, 110},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Unix(0, 0)
			clock := &stepClock{now: start}
			agg, err := window.New([]types.CameraID{types.Primary}, window.DefaultConfig(), clock)
			if err != nil {
				t.Fatal(err)
			}

			frames := []types.Frame{solid(tt.a), solid(tt.b)}
			params := motion.DefaultParams()
			tracker := motion.NewTracker(params, nil)
			tracker.Reset(frames[0])

			expected := false
			const steps = 30
			for i := 1; i <= steps; i++ {
				prev, _ := motion.ToGray(frames[(i-1)%2])
				cur, _ := motion.ToGray(frames[i%2])
				independent, err := motion.Estimate(prev, cur, params.DiffThreshold, params.MotionRatio)
				if err != nil {
					t.Fatal(err)
				}
				expected = expected || independent.Detected

				res, err := tracker.Step(frames[i%2])
				if err != nil {
					t.Fatal(err)
				}
				agg.OnMotionSample(types.Primary, res.Detected)

				clock.now = clock.now.Add(time.Second / steps)
				if i < steps {
					if _, ok := agg.Tick(clock.now); ok {
						t.Fatalf("sealed early at step %d", i)
					}
				}
			}

			sealed, ok := agg.Tick(start.Add(time.Second))
			if !ok {
				t.Fatal("window not sealed after one duration")
			}
			got := sealed.Status[types.Primary] == window.Motion
			if got != expected {
				t.Errorf("sealed motion = %v, OR of per-frame flags = %v", got, expected)
			}
		})
	}
}

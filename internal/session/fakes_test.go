package session

import (
	"errors"
	"sync"
	"time"

	"github.com/e7canasta/camsens/internal/capture"
	"github.com/e7canasta/camsens/internal/sink"
	"github.com/e7canasta/camsens/internal/types"
	"github.com/e7canasta/camsens/internal/window"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (m *manualClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *manualClock) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// fakeSource serves whatever frame was last pushed
type fakeSource struct {
	id types.CameraID

	mu     sync.Mutex
	frame  types.Frame
	has    bool
	fresh  bool
	health capture.Health
	closes int
}

func newFakeSource(id types.CameraID, v byte) *fakeSource {
	s := &fakeSource{id: id}
	s.push(v)
	return s
}

func (f *fakeSource) push(v byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.frame = capture.SolidFrame(8, 8, 1, v)
	f.frame.Source = f.id
	f.has = true
	f.fresh = true
}

func (f *fakeSource) setHealth(h capture.Health) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.health = h
}

func (f *fakeSource) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closes
}

func (f *fakeSource) ID() types.CameraID { return f.id }

func (f *fakeSource) Latest() (types.Frame, bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	isNew := f.fresh
	f.fresh = false
	return f.frame.Clone(), isNew, f.has
}

func (f *fakeSource) Health() capture.Health {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.health
}

func (f *fakeSource) FrameRate(fallback float64) float64 { return 30 }

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

type fakeVideo struct {
	mu     sync.Mutex
	frames int
	closes int
	fail   error
}

func (v *fakeVideo) Write(types.Frame) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.fail != nil {
		return v.fail
	}
	v.frames++
	return nil
}

func (v *fakeVideo) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closes++
	return nil
}

type fakeLog struct {
	mu      sync.Mutex
	columns []string
	rows    [][]string
	closes  int
}

func (l *fakeLog) WriteRow(index int, statuses []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rows = append(l.rows, append([]string(nil), statuses...))
	return nil
}

func (l *fakeLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closes++
	return nil
}

// fakeFactory records every sink it opens
type fakeFactory struct {
	mu        sync.Mutex
	videos    map[types.CameraID]*fakeVideo
	logs      []*fakeLog
	failVideo map[types.CameraID]bool
	failLog   bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		videos:    make(map[types.CameraID]*fakeVideo),
		failVideo: make(map[types.CameraID]bool),
	}
}

func (f *fakeFactory) OpenVideo(id types.CameraID, params sink.VideoParams) (sink.Video, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failVideo[id] {
		return nil, "", errors.New("codec unavailable")
	}
	v := &fakeVideo{}
	f.videos[id] = v
	return v, id.String() + "_OutputVideo1.mp4", nil
}

func (f *fakeFactory) OpenLog(columns []string) (sink.Log, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failLog {
		return nil, "", errors.New("disk full")
	}
	l := &fakeLog{columns: append([]string(nil), columns...)}
	f.logs = append(f.logs, l)
	return l, "MotionLog1.csv", nil
}

func (f *fakeFactory) log() *fakeLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.logs) == 0 {
		return nil
	}
	return f.logs[len(f.logs)-1]
}

type recordingObserver struct {
	mu      sync.Mutex
	windows []window.Sealed
	states  []State
}

func (o *recordingObserver) OnWindow(runID string, sealed window.Sealed) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.windows = append(o.windows, sealed)
}

func (o *recordingObserver) OnStateChange(runID string, from, to State, reason Reason) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.states = append(o.states, to)
}

package emitter

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/e7canasta/camsens/internal/session"
	"github.com/e7canasta/camsens/internal/window"
)

type message struct {
	topic   string
	payload []byte
}

// Observer is a session.Observer that publishes windows and state changes
// from its own goroutine. The session loop only encodes and enqueues; when
// the queue is full the message is dropped.
type Observer struct {
	pub        Publisher
	topic      string
	stateTopic string
	now        func() time.Time

	queue chan message
	done  chan struct{}

	mu     sync.Mutex
	closed bool

	dropped   atomic.Uint64
	failed    atomic.Uint64
}

var _ session.Observer = (*Observer)(nil)

// NewObserver starts the publishing goroutine. Windows go to topic, state
// changes to topic + "/state".
func NewObserver(pub Publisher, topic string, queueSize int) *Observer {
	if queueSize <= 0 {
		queueSize = 64
	}
	o := &Observer{
		pub:        pub,
		topic:      topic,
		stateTopic: topic + "/state",
		now:        time.Now,
		queue:      make(chan message, queueSize),
		done:       make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *Observer) run() {
	defer close(o.done)
	for msg := range o.queue {
		if err := o.pub.Publish(msg.topic, msg.payload); err != nil {
			o.failed.Add(1)
			slog.Warn("emitter: publish failed",
				"topic", msg.topic,
				"error", err,
			)
		}
	}
}

// OnWindow implements session.Observer
func (o *Observer) OnWindow(runID string, sealed window.Sealed) {
	o.enqueue(o.topic, NewWindowEvent(runID, sealed))
}

// OnStateChange implements session.Observer
func (o *Observer) OnStateChange(runID string, from, to session.State, reason session.Reason) {
	o.enqueue(o.stateTopic, NewStateEvent(runID, from, to, reason, o.now()))
}

func (o *Observer) enqueue(topic string, event any) {
	payload, err := Encode(event)
	if err != nil {
		o.failed.Add(1)
		slog.Error("emitter: event not encoded", "topic", topic, "error", err)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		o.dropped.Add(1)
		return
	}
	select {
	case o.queue <- message{topic: topic, payload: payload}:
	default:
		o.dropped.Add(1)
		slog.Warn("emitter: queue full, event dropped", "topic", topic)
	}
}

// Close stops accepting events and waits up to timeout for queued ones to
// be published.
func (o *Observer) Close(timeout time.Duration) {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.queue)
	}
	o.mu.Unlock()

	select {
	case <-o.done:
	case <-time.After(timeout):
		slog.Warn("emitter: queue not drained before timeout",
			"pending", len(o.queue),
			"timeout", timeout,
		)
	}
}

// Dropped returns how many events were dropped because the queue was full or closed
func (o *Observer) Dropped() uint64 {
	return o.dropped.Load()
}

// Failed returns how many events could not be encoded or published
func (o *Observer) Failed() uint64 {
	return o.failed.Load()
}

package emitter

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/e7canasta/camsens/internal/session"
	"github.com/e7canasta/camsens/internal/window"
)

// WindowEvent is the payload published for every sealed window
type WindowEvent struct {
	RunID   string            `msgpack:"run_id"`
	Index   int               `msgpack:"index"`
	Start   time.Time         `msgpack:"start"`
	End     time.Time         `msgpack:"end"`
	Motion  map[string]string `msgpack:"motion"`  // camera → motion, no_motion, unavailable
	Samples map[string]int    `msgpack:"samples"` // frames estimated per camera
}

// StateEvent is the payload published on every session state change
type StateEvent struct {
	RunID  string    `msgpack:"run_id"`
	From   string    `msgpack:"from"`
	To     string    `msgpack:"to"`
	Reason string    `msgpack:"reason"`
	At     time.Time `msgpack:"at"`
}

// NewWindowEvent converts a sealed window
func NewWindowEvent(runID string, sealed window.Sealed) WindowEvent {
	ev := WindowEvent{
		RunID:   runID,
		Index:   sealed.Index,
		Start:   sealed.Start,
		End:     sealed.End,
		Motion:  make(map[string]string, len(sealed.Columns)),
		Samples: make(map[string]int, len(sealed.Columns)),
	}
	for _, id := range sealed.Columns {
		ev.Motion[id.String()] = sealed.Status[id].String()
		ev.Samples[id.String()] = sealed.Samples[id]
	}
	return ev
}

// NewStateEvent converts a state change
func NewStateEvent(runID string, from, to session.State, reason session.Reason, at time.Time) StateEvent {
	return StateEvent{
		RunID:  runID,
		From:   from.String(),
		To:     to.String(),
		Reason: reason.String(),
		At:     at,
	}
}

// Encode serializes an event with MessagePack
func Encode(v any) ([]byte, error) {
	payload, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("emitter: encode: %w", err)
	}
	return payload, nil
}

// Decode is the inverse of Encode, for consumers and tests
func Decode(payload []byte, v any) error {
	if err := msgpack.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("emitter: decode: %w", err)
	}
	return nil
}

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/e7canasta/camsens/internal/capture"
	"github.com/e7canasta/camsens/internal/types"
)

// ErrRequiredSource is returned when the required camera cannot be opened
var ErrRequiredSource = errors.New("session: required source unavailable")

// FrameSource is what the controller needs from a running capture source.
// *capture.Source implements it.
type FrameSource interface {
	ID() types.CameraID
	Latest() (frame types.Frame, isNew bool, ok bool)
	Health() capture.Health
	FrameRate(fallback float64) float64
	Close() error
}

// Slot binds a camera slot to its source. Source is nil for an optional
// camera that never opened.
type Slot struct {
	ID       types.CameraID
	Required bool
	Source   FrameSource
}

// SourceOpener opens one camera
type SourceOpener struct {
	ID       types.CameraID
	Required bool
	Open     func(ctx context.Context) (FrameSource, error)
}

// OpenSources opens every camera in slot order.
//
// An optional camera that fails to open yields a Slot without a source. A
// required camera that fails closes everything opened so far and returns an
// error wrapping ErrRequiredSource.
func OpenSources(ctx context.Context, openers []SourceOpener) ([]*Slot, error) {
	openers = append([]SourceOpener(nil), openers...)
	sort.SliceStable(openers, func(i, j int) bool { return openers[i].ID < openers[j].ID })

	slots := make([]*Slot, 0, len(openers))
	closeAll := func() {
		for _, s := range slots {
			if s.Source != nil {
				s.Source.Close()
			}
		}
	}

	for _, op := range openers {
		src, err := op.Open(ctx)
		if err != nil {
			if op.Required {
				closeAll()
				return nil, fmt.Errorf("%w: %s: %w", ErrRequiredSource, op.ID, err)
			}
			slog.Warn("session: optional source unavailable, continuing without it",
				"camera", op.ID.String(),
				"error", err,
			)
			slots = append(slots, &Slot{ID: op.ID, Required: false})
			continue
		}
		slots = append(slots, &Slot{ID: op.ID, Required: op.Required, Source: src})
	}

	return slots, nil
}

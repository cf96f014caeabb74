package session

import "github.com/e7canasta/camsens/internal/window"

// Observer is notified synchronously from the session loop.
// Implementations must not block.
type Observer interface {
	OnWindow(runID string, sealed window.Sealed)
	OnStateChange(runID string, from, to State, reason Reason)
}

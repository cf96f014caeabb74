package capture

// Health is the state of a capture source as seen by the session loop
type Health int32

const (
	// Healthy means the last read succeeded
	Healthy Health = iota
	// Degraded means one or more consecutive reads failed, below the loss threshold
	Degraded
	// Lost means the loss threshold was reached. Lost is terminal.
	Lost
)

// String returns a human-readable string representation of the health state
func (h Health) String() string {
	switch h {
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Lost:
		return "lost"
	default:
		return "unknown"
	}
}

package session

// State is the session lifecycle state
type State int

const (
	// Idle means sources are running and nothing is written
	Idle State = iota
	// Recording means frames are written to video sinks
	Recording
	// RecordingAndSensing adds motion sensing and the window log
	RecordingAndSensing
	// Terminated is final: all sinks and sources are closed
	Terminated
)

// String returns a human-readable string representation of the state
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Recording:
		return "recording"
	case RecordingAndSensing:
		return "recording_and_sensing"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Reason explains why a session terminated
type Reason int

const (
	// ReasonNone means the session has not terminated
	ReasonNone Reason = iota
	// ReasonStop is an operator stop command
	ReasonStop
	// ReasonRequiredSourceLost means the primary camera reached the loss threshold
	ReasonRequiredSourceLost
	// ReasonSessionComplete means the window cap was reached
	ReasonSessionComplete
	// ReasonSinkFailure means a required sink could not be opened or written
	ReasonSinkFailure
	// ReasonCancelled means the run context was cancelled
	ReasonCancelled
)

// String returns a human-readable string representation of the reason
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonStop:
		return "stop"
	case ReasonRequiredSourceLost:
		return "required_source_lost"
	case ReasonSessionComplete:
		return "session_complete"
	case ReasonSinkFailure:
		return "sink_failure"
	case ReasonCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Fatal reports whether the reason is an error condition
func (r Reason) Fatal() bool {
	return r == ReasonRequiredSourceLost || r == ReasonSinkFailure
}

package session

import "time"

// SourceStatus is the reported state of one camera
type SourceStatus struct {
	Camera        string `json:"camera"`
	Required      bool   `json:"required"`
	Active        bool   `json:"active"`
	Health        string `json:"health"`
	Dropped       string `json:"dropped,omitempty"`
	VideoPath     string `json:"video_path,omitempty"`
	FramesWritten uint64 `json:"frames_written"`
	MotionSamples uint64 `json:"motion_samples"`
}

// Status is a point-in-time view of the session
type Status struct {
	RunID     string         `json:"run_id"`
	State     string         `json:"state"`
	Reason    string         `json:"reason,omitempty"`
	Error     string         `json:"error,omitempty"`
	Mode      string         `json:"mode"`
	StartedAt time.Time      `json:"started_at"`
	Windows   int            `json:"windows"`
	WindowCap int            `json:"window_cap"`
	LogPath   string         `json:"log_path,omitempty"`
	Sources   []SourceStatus `json:"sources"`
}

// Snapshot returns the current status. Safe to call from any goroutine.
func (c *Controller) Snapshot() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Status{
		RunID:     c.runID,
		State:     c.state.String(),
		Mode:      string(c.cfg.Mode),
		StartedAt: c.startedAt,
		Windows:   c.rows,
		WindowCap: c.cfg.Window.Cap,
		LogPath:   c.logPath,
		Sources:   make([]SourceStatus, 0, len(c.slots)),
	}
	if c.reason != ReasonNone {
		st.Reason = c.reason.String()
	}
	if c.err != nil {
		st.Error = c.err.Error()
	}

	for _, s := range c.slots {
		health := "unavailable"
		if s.source != nil {
			health = s.source.Health().String()
		}
		st.Sources = append(st.Sources, SourceStatus{
			Camera:        s.id.String(),
			Required:      s.required,
			Active:        s.active,
			Health:        health,
			Dropped:       s.dropped,
			VideoPath:     s.videoPath,
			FramesWritten: s.framesWritten,
			MotionSamples: s.motionSamples,
		})
	}
	return st
}

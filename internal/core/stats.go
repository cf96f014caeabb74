package core

import (
	"context"
	"log/slog"
	"time"
)

// reportStats periodically logs the session snapshot
func (c *Camsens) reportStats(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.logStats()
		}
	}
}

func (c *Camsens) logStats() {
	st := c.Snapshot()

	c.mu.Lock()
	uptime := time.Since(c.started)
	c.mu.Unlock()

	slog.Info("core: session stats",
		"uptime", uptime.Round(time.Second),
		"state", st.State,
		"windows", st.Windows,
		"window_cap", st.WindowCap,
	)
	for _, src := range st.Sources {
		slog.Info("core: source stats",
			"camera", src.Camera,
			"active", src.Active,
			"health", src.Health,
			"frames_written", src.FramesWritten,
			"motion_samples", src.MotionSamples,
			"dropped", src.Dropped,
		)
	}
	if c.mqtt != nil {
		mq := c.mqtt.Stats()
		slog.Info("core: mqtt stats",
			"connected", mq.Connected,
			"published", mq.Published,
			"errors", mq.Errors,
			"queue_dropped", c.observer.Dropped(),
		)
	}
}

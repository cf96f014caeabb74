package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/e7canasta/camsens/internal/command"
)

// Result summarizes a finished session
type Result struct {
	RunID      string
	Reason     Reason
	Err        error
	Windows    int
	LogPath    string
	VideoPaths map[string]string
	Duration   time.Duration
}

// Apply executes one command. Invalid transitions are logged and ignored.
func (c *Controller) Apply(cmd command.Command) {
	var err error
	switch cmd {
	case command.StartRecording:
		err = c.StartRecording()
	case command.StartSensing:
		err = c.StartSensing()
	case command.Stop:
		c.Stop()
	default:
		slog.Warn("session: unknown command", "command", cmd.String())
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrTerminated):
		slog.Warn("session: command ignored", "command", cmd.String(), "error", err)
	default:
		slog.Error("session: command failed", "command", cmd.String(), "error", err)
	}
}

// Run is the session main loop. It waits at most PollInterval for a command,
// then runs one Step, until the session terminates.
//
// A closed commands channel is not a stop: the session keeps running until
// an explicit Stop, the window cap, a fatal condition or ctx cancellation.
// The returned error is non-nil only for fatal terminations.
func (c *Controller) Run(ctx context.Context, commands <-chan command.Command) (Result, error) {
	slog.Info("session: running",
		"run_id", c.runID,
		"mode", string(c.cfg.Mode),
		"window", c.cfg.Window.Duration,
		"window_cap", c.cfg.Window.Cap,
	)

	timer := time.NewTimer(c.cfg.PollInterval)
	defer timer.Stop()

	for c.State() != Terminated {
		select {
		case <-ctx.Done():
			c.mu.Lock()
			c.terminateLocked(ReasonCancelled, nil)
			c.mu.Unlock()
			continue

		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			slog.Debug("session: command received", "command", cmd.String())
			c.Apply(cmd)

		case <-timer.C:
			timer.Reset(c.cfg.PollInterval)
		}

		c.Step(c.clock.Now())
	}

	res := c.Result()
	return res, res.Err
}

// Result returns the session summary. Meaningful once terminated.
func (c *Controller) Result() Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	res := Result{
		RunID:      c.runID,
		Reason:     c.reason,
		Windows:    c.rows,
		LogPath:    c.logPath,
		VideoPaths: make(map[string]string),
	}
	if c.reason.Fatal() {
		res.Err = c.err
	}
	if !c.endedAt.IsZero() {
		res.Duration = c.endedAt.Sub(c.startedAt)
	}
	for _, s := range c.slots {
		if s.videoPath != "" {
			res.VideoPaths[s.id.String()] = s.videoPath
		}
	}
	return res
}

package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/camsens/internal/capture"
	"github.com/e7canasta/camsens/internal/command"
	"github.com/e7canasta/camsens/internal/config"
	"github.com/e7canasta/camsens/internal/control"
	"github.com/e7canasta/camsens/internal/emitter"
	"github.com/e7canasta/camsens/internal/motion"
	"github.com/e7canasta/camsens/internal/session"
	"github.com/e7canasta/camsens/internal/sink"
	"github.com/e7canasta/camsens/internal/status"
	"github.com/e7canasta/camsens/internal/types"
	"github.com/e7canasta/camsens/internal/window"
)

// Options tune how the service is assembled
type Options struct {
	// DryRun replaces cameras with synthetic readers and video files with
	// discard sinks. The window log is still written.
	DryRun bool
	// ReaderFactory overrides how camera readers are created, for tests
	ReaderFactory func(cam config.CameraConfig) (capture.Reader, error)
}

// Camsens is the main service orchestrator
type Camsens struct {
	cfg  *config.Config
	opts Options

	ctrl     *session.Controller
	mqtt     *emitter.MQTTEmitter
	observer *emitter.Observer
	control  *control.Handler
	status   *status.Server

	mu      sync.Mutex
	started time.Time
	running bool
}

// NewCamsens creates a service from a validated configuration
func NewCamsens(cfg *config.Config, opts Options) *Camsens {
	if opts.ReaderFactory == nil {
		if opts.DryRun {
			opts.ReaderFactory = syntheticReader
		} else {
			opts.ReaderFactory = deviceReader
		}
	}
	return &Camsens{cfg: cfg, opts: opts}
}

// Run opens the cameras, runs one session driven by commands and returns
// its result once the session terminates.
func (c *Camsens) Run(ctx context.Context, commands ...<-chan command.Command) (session.Result, error) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return session.Result{}, fmt.Errorf("core: service is already running")
	}
	c.running = true
	c.started = time.Now()
	c.mu.Unlock()

	slog.Info("core: camsens starting",
		"cameras", len(c.cfg.Cameras),
		"mode", c.cfg.Motion.Mode,
		"dry_run", c.opts.DryRun,
	)

	sinks, err := sink.NewFiles(c.filesConfig())
	if err != nil {
		return session.Result{}, fmt.Errorf("core: %w", err)
	}

	slots, err := session.OpenSources(ctx, c.sourceOpeners())
	if err != nil {
		return session.Result{}, fmt.Errorf("core: %w", err)
	}

	// Observers and the control plane are optional: failures are logged
	// and the session runs without them.
	var sessionOpts []session.Option
	if c.cfg.MQTT.Broker != "" {
		c.connectMQTT(ctx)
		if c.observer != nil {
			sessionOpts = append(sessionOpts, session.WithObserver(c.observer))
		}
	}

	ctrl, err := session.New(c.sessionConfig(), slots, sinks, sessionOpts...)
	if err != nil {
		for _, s := range slots {
			if s.Source != nil {
				s.Source.Close()
			}
		}
		c.Shutdown(context.Background())
		return session.Result{}, fmt.Errorf("core: %w", err)
	}
	c.mu.Lock()
	c.ctrl = ctrl
	c.mu.Unlock()

	if c.mqtt != nil {
		c.startControl(ctx, ctrl)
	}
	if c.control != nil {
		commands = append(commands, c.control.Commands())
	}

	if c.cfg.Status.Addr != "" {
		c.status = status.New(c.cfg.Status.Addr, ctrl)
		if err := c.status.Start(ctx); err != nil {
			slog.Warn("core: status server not started", "error", err)
			c.status = nil
		}
	}

	if auto := c.schedule(); len(auto) > 0 {
		commands = append(commands, command.Schedule(ctx, auto...))
	}

	statsCtx, stopStats := context.WithCancel(ctx)
	go c.reportStats(statsCtx, c.cfg.Session.StatsInterval)

	res, err := ctrl.Run(ctx, command.Merge(ctx, commands...))
	stopStats()

	slog.Info("core: session finished",
		"run_id", res.RunID,
		"reason", res.Reason.String(),
		"windows", res.Windows,
		"log", res.LogPath,
		"duration", res.Duration,
	)
	return res, err
}

func (c *Camsens) connectMQTT(ctx context.Context) {
	m := emitter.NewMQTTEmitter(c.cfg.MQTT)
	if err := m.Connect(ctx); err != nil {
		slog.Warn("core: mqtt unavailable, continuing without publishing", "error", err)
		return
	}
	c.mqtt = m
	c.observer = emitter.NewObserver(m, c.cfg.MQTT.Topic, 64)
}

func (c *Camsens) startControl(ctx context.Context, ctrl *session.Controller) {
	h := control.NewHandler(c.mqtt.Client, c.cfg.MQTT.ControlTopic, c.cfg.MQTT.QoS, ctrl)
	if err := h.Start(ctx); err != nil {
		slog.Warn("core: control plane not started", "error", err)
		return
	}
	c.control = h
}

// Snapshot returns the session status, or an idle placeholder before the
// session exists
func (c *Camsens) Snapshot() session.Status {
	c.mu.Lock()
	ctrl := c.ctrl
	c.mu.Unlock()
	if ctrl == nil {
		return session.Status{State: session.Idle.String(), Mode: c.cfg.Motion.Mode}
	}
	return ctrl.Snapshot()
}

// Shutdown releases the optional services. The session itself closes its
// sinks and sources before Run returns.
func (c *Camsens) Shutdown(ctx context.Context) error {
	slog.Info("core: shutting down")

	c.mu.Lock()
	ctrl := c.ctrl
	c.mu.Unlock()
	if ctrl != nil {
		ctrl.Close()
	}

	if c.control != nil {
		c.control.Stop()
	}
	if c.observer != nil {
		timeout := 2 * time.Second
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		c.observer.Close(timeout)
	}
	if c.mqtt != nil {
		if err := c.mqtt.Disconnect(); err != nil {
			slog.Error("core: mqtt disconnect failed", "error", err)
		}
		st := c.mqtt.Stats()
		slog.Info("core: mqtt stats", "published", st.Published, "errors", st.Errors)
	}
	if c.status != nil {
		if err := c.status.Shutdown(ctx); err != nil {
			return fmt.Errorf("core: %w", err)
		}
	}

	c.mu.Lock()
	uptime := time.Since(c.started)
	c.running = false
	c.mu.Unlock()

	slog.Info("core: shutdown complete", "uptime", uptime)
	return nil
}

func (c *Camsens) filesConfig() sink.FilesConfig {
	files := sink.DefaultFilesConfig()
	files.VideoDir = c.cfg.Output.VideoDir
	files.DataDir = c.cfg.Output.DataDir
	files.VideoExt = c.cfg.Output.VideoExt
	files.LogBase = c.cfg.Output.LogBase
	files.DiscardVideo = c.opts.DryRun
	files.VideoBase = make(map[types.CameraID]string, len(c.cfg.Cameras))
	for _, cam := range c.cfg.Cameras {
		files.VideoBase[types.CameraID(cam.ID)] = cam.Name + "_OutputVideo"
	}
	return files
}

func (c *Camsens) sessionConfig() session.Config {
	cfg := session.DefaultConfig()
	cfg.Mode = session.Mode(c.cfg.Motion.Mode)
	cfg.Motion = motion.Params{
		DiffThreshold: uint8(c.cfg.Motion.DiffThreshold),
		MotionRatio:   c.cfg.Motion.MotionRatio,
	}
	cfg.Light = motion.LightParams{
		AbsDelta: c.cfg.Motion.LightAbsDelta,
		RelDelta: c.cfg.Motion.LightRelDelta,
	}
	cfg.BlurSigma = c.cfg.Motion.BlurSigma
	cfg.Window = window.Config{
		Duration: c.cfg.Window.Duration,
		Cap:      c.cfg.Window.SessionCap,
	}
	cfg.Codec = c.cfg.Output.Codec
	cfg.DefaultFPS = c.cfg.Output.DefaultFPS
	cfg.PollInterval = c.cfg.Session.PollInterval
	return cfg
}

func (c *Camsens) captureOptions() capture.Options {
	return capture.Options{
		LossThreshold: c.cfg.Capture.LossThreshold,
		Backoff: capture.BackoffConfig{
			Initial: c.cfg.Capture.Backoff,
			Max:     c.cfg.Capture.MaxBackoff,
		},
		JoinTimeout: c.cfg.Capture.JoinTimeout,
		FPSProbe:    c.cfg.Capture.FPSProbe,
	}
}

func (c *Camsens) sourceOpeners() []session.SourceOpener {
	opts := c.captureOptions()
	openers := make([]session.SourceOpener, 0, len(c.cfg.Cameras))
	for _, cam := range c.cfg.Cameras {
		cam := cam
		id := types.CameraID(cam.ID)
		openers = append(openers, session.SourceOpener{
			ID:       id,
			Required: cam.Required,
			Open: func(ctx context.Context) (session.FrameSource, error) {
				reader, err := c.opts.ReaderFactory(cam)
				if err != nil {
					return nil, fmt.Errorf("%w: %w", capture.ErrOpen, err)
				}
				src, err := capture.Open(ctx, id, reader, opts)
				if err != nil {
					return nil, err
				}
				return src, nil
			},
		})
	}
	return openers
}

func (c *Camsens) schedule() []command.Timed {
	var auto []command.Timed
	if d := c.cfg.Session.AutoRecordAfter; d > 0 {
		auto = append(auto, command.Timed{After: d, Command: command.StartRecording})
	}
	if d := c.cfg.Session.AutoSenseAfter; d > 0 {
		auto = append(auto, command.Timed{After: d, Command: command.StartSensing})
	}
	return auto
}

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks the configuration and fills defaults
func Validate(cfg *Config) error {
	if err := validateCameras(cfg.Cameras); err != nil {
		return err
	}

	// Motion
	switch cfg.Motion.Mode {
	case "":
		cfg.Motion.Mode = "motion"
	case "motion", "light":
	default:
		return fmt.Errorf("motion.mode must be 'motion' or 'light', got '%s'", cfg.Motion.Mode)
	}
	if cfg.Motion.DiffThreshold == 0 {
		cfg.Motion.DiffThreshold = 25
	}
	if cfg.Motion.DiffThreshold < 0 || cfg.Motion.DiffThreshold > 255 {
		return fmt.Errorf("motion.diff_threshold must be in [0, 255], got %d", cfg.Motion.DiffThreshold)
	}
	if cfg.Motion.MotionRatio == 0 {
		cfg.Motion.MotionRatio = 0.02
	}
	if cfg.Motion.MotionRatio < 0 || cfg.Motion.MotionRatio > 1 {
		return fmt.Errorf("motion.motion_ratio must be in (0, 1], got %g", cfg.Motion.MotionRatio)
	}
	if cfg.Motion.BlurSigma < 0 {
		return fmt.Errorf("motion.blur_sigma must be >= 0")
	}
	if cfg.Motion.LightAbsDelta <= 0 {
		cfg.Motion.LightAbsDelta = 8.0
	}
	if cfg.Motion.LightRelDelta <= 0 {
		cfg.Motion.LightRelDelta = 0.10
	}

	// Window
	if cfg.Window.Duration == 0 {
		cfg.Window.Duration = time.Second
	}
	if cfg.Window.Duration < 0 {
		return fmt.Errorf("window.duration must be > 0")
	}
	if cfg.Window.SessionCap == 0 {
		cfg.Window.SessionCap = 120
	}
	if cfg.Window.SessionCap < 0 {
		return fmt.Errorf("window.session_cap must be > 0")
	}

	// Capture
	if cfg.Capture.LossThreshold <= 0 {
		cfg.Capture.LossThreshold = 30
	}
	if cfg.Capture.Backoff <= 0 {
		cfg.Capture.Backoff = 5 * time.Millisecond
	}
	if cfg.Capture.MaxBackoff <= 0 {
		cfg.Capture.MaxBackoff = cfg.Capture.Backoff
	}
	if cfg.Capture.MaxBackoff < cfg.Capture.Backoff {
		return fmt.Errorf("capture.max_backoff (%s) must be >= capture.backoff (%s)",
			cfg.Capture.MaxBackoff, cfg.Capture.Backoff)
	}
	if cfg.Capture.JoinTimeout <= 0 {
		cfg.Capture.JoinTimeout = 3 * time.Second
	}
	if cfg.Capture.FPSProbe < 0 {
		return fmt.Errorf("capture.fps_probe must be >= 0")
	}
	if cfg.Capture.FPSProbe == 0 {
		cfg.Capture.FPSProbe = time.Second
	}

	// Output
	if cfg.Output.VideoDir == "" {
		cfg.Output.VideoDir = "Output Videos"
	}
	if cfg.Output.DataDir == "" {
		cfg.Output.DataDir = "Output Data"
	}
	if cfg.Output.VideoExt == "" {
		cfg.Output.VideoExt = "mp4"
	}
	cfg.Output.VideoExt = strings.TrimPrefix(cfg.Output.VideoExt, ".")
	if cfg.Output.Codec == "" {
		cfg.Output.Codec = "mp4v"
	}
	if len(cfg.Output.Codec) != 4 {
		return fmt.Errorf("output.codec must be a FourCC, got '%s'", cfg.Output.Codec)
	}
	if cfg.Output.LogBase == "" {
		if cfg.Motion.Mode == "light" {
			cfg.Output.LogBase = "LightLog"
		} else {
			cfg.Output.LogBase = "MotionLog"
		}
	}
	if cfg.Output.DefaultFPS <= 0 {
		cfg.Output.DefaultFPS = 30
	}

	// Session
	if cfg.Session.PollInterval <= 0 {
		cfg.Session.PollInterval = time.Millisecond
	}
	if cfg.Session.StatsInterval <= 0 {
		cfg.Session.StatsInterval = 10 * time.Second
	}
	if cfg.Session.AutoRecordAfter < 0 || cfg.Session.AutoSenseAfter < 0 {
		return fmt.Errorf("session auto-start delays must be >= 0")
	}

	// MQTT (optional)
	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topic == "" {
			cfg.MQTT.Topic = "camsens/windows"
		}
		if cfg.MQTT.ControlTopic == "" {
			cfg.MQTT.ControlTopic = "camsens/control"
		}
		if cfg.MQTT.ClientID == "" {
			cfg.MQTT.ClientID = "camsens"
		}
		if cfg.MQTT.QoS > 2 {
			return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", cfg.MQTT.QoS)
		}
	}

	return nil
}

func validateCameras(cameras []CameraConfig) error {
	if len(cameras) == 0 {
		return fmt.Errorf("at least one camera is required")
	}

	seen := make(map[int]bool)
	required := 0
	for i := range cameras {
		cam := &cameras[i]
		if cam.ID < 0 || cam.ID > 1 {
			return fmt.Errorf("camera %d: id must be 0 or 1", cam.ID)
		}
		if seen[cam.ID] {
			return fmt.Errorf("camera %d: duplicate id", cam.ID)
		}
		seen[cam.ID] = true

		if cam.Device == "" {
			return fmt.Errorf("camera %d: device is required", cam.ID)
		}
		if IsURI(cam.Device) && (cam.Width <= 0 || cam.Height <= 0) {
			return fmt.Errorf("camera %d: width and height are required for URI device '%s'", cam.ID, cam.Device)
		}
		if cam.Name == "" {
			cam.Name = fmt.Sprintf("Cam%d", cam.ID+1)
		}
		if cam.Required {
			required++
		}
	}

	if required != 1 {
		return fmt.Errorf("exactly one camera must be required, got %d", required)
	}
	return nil
}

// IsURI reports whether a device string should be opened through GStreamer
func IsURI(device string) bool {
	return strings.Contains(device, "://")
}

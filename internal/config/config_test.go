package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "camsens.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if len(cfg.Cameras) != 2 || !cfg.Cameras[0].Required || cfg.Cameras[1].Required {
		t.Errorf("cameras = %+v", cfg.Cameras)
	}
	if cfg.Cameras[1].Name != "Cam2" {
		t.Errorf("secondary name = %q, want Cam2", cfg.Cameras[1].Name)
	}
	if cfg.Motion.DiffThreshold != 25 || cfg.Motion.MotionRatio != 0.02 {
		t.Errorf("motion = %+v", cfg.Motion)
	}
	if cfg.Window.Duration != time.Second || cfg.Window.SessionCap != 120 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Capture.LossThreshold != 30 || cfg.Capture.Backoff != 5*time.Millisecond || cfg.Capture.MaxBackoff != 5*time.Millisecond {
		t.Errorf("capture = %+v", cfg.Capture)
	}
	if cfg.Output.VideoDir != "Output Videos" || cfg.Output.LogBase != "MotionLog" {
		t.Errorf("output = %+v", cfg.Output)
	}
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
cameras:
  - id: 0
    device: "rtsp://cam.local/stream"
    required: true
    width: 640
    height: 480
motion:
  mode: light
window:
  duration: 2s
  session_cap: 10
capture:
  backoff: 10ms
  max_backoff: 80ms
output:
  video_ext: .avi
  codec: MJPG
mqtt:
  broker: localhost:1883
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Window.Duration != 2*time.Second || cfg.Window.SessionCap != 10 {
		t.Errorf("window = %+v", cfg.Window)
	}
	if cfg.Capture.MaxBackoff != 80*time.Millisecond {
		t.Errorf("max_backoff = %s", cfg.Capture.MaxBackoff)
	}
	if cfg.Output.VideoExt != "avi" {
		t.Errorf("video_ext = %q, want avi", cfg.Output.VideoExt)
	}
	if cfg.Output.LogBase != "LightLog" {
		t.Errorf("log_base = %q, want LightLog for light mode", cfg.Output.LogBase)
	}
	if cfg.MQTT.Topic != "camsens/windows" || cfg.MQTT.ClientID != "camsens" || cfg.MQTT.ControlTopic != "camsens/control" {
		t.Errorf("mqtt defaults = %+v", cfg.MQTT)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		errMsg string
	}{
		{
			name:   "no cameras",
			config: "motion: {mode: motion}\n",
			errMsg: "at least one camera",
		},
		{
			name: "no required camera",
			config: `
cameras:
  - {id: 0, device: "0"}
`,
			errMsg: "exactly one camera must be required",
		},
		{
			name: "duplicate id",
			config: `
cameras:
  - {id: 0, device: "0", required: true}
  - {id: 0, device: "1"}
`,
			errMsg: "duplicate id",
		},
		{
			name: "uri without size",
			config: `
cameras:
  - {id: 0, device: "rtsp://x/y", required: true}
`,
			errMsg: "width and height are required",
		},
		{
			name: "bad mode",
			config: `
cameras:
  - {id: 0, device: "0", required: true}
motion: {mode: colour}
`,
			errMsg: "motion.mode",
		},
		{
			name: "bad codec",
			config: `
cameras:
  - {id: 0, device: "0", required: true}
output: {codec: h264x}
`,
			errMsg: "FourCC",
		},
		{
			name: "backoff cap below initial",
			config: `
cameras:
  - {id: 0, device: "0", required: true}
capture: {backoff: 50ms, max_backoff: 10ms}
`,
			errMsg: "max_backoff",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.config))
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.errMsg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestIsURI(t *testing.T) {
	for device, want := range map[string]bool{
		"0":                       false,
		"/dev/video0":             false,
		"clip.mp4":                false,
		"rtsp://10.0.0.2/stream":  true,
		"file:///tmp/clip.mp4":    true,
	} {
		if got := IsURI(device); got != want {
			t.Errorf("IsURI(%q) = %v, want %v", device, got, want)
		}
	}
}

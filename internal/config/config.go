package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete camsens configuration
type Config struct {
	Cameras []CameraConfig `yaml:"cameras"`
	Motion  MotionConfig   `yaml:"motion"`
	Window  WindowConfig   `yaml:"window"`
	Capture CaptureConfig  `yaml:"capture"`
	Output  OutputConfig   `yaml:"output"`
	Session SessionConfig  `yaml:"session"`
	MQTT    MQTTConfig     `yaml:"mqtt"`
	Status  StatusConfig   `yaml:"status"`
}

// CameraConfig describes one camera slot
type CameraConfig struct {
	ID   int    `yaml:"id"`   // slot index: 0 = primary, 1 = secondary
	Name string `yaml:"name"` // video file prefix (default: Cam<id+1>)
	// Device is a camera index ("0"), a file path, or a URI. URIs with a
	// scheme (rtsp://, file://) are opened through GStreamer.
	Device   string  `yaml:"device"`
	Required bool    `yaml:"required"`
	Width    int     `yaml:"width"`  // 0 keeps the device default (required for URIs)
	Height   int     `yaml:"height"` // 0 keeps the device default (required for URIs)
	FPS      float64 `yaml:"fps"`    // requested rate, 0 keeps the device default
}

// MotionConfig contains detector settings
type MotionConfig struct {
	Mode          string  `yaml:"mode"`           // motion, light
	DiffThreshold int     `yaml:"diff_threshold"` // per-pixel intensity delta (default: 25)
	MotionRatio   float64 `yaml:"motion_ratio"`   // changed-pixel fraction (default: 0.02)
	BlurSigma     float32 `yaml:"blur_sigma"`     // gaussian pre-blur, 0 disables
	LightAbsDelta float64 `yaml:"light_abs_delta"`
	LightRelDelta float64 `yaml:"light_rel_delta"`
}

// WindowConfig contains window aggregation settings
type WindowConfig struct {
	Duration   time.Duration `yaml:"duration"`    // default: 1s
	SessionCap int           `yaml:"session_cap"` // windows per session (default: 120)
}

// CaptureConfig contains read-loop settings
type CaptureConfig struct {
	LossThreshold int           `yaml:"loss_threshold"` // consecutive failures before Lost (default: 30)
	Backoff       time.Duration `yaml:"backoff"`        // default: 5ms
	MaxBackoff    time.Duration `yaml:"max_backoff"`    // default: 5ms
	JoinTimeout   time.Duration `yaml:"join_timeout"`   // default: 3s
	FPSProbe      time.Duration `yaml:"fps_probe"`      // default: 1s
}

// OutputConfig contains output file settings
type OutputConfig struct {
	VideoDir   string  `yaml:"video_dir"`
	DataDir    string  `yaml:"data_dir"`
	VideoExt   string  `yaml:"video_ext"`
	Codec      string  `yaml:"codec"` // FourCC
	LogBase    string  `yaml:"log_base"`
	DefaultFPS float64 `yaml:"default_fps"`
}

// SessionConfig contains session loop settings
type SessionConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"` // default: 1ms
	// AutoRecordAfter and AutoSenseAfter schedule the start commands for
	// headless runs. Zero disables.
	AutoRecordAfter time.Duration `yaml:"auto_record_after"`
	AutoSenseAfter  time.Duration `yaml:"auto_sense_after"`
	// StatsInterval is how often session statistics are logged (default: 10s)
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// MQTTConfig contains MQTT broker settings. An empty broker disables publishing.
type MQTTConfig struct {
	Broker       string `yaml:"broker"`
	Topic        string `yaml:"topic"`         // windows; state changes go to <topic>/state
	ControlTopic string `yaml:"control_topic"` // remote commands; responses go to <control_topic>/response
	ClientID     string `yaml:"client_id"`
	QoS          byte   `yaml:"qos"`
}

// StatusConfig contains the HTTP status server settings. An empty addr disables it.
type StatusConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{
		Cameras: []CameraConfig{
			{ID: 0, Device: "0", Required: true},
			{ID: 1, Device: "1"},
		},
	}
	// Validate only fills defaults here
	if err := Validate(cfg); err != nil {
		panic(fmt.Sprintf("config: default configuration invalid: %v", err))
	}
	return cfg
}

// Load reads and parses a YAML configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

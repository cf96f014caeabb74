package sink

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/e7canasta/camsens/internal/types"
)

// Factory opens the sinks of a session
type Factory interface {
	// OpenVideo opens the next video file for camera id and returns its path
	OpenVideo(id types.CameraID, params VideoParams) (Video, string, error)
	// OpenLog opens the next log file with the given status columns
	OpenLog(columns []string) (Log, string, error)
}

// FilesConfig controls where and how output files are named
type FilesConfig struct {
	VideoDir string
	DataDir  string
	// VideoBase maps a camera to its file base name. Cameras missing from the
	// map use "<CamN>_OutputVideo".
	VideoBase map[types.CameraID]string
	VideoExt  string
	LogBase   string
	LogExt    string
	// DiscardVideo replaces video files with Discard sinks
	DiscardVideo bool
}

// DefaultFilesConfig returns the reference layout
func DefaultFilesConfig() FilesConfig {
	return FilesConfig{
		VideoDir: "Output Videos",
		DataDir:  "Output Data",
		VideoExt: "mp4",
		LogBase:  "MotionLog",
		LogExt:   "csv",
	}
}

// Files is the filesystem Factory
type Files struct {
	cfg FilesConfig
}

// NewFiles creates the output directories and returns a Factory
func NewFiles(cfg FilesConfig) (*Files, error) {
	for _, dir := range []string{cfg.VideoDir, cfg.DataDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sink: create output dir: %w", err)
		}
	}
	return &Files{cfg: cfg}, nil
}

// VideoBase returns the base file name used for camera id
func (f *Files) VideoBase(id types.CameraID) string {
	if base, ok := f.cfg.VideoBase[id]; ok && base != "" {
		return base
	}
	return id.String() + "_OutputVideo"
}

// OpenVideo implements Factory
func (f *Files) OpenVideo(id types.CameraID, params VideoParams) (Video, string, error) {
	path, err := NextPath(f.cfg.VideoDir, f.VideoBase(id), f.cfg.VideoExt)
	if err != nil {
		return nil, "", err
	}

	if f.cfg.DiscardVideo {
		slog.Info("sink: discarding video", "camera", id.String(), "would_be", path)
		return &Discard{}, path, nil
	}

	v, err := OpenVideo(path, params)
	if err != nil {
		return nil, "", err
	}
	slog.Info("sink: video opened",
		"camera", id.String(),
		"path", path,
		"size", fmt.Sprintf("%dx%d", params.Width, params.Height),
		"fps", fmt.Sprintf("%.2f", params.FPS),
		"codec", params.Codec,
	)
	return v, path, nil
}

// OpenLog implements Factory
func (f *Files) OpenLog(columns []string) (Log, string, error) {
	path, err := NextPath(f.cfg.DataDir, f.cfg.LogBase, f.cfg.LogExt)
	if err != nil {
		return nil, "", err
	}
	l, err := OpenLog(path, columns)
	if err != nil {
		return nil, "", err
	}
	slog.Info("sink: log opened", "path", path, "columns", columns)
	return l, path, nil
}

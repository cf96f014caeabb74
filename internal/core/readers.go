package core

import (
	"github.com/e7canasta/camsens/internal/capture"
	"github.com/e7canasta/camsens/internal/config"
)

// deviceReader opens URIs through GStreamer and everything else through OpenCV
func deviceReader(cam config.CameraConfig) (capture.Reader, error) {
	if config.IsURI(cam.Device) {
		return capture.NewPipelineReader(capture.PipelineConfig{
			URI:    cam.Device,
			Width:  cam.Width,
			Height: cam.Height,
			FPS:    cam.FPS,
		})
	}
	return capture.NewDeviceReader(capture.DeviceConfig{
		Device: cam.Device,
		Width:  cam.Width,
		Height: cam.Height,
		FPS:    cam.FPS,
	})
}

// syntheticReader stands in for a camera in dry runs
func syntheticReader(cam config.CameraConfig) (capture.Reader, error) {
	width, height, fps := cam.Width, cam.Height, cam.FPS
	if width <= 0 || height <= 0 {
		width, height = 640, 480
	}
	if fps <= 0 {
		fps = 30
	}
	return capture.NewSyntheticReader(capture.SyntheticConfig{
		Width:  width,
		Height: height,
		FPS:    fps,
	}), nil
}

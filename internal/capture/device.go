package capture

import (
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/e7canasta/camsens/internal/types"
)

// DeviceConfig configures a DeviceReader
type DeviceConfig struct {
	// Device is a camera index ("0", "1") or anything OpenCV can open
	// (file path, URL)
	Device string
	// Width and Height request a capture resolution. Zero keeps the device default.
	Width  int
	Height int
	// FPS requests a capture frame rate. Zero keeps the device default.
	FPS float64
}

// DeviceReader reads BGR frames from a camera through OpenCV
type DeviceReader struct {
	mu    sync.Mutex
	cap   *gocv.VideoCapture
	mat   gocv.Mat
	props Properties
}

// OpenDevice opens a local camera by index
func OpenDevice(index int) (*DeviceReader, error) {
	return NewDeviceReader(DeviceConfig{Device: strconv.Itoa(index)})
}

// NewDeviceReader opens the configured device
func NewDeviceReader(cfg DeviceConfig) (*DeviceReader, error) {
	var target interface{} = cfg.Device
	if idx, err := strconv.Atoi(cfg.Device); err == nil {
		target = idx
	}

	vc, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("capture: open device %q: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("capture: device %q not opened", cfg.Device)
	}

	if cfg.Width > 0 && cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.FPS > 0 {
		vc.Set(gocv.VideoCaptureFPS, cfg.FPS)
	}

	return &DeviceReader{
		cap: vc,
		mat: gocv.NewMat(),
		props: Properties{
			Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
			Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
			FPS:    vc.Get(gocv.VideoCaptureFPS),
		},
	}, nil
}

// Read implements Reader
func (d *DeviceReader) Read() (types.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cap == nil {
		return types.Frame{}, ErrClosed
	}
	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return types.Frame{}, ErrReadFailed
	}

	channels := d.mat.Channels()
	if channels != 1 && channels != 3 {
		return types.Frame{}, fmt.Errorf("%w: unsupported channel count %d", ErrReadFailed, channels)
	}

	return types.Frame{
		Width:    d.mat.Cols(),
		Height:   d.mat.Rows(),
		Channels: channels,
		Data:     d.mat.ToBytes(),
	}, nil
}

// Properties implements Reader
func (d *DeviceReader) Properties() Properties {
	return d.props
}

// Close implements Reader
func (d *DeviceReader) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cap == nil {
		return nil
	}
	d.mat.Close()
	err := d.cap.Close()
	d.cap = nil
	if err != nil {
		return fmt.Errorf("capture: release device: %w", err)
	}
	return nil
}

package capture

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/camsens/internal/types"
)

// PipelineConfig configures a GStreamer-backed reader
type PipelineConfig struct {
	// URI is anything uridecodebin accepts: rtsp://, file://, v4l2:///dev/video0
	URI string
	// Width and Height are forced through videoscale (required)
	Width  int
	Height int
	// FPS limits the output rate through videorate. Zero keeps the source rate.
	FPS float64
}

// PipelineReader pulls BGR frames from an appsink in pull mode.
//
// Pipeline structure:
//
//	uridecodebin → videoconvert → videoscale → [videorate] → capsfilter(BGR) → appsink
type PipelineReader struct {
	cfg PipelineConfig

	mu       sync.Mutex
	pipeline *gst.Pipeline
	sink     *app.Sink
	bus      *gst.Bus
	closed   bool
}

// NewPipelineReader builds the pipeline and sets it to PLAYING
func NewPipelineReader(cfg PipelineConfig) (*PipelineReader, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("capture: pipeline URI is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("capture: invalid pipeline size %dx%d", cfg.Width, cfg.Height)
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("capture: create pipeline: %w", err)
	}

	src, err := gst.NewElement("uridecodebin")
	if err != nil {
		return nil, fmt.Errorf("capture: create uridecodebin: %w", err)
	}
	src.SetProperty("uri", cfg.URI)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("capture: create videoconvert: %w", err)
	}
	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("capture: create videoscale: %w", err)
	}

	chain := []*gst.Element{converter, scaler}
	if cfg.FPS > 0 {
		videorate, err := gst.NewElement("videorate")
		if err != nil {
			return nil, fmt.Errorf("capture: create videorate: %w", err)
		}
		videorate.SetProperty("drop-only", true)
		chain = append(chain, videorate)
	}

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("capture: create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString(buildCaps(cfg.Width, cfg.Height, cfg.FPS)))
	chain = append(chain, capsfilter)

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("capture: create appsink: %w", err)
	}
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)
	chain = append(chain, sink.Element)

	if err := pipeline.AddMany(append([]*gst.Element{src}, chain...)...); err != nil {
		return nil, fmt.Errorf("capture: add pipeline elements: %w", err)
	}
	if err := gst.ElementLinkMany(chain...); err != nil {
		return nil, fmt.Errorf("capture: link pipeline elements: %w", err)
	}

	// uridecodebin exposes pads once the stream type is known
	src.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		linkVideoPad(srcPad, converter)
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("capture: start pipeline: %w", err)
	}

	slog.Info("capture: gstreamer pipeline started",
		"uri", cfg.URI,
		"width", cfg.Width,
		"height", cfg.Height,
		"fps", cfg.FPS,
	)

	return &PipelineReader{
		cfg:      cfg,
		pipeline: pipeline,
		sink:     sink,
		bus:      pipeline.GetPipelineBus(),
	}, nil
}

func linkVideoPad(srcPad *gst.Pad, converter *gst.Element) {
	if caps := srcPad.GetCurrentCaps(); caps != nil {
		if st := caps.GetStructureAt(0); st != nil && !strings.HasPrefix(st.Name(), "video/") {
			slog.Debug("capture: ignoring non-video pad", "pad", srcPad.GetName(), "caps", st.Name())
			return
		}
	}

	sinkPad := converter.GetStaticPad("sink")
	if sinkPad == nil {
		slog.Error("capture: videoconvert has no sink pad")
		return
	}
	if sinkPad.IsLinked() {
		return
	}
	if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK {
		slog.Error("capture: failed to link decoder pad",
			"src_pad", srcPad.GetName(),
			"ret", ret,
		)
		return
	}
	slog.Debug("capture: decoder pad linked", "src_pad", srcPad.GetName())
}

// Read implements Reader. It blocks until the appsink has a sample.
func (p *PipelineReader) Read() (types.Frame, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return types.Frame{}, ErrClosed
	}
	sink := p.sink
	p.mu.Unlock()

	sample := sink.PullSample()
	if sample == nil {
		if sink.IsEOS() {
			return types.Frame{}, ErrEndOfStream
		}
		return types.Frame{}, p.busError()
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		return types.Frame{}, fmt.Errorf("%w: sample without buffer", ErrReadFailed)
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return types.Frame{}, fmt.Errorf("%w: empty buffer", ErrReadFailed)
	}

	// GStreamer reuses the buffer once unmapped. Raw video rows are padded to
	// 4 bytes, the frame is stored without padding.
	frameData := unpadRows(data, p.cfg.Width*3, p.cfg.Height)
	buffer.Unmap()

	frame := types.Frame{
		Width:    p.cfg.Width,
		Height:   p.cfg.Height,
		Channels: 3,
		Data:     frameData,
	}
	if err := frame.Validate(); err != nil {
		return types.Frame{}, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}
	return frame, nil
}

// busError drains pending bus messages and returns the first error, classified
func (p *PipelineReader) busError() error {
	for {
		msg := p.bus.TimedPop(10 * time.Millisecond)
		if msg == nil {
			return ErrReadFailed
		}
		switch msg.Type() {
		case gst.MessageEOS:
			return ErrEndOfStream
		case gst.MessageError:
			gerr := msg.ParseError()
			category := ClassifyGStreamerError(gerr)
			slog.Warn("capture: pipeline error",
				"uri", p.cfg.URI,
				"category", category.String(),
				"error", gerr.Error(),
				"debug", gerr.DebugString(),
			)
			return &PipelineError{Category: category, Message: gerr.Error()}
		}
	}
}

// Properties implements Reader
func (p *PipelineReader) Properties() Properties {
	return Properties{Width: p.cfg.Width, Height: p.cfg.Height, FPS: p.cfg.FPS}
}

// Close implements Reader
func (p *PipelineReader) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("capture: set pipeline to NULL: %w", err)
	}
	return nil
}

// buildCaps builds the appsink caps string.
//
// Fractional rates below 1 fps are expressed as 1/N.
func buildCaps(width, height int, fps float64) string {
	caps := fmt.Sprintf("video/x-raw,format=BGR,width=%d,height=%d", width, height)
	if fps <= 0 {
		return caps
	}

	numerator, denominator := 1, 1
	if fps < 1.0 {
		denominator = int(1.0 / fps)
	} else {
		numerator = int(fps)
	}
	return fmt.Sprintf("%s,framerate=%d/%d", caps, numerator, denominator)
}

// unpadRows copies rows of rowBytes out of a buffer whose stride is rowBytes
// rounded up to 4. Buffers of any other size are copied as-is.
func unpadRows(data []byte, rowBytes, rows int) []byte {
	stride := (rowBytes + 3) &^ 3
	if stride == rowBytes || len(data) != stride*rows {
		out := make([]byte, len(data))
		copy(out, data)
		return out
	}

	out := make([]byte, rowBytes*rows)
	for y := 0; y < rows; y++ {
		copy(out[y*rowBytes:(y+1)*rowBytes], data[y*stride:y*stride+rowBytes])
	}
	return out
}

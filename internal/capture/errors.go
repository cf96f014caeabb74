package capture

import (
	"fmt"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"
)

// ErrorCategory classifies GStreamer errors for logs
type ErrorCategory int

const (
	// ErrCategoryNetwork indicates connection, timeout or DNS failures
	ErrCategoryNetwork ErrorCategory = iota
	// ErrCategoryCodec indicates decode or caps negotiation failures
	ErrCategoryCodec
	// ErrCategoryAuth indicates authentication failures
	ErrCategoryAuth
	// ErrCategoryDevice indicates a missing or busy local device
	ErrCategoryDevice
	// ErrCategoryUnknown indicates unclassified errors
	ErrCategoryUnknown
)

// String returns a human-readable string representation of the error category
func (e ErrorCategory) String() string {
	switch e {
	case ErrCategoryNetwork:
		return "network"
	case ErrCategoryCodec:
		return "codec"
	case ErrCategoryAuth:
		return "auth"
	case ErrCategoryDevice:
		return "device"
	default:
		return "unknown"
	}
}

// PipelineError is a classified GStreamer bus error. It unwraps to ErrReadFailed
// so the capture loop treats it as an ordinary failed read.
type PipelineError struct {
	Category ErrorCategory
	Message  string
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("capture: pipeline error [%s]: %s", e.Category, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return ErrReadFailed
}

// ClassifyGStreamerError categorizes a GStreamer error by message keywords.
// go-gst's GError does not expose the error domain.
func ClassifyGStreamerError(gerr *gst.GError) ErrorCategory {
	if gerr == nil {
		return ErrCategoryUnknown
	}
	return classifyMessage(gerr.Error(), gerr.DebugString())
}

var (
	authKeywords = []string{
		"unauthorized", "401", "403", "forbidden", "authentication", "credentials",
	}
	deviceKeywords = []string{
		"v4l2", "/dev/video", "device busy", "resource busy", "no such device", "cannot identify device",
	}
	codecKeywords = []string{
		"codec", "decode", "format", "negotiation", "not negotiated", "caps",
		"h264", "h265", "jpeg", "no decoder", "missing plugin",
	}
	networkKeywords = []string{
		"connection", "timeout", "unreachable", "network", "dns", "resolve",
		"socket", "tcp", "udp", "rtsp", "could not connect", "failed to connect",
	}
)

// classifyMessage checks keyword groups from most to least specific
func classifyMessage(errMsg, debugStr string) ErrorCategory {
	combined := strings.ToLower(errMsg + " " + debugStr)

	switch {
	case containsAny(combined, authKeywords):
		return ErrCategoryAuth
	case containsAny(combined, deviceKeywords):
		return ErrCategoryDevice
	case containsAny(combined, codecKeywords):
		return ErrCategoryCodec
	case containsAny(combined, networkKeywords):
		return ErrCategoryNetwork
	default:
		return ErrCategoryUnknown
	}
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

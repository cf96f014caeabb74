// Package capture runs one background read loop per camera and publishes the
// most recent frame into a latest-wins buffer.
//
// A Source decouples blocking device reads from the session loop: the session
// polls Latest() without ever waiting on camera I/O, while the capture
// goroutine converts read failures into health transitions
// (Healthy → Degraded → Lost) instead of returning errors.
//
// Backends implement Reader:
//
//	DeviceReader    local camera through OpenCV (gocv)
//	PipelineReader  any GStreamer URI (rtsp://, file://, v4l2://) through appsink
//	SyntheticReader generated or scripted frames, for tests and dry runs
//
// Usage:
//
//	reader, err := capture.OpenDevice(0)
//	if err != nil {
//	    return err
//	}
//	src, err := capture.Open(ctx, types.Primary, reader, capture.DefaultOptions())
//	if err != nil {
//	    return err // reader already released
//	}
//	defer src.Close()
//
//	if frame, isNew, ok := src.Latest(); ok && isNew {
//	    // process frame
//	}
package capture

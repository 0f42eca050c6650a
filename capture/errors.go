package capture

import "errors"

// Capture errors. Sources wrap the driver error beneath one of these so
// callers can classify failures with errors.Is.
var (
	// ErrDeviceUnavailable is returned by Open when no device exists or no
	// packed-YUV mode can be negotiated.
	ErrDeviceUnavailable = errors.New("capture: device unavailable")

	// ErrStreamStart is returned by Start when the driver refuses to stream.
	ErrStreamStart = errors.New("capture: stream start failed")

	// ErrCapture is returned by NextFrame on a hard driver fault. It ends
	// the capture session.
	ErrCapture = errors.New("capture: capture error")

	// ErrNotStreaming is returned by NextFrame before Start or after Stop.
	ErrNotStreaming = errors.New("capture: source is not streaming")
)

package camview

import (
	"errors"

	"github.com/gogpu/camview/capture"
	"github.com/gogpu/camview/frame"
	"github.com/gogpu/camview/internal/gpu"
)

// Errors returned by the pipeline and its stages. Test with errors.Is.
var (
	// Setup errors, returned from New or Ready.
	ErrDeviceUnavailable = capture.ErrDeviceUnavailable
	ErrStreamStart       = capture.ErrStreamStart
	ErrAdapterOrDevice   = gpu.ErrAdapterOrDevice
	ErrPipelineCreation  = gpu.ErrPipelineCreation

	// ErrCapture ends the capture session; Wait returns it.
	ErrCapture = capture.ErrCapture

	// Per-frame errors. The frame is dropped, logged and counted in Stats.
	ErrSurfaceAcquire = gpu.ErrSurfaceAcquire
	ErrConversion     = gpu.ErrConversion
	ErrPresent        = gpu.ErrPresent
	ErrInvalidFrame   = frame.ErrInvalidFrame

	// ErrClosed is returned by a frame channel after it has been closed.
	ErrClosed = frame.ErrClosed
)

var (
	// ErrInvalidConfig is returned by Config.Validate and New.
	ErrInvalidConfig = errors.New("camview: invalid config")

	// ErrPipelineClosed is returned by Ready after Close.
	ErrPipelineClosed = errors.New("camview: pipeline closed")

	// ErrAlreadyStarted is returned by a second call to Ready.
	ErrAlreadyStarted = errors.New("camview: pipeline already started")
)

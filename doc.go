// Package camview streams frames from a camera to a GPU surface.
//
// # Overview
//
// camview captures packed YUV 4:2:2 frames (YUYV or UYVY) from a V4L2
// camera, converts them to RGBA with a compute shader and draws them over
// the whole window with a textured full-screen pass. It is Pure Go and
// builds on gogpu/wgpu's HAL, with Vulkan for real devices and the noop
// backend for headless runs and tests.
//
// The Vulkan backend's FFI layer requires cgo to be disabled, and the V4L2
// binding is pure Go, so the module builds with:
//
//	CGO_ENABLED=0 go build ./...
//
// # Quick Start
//
//	src := capture.NewV4L2(capture.V4L2Config{})
//	p, err := camview.New(src, camview.WindowTarget{Display: d, Window: w}, 1280, 720)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer p.Close()
//
//	if err := p.Ready(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	// Forward window resizes with p.Resize(w, h).
//	if err := p.Wait(); err != nil {
//	    log.Print(err)
//	}
//
// # Architecture
//
// Two goroutines share one bounded frame.Channel:
//
//	capture: Source.NextFrame -> frame.Channel.Send
//	render:  frame.Channel.Recv -> Converter.Convert -> PresentStage.Present
//
// The channel defaults to three frames with DropOldest, which keeps preview
// latency low when the GPU falls behind. Block and Unbounded are available
// through WithQueue.
//
// Conversion runs on the GPU by default. ConversionCPUScalar and
// ConversionCPUParallel convert on the CPU and upload the result; they also
// downscale frames larger than the device's texture limit.
//
// # Errors
//
// Setup failures (ErrDeviceUnavailable, ErrStreamStart, ErrAdapterOrDevice,
// ErrPipelineCreation) are returned from New and Ready. Per-frame failures
// (ErrConversion, ErrPresent, ErrSurfaceAcquire) drop the frame, are logged
// at Warn and counted in Stats. A capture fault (ErrCapture) ends the stream
// and is returned by Wait.
//
// # Logging
//
// camview logs through log/slog and is silent by default. See SetLogger.
package camview

// Package gpu converts packed YUV camera frames to RGBA on the GPU and
// presents them to a window or offscreen surface.
//
// It is built directly on the gogpu/wgpu HAL (zero CGO). Vulkan is the
// production backend; the noop backend runs the same code paths headless.
//
// # Architecture Overview
//
// A frame moves through two stages that share one Context:
//
//	RawFrame -> ColorConvertStage (compute) -> DisplayTexture -> PresentStage (render) -> Surface
//
// Key components:
//
//   - Context: adapter, device, queue, pipelines and the surface configuration
//   - ColorConvertStage: uploads a frame and dispatches the YUYV/UYVY compute shader
//   - CPUConvertStage: the same conversion on the CPU, uploaded with WriteTexture
//   - PresentStage: full-screen textured draw with acquire retry
//   - ResizeHandler: clamps and applies host resize notifications
//
// # Shaders
//
// Both shaders are embedded WGSL. The compute shader runs one invocation per
// pixel in 16x16 workgroups:
//
//	@group(0) @binding(0) var<storage, read>       yuv:    array<u32>
//	@group(0) @binding(1) var<storage, read_write> rgba:   array<u32>
//	@group(0) @binding(2) var<uniform>             params: Params
//
// The render shader synthesises its geometry from the vertex index, either
// a six-vertex quad (vs_quad) or a three-vertex triangle (vs_triangle), and
// samples the converted texture in fs_main.
//
// With Options.ShaderIR set to ShaderIRSPIRV the WGSL is compiled to SPIR-V
// with gogpu/naga before module creation.
//
// # Thread Safety
//
// Conversion and presentation run on one goroutine. Context.Reconfigure and
// ResizeHandler.HandleResize may be called from any goroutine; the surface
// configuration is guarded by the context lock, which presentation also
// holds between acquire and present.
//
// # Error Handling
//
//   - ErrAdapterOrDevice, ErrPipelineCreation: setup failures, fatal
//   - ErrSurfaceAcquire: acquire failed after all retries
//   - ErrConversion, ErrPresent: the frame is dropped
//   - ErrClosed: the context has been closed
package gpu

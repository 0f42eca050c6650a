package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// SurfaceConfig is the presentation configuration of a Context. It is the
// only mutable state shared between the render goroutine and resize
// notifications, and is guarded by the context lock.
type SurfaceConfig struct {
	Width, Height   uint32
	Format          gputypes.TextureFormat
	PresentMode     gputypes.PresentMode
	AlphaMode       gputypes.CompositeAlphaMode
	MaxFrameLatency uint32
}

// HAL returns the HAL form of the configuration.
func (c SurfaceConfig) HAL() *hal.SurfaceConfiguration {
	return &hal.SurfaceConfiguration{
		Width:       c.Width,
		Height:      c.Height,
		Format:      c.Format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: c.PresentMode,
		AlphaMode:   c.AlphaMode,
	}
}

// String formats the configuration for logs.
func (c SurfaceConfig) String() string {
	return fmt.Sprintf("%dx%d %s", c.Width, c.Height, c.Format)
}

// Surface is a presentation target: a window swapchain or an offscreen
// texture ring.
type Surface interface {
	// Capabilities reports the formats and alpha modes the surface supports
	// with adapter. adapter may be nil when the device is host-owned.
	Capabilities(adapter hal.Adapter) *hal.SurfaceCapabilities

	// Configure (re)creates the swapchain for cfg.
	Configure(device hal.Device, cfg SurfaceConfig) error

	// Unconfigure releases the swapchain.
	Unconfigure(device hal.Device)

	// Acquire returns the next texture to render into. Errors are
	// transient; the caller reconfigures and retries.
	Acquire() (hal.SurfaceTexture, error)

	// Present queues an acquired texture for display.
	Present(queue hal.Queue, tex hal.SurfaceTexture) error

	// Discard returns an acquired texture without presenting it.
	Discard(tex hal.SurfaceTexture)

	// Destroy releases the surface.
	Destroy()
}

// Target creates the Surface a Context presents to.
type Target interface {
	// CreateSurface creates the surface on instance. instance is nil when
	// the Context shares a host-owned device.
	CreateSurface(instance hal.Instance) (Surface, error)
}

// rawSurface is implemented by surfaces backed by a HAL surface, so adapter
// enumeration can be filtered for compatibility.
type rawSurface interface {
	Raw() hal.Surface
}

// chooseSurfaceConfig derives the initial configuration from the surface
// capabilities. An sRGB format is preferred unless the host asks for a
// specific one.
func chooseSurfaceConfig(caps *hal.SurfaceCapabilities, width, height int, preferred gputypes.TextureFormat) SurfaceConfig {
	w, h := clampSize(width, height)
	cfg := SurfaceConfig{
		Width:           w,
		Height:          h,
		Format:          gputypes.TextureFormatBGRA8UnormSrgb,
		PresentMode:     gputypes.PresentModeFifo,
		AlphaMode:       gputypes.CompositeAlphaModeOpaque,
		MaxFrameLatency: DefaultMaxFrameLatency,
	}
	if caps != nil {
		if len(caps.Formats) > 0 {
			cfg.Format = caps.Formats[0]
			for _, f := range caps.Formats {
				if f.IsSrgb() {
					cfg.Format = f
					break
				}
			}
		}
		if len(caps.AlphaModes) > 0 {
			cfg.AlphaMode = caps.AlphaModes[0]
		}
	}
	if preferred != gputypes.TextureFormatUndefined {
		cfg.Format = preferred
	}
	return cfg
}

// clampSize converts a requested size to surface dimensions of at least 1.
func clampSize(width, height int) (uint32, uint32) {
	return uint32(max(width, 1)), uint32(max(height, 1)) //nolint:gosec // clamped positive
}

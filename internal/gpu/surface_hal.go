package gpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/wgpu/hal"
)

// WindowTarget presents to a native window through the HAL surface API.
type WindowTarget struct {
	// Display is the native display handle (X11 Display*, Wayland
	// wl_display*); zero on platforms that have none.
	Display uintptr

	// Window is the native window handle.
	Window uintptr
}

// CreateSurface creates a HAL surface for the window.
func (t WindowTarget) CreateSurface(instance hal.Instance) (Surface, error) {
	if instance == nil {
		return nil, errors.New("gpu: window target requires an owned instance")
	}
	raw, err := instance.CreateSurface(t.Display, t.Window)
	if err != nil {
		return nil, fmt.Errorf("gpu: create window surface: %w", err)
	}
	return &halSurface{raw: raw}, nil
}

// halSurface adapts a hal.Surface to Surface.
type halSurface struct {
	raw hal.Surface
}

func (s *halSurface) Raw() hal.Surface { return s.raw }

func (s *halSurface) Capabilities(adapter hal.Adapter) *hal.SurfaceCapabilities {
	if adapter == nil {
		return nil
	}
	return adapter.SurfaceCapabilities(s.raw)
}

func (s *halSurface) Configure(device hal.Device, cfg SurfaceConfig) error {
	return s.raw.Configure(device, cfg.HAL())
}

func (s *halSurface) Unconfigure(device hal.Device) {
	s.raw.Unconfigure(device)
}

func (s *halSurface) Acquire() (hal.SurfaceTexture, error) {
	acquired, err := s.raw.AcquireTexture(nil)
	if err != nil {
		return nil, err
	}
	if acquired.Suboptimal {
		slogger().Debug("gpu: suboptimal surface texture")
	}
	return acquired.Texture, nil
}

func (s *halSurface) Present(queue hal.Queue, tex hal.SurfaceTexture) error {
	return queue.Present(s.raw, tex, nil)
}

func (s *halSurface) Discard(tex hal.SurfaceTexture) {
	s.raw.DiscardTexture(tex)
}

func (s *halSurface) Destroy() {
	s.raw.Destroy()
}

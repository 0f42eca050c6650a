package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// OffscreenTarget presents into a ring of device textures instead of a
// window. It is used for headless runs and tests.
type OffscreenTarget struct{}

// CreateSurface returns a new OffscreenSurface.
func (OffscreenTarget) CreateSurface(hal.Instance) (Surface, error) {
	return &OffscreenSurface{}, nil
}

// OffscreenSurface is a Surface backed by MaxFrameLatency device textures
// used round-robin.
type OffscreenSurface struct {
	mu        sync.Mutex
	device    hal.Device
	cfg       SurfaceConfig
	ring      []hal.Texture
	next      int
	acquired  hal.Texture
	presented uint64
}

// offscreenCapabilities are the formats the texture ring can be created in.
var offscreenCapabilities = hal.SurfaceCapabilities{
	Formats: []gputypes.TextureFormat{
		gputypes.TextureFormatRGBA8UnormSrgb,
		gputypes.TextureFormatRGBA8Unorm,
	},
	PresentModes: []gputypes.PresentMode{gputypes.PresentModeFifo},
	AlphaModes:   []gputypes.CompositeAlphaMode{gputypes.CompositeAlphaModeOpaque},
}

func (s *OffscreenSurface) Capabilities(hal.Adapter) *hal.SurfaceCapabilities {
	caps := offscreenCapabilities
	return &caps
}

// Configure replaces the texture ring with textures of the configured size.
func (s *OffscreenSurface) Configure(device hal.Device, cfg SurfaceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int(max(cfg.MaxFrameLatency, 1))
	ring := make([]hal.Texture, 0, n)
	for i := 0; i < n; i++ {
		tex, err := device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("offscreen_frame_%d", i),
			Size:          hal.Extent3D{Width: cfg.Width, Height: cfg.Height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        cfg.Format,
			Usage:         gputypes.TextureUsageRenderAttachment | gputypes.TextureUsageCopySrc,
		})
		if err != nil {
			for _, t := range ring {
				device.DestroyTexture(t)
			}
			return fmt.Errorf("create offscreen texture: %w", err)
		}
		ring = append(ring, tex)
	}

	s.destroyRing()
	s.device = device
	s.cfg = cfg
	s.ring = ring
	s.next = 0
	return nil
}

func (s *OffscreenSurface) Unconfigure(hal.Device) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyRing()
}

func (s *OffscreenSurface) destroyRing() {
	if s.device != nil {
		for _, t := range s.ring {
			s.device.DestroyTexture(t)
		}
	}
	s.ring = nil
	s.acquired = nil
}

// Acquire returns the next texture of the ring.
func (s *OffscreenSurface) Acquire() (hal.SurfaceTexture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ring) == 0 {
		return nil, hal.ErrSurfaceOutdated
	}
	tex := s.ring[s.next]
	s.next = (s.next + 1) % len(s.ring)
	s.acquired = tex
	return tex, nil
}

// Present marks the acquired texture as displayed.
func (s *OffscreenSurface) Present(_ hal.Queue, tex hal.SurfaceTexture) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.acquired == nil || hal.Texture(tex) != s.acquired {
		return fmt.Errorf("gpu: present of a texture that was not acquired")
	}
	s.acquired = nil
	s.presented++
	return nil
}

func (s *OffscreenSurface) Discard(hal.SurfaceTexture) {
	s.mu.Lock()
	s.acquired = nil
	s.mu.Unlock()
}

func (s *OffscreenSurface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyRing()
	s.device = nil
}

// Presented returns the number of frames presented.
func (s *OffscreenSurface) Presented() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presented
}

// Config returns the active configuration.
func (s *OffscreenSurface) Config() SurfaceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

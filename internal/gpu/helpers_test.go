package gpu

import (
	"sync"
	"testing"

	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camview/frame"
)

// noopOptions returns DefaultOptions on the noop backend.
func noopOptions() Options {
	opts := DefaultOptions()
	opts.Backend = BackendNoop
	return opts
}

// createNoopContext builds a Context on the noop backend presenting to t.
func createNoopContext(t *testing.T, target Target, width, height int) *Context {
	t.Helper()
	c, err := NewContext(target, width, height, noopOptions())
	if err != nil {
		t.Fatalf("NewContext failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

// countingSurface wraps a Surface, records configurations and can fail a
// number of acquires.
type countingSurface struct {
	Surface

	mu           sync.Mutex
	configures   []SurfaceConfig
	failAcquires int
	acquires     int
}

func (s *countingSurface) Configure(device hal.Device, cfg SurfaceConfig) error {
	s.mu.Lock()
	s.configures = append(s.configures, cfg)
	s.mu.Unlock()
	return s.Surface.Configure(device, cfg)
}

func (s *countingSurface) Acquire() (hal.SurfaceTexture, error) {
	s.mu.Lock()
	s.acquires++
	if s.failAcquires > 0 {
		s.failAcquires--
		s.mu.Unlock()
		return nil, hal.ErrSurfaceOutdated
	}
	s.mu.Unlock()
	return s.Surface.Acquire()
}

func (s *countingSurface) configs() []SurfaceConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SurfaceConfig(nil), s.configures...)
}

func (s *countingSurface) presented() uint64 {
	return s.Surface.(*OffscreenSurface).Presented()
}

// countingTarget creates an offscreen countingSurface.
type countingTarget struct {
	failAcquires int
	surface      *countingSurface
}

func (t *countingTarget) CreateSurface(instance hal.Instance) (Surface, error) {
	inner, err := OffscreenTarget{}.CreateSurface(instance)
	if err != nil {
		return nil, err
	}
	t.surface = &countingSurface{Surface: inner, failAcquires: t.failAcquires}
	return t.surface, nil
}

// testFrame returns a solid mid-grey frame.
func testFrame(w, h int, seq uint64) *frame.RawFrame {
	data := make([]byte, frame.FrameSize(w, h))
	for i := range data {
		data[i] = 128
	}
	return &frame.RawFrame{Data: data, Width: w, Height: h, Seq: seq}
}

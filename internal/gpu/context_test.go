package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"

	"github.com/gogpu/camview/frame"
)

func TestNewContext_Offscreen(t *testing.T) {
	target := &countingTarget{}
	c := createNoopContext(t, target, 640, 480)

	cfg := c.SurfaceConfig()
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Errorf("surface size = %dx%d, want 640x480", cfg.Width, cfg.Height)
	}
	if cfg.Format != gputypes.TextureFormatRGBA8UnormSrgb {
		t.Errorf("format = %v, want RGBA8UnormSrgb", cfg.Format)
	}
	if cfg.PresentMode != gputypes.PresentModeFifo {
		t.Errorf("present mode = %v, want Fifo", cfg.PresentMode)
	}
	if cfg.MaxFrameLatency != DefaultMaxFrameLatency {
		t.Errorf("latency = %d, want %d", cfg.MaxFrameLatency, DefaultMaxFrameLatency)
	}
	if got := len(target.surface.configs()); got != 1 {
		t.Errorf("surface configured %d times, want 1", got)
	}
	if c.MaxTextureDimension() != gputypes.DefaultLimits().MaxTextureDimension2D {
		t.Errorf("MaxTextureDimension() = %d", c.MaxTextureDimension())
	}
}

func TestNewContext_Window(t *testing.T) {
	c := createNoopContext(t, WindowTarget{Display: 1, Window: 2}, 320, 240)

	// The noop adapter reports BGRA8Unorm first and no sRGB format.
	if f := c.SurfaceConfig().Format; f != gputypes.TextureFormatBGRA8Unorm {
		t.Errorf("format = %v, want BGRA8Unorm", f)
	}
	if a := c.SurfaceConfig().AlphaMode; a != gputypes.CompositeAlphaModeOpaque {
		t.Errorf("alpha mode = %v, want Opaque", a)
	}
	if c.AdapterInfo().Name == "" {
		t.Error("adapter name is empty")
	}
}

func TestNewContext_ZeroSizeClamped(t *testing.T) {
	c := createNoopContext(t, OffscreenTarget{}, 0, -5)
	w, h := c.SurfaceSize()
	if w != 1 || h != 1 {
		t.Errorf("SurfaceSize() = %dx%d, want 1x1", w, h)
	}
}

func TestNewContext_SPIRV(t *testing.T) {
	opts := noopOptions()
	opts.ShaderIR = ShaderIRSPIRV
	c, err := NewContext(OffscreenTarget{}, 64, 64, opts)
	if err != nil {
		skipOnNagaLimitation(t, err)
		t.Fatalf("NewContext with SPIR-V failed: %v", err)
	}
	c.Close()
}

func TestWindowTarget_NilInstance(t *testing.T) {
	if _, err := (WindowTarget{}).CreateSurface(nil); err == nil {
		t.Error("CreateSurface(nil) succeeded, want error")
	}
}

func TestContext_Reconfigure(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  uint32
	}{
		{"grow", 1280, 720, 1280, 720},
		{"shrink", 16, 9, 16, 9},
		{"zero width", 0, 100, 1, 100},
		{"zero height", 100, 0, 100, 1},
		{"negative", -10, -10, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &countingTarget{}
			c := createNoopContext(t, target, 640, 480)

			if err := c.Reconfigure(tt.width, tt.height); err != nil {
				t.Fatalf("Reconfigure() error = %v", err)
			}
			cfg := c.SurfaceConfig()
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
			for i, rc := range target.surface.configs() {
				if rc.Width == 0 || rc.Height == 0 {
					t.Errorf("configure %d received zero dimension %dx%d", i, rc.Width, rc.Height)
				}
			}
		})
	}
}

func TestContext_CloseIdempotent(t *testing.T) {
	c, err := NewContext(OffscreenTarget{}, 8, 8, noopOptions())
	if err != nil {
		t.Fatal(err)
	}
	c.Close()
	c.Close()
	if err := c.Reconfigure(10, 10); !errors.Is(err, ErrClosed) {
		t.Errorf("Reconfigure after Close error = %v, want ErrClosed", err)
	}
}

func TestSelectAdapter(t *testing.T) {
	adapter := func(name string, dt gputypes.DeviceType) hal.ExposedAdapter {
		return hal.ExposedAdapter{Info: gputypes.AdapterInfo{Name: name, DeviceType: dt}}
	}
	tests := []struct {
		name     string
		adapters []hal.ExposedAdapter
		want     string
	}{
		{"none", nil, ""},
		{"only cpu", []hal.ExposedAdapter{adapter("cpu", gputypes.DeviceTypeCPU)}, "cpu"},
		{
			"discrete over integrated",
			[]hal.ExposedAdapter{
				adapter("igpu", gputypes.DeviceTypeIntegratedGPU),
				adapter("dgpu", gputypes.DeviceTypeDiscreteGPU),
			},
			"dgpu",
		},
		{
			"integrated over other",
			[]hal.ExposedAdapter{
				adapter("virt", gputypes.DeviceTypeVirtualGPU),
				adapter("igpu", gputypes.DeviceTypeIntegratedGPU),
			},
			"igpu",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectAdapter(tt.adapters)
			if tt.want == "" {
				if got != nil {
					t.Errorf("selectAdapter() = %q, want nil", got.Info.Name)
				}
				return
			}
			if got == nil || got.Info.Name != tt.want {
				t.Errorf("selectAdapter() = %v, want %q", got, tt.want)
			}
		})
	}
}

func TestChooseSurfaceConfig(t *testing.T) {
	tests := []struct {
		name      string
		caps      *hal.SurfaceCapabilities
		preferred gputypes.TextureFormat
		want      gputypes.TextureFormat
		wantAlpha gputypes.CompositeAlphaMode
	}{
		{
			name:      "no caps",
			want:      gputypes.TextureFormatBGRA8UnormSrgb,
			wantAlpha: gputypes.CompositeAlphaModeOpaque,
		},
		{
			name: "srgb preferred",
			caps: &hal.SurfaceCapabilities{
				Formats:    []gputypes.TextureFormat{gputypes.TextureFormatBGRA8Unorm, gputypes.TextureFormatBGRA8UnormSrgb},
				AlphaModes: []gputypes.CompositeAlphaMode{gputypes.CompositeAlphaModePremultiplied},
			},
			want:      gputypes.TextureFormatBGRA8UnormSrgb,
			wantAlpha: gputypes.CompositeAlphaModePremultiplied,
		},
		{
			name: "first when no srgb",
			caps: &hal.SurfaceCapabilities{
				Formats: []gputypes.TextureFormat{gputypes.TextureFormatRGBA8Unorm},
			},
			want:      gputypes.TextureFormatRGBA8Unorm,
			wantAlpha: gputypes.CompositeAlphaModeOpaque,
		},
		{
			name: "host format wins",
			caps: &hal.SurfaceCapabilities{
				Formats: []gputypes.TextureFormat{gputypes.TextureFormatBGRA8UnormSrgb},
			},
			preferred: gputypes.TextureFormatRGBA8Unorm,
			want:      gputypes.TextureFormatRGBA8Unorm,
			wantAlpha: gputypes.CompositeAlphaModeOpaque,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := chooseSurfaceConfig(tt.caps, 100, 50, tt.preferred)
			if cfg.Format != tt.want {
				t.Errorf("Format = %v, want %v", cfg.Format, tt.want)
			}
			if cfg.AlphaMode != tt.wantAlpha {
				t.Errorf("AlphaMode = %v, want %v", cfg.AlphaMode, tt.wantAlpha)
			}
			if cfg.PresentMode != gputypes.PresentModeFifo || cfg.MaxFrameLatency != 2 {
				t.Errorf("PresentMode=%v latency=%d, want Fifo and 2", cfg.PresentMode, cfg.MaxFrameLatency)
			}
		})
	}
}

// halDeviceProvider shares a noop device the way a host window library
// does.
type halDeviceProvider struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
}

func (p *halDeviceProvider) Device() gpucontext.Device             { return p.device }
func (p *halDeviceProvider) Queue() gpucontext.Queue               { return p.queue }
func (p *halDeviceProvider) SurfaceFormat() gputypes.TextureFormat { return p.format }
func (p *halDeviceProvider) Adapter() gpucontext.Adapter           { return nil }
func (p *halDeviceProvider) HalDevice() any                        { return p.device }
func (p *halDeviceProvider) HalQueue() any                         { return p.queue }

func (p *halDeviceProvider) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: "host", Type: gpucontext.AdapterTypeIntegrated}
}

func TestNewContextFromProvider(t *testing.T) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer instance.Destroy()
	openDev, err := instance.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	defer openDev.Device.Destroy()

	provider := &halDeviceProvider{
		device: openDev.Device,
		queue:  openDev.Queue,
		format: gputypes.TextureFormatRGBA8Unorm,
	}
	c, err := NewContextFromProvider(provider, OffscreenTarget{}, 200, 100, noopOptions())
	if err != nil {
		t.Fatalf("NewContextFromProvider() error = %v", err)
	}
	defer c.Close()

	if f := c.SurfaceConfig().Format; f != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("format = %v, want provider format RGBA8Unorm", f)
	}
	if info := c.AdapterInfo(); info.Name != "host" || info.DeviceType != gputypes.DeviceTypeIntegratedGPU {
		t.Errorf("AdapterInfo() = %+v", info)
	}

	if _, err := NewContextFromProvider(provider, WindowTarget{}, 1, 1, noopOptions()); !errors.Is(err, ErrAdapterOrDevice) {
		t.Errorf("window target on shared device error = %v, want ErrAdapterOrDevice", err)
	}
}

func TestNewContextFromProvider_NoHAL(t *testing.T) {
	var p gpucontext.DeviceProvider = struct{ gpucontext.DeviceProvider }{}
	if _, err := NewContextFromProvider(p, OffscreenTarget{}, 1, 1, noopOptions()); !errors.Is(err, ErrAdapterOrDevice) {
		t.Errorf("error = %v, want ErrAdapterOrDevice", err)
	}
}

func TestParseOptions(t *testing.T) {
	for _, b := range []Backend{BackendVulkan, BackendNoop} {
		if got, err := ParseBackend(b.String()); err != nil || got != b {
			t.Errorf("ParseBackend(%q) = %v, %v", b, got, err)
		}
	}
	for _, ir := range []ShaderIR{ShaderIRWGSL, ShaderIRSPIRV} {
		if got, err := ParseShaderIR(ir.String()); err != nil || got != ir {
			t.Errorf("ParseShaderIR(%q) = %v, %v", ir, got, err)
		}
	}
	for _, d := range []DrawVariant{DrawQuad, DrawTriangle} {
		if got, err := ParseDrawVariant(d.String()); err != nil || got != d {
			t.Errorf("ParseDrawVariant(%q) = %v, %v", d, got, err)
		}
	}
	if _, err := ParseBackend("metal"); err == nil {
		t.Error("ParseBackend(metal) succeeded")
	}
	if DrawQuad.vertexCount() != 6 || DrawTriangle.vertexCount() != 3 {
		t.Error("unexpected vertex counts")
	}
}

// limitedDevice is a HAL device that reports the limits it was opened with,
// as wgpu.Device does.
type limitedDevice struct {
	hal.Device
	limits gputypes.Limits
}

func (d limitedDevice) Limits() gputypes.Limits { return d.limits }

// limitedProvider reports its device limits itself.
type limitedProvider struct {
	*halDeviceProvider
	limits gputypes.Limits
}

func (p limitedProvider) Limits() gputypes.Limits { return p.limits }

func TestNewContextFromProvider_Limits(t *testing.T) {
	instance, err := noop.API{}.CreateInstance(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer instance.Destroy()
	openDev, err := instance.EnumerateAdapters(nil)[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		t.Fatal(err)
	}
	defer openDev.Device.Destroy()

	small := gputypes.DefaultLimits()
	small.MaxTextureDimension2D = 1024
	defaultDim := gputypes.DefaultLimits().MaxTextureDimension2D

	base := func() *halDeviceProvider {
		return &halDeviceProvider{device: openDev.Device, queue: openDev.Queue}
	}
	tests := []struct {
		name     string
		provider gpucontext.DeviceProvider
		want     uint32
	}{
		{"defaults", base(), defaultDim},
		{"provider limits", limitedProvider{base(), small}, 1024},
		{"device limits", &halDeviceProvider{device: limitedDevice{openDev.Device, small}, queue: openDev.Queue}, 1024},
		{"zero limits ignored", limitedProvider{base(), gputypes.Limits{}}, defaultDim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewContextFromProvider(tt.provider, OffscreenTarget{}, 64, 64, noopOptions())
			if err != nil {
				t.Fatalf("NewContextFromProvider() error = %v", err)
			}
			defer c.Close()
			if got := c.MaxTextureDimension(); got != tt.want {
				t.Errorf("MaxTextureDimension() = %d, want %d", got, tt.want)
			}

			f := testFrame(int(tt.want)+2, 2, 1)
			if _, err := NewColorConvertStage(c).Convert(f); !errors.Is(err, frame.ErrInvalidFrame) {
				t.Errorf("Convert(%d wide) error = %v, want ErrInvalidFrame", f.Width, err)
			}
		})
	}
}

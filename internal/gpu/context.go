// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Register the HAL backends selectable through Options.Backend.
	_ "github.com/gogpu/wgpu/hal/noop"
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// Context owns the GPU device, the presentation surface and the two
// pipelines of the viewer: the YUV compute conversion and the full-screen
// textured draw.
//
// The device, queue and pipelines are immutable after construction. The
// surface configuration is guarded by mu, which is also held from surface
// acquire to present so a resize never reconfigures a surface with a frame
// in flight.
type Context struct {
	opts Options

	instance hal.Instance
	adapter  hal.Adapter
	device   hal.Device
	queue    hal.Queue
	info     gputypes.AdapterInfo
	limits   gputypes.Limits

	// externalDevice is true when the device belongs to a host provider and
	// must not be destroyed on Close.
	externalDevice bool

	mu      sync.Mutex
	surface Surface
	config  SurfaceConfig
	closed  bool

	computeShader     hal.ShaderModule
	computeBindLayout hal.BindGroupLayout
	computePipeLayout hal.PipelineLayout
	computePipeline   hal.ComputePipeline

	renderShader     hal.ShaderModule
	renderBindLayout hal.BindGroupLayout
	renderPipeLayout hal.PipelineLayout
	renderPipeline   hal.RenderPipeline
	sampler          hal.Sampler
}

// NewContext opens the backend selected by opts, creates the surface for
// target, picks an adapter and builds the pipelines. The surface is
// configured once at width x height.
func NewContext(target Target, width, height int, opts Options) (*Context, error) {
	backend, ok := hal.GetBackend(opts.Backend.variant())
	if !ok {
		return nil, fmt.Errorf("%w: %s backend not available", ErrAdapterOrDevice, opts.Backend)
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", ErrAdapterOrDevice, err)
	}

	c := &Context{opts: opts, instance: instance}

	surface, err := target.CreateSurface(instance)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: %w", ErrAdapterOrDevice, err)
	}
	c.surface = surface

	var hint hal.Surface
	if rs, ok := surface.(rawSurface); ok {
		hint = rs.Raw()
	}
	selected := selectAdapter(instance.EnumerateAdapters(hint))
	if selected == nil {
		c.Close()
		return nil, fmt.Errorf("%w: no adapters found", ErrAdapterOrDevice)
	}

	limits := gputypes.DefaultLimits()
	openDev, err := selected.Adapter.Open(gputypes.Features(0), limits)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("%w: open device on %s: %w", ErrAdapterOrDevice, selected.Info.Name, err)
	}
	c.adapter = selected.Adapter
	c.device = openDev.Device
	c.queue = openDev.Queue
	c.info = selected.Info
	c.limits = limits

	slogger().Info("gpu: adapter selected",
		"name", selected.Info.Name,
		"type", selected.Info.DeviceType,
		"backend", opts.Backend.String())

	if err := c.init(width, height, gputypes.TextureFormatUndefined); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// NewContextFromProvider builds a Context on a device owned by the host.
// The provider must expose HalDevice() any and HalQueue() any returning
// hal.Device and hal.Queue. The provider's surface format, when defined,
// overrides the format chosen from the surface capabilities.
func NewContextFromProvider(provider gpucontext.DeviceProvider, target Target, width, height int, opts Options) (*Context, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", ErrAdapterOrDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", ErrAdapterOrDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", ErrAdapterOrDevice)
	}

	surface, err := target.CreateSurface(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAdapterOrDevice, err)
	}

	c := &Context{
		opts:           opts,
		device:         device,
		queue:          queue,
		limits:         providerLimits(provider),
		externalDevice: true,
		surface:        surface,
	}
	if a, ok := provider.Adapter().(hal.Adapter); ok {
		c.adapter = a
	}
	pi := provider.AdapterInfo()
	c.info = gputypes.AdapterInfo{Name: pi.Name, DeviceType: deviceType(pi.Type)}

	slogger().Info("gpu: using shared device", "name", pi.Name, "type", pi.Type.String())

	if err := c.init(width, height, provider.SurfaceFormat()); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// limitsReporter is implemented by wgpu's Device and Adapter and by hosts
// that know the limits their device was opened with.
type limitsReporter interface {
	Limits() gputypes.Limits
}

// providerLimits returns the limits of a host device. It asks the provider,
// then its device, then its adapter, and falls back to the WebGPU defaults
// when none of them reports usable limits.
func providerLimits(provider gpucontext.DeviceProvider) gputypes.Limits {
	for _, v := range []any{provider, provider.Device(), provider.Adapter()} {
		if r, ok := v.(limitsReporter); ok {
			if l := r.Limits(); l.MaxTextureDimension2D > 0 {
				return l
			}
		}
	}
	slogger().Debug("gpu: shared device reports no limits, assuming defaults")
	return gputypes.DefaultLimits()
}

// init builds the pipelines and configures the surface.
func (c *Context) init(width, height int, preferred gputypes.TextureFormat) error {
	cfg := chooseSurfaceConfig(c.surface.Capabilities(c.adapter), width, height, preferred)

	if err := c.createComputePipeline(); err != nil {
		return fmt.Errorf("%w: %w", ErrPipelineCreation, err)
	}
	if err := c.createRenderPipeline(cfg.Format); err != nil {
		return fmt.Errorf("%w: %w", ErrPipelineCreation, err)
	}

	if err := c.surface.Configure(c.device, cfg); err != nil {
		return fmt.Errorf("%w: configure surface %s: %w", ErrAdapterOrDevice, cfg, err)
	}
	c.config = cfg
	slogger().Info("gpu: surface configured",
		"width", cfg.Width, "height", cfg.Height,
		"format", cfg.Format.String(), "latency", cfg.MaxFrameLatency)
	return nil
}

// selectAdapter prefers a discrete GPU, then an integrated one, then the
// first adapter reported.
func selectAdapter(adapters []hal.ExposedAdapter) *hal.ExposedAdapter {
	if len(adapters) == 0 {
		return nil
	}
	for _, want := range []gputypes.DeviceType{gputypes.DeviceTypeDiscreteGPU, gputypes.DeviceTypeIntegratedGPU} {
		for i := range adapters {
			if adapters[i].Info.DeviceType == want {
				return &adapters[i]
			}
		}
	}
	return &adapters[0]
}

func deviceType(t gpucontext.AdapterType) gputypes.DeviceType {
	switch t {
	case gpucontext.AdapterTypeDiscrete:
		return gputypes.DeviceTypeDiscreteGPU
	case gpucontext.AdapterTypeIntegrated:
		return gputypes.DeviceTypeIntegratedGPU
	case gpucontext.AdapterTypeSoftware:
		return gputypes.DeviceTypeCPU
	default:
		return gputypes.DeviceTypeOther
	}
}

func (c *Context) createComputePipeline() error {
	shader, err := createShader(c.device, c.opts.ShaderIR, "yuyv_to_rgba", convertShaderSource)
	if err != nil {
		return err
	}
	c.computeShader = shader

	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "yuyv_to_rgba_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: 0, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}},
			{Binding: 1, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
			{Binding: 2, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
		},
	})
	if err != nil {
		return fmt.Errorf("create compute bind group layout: %w", err)
	}
	c.computeBindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "yuyv_to_rgba_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.computeBindLayout},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline layout: %w", err)
	}
	c.computePipeLayout = pipeLayout

	pipeline, err := c.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:   "yuyv_to_rgba_pipeline",
		Layout:  c.computePipeLayout,
		Compute: hal.ComputeState{Module: c.computeShader, EntryPoint: convertEntryPoint},
	})
	if err != nil {
		return fmt.Errorf("create compute pipeline: %w", err)
	}
	c.computePipeline = pipeline
	return nil
}

func (c *Context) createRenderPipeline(format gputypes.TextureFormat) error {
	shader, err := createShader(c.device, c.opts.ShaderIR, "present", presentShaderSource)
	if err != nil {
		return err
	}
	c.renderShader = shader

	bindLayout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "present_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create render bind group layout: %w", err)
	}
	c.renderBindLayout = bindLayout

	pipeLayout, err := c.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "present_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{c.renderBindLayout},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline layout: %w", err)
	}
	c.renderPipeLayout = pipeLayout

	pipeline, err := c.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "present_pipeline",
		Layout: c.renderPipeLayout,
		Vertex: hal.VertexState{
			Module:     c.renderShader,
			EntryPoint: c.opts.DrawVariant.entryPoint(),
		},
		Fragment: &hal.FragmentState{
			Module:     c.renderShader,
			EntryPoint: presentFragmentEntry,
			Targets: []gputypes.ColorTargetState{
				{Format: format, WriteMask: gputypes.ColorWriteMaskAll},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  gputypes.PrimitiveTopologyTriangleList,
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("create render pipeline: %w", err)
	}
	c.renderPipeline = pipeline

	sampler, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "present_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeNearest,
		LodMaxClamp:  32,
	})
	if err != nil {
		return fmt.Errorf("create sampler: %w", err)
	}
	c.sampler = sampler
	return nil
}

// Reconfigure resizes the surface. Dimensions below 1 are clamped to 1.
// It is safe to call concurrently with presentation.
func (c *Context) Reconfigure(width, height int) error {
	w, h := clampSize(width, height)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return c.reconfigureLocked(w, h)
}

func (c *Context) reconfigureLocked(w, h uint32) error {
	cfg := c.config
	cfg.Width, cfg.Height = w, h
	if err := c.surface.Configure(c.device, cfg); err != nil {
		return fmt.Errorf("gpu: reconfigure surface %s: %w", cfg, err)
	}
	c.config = cfg
	slogger().Debug("gpu: surface reconfigured", "width", w, "height", h)
	return nil
}

// SurfaceConfig returns the current surface configuration.
func (c *Context) SurfaceConfig() SurfaceConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.config
}

// SurfaceSize returns the current surface size in pixels.
func (c *Context) SurfaceSize() (width, height int) {
	cfg := c.SurfaceConfig()
	return int(cfg.Width), int(cfg.Height)
}

func (c *Context) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// AdapterInfo describes the adapter in use.
func (c *Context) AdapterInfo() gputypes.AdapterInfo { return c.info }

// MaxTextureDimension returns the largest 2D texture edge the device
// accepts.
func (c *Context) MaxTextureDimension() uint32 { return c.limits.MaxTextureDimension2D }

// Options returns the options the context was built with.
func (c *Context) Options() Options { return c.opts }

// encode records a command buffer.
func (c *Context) encode(label string, record func(enc hal.CommandEncoder)) (hal.CommandBuffer, error) {
	enc, err := c.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return nil, fmt.Errorf("create command encoder: %w", err)
	}
	if err := enc.BeginEncoding(label); err != nil {
		return nil, fmt.Errorf("begin encoding: %w", err)
	}
	record(enc)
	cmd, err := enc.EndEncoding()
	if err != nil {
		enc.DiscardEncoding()
		return nil, fmt.Errorf("end encoding: %w", err)
	}
	return cmd, nil
}

// awaitSubmission blocks until submission idx has completed.
func (c *Context) awaitSubmission(idx uint64) error {
	if c.queue.PollCompleted() >= idx {
		return nil
	}
	if err := c.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait for GPU: %w", err)
	}
	return nil
}

// submitAndWait submits cmd, waits for it and frees it.
func (c *Context) submitAndWait(cmd hal.CommandBuffer) error {
	defer c.device.FreeCommandBuffer(cmd)
	idx, err := c.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	return c.awaitSubmission(idx)
}

// Close waits for the device to go idle and releases everything the
// context created, in reverse creation order. It is safe to call more than
// once.
func (c *Context) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	if c.device != nil {
		if err := c.device.WaitIdle(); err != nil {
			slogger().Warn("gpu: wait idle on close", "err", err)
		}
		c.destroyPipelines()
		if c.surface != nil {
			c.surface.Unconfigure(c.device)
		}
	}
	if c.surface != nil {
		c.surface.Destroy()
		c.surface = nil
	}
	if !c.externalDevice {
		if c.device != nil {
			c.device.Destroy()
		}
		if c.instance != nil {
			c.instance.Destroy()
		}
	}
	c.device = nil
	c.queue = nil
	c.adapter = nil
	c.instance = nil
	slogger().Info("gpu: context closed")
}

func (c *Context) destroyPipelines() {
	if c.sampler != nil {
		c.device.DestroySampler(c.sampler)
		c.sampler = nil
	}
	if c.renderPipeline != nil {
		c.device.DestroyRenderPipeline(c.renderPipeline)
		c.renderPipeline = nil
	}
	if c.renderPipeLayout != nil {
		c.device.DestroyPipelineLayout(c.renderPipeLayout)
		c.renderPipeLayout = nil
	}
	if c.renderBindLayout != nil {
		c.device.DestroyBindGroupLayout(c.renderBindLayout)
		c.renderBindLayout = nil
	}
	if c.renderShader != nil {
		c.device.DestroyShaderModule(c.renderShader)
		c.renderShader = nil
	}
	if c.computePipeline != nil {
		c.device.DestroyComputePipeline(c.computePipeline)
		c.computePipeline = nil
	}
	if c.computePipeLayout != nil {
		c.device.DestroyPipelineLayout(c.computePipeLayout)
		c.computePipeLayout = nil
	}
	if c.computeBindLayout != nil {
		c.device.DestroyBindGroupLayout(c.computeBindLayout)
		c.computeBindLayout = nil
	}
	if c.computeShader != nil {
		c.device.DestroyShaderModule(c.computeShader)
		c.computeShader = nil
	}
}

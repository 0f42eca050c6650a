package camview

import (
	"fmt"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/camview/capture"
	"github.com/gogpu/camview/frame"
	"github.com/gogpu/camview/internal/gpu"
)

// DefaultQueueCapacity is the frame channel bound used by DefaultConfig.
const DefaultQueueCapacity = 3

// Config holds the pipeline settings. Build one with DefaultConfig and the
// Option functions; New validates it.
type Config struct {
	// QueueCapacity bounds the frame channel. Ignored for frame.Unbounded.
	QueueCapacity int
	Overflow      frame.OverflowPolicy

	Conversion ConversionPath

	// Workers is the pool size for ConversionCPUParallel; 0 uses GOMAXPROCS.
	Workers int

	// Range forces the colour range of every frame when ForceRange is set.
	// Otherwise the range reported by the source is used.
	Range      frame.ColorRange
	ForceRange bool

	// Settle is the delay after stream start before frames are forwarded.
	Settle time.Duration

	// MaxFrames stops the pipeline after this many frames have been
	// rendered or dropped by the render loop; 0 runs until end of stream.
	MaxFrames int

	Backend        Backend
	ShaderIR       ShaderIR
	DrawVariant    DrawVariant
	ClearColor     gputypes.Color
	AcquireRetries int

	// Provider shares a host's device instead of opening one.
	Provider gpucontext.DeviceProvider
}

// DefaultConfig returns a bounded DropOldest queue of three frames, GPU
// conversion on Vulkan and the default capture settle delay.
func DefaultConfig() Config {
	g := gpu.DefaultOptions()
	return Config{
		QueueCapacity:  DefaultQueueCapacity,
		Overflow:       frame.DropOldest,
		Conversion:     ConversionGPU,
		Settle:         capture.DefaultSettleDelay,
		Backend:        g.Backend,
		ShaderIR:       g.ShaderIR,
		DrawVariant:    g.DrawVariant,
		ClearColor:     g.ClearColor,
		AcquireRetries: g.AcquireRetries,
	}
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c Config) Validate() error {
	switch {
	case c.Overflow < frame.DropOldest || c.Overflow > frame.Unbounded:
		return fmt.Errorf("%w: overflow policy %d", ErrInvalidConfig, int(c.Overflow))
	case c.Overflow != frame.Unbounded && c.QueueCapacity < 1:
		return fmt.Errorf("%w: queue capacity %d", ErrInvalidConfig, c.QueueCapacity)
	case c.Conversion < ConversionGPU || c.Conversion > ConversionCPUParallel:
		return fmt.Errorf("%w: conversion path %d", ErrInvalidConfig, int(c.Conversion))
	case c.Workers < 0:
		return fmt.Errorf("%w: workers %d", ErrInvalidConfig, c.Workers)
	case c.Range != frame.RangeFull && c.Range != frame.RangeLimited:
		return fmt.Errorf("%w: color range %d", ErrInvalidConfig, int(c.Range))
	case c.Settle < 0:
		return fmt.Errorf("%w: settle delay %v", ErrInvalidConfig, c.Settle)
	case c.MaxFrames < 0:
		return fmt.Errorf("%w: max frames %d", ErrInvalidConfig, c.MaxFrames)
	case c.AcquireRetries < 0:
		return fmt.Errorf("%w: acquire retries %d", ErrInvalidConfig, c.AcquireRetries)
	case c.Backend != BackendVulkan && c.Backend != BackendNoop:
		return fmt.Errorf("%w: backend %d", ErrInvalidConfig, int(c.Backend))
	case c.ShaderIR != ShaderIRWGSL && c.ShaderIR != ShaderIRSPIRV:
		return fmt.Errorf("%w: shader IR %d", ErrInvalidConfig, int(c.ShaderIR))
	case c.DrawVariant != DrawQuad && c.DrawVariant != DrawTriangle:
		return fmt.Errorf("%w: draw variant %d", ErrInvalidConfig, int(c.DrawVariant))
	}
	return nil
}

// gpuOptions extracts the GPU context options.
func (c Config) gpuOptions() gpu.Options {
	return gpu.Options{
		Backend:        c.Backend,
		ShaderIR:       c.ShaderIR,
		DrawVariant:    c.DrawVariant,
		ClearColor:     c.ClearColor,
		AcquireRetries: c.AcquireRetries,
	}
}

// Option configures a Pipeline during creation.
//
// Example:
//
//	p, err := camview.New(src, camview.OffscreenTarget{}, 640, 480,
//	    camview.WithQueue(5, frame.Block),
//	    camview.WithConversion(camview.ConversionCPUParallel),
//	)
type Option func(*Config)

// WithQueue sets the frame channel capacity and overflow policy.
func WithQueue(capacity int, policy frame.OverflowPolicy) Option {
	return func(c *Config) {
		c.QueueCapacity = capacity
		c.Overflow = policy
	}
}

// WithConversion selects the conversion path.
func WithConversion(p ConversionPath) Option {
	return func(c *Config) {
		c.Conversion = p
	}
}

// WithWorkers sets the worker count of the parallel CPU path.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Workers = n
	}
}

// WithColorRange forces the colour range of every frame.
func WithColorRange(r frame.ColorRange) Option {
	return func(c *Config) {
		c.Range = r
		c.ForceRange = true
	}
}

// WithSettle sets the post-start settle delay. Zero disables it.
func WithSettle(d time.Duration) Option {
	return func(c *Config) {
		c.Settle = d
	}
}

// WithMaxFrames stops the pipeline after n frames.
func WithMaxFrames(n int) Option {
	return func(c *Config) {
		c.MaxFrames = n
	}
}

// WithBackend selects the HAL backend.
func WithBackend(b Backend) Option {
	return func(c *Config) {
		c.Backend = b
	}
}

// WithShaderIR selects the shader module representation.
func WithShaderIR(ir ShaderIR) Option {
	return func(c *Config) {
		c.ShaderIR = ir
	}
}

// WithDrawVariant selects the full-screen geometry.
func WithDrawVariant(d DrawVariant) Option {
	return func(c *Config) {
		c.DrawVariant = d
	}
}

// WithClearColor sets the render-pass clear colour.
func WithClearColor(col gputypes.Color) Option {
	return func(c *Config) {
		c.ClearColor = col
	}
}

// WithAcquireRetries sets how many times a failed surface acquire is
// retried after reconfiguring.
func WithAcquireRetries(n int) Option {
	return func(c *Config) {
		c.AcquireRetries = n
	}
}

// WithDeviceProvider shares the device of a host application. The target
// must be able to create its surface without an instance, such as
// OffscreenTarget.
func WithDeviceProvider(p gpucontext.DeviceProvider) Option {
	return func(c *Config) {
		c.Provider = p
	}
}

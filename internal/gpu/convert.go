// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camview/frame"
)

// DisplayFormat is the format of converted frame textures. Shader output is
// gamma-encoded, so the texture is tagged sRGB and sampling linearises it.
const DisplayFormat = gputypes.TextureFormatRGBA8UnormSrgb

// copyRowAlignment is the WebGPU alignment of bytesPerRow in buffer-texture
// copies.
const copyRowAlignment = 256

// paramsSize is the byte size of the compute params uniform.
const paramsSize = 16

// Converter turns a raw frame into a texture ready for presentation.
type Converter interface {
	Convert(f *frame.RawFrame) (*DisplayTexture, error)
	Name() string
}

// DisplayTexture is a converted frame. It is owned by the caller and must
// be released after presentation.
type DisplayTexture struct {
	Texture hal.Texture
	View    hal.TextureView
	Width   int
	Height  int
	Seq     uint64

	device hal.Device
}

// Release destroys the view and the texture. It is safe to call more than
// once.
func (t *DisplayTexture) Release() {
	if t == nil || t.device == nil {
		return
	}
	if t.View != nil {
		t.device.DestroyTextureView(t.View)
		t.View = nil
	}
	if t.Texture != nil {
		t.device.DestroyTexture(t.Texture)
		t.Texture = nil
	}
	t.device = nil
}

// WorkgroupCount returns the dispatch size for a width x height frame:
// ceil(width/16) x ceil(height/16) x 1.
func WorkgroupCount(width, height int) (x, y, z uint32) {
	return uint32((width + workgroupSize - 1) / workgroupSize), //nolint:gosec // validated dimensions
		uint32((height + workgroupSize - 1) / workgroupSize), //nolint:gosec // validated dimensions
		1
}

// InputBufferSize returns the byte size of the packed YUV storage buffer,
// rounded up to a whole number of u32 words.
func InputBufferSize(width, height int) uint64 {
	return alignUp(uint64(frame.FrameSize(width, height)), 4) //nolint:gosec // validated dimensions
}

// OutputBufferSize returns the byte size of the RGBA storage buffer.
func OutputBufferSize(width, height int) uint64 {
	return uint64(frame.RGBASize(width, height)) //nolint:gosec // validated dimensions
}

// CopyRegions returns the buffer-to-texture copies that move a tightly
// packed RGBA buffer into tex. A single region is used when a row is a
// multiple of 256 bytes; otherwise one region per row, each starting at a
// 4-byte aligned offset.
func CopyRegions(tex hal.Texture, width, height int) []hal.BufferTextureCopy {
	w, h := uint32(width), uint32(height) //nolint:gosec // validated dimensions
	rowBytes := w * 4
	base := hal.ImageCopyTexture{Texture: tex, Aspect: gputypes.TextureAspectAll}

	if rowBytes%copyRowAlignment == 0 {
		return []hal.BufferTextureCopy{{
			BufferLayout: hal.ImageDataLayout{BytesPerRow: rowBytes, RowsPerImage: h},
			TextureBase:  base,
			Size:         hal.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		}}
	}

	paddedRow := uint32(alignUp(uint64(rowBytes), copyRowAlignment))
	regions := make([]hal.BufferTextureCopy, h)
	for y := uint32(0); y < h; y++ {
		row := base
		row.Origin = hal.Origin3D{Y: y}
		regions[y] = hal.BufferTextureCopy{
			BufferLayout: hal.ImageDataLayout{
				Offset:       uint64(y) * uint64(rowBytes),
				BytesPerRow:  paddedRow,
				RowsPerImage: 1,
			},
			TextureBase: row,
			Size:        hal.Extent3D{Width: w, Height: 1, DepthOrArrayLayers: 1},
		}
	}
	return regions
}

// convertParams encodes the compute params uniform.
func convertParams(f *frame.RawFrame) []byte {
	var flags uint32
	if f.Format == frame.FormatUYVY {
		flags |= flagUYVY
	}
	if f.Range == frame.RangeLimited {
		flags |= flagLimited
	}
	b := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(b[0:], uint32(f.Width))                    //nolint:gosec // validated dimensions
	binary.LittleEndian.PutUint32(b[4:], uint32(f.Height))                   //nolint:gosec // validated dimensions
	binary.LittleEndian.PutUint32(b[8:], flags)
	binary.LittleEndian.PutUint32(b[12:], uint32(frame.RowStride(f.Width)/4)) //nolint:gosec // validated dimensions
	return b
}

func alignUp(n, a uint64) uint64 {
	return (n + a - 1) / a * a
}

// checkFrame validates f and its size against the device limits.
func checkFrame(f *frame.RawFrame, maxDim uint32) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if uint64(f.Width) > uint64(maxDim) || uint64(f.Height) > uint64(maxDim) { //nolint:gosec // validated positive
		return fmt.Errorf("%w: %dx%d exceeds max texture dimension %d",
			frame.ErrInvalidFrame, f.Width, f.Height, maxDim)
	}
	return nil
}

// createDisplayTexture allocates a sampled texture and its view.
func (c *Context) createDisplayTexture(width, height int, extraUsage gputypes.TextureUsage) (*DisplayTexture, error) {
	tex, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label: "display_frame",
		Size: hal.Extent3D{
			Width:              uint32(width),  //nolint:gosec // validated dimensions
			Height:             uint32(height), //nolint:gosec // validated dimensions
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        DisplayFormat,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst | extraUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("create display texture: %w", err)
	}
	view, err := c.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:           "display_frame_view",
		Format:          DisplayFormat,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		c.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create display texture view: %w", err)
	}
	return &DisplayTexture{
		Texture: tex,
		View:    view,
		Width:   width,
		Height:  height,
		device:  c.device,
	}, nil
}

// ColorConvertStage converts packed YUV frames to RGBA textures with the
// compute pipeline. It performs no per-pixel work on the CPU.
type ColorConvertStage struct {
	ctx       *Context
	converted atomic.Uint64
}

// NewColorConvertStage returns a compute conversion stage on ctx.
func NewColorConvertStage(ctx *Context) *ColorConvertStage {
	return &ColorConvertStage{ctx: ctx}
}

// Name identifies the stage in logs.
func (s *ColorConvertStage) Name() string { return "gpu-compute" }

// Converted returns the number of frames converted.
func (s *ColorConvertStage) Converted() uint64 { return s.converted.Load() }

// conversionBuffers are the per-frame buffers of one dispatch.
type conversionBuffers struct {
	input, output, params hal.Buffer
	inputSize, outputSize uint64
}

func (b *conversionBuffers) destroy(device hal.Device) {
	for _, buf := range []hal.Buffer{b.params, b.output, b.input} {
		if buf != nil {
			device.DestroyBuffer(buf)
		}
	}
}

// Convert uploads f, dispatches the compute shader and copies the result
// into a new texture.
func (s *ColorConvertStage) Convert(f *frame.RawFrame) (*DisplayTexture, error) {
	c := s.ctx
	if c.isClosed() {
		return nil, ErrClosed
	}
	if err := checkFrame(f, c.MaxTextureDimension()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	bufs, err := s.createBuffers(f)
	if err != nil {
		bufs.destroy(c.device)
		return nil, fmt.Errorf("%w: frame %d: %w", ErrConversion, f.Seq, err)
	}
	defer bufs.destroy(c.device)

	bindGroup, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "yuyv_to_rgba_bind",
		Layout: c.computeBindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: bufs.input.NativeHandle(), Offset: 0, Size: bufs.inputSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: bufs.output.NativeHandle(), Offset: 0, Size: bufs.outputSize}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: bufs.params.NativeHandle(), Offset: 0, Size: paramsSize}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create bind group: %w", ErrConversion, err)
	}
	defer c.device.DestroyBindGroup(bindGroup)

	tex, err := c.createDisplayTexture(f.Width, f.Height, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	tex.Seq = f.Seq

	wx, wy, wz := WorkgroupCount(f.Width, f.Height)
	cmd, err := c.encode("yuyv_to_rgba", func(enc hal.CommandEncoder) {
		pass := enc.BeginComputePass(&hal.ComputePassDescriptor{Label: "yuyv_to_rgba_pass"})
		pass.SetPipeline(c.computePipeline)
		pass.SetBindGroup(0, bindGroup, nil)
		pass.Dispatch(wx, wy, wz)
		pass.End()
		enc.CopyBufferToTexture(bufs.output, tex.Texture, CopyRegions(tex.Texture, f.Width, f.Height))
	})
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	if err := c.submitAndWait(cmd); err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	s.converted.Add(1)
	slogger().Debug("gpu: frame converted",
		"seq", f.Seq, "width", f.Width, "height", f.Height,
		"workgroups", [2]uint32{wx, wy})
	return tex, nil
}

func (s *ColorConvertStage) createBuffers(f *frame.RawFrame) (*conversionBuffers, error) {
	device, queue := s.ctx.device, s.ctx.queue
	b := &conversionBuffers{
		inputSize:  InputBufferSize(f.Width, f.Height),
		outputSize: OutputBufferSize(f.Width, f.Height),
	}

	var err error
	b.input, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "yuyv_input", Size: b.inputSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return b, fmt.Errorf("create input buffer: %w", err)
	}
	b.output, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "rgba_output", Size: b.outputSize,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc,
	})
	if err != nil {
		return b, fmt.Errorf("create output buffer: %w", err)
	}
	b.params, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "yuyv_params", Size: paramsSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return b, fmt.Errorf("create params buffer: %w", err)
	}

	data := f.Data[:frame.FrameSize(f.Width, f.Height)]
	if uint64(len(data)) != b.inputSize {
		padded := make([]byte, b.inputSize)
		copy(padded, data)
		data = padded
	}
	if err := queue.WriteBuffer(b.input, 0, data); err != nil {
		return b, fmt.Errorf("upload frame: %w", err)
	}
	if err := queue.WriteBuffer(b.params, 0, convertParams(f)); err != nil {
		return b, fmt.Errorf("upload params: %w", err)
	}
	return b, nil
}

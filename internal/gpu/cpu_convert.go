package gpu

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/camview/frame"
	"github.com/gogpu/camview/internal/parallel"
	"github.com/gogpu/camview/yuv"
)

// CPUConvertStage converts frames on the CPU and uploads the RGBA result.
// Frames larger than the device texture limit are downscaled to fit.
//
// With a nil pool conversion runs on the calling goroutine; otherwise rows
// are split into bands across the pool's workers.
type CPUConvertStage struct {
	ctx  *Context
	pool *parallel.Pool

	converted  atomic.Uint64
	downscaled atomic.Uint64
}

// NewCPUConvertStage returns a CPU conversion stage on ctx.
func NewCPUConvertStage(ctx *Context, pool *parallel.Pool) *CPUConvertStage {
	return &CPUConvertStage{ctx: ctx, pool: pool}
}

// Name identifies the stage in logs.
func (s *CPUConvertStage) Name() string {
	if s.pool != nil {
		return "cpu-parallel"
	}
	return "cpu-scalar"
}

// Converted returns the number of frames converted.
func (s *CPUConvertStage) Converted() uint64 { return s.converted.Load() }

// Downscaled returns the number of frames that had to be shrunk.
func (s *CPUConvertStage) Downscaled() uint64 { return s.downscaled.Load() }

// Convert converts f to RGBA and uploads it into a new texture.
func (s *CPUConvertStage) Convert(f *frame.RawFrame) (*DisplayTexture, error) {
	c := s.ctx
	if c.isClosed() {
		return nil, ErrClosed
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	pix := make([]byte, frame.RGBASize(f.Width, f.Height))
	var err error
	if s.pool != nil {
		err = yuv.ConvertParallel(s.pool, pix, f)
	} else {
		err = yuv.Convert(pix, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}

	img := &image.RGBA{Pix: pix, Stride: f.Width * 4, Rect: image.Rect(0, 0, f.Width, f.Height)}
	if scaled := yuv.Downscale(img, int(c.MaxTextureDimension())); scaled != img {
		slogger().Debug("gpu: frame downscaled",
			"seq", f.Seq, "from", img.Rect.Size(), "to", scaled.Rect.Size())
		img = scaled
		s.downscaled.Add(1)
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()

	tex, err := c.createDisplayTexture(w, h, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConversion, err)
	}
	tex.Seq = f.Seq

	err = c.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: tex.Texture, Aspect: gputypes.TextureAspectAll},
		img.Pix,
		&hal.ImageDataLayout{BytesPerRow: uint32(img.Stride), RowsPerImage: uint32(h)}, //nolint:gosec // bounded by texture limit
		&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},       //nolint:gosec // bounded by texture limit
	)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("%w: upload texture: %w", ErrConversion, err)
	}

	s.converted.Add(1)
	return tex, nil
}

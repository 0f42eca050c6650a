// Package yuv is the CPU implementation of the packed 4:2:2 to RGBA
// conversion performed by the GPU compute stage.
//
// The arithmetic mirrors the WGSL kernel: float32 throughout, Rec.709
// coefficients, round-half-up, clamp to [0, 255], alpha 255. Every product
// is rounded before it is added. GPU compilers may fuse a multiply and add
// into one FMA, which can move a result that lands next to a rounding
// boundary by one step, so GPU output is within 1 of this package per
// channel. Pixel is the reference.
package yuv

import (
	"fmt"

	"github.com/gogpu/camview/frame"
)

// Rec.709 conversion coefficients.
const (
	CrToR float32 = 1.5748
	CbToG float32 = 0.187324
	CrToG float32 = 0.468124
	CbToB float32 = 1.8556
)

// Studio-swing expansion factors applied to RangeLimited samples.
const (
	lumaScale   float32 = 255.0 / 219.0
	chromaScale float32 = 255.0 / 224.0
)

// Pixel converts one luma sample and its shared chroma pair to RGBA.
func Pixel(y, cb, cr uint8, r frame.ColorRange) [4]uint8 {
	yf := float32(y)
	cbf := float32(cb) - 128
	crf := float32(cr) - 128
	if r == frame.RangeLimited {
		yf = float32((yf - 16) * lumaScale)
		cbf = float32(cbf * chromaScale)
		crf = float32(crf * chromaScale)
	}
	return [4]uint8{
		quantize(yf + float32(CrToR*crf)),
		quantize(yf - float32(CbToG*cbf) - float32(CrToG*crf)),
		quantize(yf + float32(CbToB*cbf)),
		255,
	}
}

// Pair converts a packed group of two luma samples sharing one chroma pair.
func Pair(y0, y1, cb, cr uint8, r frame.ColorRange) (p0, p1 [4]uint8) {
	return Pixel(y0, cb, cr, r), Pixel(y1, cb, cr, r)
}

// quantize rounds half up and clamps to a byte, matching
// clamp(floor(v + 0.5), 0.0, 255.0) in WGSL.
func quantize(v float32) uint8 {
	v += 0.5
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// unpack returns (Y0, Y1, Cb, Cr) for a four-byte group in the given order.
func unpack(b []byte, format frame.PixelFormat) (y0, y1, cb, cr uint8) {
	if format == frame.FormatUYVY {
		return b[1], b[3], b[0], b[2]
	}
	return b[0], b[2], b[1], b[3]
}

// Convert writes the RGBA image of f into dst, which must hold at least
// width*height*4 bytes.
func Convert(dst []byte, f *frame.RawFrame) error {
	if err := check(dst, f); err != nil {
		return err
	}
	convertRows(dst, f, 0, f.Height)
	return nil
}

func check(dst []byte, f *frame.RawFrame) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if need := frame.RGBASize(f.Width, f.Height); len(dst) < need {
		return fmt.Errorf("yuv: destination holds %d bytes, need %d", len(dst), need)
	}
	return nil
}

// convertRows converts rows [y0, y1) of f into dst.
func convertRows(dst []byte, f *frame.RawFrame, y0, y1 int) {
	w := f.Width
	stride := frame.RowStride(w)
	for y := y0; y < y1; y++ {
		src := f.Data[y*stride : (y+1)*stride]
		out := dst[y*w*4 : (y+1)*w*4]
		for x := 0; x < w; x += 2 {
			ya, yb, cb, cr := unpack(src[x*2:x*2+4], f.Format)
			p := Pixel(ya, cb, cr, f.Range)
			copy(out[x*4:x*4+4], p[:])
			if x+1 < w {
				p = Pixel(yb, cb, cr, f.Range)
				copy(out[x*4+4:x*4+8], p[:])
			}
		}
	}
}

package yuv

import "github.com/gogpu/camview/frame"

// FromRGB encodes an RGB colour as Rec.709 (Y, Cb, Cr) samples in the given
// range. It is the approximate inverse of Pixel and is used to generate
// synthetic test frames.
func FromRGB(r, g, b uint8, rng frame.ColorRange) (y, cb, cr uint8) {
	rf, gf, bf := float32(r), float32(g), float32(b)
	yf := 0.2126*rf + 0.7152*gf + 0.0722*bf
	cbf := (bf - yf) / CbToB
	crf := (rf - yf) / CrToR
	if rng == frame.RangeLimited {
		yf = 16 + yf/lumaScale
		cbf /= chromaScale
		crf /= chromaScale
	}
	return quantize(yf), quantize(cbf + 128), quantize(crf + 128)
}

// Fill writes a solid colour into every pixel pair of f.Data.
func Fill(f *frame.RawFrame, y, cb, cr uint8) {
	group := [4]byte{y, cb, y, cr}
	if f.Format == frame.FormatUYVY {
		group = [4]byte{cb, y, cr, y}
	}
	for i := 0; i+4 <= len(f.Data); i += 4 {
		copy(f.Data[i:i+4], group[:])
	}
}

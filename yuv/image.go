package yuv

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/camview/frame"
)

// ToImage converts f into a new RGBA image.
func ToImage(f *frame.RawFrame) (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	convertRows(img.Pix, f, 0, f.Height)
	return img, nil
}

// FitSize returns the largest size with the aspect ratio of (w, h) whose
// sides do not exceed maxDim. Sizes already within the bound are returned
// unchanged.
func FitSize(w, h, maxDim int) (int, int) {
	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return w, h
	}
	if w >= h {
		return maxDim, max(1, h*maxDim/w)
	}
	return max(1, w*maxDim/h), maxDim
}

// Downscale shrinks img so neither side exceeds maxDim, using bilinear
// filtering. It returns img itself when no scaling is needed.
func Downscale(img *image.RGBA, maxDim int) *image.RGBA {
	b := img.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), maxDim)
	if w == b.Dx() && h == b.Dy() {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

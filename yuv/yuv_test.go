package yuv

import (
	"bytes"
	"errors"
	"image"
	"math"
	"math/rand"
	"testing"

	"github.com/gogpu/camview/frame"
	"github.com/gogpu/camview/internal/parallel"
)

func solidFrame(w, h int, format frame.PixelFormat, rng frame.ColorRange, y, cb, cr uint8) *frame.RawFrame {
	f := &frame.RawFrame{
		Data:   make([]byte, frame.FrameSize(w, h)),
		Width:  w,
		Height: h,
		Format: format,
		Range:  rng,
	}
	Fill(f, y, cb, cr)
	return f
}

func randomFrame(w, h int, seed int64) *frame.RawFrame {
	r := rand.New(rand.NewSource(seed))
	f := &frame.RawFrame{
		Data:   make([]byte, frame.FrameSize(w, h)),
		Width:  w,
		Height: h,
	}
	r.Read(f.Data)
	return f
}

func TestPairKnownValues(t *testing.T) {
	tests := []struct {
		name           string
		y0, y1, cb, cr uint8
		rng            frame.ColorRange
		want0, want1   [4]uint8
	}{
		{
			name: "studio white",
			y0:   235, y1: 235, cb: 128, cr: 128,
			rng:   frame.RangeLimited,
			want0: [4]uint8{255, 255, 255, 255},
			want1: [4]uint8{255, 255, 255, 255},
		},
		{
			name: "studio black",
			y0:   16, y1: 16, cb: 128, cr: 128,
			rng:   frame.RangeLimited,
			want0: [4]uint8{0, 0, 0, 255},
			want1: [4]uint8{0, 0, 0, 255},
		},
		{
			name: "mid grey",
			y0:   128, y1: 128, cb: 128, cr: 128,
			rng:   frame.RangeFull,
			want0: [4]uint8{128, 128, 128, 255},
			want1: [4]uint8{128, 128, 128, 255},
		},
		{
			name: "full range luma passthrough",
			y0:   235, y1: 10, cb: 128, cr: 128,
			rng:   frame.RangeFull,
			want0: [4]uint8{235, 235, 235, 255},
			want1: [4]uint8{10, 10, 10, 255},
		},
		{
			name: "clamp high",
			y0:   255, y1: 255, cb: 255, cr: 255,
			rng:   frame.RangeFull,
			want0: [4]uint8{255, 172, 255, 255},
			want1: [4]uint8{255, 172, 255, 255},
		},
		{
			name: "clamp low",
			y0:   0, y1: 0, cb: 0, cr: 0,
			rng:   frame.RangeFull,
			want0: [4]uint8{0, 84, 0, 255},
			want1: [4]uint8{0, 84, 0, 255},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p0, p1 := Pair(tt.y0, tt.y1, tt.cb, tt.cr, tt.rng)
			if p0 != tt.want0 || p1 != tt.want1 {
				t.Errorf("Pair() = %v, %v, want %v, %v", p0, p1, tt.want0, tt.want1)
			}
		})
	}
}

func TestPixelDeterministic(t *testing.T) {
	for y := 0; y < 256; y += 5 {
		for cb := 0; cb < 256; cb += 17 {
			for cr := 0; cr < 256; cr += 13 {
				a := Pixel(uint8(y), uint8(cb), uint8(cr), frame.RangeFull)
				b := Pixel(uint8(y), uint8(cb), uint8(cr), frame.RangeFull)
				if a != b {
					t.Fatalf("Pixel(%d,%d,%d) not deterministic: %v vs %v", y, cb, cr, a, b)
				}
				if a[3] != 255 {
					t.Fatalf("alpha = %d, want 255", a[3])
				}
			}
		}
	}
}

func TestConvertOutputSize(t *testing.T) {
	for _, sz := range []struct{ w, h int }{{1, 1}, {2, 1}, {3, 3}, {17, 5}, {640, 480}} {
		f := randomFrame(sz.w, sz.h, 1)
		dst := make([]byte, frame.RGBASize(sz.w, sz.h)+8)
		for i := range dst {
			dst[i] = 0xAA
		}
		if err := Convert(dst, f); err != nil {
			t.Fatalf("%dx%d: Convert: %v", sz.w, sz.h, err)
		}
		n := frame.RGBASize(sz.w, sz.h)
		for i := 3; i < n; i += 4 {
			if dst[i] != 255 {
				t.Fatalf("%dx%d: alpha at %d = %d", sz.w, sz.h, i, dst[i])
			}
		}
		for i := n; i < len(dst); i++ {
			if dst[i] != 0xAA {
				t.Fatalf("%dx%d: wrote past %d bytes", sz.w, sz.h, n)
			}
		}
	}
}

func TestConvertShortDestination(t *testing.T) {
	f := randomFrame(4, 4, 1)
	if err := Convert(make([]byte, 63), f); err == nil {
		t.Error("Convert with short destination should fail")
	}
	bad := &frame.RawFrame{Width: 4, Height: 4, Data: make([]byte, 3)}
	if err := Convert(make([]byte, 64), bad); !errors.Is(err, frame.ErrInvalidFrame) {
		t.Errorf("Convert(invalid) = %v, want ErrInvalidFrame", err)
	}
}

func TestConvertUYVYMatchesYUYV(t *testing.T) {
	yuyv := randomFrame(34, 7, 42)
	uyvy := &frame.RawFrame{
		Data:   make([]byte, len(yuyv.Data)),
		Width:  yuyv.Width,
		Height: yuyv.Height,
		Format: frame.FormatUYVY,
	}
	for i := 0; i+4 <= len(yuyv.Data); i += 4 {
		y0, cb, y1, cr := yuyv.Data[i], yuyv.Data[i+1], yuyv.Data[i+2], yuyv.Data[i+3]
		copy(uyvy.Data[i:], []byte{cb, y0, cr, y1})
	}

	a := make([]byte, frame.RGBASize(34, 7))
	b := make([]byte, len(a))
	if err := Convert(a, yuyv); err != nil {
		t.Fatal(err)
	}
	if err := Convert(b, uyvy); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("UYVY conversion differs from equivalent YUYV conversion")
	}
}

func TestConvertParallelMatchesScalar(t *testing.T) {
	pool := parallel.NewPool(4)
	defer pool.Close()

	for _, sz := range []struct{ w, h int }{{1, 1}, {5, 3}, {64, 64}, {641, 97}, {1280, 720}} {
		f := randomFrame(sz.w, sz.h, int64(sz.w*sz.h))
		f.Range = frame.RangeLimited

		want := make([]byte, frame.RGBASize(sz.w, sz.h))
		got := make([]byte, len(want))
		if err := Convert(want, f); err != nil {
			t.Fatal(err)
		}
		if err := ConvertParallel(pool, got, f); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("%dx%d: parallel output differs from scalar", sz.w, sz.h)
		}
	}
}

func TestToImage(t *testing.T) {
	f := solidFrame(6, 4, frame.FormatYUYV, frame.RangeFull, 128, 128, 128)
	img, err := ToImage(f)
	if err != nil {
		t.Fatal(err)
	}
	if img.Bounds() != image.Rect(0, 0, 6, 4) {
		t.Fatalf("Bounds() = %v", img.Bounds())
	}
	c := img.RGBAAt(5, 3)
	if c.R != 128 || c.G != 128 || c.B != 128 || c.A != 255 {
		t.Errorf("RGBAAt(5,3) = %v, want grey", c)
	}
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{640, 480, 8192, 640, 480},
		{640, 480, 0, 640, 480},
		{16384, 8192, 8192, 8192, 4096},
		{1000, 4000, 2000, 500, 2000},
		{10000, 1, 100, 100, 1},
	}
	for _, tt := range tests {
		w, h := FitSize(tt.w, tt.h, tt.max)
		if w != tt.wantW || h != tt.wantH {
			t.Errorf("FitSize(%d, %d, %d) = %d, %d, want %d, %d",
				tt.w, tt.h, tt.max, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestDownscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	if got := Downscale(src, 512); got != src {
		t.Error("Downscale within bound should return the source image")
	}

	dst := Downscale(src, 100)
	if dst.Bounds().Dx() != 100 || dst.Bounds().Dy() != 50 {
		t.Fatalf("Downscale bounds = %v, want 100x50", dst.Bounds())
	}
	if c := dst.RGBAAt(50, 25); c.R != 200 {
		t.Errorf("Downscale pixel = %v, want R=200", c)
	}
}

func TestFromRGBRoundTrip(t *testing.T) {
	colors := [][3]uint8{{255, 255, 255}, {0, 0, 0}, {255, 0, 0}, {0, 255, 0}, {0, 0, 255}, {30, 140, 220}}
	for _, rng := range []frame.ColorRange{frame.RangeFull, frame.RangeLimited} {
		for _, c := range colors {
			y, cb, cr := FromRGB(c[0], c[1], c[2], rng)
			p := Pixel(y, cb, cr, rng)
			for i := range 3 {
				d := int(p[i]) - int(c[i])
				if d < -4 || d > 4 {
					t.Errorf("%s %v -> (%d,%d,%d) -> %v", rng, c, y, cb, cr, p)
					break
				}
			}
		}
	}
}

func BenchmarkConvert(b *testing.B) {
	f := randomFrame(1280, 720, 7)
	dst := make([]byte, frame.RGBASize(f.Width, f.Height))
	b.SetBytes(int64(len(f.Data)))
	b.ResetTimer()
	for range b.N {
		_ = Convert(dst, f)
	}
}

func BenchmarkConvertParallel(b *testing.B) {
	pool := parallel.NewPool(0)
	defer pool.Close()

	f := randomFrame(1280, 720, 7)
	dst := make([]byte, frame.RGBASize(f.Width, f.Height))
	b.SetBytes(int64(len(f.Data)))
	b.ResetTimer()
	for range b.N {
		_ = ConvertParallel(pool, dst, f)
	}
}

// fusedPixel is Pixel as evaluated by a shader compiler that contracts each
// multiply-add into a single FMA.
func fusedPixel(y, cb, cr uint8, r frame.ColorRange) [4]uint8 {
	fma := func(a, b, c float32) float32 {
		return float32(math.FMA(float64(a), float64(b), float64(c)))
	}
	yf := float32(y)
	cbf := float32(cb) - 128
	crf := float32(cr) - 128
	if r == frame.RangeLimited {
		yf = (yf - 16) * lumaScale
		cbf *= chromaScale
		crf *= chromaScale
	}
	return [4]uint8{
		quantize(fma(CrToR, crf, yf)),
		quantize(fma(-CrToG, crf, fma(-CbToG, cbf, yf))),
		quantize(fma(CbToB, cbf, yf)),
		255,
	}
}

func TestPixelFusedMultiplyAddTolerance(t *testing.T) {
	for _, rng := range []frame.ColorRange{frame.RangeFull, frame.RangeLimited} {
		t.Run(rng.String(), func(t *testing.T) {
			differ := 0
			for y := 0; y < 256; y++ {
				for cb := 0; cb < 256; cb += 3 {
					for cr := 0; cr < 256; cr += 3 {
						want := Pixel(uint8(y), uint8(cb), uint8(cr), rng)
						got := fusedPixel(uint8(y), uint8(cb), uint8(cr), rng)
						if got == want {
							continue
						}
						differ++
						for c := range 3 {
							if d := int(got[c]) - int(want[c]); d < -1 || d > 1 {
								t.Fatalf("Y=%d Cb=%d Cr=%d: fused %v, separate %v", y, cb, cr, got, want)
							}
						}
					}
				}
			}
			t.Logf("%d samples differ by one step", differ)
		})
	}
}

package capture

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/camview/frame"
)

// V4L2Config configures a V4L2Source.
type V4L2Config struct {
	// Path is the device node, for example /dev/video0. Empty selects the
	// first /dev/video* node.
	Path string

	// Width and Height force a capture size. Zero selects the highest
	// resolution the device offers for a packed-YUV format.
	Width, Height int

	// FPS requests a frame rate; 0 keeps the driver default.
	FPS uint32

	// Buffers is the number of MMAP driver buffers; 0 uses 4.
	Buffers uint32

	// Range is the quantization range tagged onto every frame.
	Range frame.ColorRange
}

func (c V4L2Config) buffers() uint32 {
	if c.Buffers == 0 {
		return 4
	}
	return c.Buffers
}

// V4L2 FourCC codes of the packed 4:2:2 formats, little endian.
const (
	fourccYUYV uint32 = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	fourccUYVY uint32 = 'U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24
)

func fourccFormat(code uint32) (frame.PixelFormat, bool) {
	switch code {
	case fourccYUYV:
		return frame.FormatYUYV, true
	case fourccUYVY:
		return frame.FormatUYVY, true
	default:
		return 0, false
	}
}

func formatFourCC(f frame.PixelFormat) uint32 {
	if f == frame.FormatUYVY {
		return fourccUYVY
	}
	return fourccYUYV
}

// chooseMode picks the mode to request from a device's frame-size table.
// A forced size keeps the best candidate's format, or YUYV when the table
// is empty. It reports false when nothing usable remains.
func chooseMode(candidates []Mode, width, height int) (Mode, bool) {
	best, ok := BestMode(candidates)
	if width > 0 && height > 0 {
		m := Mode{Width: width, Height: height, Format: frame.FormatYUYV}
		if ok {
			m.Format = best.Format
		}
		return m, true
	}
	return best, ok
}

// repack copies a driver buffer with bytesPerLine padding into a tightly
// packed payload. It returns nil if the buffer is too short.
func repack(buf []byte, m Mode, bytesPerLine int) []byte {
	stride := frame.RowStride(m.Width)
	if bytesPerLine < stride {
		bytesPerLine = stride
	}
	if len(buf) < bytesPerLine*(m.Height-1)+stride {
		return nil
	}
	out := make([]byte, stride*m.Height)
	if bytesPerLine == stride {
		copy(out, buf[:len(out)])
		return out
	}
	for y := 0; y < m.Height; y++ {
		copy(out[y*stride:(y+1)*stride], buf[y*bytesPerLine:y*bytesPerLine+stride])
	}
	return out
}

// sortDevicePaths orders /dev/videoN nodes by N, so video2 precedes video10.
// Names without a numeric suffix sort last.
func sortDevicePaths(paths []string) {
	index := func(p string) int {
		i := len(p)
		for i > 0 && p[i-1] >= '0' && p[i-1] <= '9' {
			i--
		}
		n, err := strconv.Atoi(p[i:])
		if err != nil || !strings.HasPrefix(p[strings.LastIndexByte(p, '/')+1:], "video") {
			return math.MaxInt
		}
		return n
	}
	slices.SortStableFunc(paths, func(a, b string) int {
		return cmp.Or(cmp.Compare(index(a), index(b)), strings.Compare(a, b))
	})
}

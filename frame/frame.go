// Package frame defines the raw camera frame and the ordered channel that
// carries frames from the capture goroutine to the render goroutine.
package frame

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidFrame is returned by Validate for frames whose geometry does not
// match their payload.
var ErrInvalidFrame = errors.New("frame: invalid frame")

// PixelFormat identifies the packed 4:2:2 byte order of a RawFrame.
type PixelFormat int

const (
	// FormatYUYV stores each pixel pair as Y0 Cb Y1 Cr.
	FormatYUYV PixelFormat = iota

	// FormatUYVY stores each pixel pair as Cb Y0 Cr Y1.
	FormatUYVY
)

// String returns the FourCC-style name of the format.
func (f PixelFormat) String() string {
	switch f {
	case FormatYUYV:
		return "YUYV"
	case FormatUYVY:
		return "UYVY"
	default:
		return "Unknown"
	}
}

// ParsePixelFormat parses a format name as printed by String.
func ParsePixelFormat(s string) (PixelFormat, error) {
	switch s {
	case "YUYV", "yuyv", "YUY2", "yuy2":
		return FormatYUYV, nil
	case "UYVY", "uyvy":
		return FormatUYVY, nil
	default:
		return 0, fmt.Errorf("frame: unknown pixel format %q", s)
	}
}

// ColorRange is the quantization range of the luma and chroma samples.
type ColorRange int

const (
	// RangeFull treats samples as full-swing 0..255.
	RangeFull ColorRange = iota

	// RangeLimited treats samples as studio-swing (Y 16..235, C 16..240)
	// and expands them to full range during conversion.
	RangeLimited
)

// String returns the range name.
func (r ColorRange) String() string {
	switch r {
	case RangeFull:
		return "full"
	case RangeLimited:
		return "limited"
	default:
		return "unknown"
	}
}

// ParseColorRange parses "full" or "limited".
func ParseColorRange(s string) (ColorRange, error) {
	switch s {
	case "full":
		return RangeFull, nil
	case "limited", "studio", "tv":
		return RangeLimited, nil
	default:
		return 0, fmt.Errorf("frame: unknown color range %q", s)
	}
}

// RawFrame is one captured frame in packed YUV 4:2:2.
//
// Every four bytes of Data encode two horizontally adjacent pixels. Rows are
// tightly packed at RowStride bytes; an odd-width row carries one trailing
// half-used pixel pair. A RawFrame is never mutated after capture; ownership
// moves from the capture source into the Channel and on to exactly one
// consumer.
type RawFrame struct {
	Data   []byte
	Width  int
	Height int
	Format PixelFormat
	Range  ColorRange

	// Seq is the capture order, starting at 1 for the first frame of a
	// session.
	Seq uint64

	// Timestamp is the time the frame was received from the driver.
	Timestamp time.Time
}

// RowStride returns the number of bytes per row: two bytes per pixel,
// rounded up to a whole pixel pair.
func RowStride(width int) int {
	return (width + 1) / 2 * 4
}

// FrameSize returns the minimum payload length for a frame of the given
// dimensions.
func FrameSize(width, height int) int {
	return RowStride(width) * height
}

// RGBASize returns the size in bytes of the converted RGBA image.
func RGBASize(width, height int) int {
	return width * height * 4
}

// Validate reports whether the frame's payload covers its declared
// geometry.
func (f *RawFrame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if f.Width < 1 || f.Height < 1 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if f.Format != FormatYUYV && f.Format != FormatUYVY {
		return fmt.Errorf("%w: unsupported format %d", ErrInvalidFrame, int(f.Format))
	}
	if need := FrameSize(f.Width, f.Height); len(f.Data) < need {
		return fmt.Errorf("%w: %dx%d %s needs %d bytes, have %d",
			ErrInvalidFrame, f.Width, f.Height, f.Format, need, len(f.Data))
	}
	return nil
}

// String returns a short description for log output.
func (f *RawFrame) String() string {
	return fmt.Sprintf("frame #%d %dx%d %s/%s (%d bytes)",
		f.Seq, f.Width, f.Height, f.Format, f.Range, len(f.Data))
}

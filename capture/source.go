// Package capture produces raw packed-YUV frames from a camera device and
// feeds them, in capture order, into a frame.Channel.
package capture

import (
	"context"
	"fmt"

	"github.com/gogpu/camview/frame"
)

// Source is a camera-like producer of raw frames.
//
// The lifecycle is Open, Start, repeated NextFrame, Stop, Close. Stop and
// Close are idempotent.
type Source interface {
	// Open acquires the device and negotiates the highest available
	// packed-YUV resolution. Fails with ErrDeviceUnavailable.
	Open() error

	// Start begins streaming. Fails with ErrStreamStart.
	Start(ctx context.Context) error

	// NextFrame blocks until the next frame arrives. It returns io.EOF at
	// the normal end of the stream, an error wrapping ErrCapture on a hard
	// fault, and ctx.Err() when ctx is done.
	NextFrame(ctx context.Context) (*frame.RawFrame, error)

	// Stop ends streaming and releases driver buffers.
	Stop() error

	// Close releases the device.
	Close() error
}

// Mode is a negotiated capture format.
type Mode struct {
	Width  int
	Height int
	Format frame.PixelFormat
}

// String returns the mode as WxH/FORMAT.
func (m Mode) String() string {
	return fmt.Sprintf("%dx%d/%s", m.Width, m.Height, m.Format)
}

// Area returns the pixel count of the mode.
func (m Mode) Area() int { return m.Width * m.Height }

// BestMode picks the highest-resolution mode. Ties go to the earlier
// format in preferred, then to the earlier candidate. It reports false when
// no candidate uses a preferred format.
func BestMode(candidates []Mode, preferred ...frame.PixelFormat) (Mode, bool) {
	if len(preferred) == 0 {
		preferred = []frame.PixelFormat{frame.FormatYUYV, frame.FormatUYVY}
	}
	rank := func(f frame.PixelFormat) int {
		for i, p := range preferred {
			if p == f {
				return i
			}
		}
		return -1
	}

	var best Mode
	found := false
	for _, m := range candidates {
		r := rank(m.Format)
		if r < 0 || m.Width < 1 || m.Height < 1 {
			continue
		}
		if !found || m.Area() > best.Area() || (m.Area() == best.Area() && r < rank(best.Format)) {
			best, found = m, true
		}
	}
	return best, found
}

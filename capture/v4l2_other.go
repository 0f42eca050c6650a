//go:build !linux

package capture

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gogpu/camview/frame"
)

// V4L2Source is unavailable outside Linux. Open always fails with
// ErrDeviceUnavailable.
type V4L2Source struct {
	cfg V4L2Config
}

// NewV4L2 returns a V4L2 source.
func NewV4L2(cfg V4L2Config) *V4L2Source {
	return &V4L2Source{cfg: cfg}
}

// Mode returns the zero mode.
func (s *V4L2Source) Mode() Mode { return Mode{} }

func (s *V4L2Source) Open() error {
	return fmt.Errorf("%w: v4l2 is not supported on %s", ErrDeviceUnavailable, runtime.GOOS)
}

func (s *V4L2Source) Start(context.Context) error {
	return fmt.Errorf("%w: device not open", ErrStreamStart)
}

func (s *V4L2Source) NextFrame(context.Context) (*frame.RawFrame, error) {
	return nil, ErrNotStreaming
}

func (s *V4L2Source) Stop() error  { return nil }
func (s *V4L2Source) Close() error { return nil }

//go:build linux

package capture

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"github.com/blackjack/webcam"
	"github.com/blackjack/webcam/ioctl"
	"golang.org/x/sys/unix"

	"github.com/gogpu/camview/frame"
)

// pollSeconds bounds each wait for a driver buffer. Cancellation is
// observed between polls.
const pollSeconds = 1

// V4L2Source captures packed-YUV frames from a Video4Linux2 device.
type V4L2Source struct {
	cfg V4L2Config

	mu           sync.Mutex
	cam          *webcam.Webcam
	path         string
	mode         Mode
	bytesPerLine int
	streaming    bool
}

// NewV4L2 returns a V4L2 source. The device is not touched until Open.
func NewV4L2(cfg V4L2Config) *V4L2Source {
	return &V4L2Source{cfg: cfg}
}

// Mode returns the negotiated format. It is valid after Open.
func (s *V4L2Source) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Open opens the device and selects the largest YUYV or UYVY mode.
func (s *V4L2Source) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.cfg.Path
	if path == "" {
		paths, err := filepath.Glob("/dev/video*")
		if err != nil {
			return fmt.Errorf("%w: enumerate devices: %w", ErrDeviceUnavailable, err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("%w: no video devices found", ErrDeviceUnavailable)
		}
		sortDevicePaths(paths)
		path = paths[0]
	}

	cam, err := webcam.Open(path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrDeviceUnavailable, path, err)
	}

	mode, err := s.negotiate(cam, path)
	if err != nil {
		_ = cam.Close()
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, path, err)
	}
	if err := cam.SetBufferCount(s.cfg.buffers()); err != nil {
		_ = cam.Close()
		return fmt.Errorf("%w: %s: %w", ErrDeviceUnavailable, path, err)
	}
	if s.cfg.FPS > 0 {
		if err := cam.SetFramerate(float32(s.cfg.FPS)); err != nil {
			slogger().Warn("capture: frame rate not applied", "fps", s.cfg.FPS, "err", err)
		}
	}

	// The driver may round the requested size; read back what it chose.
	bpl := 0
	if pix, err := queryFormat(path); err != nil {
		slogger().Warn("capture: read back format failed", "path", path, "err", err)
	} else if f, ok := fourccFormat(pix.pixelFormat); ok {
		mode = Mode{Width: int(pix.width), Height: int(pix.height), Format: f}
		bpl = int(pix.bytesPerLine)
	}

	s.cam = cam
	s.path = path
	s.mode = mode
	s.bytesPerLine = bpl
	slogger().Info("capture: v4l2 device opened",
		"path", path, "mode", mode.String(), "bytesPerLine", bpl)
	return nil
}

// negotiate picks a mode from the device's frame-size table and applies it.
func (s *V4L2Source) negotiate(cam *webcam.Webcam, path string) (Mode, error) {
	var candidates []Mode
	for code := range cam.GetSupportedFormats() {
		f, ok := fourccFormat(uint32(code))
		if !ok {
			continue
		}
		for _, fs := range cam.GetSupportedFrameSizes(code) {
			candidates = append(candidates, Mode{
				Width:  int(fs.MaxWidth),
				Height: int(fs.MaxHeight),
				Format: f,
			})
		}
	}

	mode, ok := chooseMode(candidates, s.cfg.Width, s.cfg.Height)
	if !ok {
		pix, err := queryFormat(path)
		if err != nil {
			return Mode{}, fmt.Errorf("read current format: %w", err)
		}
		f, isYUV := fourccFormat(pix.pixelFormat)
		if !isYUV {
			return Mode{}, errors.New("no packed-YUV format offered")
		}
		mode = Mode{Width: int(pix.width), Height: int(pix.height), Format: f}
	}

	code, _, _, err := cam.SetImageFormat(webcam.PixelFormat(formatFourCC(mode.Format)),
		uint32(mode.Width), uint32(mode.Height))
	if err != nil {
		return Mode{}, fmt.Errorf("set format %s: %w", mode, err)
	}
	f, ok := fourccFormat(uint32(code))
	if !ok {
		return Mode{}, fmt.Errorf("driver replaced %s with fourcc %#08x", mode, uint32(code))
	}
	mode.Format = f
	return mode, nil
}

// Start begins MMAP streaming.
func (s *V4L2Source) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cam == nil {
		return fmt.Errorf("%w: device not open", ErrStreamStart)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrStreamStart, err)
	}
	if err := s.cam.StartStreaming(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStreamStart, s.path, err)
	}
	s.streaming = true
	return nil
}

// NextFrame waits for the next driver buffer and copies it into a frame.
// Buffers shorter than the negotiated size are skipped.
func (s *V4L2Source) NextFrame(ctx context.Context) (*frame.RawFrame, error) {
	s.mu.Lock()
	cam, streaming, mode, bpl := s.cam, s.streaming, s.mode, s.bytesPerLine
	s.mu.Unlock()
	if !streaming {
		return nil, ErrNotStreaming
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var timeout *webcam.Timeout
		if err := cam.WaitForFrame(pollSeconds); errors.As(err, &timeout) {
			continue
		} else if err != nil {
			return nil, fmt.Errorf("%w: wait: %w", ErrCapture, err)
		}

		buf, index, err := cam.GetFrame()
		if errors.Is(err, unix.EAGAIN) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: dequeue: %w", ErrCapture, err)
		}
		data := repack(buf, mode, bpl)
		if err := cam.ReleaseFrame(index); err != nil {
			return nil, fmt.Errorf("%w: requeue: %w", ErrCapture, err)
		}
		if data == nil {
			slogger().Warn("capture: short buffer skipped",
				"len", len(buf), "mode", mode.String())
			continue
		}
		return &frame.RawFrame{
			Data:      data,
			Width:     mode.Width,
			Height:    mode.Height,
			Format:    mode.Format,
			Range:     s.cfg.Range,
			Timestamp: time.Now(),
		}, nil
	}
}

// Stop ends streaming. It is safe to call more than once.
func (s *V4L2Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming {
		return nil
	}
	s.streaming = false
	if err := s.cam.StopStreaming(); err != nil {
		return fmt.Errorf("capture: stop %s: %w", s.path, err)
	}
	return nil
}

// Close releases the device. It is safe to call more than once.
func (s *V4L2Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cam == nil {
		return nil
	}
	err := s.cam.Close()
	s.cam = nil
	s.streaming = false
	if err != nil {
		return fmt.Errorf("capture: close %s: %w", s.path, err)
	}
	return nil
}

// v4l2Format mirrors struct v4l2_format. The pointer field gives the union
// its kernel alignment.
type v4l2Format struct {
	typ   uint32
	union struct {
		data [200 - unsafe.Sizeof(uintptr(0))]byte
		_    unsafe.Pointer
	}
}

// v4l2PixFormat is the head of struct v4l2_pix_format.
type v4l2PixFormat struct {
	width        uint32
	height       uint32
	pixelFormat  uint32
	field        uint32
	bytesPerLine uint32
	sizeImage    uint32
}

const bufTypeVideoCapture = 1

var vidiocGFmt = ioctl.IoRW('V', 4, unsafe.Sizeof(v4l2Format{}))

// queryFormat reads the device's current capture format through a second
// handle, since webcam.Webcam does not expose its descriptor.
func queryFormat(path string) (v4l2PixFormat, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK, 0)
	if err != nil {
		return v4l2PixFormat{}, err
	}
	defer unix.Close(fd)

	f := v4l2Format{typ: bufTypeVideoCapture}
	if err := ioctl.Ioctl(uintptr(fd), vidiocGFmt, uintptr(unsafe.Pointer(&f))); err != nil {
		return v4l2PixFormat{}, fmt.Errorf("VIDIOC_G_FMT: %w", err)
	}
	return *(*v4l2PixFormat)(unsafe.Pointer(&f.union.data[0])), nil
}

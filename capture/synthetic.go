package capture

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gogpu/camview/frame"
	"github.com/gogpu/camview/yuv"
)

// Pattern selects the image produced by a SyntheticSource.
type Pattern int

const (
	// PatternSolid fills the frame with SyntheticConfig.Color.
	PatternSolid Pattern = iota

	// PatternBars draws eight vertical colour bars.
	PatternBars
)

// String returns the pattern name.
func (p Pattern) String() string {
	switch p {
	case PatternSolid:
		return "solid"
	case PatternBars:
		return "bars"
	default:
		return "unknown"
	}
}

// ParsePattern parses "solid" or "bars".
func ParsePattern(s string) (Pattern, error) {
	switch s {
	case "solid":
		return PatternSolid, nil
	case "bars":
		return PatternBars, nil
	default:
		return 0, fmt.Errorf("capture: unknown pattern %q", s)
	}
}

// barColors are the RGB colours of PatternBars, left to right.
var barColors = [8][3]uint8{
	{255, 255, 255}, {255, 255, 0}, {0, 255, 255}, {0, 255, 0},
	{255, 0, 255}, {255, 0, 0}, {0, 0, 255}, {0, 0, 0},
}

// SyntheticConfig describes a generated stream.
type SyntheticConfig struct {
	Width, Height int
	Format        frame.PixelFormat
	Range         frame.ColorRange
	Pattern       Pattern
	Color         [3]uint8 // RGB for PatternSolid

	// Count is the number of frames before io.EOF; 0 streams forever.
	Count int

	// FPS paces NextFrame; 0 returns frames as fast as they are read.
	FPS float64

	// FaultAfter makes NextFrame fail with ErrCapture after this many
	// frames; 0 never faults.
	FaultAfter int
}

// SyntheticSource generates packed-YUV frames without a camera. It is used
// for headless runs and tests.
type SyntheticSource struct {
	cfg SyntheticConfig

	mu        sync.Mutex
	template  []byte
	streaming bool
	emitted   int
	ticker    *time.Ticker
}

// NewSynthetic returns a synthetic source. Width and height default to
// 640x480.
func NewSynthetic(cfg SyntheticConfig) *SyntheticSource {
	if cfg.Width <= 0 {
		cfg.Width = 640
	}
	if cfg.Height <= 0 {
		cfg.Height = 480
	}
	return &SyntheticSource{cfg: cfg}
}

// Mode returns the generated format.
func (s *SyntheticSource) Mode() Mode {
	return Mode{Width: s.cfg.Width, Height: s.cfg.Height, Format: s.cfg.Format}
}

// Open renders the frame template.
func (s *SyntheticSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.Format != frame.FormatYUYV && s.cfg.Format != frame.FormatUYVY {
		return fmt.Errorf("%w: synthetic format %s", ErrDeviceUnavailable, s.cfg.Format)
	}
	s.template = s.render()
	slogger().Info("capture: synthetic source opened", "mode", s.Mode().String(), "pattern", s.cfg.Pattern.String())
	return nil
}

func (s *SyntheticSource) render() []byte {
	c := s.cfg
	f := &frame.RawFrame{
		Data:   make([]byte, frame.FrameSize(c.Width, c.Height)),
		Width:  c.Width,
		Height: c.Height,
		Format: c.Format,
		Range:  c.Range,
	}
	if c.Pattern == PatternSolid {
		y, cb, cr := yuv.FromRGB(c.Color[0], c.Color[1], c.Color[2], c.Range)
		yuv.Fill(f, y, cb, cr)
		return f.Data
	}

	stride := frame.RowStride(c.Width)
	row := f.Data[:stride]
	for x := 0; x < c.Width; x += 2 {
		bar := barColors[x*len(barColors)/c.Width]
		y, cb, cr := yuv.FromRGB(bar[0], bar[1], bar[2], c.Range)
		g := [4]byte{y, cb, y, cr}
		if c.Format == frame.FormatUYVY {
			g = [4]byte{cb, y, cr, y}
		}
		copy(row[x*2:], g[:])
	}
	for y := 1; y < c.Height; y++ {
		copy(f.Data[y*stride:(y+1)*stride], row)
	}
	return f.Data
}

// Start begins streaming.
func (s *SyntheticSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.template == nil {
		return fmt.Errorf("%w: source not open", ErrStreamStart)
	}
	if s.cfg.FPS > 0 {
		s.ticker = time.NewTicker(time.Duration(float64(time.Second) / s.cfg.FPS))
	}
	s.streaming = true
	return nil
}

// NextFrame returns a fresh copy of the template.
func (s *SyntheticSource) NextFrame(ctx context.Context) (*frame.RawFrame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if !s.streaming {
		s.mu.Unlock()
		return nil, ErrNotStreaming
	}
	if s.cfg.Count > 0 && s.emitted >= s.cfg.Count {
		s.mu.Unlock()
		return nil, io.EOF
	}
	if s.cfg.FaultAfter > 0 && s.emitted >= s.cfg.FaultAfter {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: injected fault after %d frames", ErrCapture, s.emitted)
	}
	ticker := s.ticker
	s.mu.Unlock()

	if ticker != nil {
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.streaming {
		return nil, ErrNotStreaming
	}
	s.emitted++
	data := make([]byte, len(s.template))
	copy(data, s.template)
	return &frame.RawFrame{
		Data:      data,
		Width:     s.cfg.Width,
		Height:    s.cfg.Height,
		Format:    s.cfg.Format,
		Range:     s.cfg.Range,
		Timestamp: time.Now(),
	}, nil
}

// Emitted returns the number of frames produced so far.
func (s *SyntheticSource) Emitted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emitted
}

// Stop ends streaming.
func (s *SyntheticSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streaming = false
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
	return nil
}

// Close releases the template.
func (s *SyntheticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.template = nil
	return nil
}

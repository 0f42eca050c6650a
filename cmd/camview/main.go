// Command camview streams a camera, or a synthetic test pattern, through the
// GPU conversion pipeline.
//
// Without -window it presents offscreen, which together with -backend noop
// runs the whole pipeline headless:
//
//	camview -source synthetic -backend noop -max-frames 100 -log-level debug
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gogpu/camview"
	"github.com/gogpu/camview/capture"
	"github.com/gogpu/camview/frame"
)

type flags struct {
	source  string
	device  string
	camW    int
	camH    int
	fps     float64
	count   int
	pattern string
	format  string
	rng     string

	width   int
	height  int
	display uint64
	window  uint64

	backend    string
	shaderIR   string
	draw       string
	conversion string
	workers    int
	queue      int
	overflow   string
	settle     time.Duration
	maxFrames  int
	retries    int
	logLevel   string
}

func main() {
	var f flags
	flag.StringVar(&f.source, "source", "v4l2", "frame source: v4l2 or synthetic")
	flag.StringVar(&f.device, "device", "", "V4L2 device node (default: first device)")
	flag.IntVar(&f.camW, "cam-width", 0, "capture width (default: highest available)")
	flag.IntVar(&f.camH, "cam-height", 0, "capture height (default: highest available)")
	flag.Float64Var(&f.fps, "fps", 30, "capture frame rate")
	flag.IntVar(&f.count, "count", 0, "synthetic frames before end of stream (0: unlimited)")
	flag.StringVar(&f.pattern, "pattern", "bars", "synthetic pattern: solid or bars")
	flag.StringVar(&f.format, "format", "YUYV", "synthetic pixel format: YUYV or UYVY")
	flag.StringVar(&f.rng, "range", "full", "color range: full or limited")
	flag.IntVar(&f.width, "width", 1280, "surface width")
	flag.IntVar(&f.height, "height", 720, "surface height")
	flag.Uint64Var(&f.display, "display", 0, "native display handle")
	flag.Uint64Var(&f.window, "window", 0, "native window handle (0: offscreen)")
	flag.StringVar(&f.backend, "backend", "vulkan", "GPU backend: vulkan or noop")
	flag.StringVar(&f.shaderIR, "shader-ir", "wgsl", "shader IR: wgsl or spirv")
	flag.StringVar(&f.draw, "draw", "quad", "full-screen geometry: quad or triangle")
	flag.StringVar(&f.conversion, "conversion", "gpu", "conversion path: gpu, cpu or cpu-parallel")
	flag.IntVar(&f.workers, "workers", 0, "cpu-parallel workers (0: GOMAXPROCS)")
	flag.IntVar(&f.queue, "queue", camview.DefaultQueueCapacity, "frame queue capacity")
	flag.StringVar(&f.overflow, "overflow", "drop-oldest", "queue overflow: drop-oldest, drop-newest, block or unbounded")
	flag.DurationVar(&f.settle, "settle", capture.DefaultSettleDelay, "delay after stream start")
	flag.IntVar(&f.maxFrames, "max-frames", 0, "stop after this many frames (0: unlimited)")
	flag.IntVar(&f.retries, "acquire-retries", 2, "surface acquire retries")
	flag.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flag.Parse()

	if err := run(f); err != nil {
		log.Fatalf("camview: %v", err)
	}
}

func run(f flags) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(f.logLevel)); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	camview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	rng, err := frame.ParseColorRange(f.rng)
	if err != nil {
		return err
	}
	src, err := newSource(f, rng)
	if err != nil {
		return err
	}
	opts, err := pipelineOptions(f)
	if err != nil {
		return err
	}

	var target camview.Target = camview.OffscreenTarget{}
	if f.window != 0 {
		target = camview.WindowTarget{Display: uintptr(f.display), Window: uintptr(f.window)}
	}

	p, err := camview.New(src, target, f.width, f.height, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Ready(ctx); err != nil {
		return err
	}
	err = p.Wait()

	st := p.Stats()
	camview.Logger().Info("camview: done",
		"captured", st.Captured,
		"presented", st.Presented,
		"dropped", st.Queue.Dropped,
		"conversion_errors", st.ConversionErrors,
		"present_errors", st.PresentErrors,
		"reconfigures", st.Reconfigures)
	return err
}

func newSource(f flags, rng frame.ColorRange) (capture.Source, error) {
	switch f.source {
	case "v4l2":
		return capture.NewV4L2(capture.V4L2Config{
			Path:   f.device,
			Width:  f.camW,
			Height: f.camH,
			FPS:    uint32(max(f.fps, 0)),
			Range:  rng,
		}), nil
	case "synthetic":
		pattern, err := capture.ParsePattern(f.pattern)
		if err != nil {
			return nil, err
		}
		format, err := frame.ParsePixelFormat(f.format)
		if err != nil {
			return nil, err
		}
		return capture.NewSynthetic(capture.SyntheticConfig{
			Width:   f.camW,
			Height:  f.camH,
			Format:  format,
			Range:   rng,
			Pattern: pattern,
			Color:   [3]uint8{255, 255, 255},
			Count:   f.count,
			FPS:     f.fps,
		}), nil
	default:
		return nil, fmt.Errorf("unknown source %q", f.source)
	}
}

func pipelineOptions(f flags) ([]camview.Option, error) {
	backend, err := camview.ParseBackend(f.backend)
	if err != nil {
		return nil, err
	}
	ir, err := camview.ParseShaderIR(f.shaderIR)
	if err != nil {
		return nil, err
	}
	draw, err := camview.ParseDrawVariant(f.draw)
	if err != nil {
		return nil, err
	}
	conv, err := camview.ParseConversionPath(f.conversion)
	if err != nil {
		return nil, err
	}
	overflow, err := frame.ParseOverflowPolicy(f.overflow)
	if err != nil {
		return nil, err
	}
	return []camview.Option{
		camview.WithBackend(backend),
		camview.WithShaderIR(ir),
		camview.WithDrawVariant(draw),
		camview.WithConversion(conv),
		camview.WithWorkers(f.workers),
		camview.WithQueue(f.queue, overflow),
		camview.WithSettle(f.settle),
		camview.WithMaxFrames(f.maxFrames),
		camview.WithAcquireRetries(f.retries),
	}, nil
}

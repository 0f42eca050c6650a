package camview

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gogpu/camview/capture"
	"github.com/gogpu/camview/frame"
	"github.com/gogpu/camview/internal/gpu"
	"github.com/gogpu/camview/internal/parallel"
)

// Stats is a snapshot of pipeline counters.
type Stats struct {
	Captured         uint64 // frames forwarded by the capture session
	Rendered         uint64 // frames taken off the channel by the render loop
	Presented        uint64 // frames converted and presented
	ConversionErrors uint64 // frames dropped in conversion
	PresentErrors    uint64 // frames dropped in presentation
	OutOfOrder       uint64 // frames received with a sequence not above the last
	Reconfigures     uint64 // surface reconfigurations after acquire failures
	Resizes          uint64 // host resize notifications applied
	LastSeq          uint64 // sequence number of the last rendered frame

	Capture capture.State
	Queue   frame.Stats
}

// Pipeline connects a capture source to a presentation surface:
//
//	Source -> capture goroutine -> frame.Channel -> render goroutine -> Convert -> Present
//
// The two goroutines share only the channel. One context created by Ready
// and cancelled by Close is observed at every blocking point.
type Pipeline struct {
	cfg Config
	src capture.Source

	gctx    *gpu.Context
	conv    gpu.Converter
	present *gpu.PresentStage
	resize  *gpu.ResizeHandler
	pool    *parallel.Pool
	ch      *frame.Channel

	mu         sync.Mutex
	session    *capture.Session
	cancel     context.CancelFunc
	renderDone chan struct{}
	closed     bool
	closeOnce  sync.Once

	rendered      atomic.Uint64
	presented     atomic.Uint64
	convertErrors atomic.Uint64
	presentErrors atomic.Uint64
	outOfOrder    atomic.Uint64
	lastSeq       atomic.Uint64
}

// New builds the GPU context for target at width x height, the selected
// converter, the present stage and the frame channel. GPU setup failures
// are returned and are fatal. Capture does not begin until Ready.
func New(src capture.Source, target Target, width, height int, opts ...Option) (*Pipeline, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidConfig)
	}

	var (
		gctx *gpu.Context
		err  error
	)
	if cfg.Provider != nil {
		gctx, err = gpu.NewContextFromProvider(cfg.Provider, target, width, height, cfg.gpuOptions())
	} else {
		gctx, err = gpu.NewContext(target, width, height, cfg.gpuOptions())
	}
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:     cfg,
		src:     src,
		gctx:    gctx,
		present: gpu.NewPresentStage(gctx),
		resize:  gpu.NewResizeHandler(gctx),
		ch:      frame.NewChannel(cfg.QueueCapacity, cfg.Overflow),
	}
	switch cfg.Conversion {
	case ConversionGPU:
		p.conv = gpu.NewColorConvertStage(gctx)
	case ConversionCPUScalar:
		p.conv = gpu.NewCPUConvertStage(gctx, nil)
	case ConversionCPUParallel:
		p.pool = parallel.NewPool(cfg.Workers)
		p.conv = gpu.NewCPUConvertStage(gctx, p.pool)
	}

	info := gctx.AdapterInfo()
	Logger().Info("camview: pipeline ready",
		"adapter", info.Name,
		"surface", gctx.SurfaceConfig().String(),
		"conversion", p.conv.Name(),
		"queue", cfg.QueueCapacity,
		"overflow", cfg.Overflow.String())
	return p, nil
}

// Ready is the host's "surface exists" signal. It opens and starts the
// capture source on the calling goroutine, returning setup failures, and
// then launches the capture and render goroutines. Cancelling ctx stops
// the pipeline like Close, without releasing the GPU.
func (p *Pipeline) Ready(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPipelineClosed
	}
	if p.session != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	session := capture.NewSession(p.src, p.ch, p.cfg.Settle)
	if err := session.Start(runCtx); err != nil {
		cancel()
		return err
	}

	p.session = session
	p.cancel = cancel
	p.renderDone = make(chan struct{})
	go p.render(runCtx)
	return nil
}

// render is the render goroutine: Recv, Convert, Present until end of
// stream, cancellation or MaxFrames.
func (p *Pipeline) render(ctx context.Context) {
	defer close(p.renderDone)

	limit := uint64(p.cfg.MaxFrames) //nolint:gosec // validated non-negative
	for limit == 0 || p.rendered.Load() < limit {
		f, ok := p.ch.Recv(ctx)
		if !ok {
			return
		}
		p.renderFrame(f)
	}

	Logger().Info("camview: frame limit reached", "frames", limit)
	p.cancel()
}

func (p *Pipeline) renderFrame(f *frame.RawFrame) {
	p.rendered.Add(1)
	if last := p.lastSeq.Swap(f.Seq); f.Seq <= last {
		p.outOfOrder.Add(1)
		Logger().Warn("camview: frame out of order", "seq", f.Seq, "last", last)
	}
	tex, err := p.conv.Convert(p.effectiveFrame(f))
	if err != nil {
		p.convertErrors.Add(1)
		Logger().Warn("camview: frame dropped", "seq", f.Seq, "stage", p.conv.Name(), "err", err)
		return
	}
	if err := p.present.Present(tex); err != nil {
		p.presentErrors.Add(1)
		Logger().Warn("camview: frame dropped", "seq", f.Seq, "stage", "present", "err", err)
		return
	}
	p.presented.Add(1)
	Logger().Debug("camview: frame presented", "seq", f.Seq, "queued", p.ch.Len())
}

// effectiveFrame applies a forced colour range to a shallow copy of f. The
// captured frame and its payload are never modified.
func (p *Pipeline) effectiveFrame(f *frame.RawFrame) *frame.RawFrame {
	if !p.cfg.ForceRange || f.Range == p.cfg.Range {
		return f
	}
	g := *f
	g.Range = p.cfg.Range
	return &g
}

// Resize applies a host resize notification. Sizes below 1 are clamped.
func (p *Pipeline) Resize(width, height int) {
	if err := p.resize.HandleResize(width, height); err != nil {
		Logger().Warn("camview: resize failed", "width", width, "height", height, "err", err)
	}
}

// Wait blocks until both goroutines have finished and returns the capture
// fault, if any. End of stream and cancellation return nil. It returns
// immediately when Ready was never called successfully.
func (p *Pipeline) Wait() error {
	p.mu.Lock()
	session, done := p.session, p.renderDone
	p.mu.Unlock()
	if session == nil {
		return nil
	}
	<-done
	return session.Wait()
}

// Close cancels the shared context, waits for both goroutines and releases
// the GPU. It is safe to call more than once. It returns the capture fault,
// if any.
func (p *Pipeline) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		cancel := p.cancel
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		err = p.Wait()

		p.gctx.Close()
		if p.pool != nil {
			p.pool.Close()
		}
		Logger().Info("camview: pipeline closed", "presented", p.presented.Load())
	})
	return err
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() Stats {
	p.mu.Lock()
	session := p.session
	p.mu.Unlock()

	s := Stats{
		Rendered:         p.rendered.Load(),
		Presented:        p.presented.Load(),
		ConversionErrors: p.convertErrors.Load(),
		PresentErrors:    p.presentErrors.Load(),
		OutOfOrder:       p.outOfOrder.Load(),
		Reconfigures:     p.present.Reconfigures(),
		Resizes:          p.resize.Handled(),
		LastSeq:          p.lastSeq.Load(),
		Capture:          capture.StateClosed,
		Queue:            p.ch.Stats(),
	}
	if session != nil {
		s.Captured = session.Captured()
		s.Capture = session.State()
	}
	return s
}

// SurfaceConfig returns the current surface configuration.
func (p *Pipeline) SurfaceConfig() SurfaceConfig {
	return p.gctx.SurfaceConfig()
}

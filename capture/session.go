package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/camview/frame"
)

// DefaultSettleDelay is how long a session waits after the stream starts
// before forwarding frames. Many UVC cameras deliver dark or partially
// exposed frames right after stream-on.
const DefaultSettleDelay = 100 * time.Millisecond

// State is the lifecycle state of a capture session.
type State int32

const (
	StateClosed State = iota
	StateOpened
	StateStreaming
	StateStopped
	StateFaulted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpened:
		return "Opened"
	case StateStreaming:
		return "Streaming"
	case StateStopped:
		return "Stopped"
	case StateFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}

// Session drives a Source on its own goroutine and forwards every frame
// into a frame.Channel in capture order.
//
// State moves Closed → Opened → Streaming → Stopped on a normal end of
// stream or cancellation, or → Faulted on a setup failure or hard capture
// fault. The channel is closed whenever the session ends, so the consumer
// sees end-of-stream.
type Session struct {
	src    Source
	ch     *frame.Channel
	settle time.Duration

	state    atomic.Int32
	started  atomic.Bool
	captured atomic.Uint64
	seq      uint64

	mu   sync.Mutex
	err  error
	done chan struct{}
}

// NewSession creates a session that reads src into ch, waiting settle after
// stream start before the first frame is forwarded. Zero disables the wait.
func NewSession(src Source, ch *frame.Channel, settle time.Duration) *Session {
	return &Session{
		src:    src,
		ch:     ch,
		settle: settle,
		done:   make(chan struct{}),
	}
}

// Start opens and starts the source on the calling goroutine, so setup
// failures are returned directly, then launches the capture goroutine.
// It may be called once.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.New("capture: session already started")
	}

	if err := s.src.Open(); err != nil {
		s.abort(err, false)
		return err
	}
	s.state.Store(int32(StateOpened))

	if err := s.src.Start(ctx); err != nil {
		s.abort(err, true)
		return err
	}
	s.state.Store(int32(StateStreaming))
	slogger().Info("capture: streaming started")

	go s.run(ctx)
	return nil
}

// abort records a setup failure and releases what was acquired.
func (s *Session) abort(err error, opened bool) {
	if opened {
		_ = s.src.Close()
	}
	s.finish(StateFaulted, err)
	close(s.done)
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	if s.settle > 0 {
		t := time.NewTimer(s.settle)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			s.stop(StateStopped, nil)
			return
		}
	}

	for {
		f, err := s.src.NextFrame(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), ctx.Err() != nil:
				s.stop(StateStopped, nil)
			default:
				s.stop(StateFaulted, err)
			}
			return
		}

		s.seq++
		f.Seq = s.seq
		if f.Timestamp.IsZero() {
			f.Timestamp = time.Now()
		}

		if err := s.ch.Send(ctx, f); err != nil {
			s.stop(StateStopped, nil)
			return
		}
		s.captured.Add(1)
	}
}

// stop releases the source and ends the session.
func (s *Session) stop(st State, err error) {
	if serr := s.src.Stop(); serr != nil {
		slogger().Warn("capture: stop failed", "err", serr)
	}
	if cerr := s.src.Close(); cerr != nil {
		slogger().Warn("capture: close failed", "err", cerr)
	}
	s.finish(st, err)
}

func (s *Session) finish(st State, err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.state.Store(int32(st))
	s.ch.Close()

	if err != nil {
		slogger().Error("capture: session faulted", "err", err, "frames", s.captured.Load())
		return
	}
	slogger().Info("capture: session stopped", "frames", s.captured.Load())
}

// State returns the current session state.
func (s *Session) State() State { return State(s.state.Load()) }

// Captured returns the number of frames forwarded into the channel.
func (s *Session) Captured() uint64 { return s.captured.Load() }

// Done is closed when the session has ended.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends and returns the fault, if any. It
// returns immediately for a session that was never started.
func (s *Session) Wait() error {
	if !s.started.Load() {
		return nil
	}
	<-s.done
	return s.Err()
}

// Err returns the error that ended the session, or nil.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// String describes the session for logs.
func (s *Session) String() string {
	return fmt.Sprintf("capture session (%s, %d frames)", s.State(), s.Captured())
}

package frame

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned by Send after the channel has been closed.
var ErrClosed = errors.New("frame: channel closed")

// OverflowPolicy decides what Send does when a bounded channel is full.
type OverflowPolicy int

const (
	// DropOldest evicts the oldest queued frame to make room. The consumer
	// always sees the most recent frames, which keeps preview latency low.
	DropOldest OverflowPolicy = iota

	// DropNewest discards the incoming frame and keeps the queue as is.
	DropNewest

	// Block makes Send wait for free space or context cancellation.
	Block

	// Unbounded never drops and never blocks; the queue grows without limit
	// when the consumer falls behind.
	Unbounded
)

// String returns the policy name.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "drop-oldest"
	case DropNewest:
		return "drop-newest"
	case Block:
		return "block"
	case Unbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

// ParseOverflowPolicy parses a policy name as printed by String.
func ParseOverflowPolicy(s string) (OverflowPolicy, error) {
	switch s {
	case "drop-oldest", "oldest":
		return DropOldest, nil
	case "drop-newest", "newest":
		return DropNewest, nil
	case "block":
		return Block, nil
	case "unbounded":
		return Unbounded, nil
	default:
		return 0, fmt.Errorf("frame: unknown overflow policy %q", s)
	}
}

// Stats is a snapshot of channel counters.
type Stats struct {
	Sent      uint64 // frames accepted by Send
	Received  uint64 // frames handed out by Recv
	Dropped   uint64 // frames discarded by the overflow policy
	Len       int    // frames currently queued
	HighWater int    // largest queue length observed
}

// Channel is an ordered single-producer, single-consumer frame queue.
//
// Frames are delivered in the order they were sent. Close marks the end of
// the stream; frames already queued are still delivered, after which Recv
// reports end-of-stream. All blocking operations honour their context.
type Channel struct {
	mu        sync.Mutex
	queue     []*RawFrame
	capacity  int
	policy    OverflowPolicy
	closed    bool
	highWater int

	ready chan struct{} // a frame was queued
	space chan struct{} // a frame was dequeued
	done  chan struct{} // closed by Close

	sent     atomic.Uint64
	received atomic.Uint64
	dropped  atomic.Uint64
}

// NewChannel creates a channel holding at most capacity frames under the
// given overflow policy. Capacity is ignored for Unbounded and raised to 1
// for the bounded policies.
func NewChannel(capacity int, policy OverflowPolicy) *Channel {
	if policy == Unbounded {
		capacity = 0
	} else if capacity < 1 {
		capacity = 1
	}
	return &Channel{
		capacity: capacity,
		policy:   policy,
		ready:    make(chan struct{}, 1),
		space:    make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
}

// Capacity returns the queue bound, or 0 for an unbounded channel.
func (c *Channel) Capacity() int { return c.capacity }

// Policy returns the overflow policy.
func (c *Channel) Policy() OverflowPolicy { return c.policy }

// Send queues f. It only blocks under the Block policy, and then only until
// space frees up, the channel closes, or ctx is done.
func (c *Channel) Send(ctx context.Context, f *RawFrame) error {
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return ErrClosed
		}
		if c.policy == Unbounded || len(c.queue) < c.capacity {
			c.push(f)
			c.mu.Unlock()
			notify(c.ready)
			return nil
		}

		switch c.policy {
		case DropOldest:
			c.pop()
			c.dropped.Add(1)
			c.push(f)
			c.mu.Unlock()
			notify(c.ready)
			return nil
		case DropNewest:
			c.mu.Unlock()
			c.dropped.Add(1)
			return nil
		}
		c.mu.Unlock()

		select {
		case <-c.space:
		case <-c.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Recv returns the next frame in send order. It blocks until a frame is
// available. After Close and once the queue is drained, or when ctx is
// done, it returns (nil, false).
func (c *Channel) Recv(ctx context.Context) (*RawFrame, bool) {
	for {
		c.mu.Lock()
		if len(c.queue) > 0 {
			f := c.pop()
			c.mu.Unlock()
			c.received.Add(1)
			notify(c.space)
			return f, true
		}
		if c.closed {
			c.mu.Unlock()
			return nil, false
		}
		c.mu.Unlock()

		select {
		case <-c.ready:
		case <-c.done:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close ends the stream. It is safe to call more than once.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of queued frames.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Stats returns a snapshot of the channel counters.
func (c *Channel) Stats() Stats {
	c.mu.Lock()
	n, hw := len(c.queue), c.highWater
	c.mu.Unlock()
	return Stats{
		Sent:      c.sent.Load(),
		Received:  c.received.Load(),
		Dropped:   c.dropped.Load(),
		Len:       n,
		HighWater: hw,
	}
}

// push appends f. Caller holds c.mu.
func (c *Channel) push(f *RawFrame) {
	c.queue = append(c.queue, f)
	c.sent.Add(1)
	if len(c.queue) > c.highWater {
		c.highWater = len(c.queue)
	}
}

// pop removes the head of the queue. Caller holds c.mu.
func (c *Channel) pop() *RawFrame {
	f := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	if len(c.queue) == 0 {
		c.queue = nil
	}
	return f
}

// notify performs a non-blocking send on a wakeup channel.
func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

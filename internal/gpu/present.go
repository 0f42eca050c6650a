// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// PresentStage draws a converted frame over the whole surface and presents
// it.
type PresentStage struct {
	ctx *Context

	presented    atomic.Uint64
	reconfigures atomic.Uint64
}

// NewPresentStage returns a present stage on ctx.
func NewPresentStage(ctx *Context) *PresentStage {
	return &PresentStage{ctx: ctx}
}

// Presented returns the number of frames presented.
func (s *PresentStage) Presented() uint64 { return s.presented.Load() }

// Reconfigures returns the number of acquire-failure reconfigurations.
func (s *PresentStage) Reconfigures() uint64 { return s.reconfigures.Load() }

// Present draws tex and presents it. tex is released in every case.
//
// A failed surface acquire reconfigures the surface at its current size and
// retries up to Options.AcquireRetries times before ErrSurfaceAcquire is
// returned. Other failures wrap ErrPresent.
func (s *PresentStage) Present(tex *DisplayTexture) error {
	defer tex.Release()
	c := s.ctx

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	bindGroup, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "present_bind",
		Layout: c.renderBindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: tex.View.NativeHandle()}},
			{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: c.sampler.NativeHandle()}},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: create bind group: %w", ErrPresent, err)
	}
	defer c.device.DestroyBindGroup(bindGroup)

	target, err := s.acquireLocked()
	if err != nil {
		return err
	}

	view, err := c.device.CreateTextureView(target, &hal.TextureViewDescriptor{
		Label:           "surface_view",
		Format:          c.config.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	if err != nil {
		c.surface.Discard(target)
		return fmt.Errorf("%w: create surface view: %w", ErrPresent, err)
	}
	defer c.device.DestroyTextureView(view)

	vertices := c.opts.DrawVariant.vertexCount()
	cmd, err := c.encode("present", func(enc hal.CommandEncoder) {
		rp := enc.BeginRenderPass(&hal.RenderPassDescriptor{
			Label: "present_pass",
			ColorAttachments: []hal.RenderPassColorAttachment{{
				View:       view,
				LoadOp:     gputypes.LoadOpClear,
				StoreOp:    gputypes.StoreOpStore,
				ClearValue: c.opts.ClearColor,
			}},
		})
		rp.SetPipeline(c.renderPipeline)
		rp.SetBindGroup(0, bindGroup, nil)
		rp.Draw(vertices, 1, 0, 0)
		rp.End()
	})
	if err != nil {
		c.surface.Discard(target)
		return fmt.Errorf("%w: %w", ErrPresent, err)
	}
	defer c.device.FreeCommandBuffer(cmd)

	idx, err := c.queue.Submit([]hal.CommandBuffer{cmd})
	if err != nil {
		c.surface.Discard(target)
		return fmt.Errorf("%w: submit: %w", ErrPresent, err)
	}
	if err := c.surface.Present(c.queue, target); err != nil {
		return fmt.Errorf("%w: %w", ErrPresent, err)
	}
	if err := c.awaitSubmission(idx); err != nil {
		return fmt.Errorf("%w: %w", ErrPresent, err)
	}

	s.presented.Add(1)
	return nil
}

// acquireLocked acquires the next surface texture, reconfiguring and
// retrying on failure. c.mu must be held.
func (s *PresentStage) acquireLocked() (hal.SurfaceTexture, error) {
	c := s.ctx
	retries := max(c.opts.AcquireRetries, 0)
	for attempt := 0; ; attempt++ {
		target, err := c.surface.Acquire()
		if err == nil {
			return target, nil
		}
		if attempt >= retries {
			return nil, fmt.Errorf("%w: after %d attempts: %w", ErrSurfaceAcquire, attempt+1, err)
		}

		slogger().Warn("gpu: surface acquire failed, reconfiguring",
			"attempt", attempt+1, "err", err)
		s.reconfigures.Add(1)
		if rerr := c.reconfigureLocked(c.config.Width, c.config.Height); rerr != nil {
			slogger().Warn("gpu: reconfigure after acquire failure", "err", rerr)
		}
	}
}

package gpu

import "sync/atomic"

// ResizeHandler applies host resize notifications to a Context. It may be
// called from any goroutine.
type ResizeHandler struct {
	ctx     *Context
	handled atomic.Uint64
}

// NewResizeHandler returns a resize handler for ctx.
func NewResizeHandler(ctx *Context) *ResizeHandler {
	return &ResizeHandler{ctx: ctx}
}

// HandleResize reconfigures the surface to width x height. Dimensions below
// 1 are clamped to 1, so a minimised window never produces a zero-sized
// swapchain.
func (r *ResizeHandler) HandleResize(width, height int) error {
	if err := r.ctx.Reconfigure(width, height); err != nil {
		return err
	}
	r.handled.Add(1)
	w, h := r.ctx.SurfaceSize()
	slogger().Info("gpu: resized", "width", w, "height", h)
	return nil
}

// Handled returns the number of resizes applied.
func (r *ResizeHandler) Handled() uint64 { return r.handled.Load() }

// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpu

import "errors"

// GPU pipeline errors. Setup errors are fatal; per-frame errors drop the
// frame and the render loop continues.
var (
	// ErrAdapterOrDevice is returned when no adapter or device can be obtained.
	ErrAdapterOrDevice = errors.New("gpu: no suitable adapter or device")

	// ErrPipelineCreation is returned when a shader, layout or pipeline
	// cannot be created.
	ErrPipelineCreation = errors.New("gpu: pipeline creation failed")

	// ErrSurfaceAcquire is returned when the next surface frame cannot be
	// acquired. It is transient: the surface is reconfigured and the acquire
	// retried.
	ErrSurfaceAcquire = errors.New("gpu: surface acquire failed")

	// ErrConversion is returned when a frame cannot be converted.
	ErrConversion = errors.New("gpu: color conversion failed")

	// ErrPresent is returned when a converted frame cannot be drawn or
	// presented.
	ErrPresent = errors.New("gpu: present failed")

	// ErrClosed is returned by stages used after Context.Close.
	ErrClosed = errors.New("gpu: context closed")
)

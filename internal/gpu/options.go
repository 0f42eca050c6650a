package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Backend selects the HAL backend that NewContext opens.
type Backend int

const (
	// BackendVulkan renders through the Vulkan HAL.
	BackendVulkan Backend = iota

	// BackendNoop uses the no-op HAL. Every call succeeds and nothing is
	// drawn; it is used for headless runs and tests.
	BackendNoop
)

// String returns the backend name.
func (b Backend) String() string {
	switch b {
	case BackendVulkan:
		return "vulkan"
	case BackendNoop:
		return "noop"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend parses "vulkan" or "noop".
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "vulkan":
		return BackendVulkan, nil
	case "noop":
		return BackendNoop, nil
	default:
		return 0, fmt.Errorf("gpu: unknown backend %q", s)
	}
}

// variant maps the backend onto the HAL registry key.
func (b Backend) variant() gputypes.Backend {
	if b == BackendNoop {
		return gputypes.BackendEmpty
	}
	return gputypes.BackendVulkan
}

// ShaderIR selects the form in which shader modules are handed to the HAL.
type ShaderIR int

const (
	// ShaderIRWGSL passes WGSL source and lets the backend translate it.
	ShaderIRWGSL ShaderIR = iota

	// ShaderIRSPIRV compiles WGSL to SPIR-V with naga before module creation.
	ShaderIRSPIRV
)

// String returns the IR name.
func (s ShaderIR) String() string {
	switch s {
	case ShaderIRWGSL:
		return "wgsl"
	case ShaderIRSPIRV:
		return "spirv"
	default:
		return fmt.Sprintf("ShaderIR(%d)", int(s))
	}
}

// ParseShaderIR parses "wgsl" or "spirv".
func ParseShaderIR(s string) (ShaderIR, error) {
	switch s {
	case "wgsl":
		return ShaderIRWGSL, nil
	case "spirv":
		return ShaderIRSPIRV, nil
	default:
		return 0, fmt.Errorf("gpu: unknown shader IR %q", s)
	}
}

// DrawVariant selects the full-screen primitive used by PresentStage.
type DrawVariant int

const (
	// DrawQuad draws two triangles (6 vertices).
	DrawQuad DrawVariant = iota

	// DrawTriangle draws one oversized triangle (3 vertices).
	DrawTriangle
)

// String returns the variant name.
func (d DrawVariant) String() string {
	switch d {
	case DrawQuad:
		return "quad"
	case DrawTriangle:
		return "triangle"
	default:
		return fmt.Sprintf("DrawVariant(%d)", int(d))
	}
}

// ParseDrawVariant parses "quad" or "triangle".
func ParseDrawVariant(s string) (DrawVariant, error) {
	switch s {
	case "quad":
		return DrawQuad, nil
	case "triangle":
		return DrawTriangle, nil
	default:
		return 0, fmt.Errorf("gpu: unknown draw variant %q", s)
	}
}

func (d DrawVariant) entryPoint() string {
	if d == DrawTriangle {
		return "vs_triangle"
	}
	return "vs_quad"
}

func (d DrawVariant) vertexCount() uint32 {
	if d == DrawTriangle {
		return 3
	}
	return 6
}

// DefaultClearColor is the render-pass clear colour: opaque green.
var DefaultClearColor = gputypes.Color{R: 0, G: 1, B: 0, A: 1}

// DefaultAcquireRetries is the number of reconfigure-and-retry attempts
// after a failed surface acquire.
const DefaultAcquireRetries = 2

// DefaultMaxFrameLatency is the number of frames that may be queued for
// presentation.
const DefaultMaxFrameLatency = 2

// Options configures a Context.
type Options struct {
	Backend        Backend
	ShaderIR       ShaderIR
	DrawVariant    DrawVariant
	ClearColor     gputypes.Color
	AcquireRetries int
}

// DefaultOptions returns the Vulkan backend with WGSL shaders, the quad
// draw, a green clear and two acquire retries.
func DefaultOptions() Options {
	return Options{
		Backend:        BackendVulkan,
		ShaderIR:       ShaderIRWGSL,
		DrawVariant:    DrawQuad,
		ClearColor:     DefaultClearColor,
		AcquireRetries: DefaultAcquireRetries,
	}
}

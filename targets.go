package camview

import "github.com/gogpu/camview/internal/gpu"

// Presentation targets and GPU option types.
type (
	// Target creates the presentation surface.
	Target = gpu.Target

	// WindowTarget presents to a native window given its display and window
	// handles.
	WindowTarget = gpu.WindowTarget

	// OffscreenTarget presents into a ring of textures without a window.
	OffscreenTarget = gpu.OffscreenTarget

	Surface       = gpu.Surface
	SurfaceConfig = gpu.SurfaceConfig

	Backend     = gpu.Backend
	ShaderIR    = gpu.ShaderIR
	DrawVariant = gpu.DrawVariant
)

const (
	BackendVulkan = gpu.BackendVulkan
	BackendNoop   = gpu.BackendNoop

	ShaderIRWGSL  = gpu.ShaderIRWGSL
	ShaderIRSPIRV = gpu.ShaderIRSPIRV

	DrawQuad     = gpu.DrawQuad
	DrawTriangle = gpu.DrawTriangle
)

// Parsers for the GPU option names, as accepted on the command line.
var (
	ParseBackend     = gpu.ParseBackend
	ParseShaderIR    = gpu.ParseShaderIR
	ParseDrawVariant = gpu.ParseDrawVariant
)

package camview

import "fmt"

// ConversionPath selects where YUV to RGBA conversion runs.
type ConversionPath int

const (
	// ConversionGPU runs the compute shader. It is the default and does no
	// per-pixel work on the CPU.
	ConversionGPU ConversionPath = iota

	// ConversionCPUScalar converts on the render goroutine and uploads the
	// result.
	ConversionCPUScalar

	// ConversionCPUParallel converts in row bands across a worker pool.
	ConversionCPUParallel
)

// String returns the conversion path name.
func (p ConversionPath) String() string {
	switch p {
	case ConversionGPU:
		return "gpu"
	case ConversionCPUScalar:
		return "cpu"
	case ConversionCPUParallel:
		return "cpu-parallel"
	default:
		return "unknown"
	}
}

// ParseConversionPath parses a name as printed by String.
func ParseConversionPath(s string) (ConversionPath, error) {
	switch s {
	case "gpu", "compute":
		return ConversionGPU, nil
	case "cpu", "scalar":
		return ConversionCPUScalar, nil
	case "cpu-parallel", "parallel":
		return ConversionCPUParallel, nil
	default:
		return 0, fmt.Errorf("camview: unknown conversion path %q", s)
	}
}

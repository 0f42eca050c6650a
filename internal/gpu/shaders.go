package gpu

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

// Embedded WGSL shader sources.

//go:embed shaders/yuyv_to_rgba.wgsl
var convertShaderSource string

//go:embed shaders/present.wgsl
var presentShaderSource string

// Compute shader interface.
const (
	convertEntryPoint = "main"
	workgroupSize     = 16
)

// Render shader fragment entry point.
const presentFragmentEntry = "fs_main"

// Bits of the compute params flags word.
const (
	flagUYVY    uint32 = 1 << 0
	flagLimited uint32 = 1 << 1
)

var errShaderEmpty = errors.New("shader source is empty")

// compileSPIRV compiles WGSL source to SPIR-V words with naga.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("compile WGSL: %w", err)
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("compile WGSL: SPIR-V length %d is not word aligned", len(spirvBytes))
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// shaderSource returns the module source for wgsl in the requested IR.
func shaderSource(ir ShaderIR, wgsl string) (hal.ShaderSource, error) {
	if wgsl == "" {
		return hal.ShaderSource{}, errShaderEmpty
	}
	if ir != ShaderIRSPIRV {
		return hal.ShaderSource{WGSL: wgsl}, nil
	}
	words, err := compileSPIRV(wgsl)
	if err != nil {
		return hal.ShaderSource{}, err
	}
	return hal.ShaderSource{SPIRV: words}, nil
}

// createShader builds a shader module from embedded WGSL.
func createShader(device hal.Device, ir ShaderIR, label, wgsl string) (hal.ShaderModule, error) {
	src, err := shaderSource(ir, wgsl)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", label, err)
	}
	module, err := device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: src,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module %s: %w", label, err)
	}
	slogger().Debug("gpu: shader module created", "label", label, "ir", ir.String())
	return module, nil
}

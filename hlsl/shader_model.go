// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "fmt"

// ShaderModel represents a DirectX Shader Model version.
// Shader Models define the feature set available for shader compilation.
type ShaderModel uint8

// Supported Shader Model versions.
const (
	// ShaderModel4_0Level9_1 targets feature level 9.1 and 9.2 hardware
	// through the SM4 compiler.
	ShaderModel4_0Level9_1 ShaderModel = iota

	// ShaderModel4_0Level9_3 targets feature level 9.3 hardware.
	ShaderModel4_0Level9_3

	// ShaderModel4_0 is the DirectX 10 shader model.
	ShaderModel4_0

	// ShaderModel4_1 is the DirectX 10.1 shader model.
	ShaderModel4_1

	// ShaderModel5_0 is the base SM5 version (DirectX 11).
	ShaderModel5_0

	// ShaderModel5_1 provides improved resource binding.
	ShaderModel5_1

	// ShaderModel6_0 introduces wave intrinsics and DXIL.
	ShaderModel6_0

	// ShaderModel6_1 adds SV_ViewID and barycentrics.
	ShaderModel6_1

	// ShaderModel6_2 adds float16 and denorm control.
	ShaderModel6_2
)

// String returns a human-readable representation of the shader model.
// Example: "SM 5.0", "SM 4.0 level 9.3"
func (sm ShaderModel) String() string {
	major, minor := sm.version()
	if lmaj, lmin, ok := sm.downlevel(); ok {
		return fmt.Sprintf("SM %d.%d level %d.%d", major, minor, lmaj, lmin)
	}
	return fmt.Sprintf("SM %d.%d", major, minor)
}

// ProfileSuffix returns the shader profile suffix for this model.
// Example: "5_0", "4_0_level_9_1"
// Used to construct profiles like "vs_5_0", "ps_4_0_level_9_3".
func (sm ShaderModel) ProfileSuffix() string {
	major, minor := sm.version()
	if lmaj, lmin, ok := sm.downlevel(); ok {
		return fmt.Sprintf("%d_%d_level_%d_%d", major, minor, lmaj, lmin)
	}
	return fmt.Sprintf("%d_%d", major, minor)
}

// version returns the major and minor version numbers.
func (sm ShaderModel) version() (major, minor uint8) {
	switch sm {
	case ShaderModel4_0Level9_1, ShaderModel4_0Level9_3, ShaderModel4_0:
		return 4, 0
	case ShaderModel4_1:
		return 4, 1
	case ShaderModel5_0:
		return 5, 0
	case ShaderModel5_1:
		return 5, 1
	case ShaderModel6_0:
		return 6, 0
	case ShaderModel6_1:
		return 6, 1
	case ShaderModel6_2:
		return 6, 2
	default:
		return 5, 0
	}
}

// downlevel reports the 9.x hardware level a SM4 profile is restricted to.
func (sm ShaderModel) downlevel() (major, minor uint8, ok bool) {
	switch sm {
	case ShaderModel4_0Level9_1:
		return 9, 1, true
	case ShaderModel4_0Level9_3:
		return 9, 3, true
	}
	return 0, 0, false
}

// Major returns the major version number.
func (sm ShaderModel) Major() uint8 {
	major, _ := sm.version()
	return major
}

// Minor returns the minor version number.
func (sm ShaderModel) Minor() uint8 {
	_, minor := sm.version()
	return minor
}

// SupportsDXIL returns true if this shader model uses DXIL output.
// Shader Model 6.0+ uses DXIL (DirectX Intermediate Language) and needs DXC.
// Earlier models use DXBC (DirectX Bytecode) and FXC.
func (sm ShaderModel) SupportsDXIL() bool {
	return sm >= ShaderModel6_0
}

// SupportsStage reports whether the shader model has a profile for the stage.
// Geometry shaders appeared with SM 4.0, hull and domain shaders with SM 5.0,
// and compute shaders with SM 4.0 (cs_4_x).
func (sm ShaderModel) SupportsStage(stage Stage) bool {
	switch stage {
	case StageVertex, StagePixel:
		return true
	case StageGeometry, StageCompute:
		return sm >= ShaderModel4_0
	case StageHull, StageDomain:
		return sm >= ShaderModel5_0
	default:
		return false
	}
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"context"
	"strings"

	"github.com/gogpu/fxc/preprocess"
)

// ShaderFlags are compile flags passed to the shader compiler.
// Values match the D3DCOMPILE_* bits except FlagEffectLegacy, which no
// compiler receives directly.
type ShaderFlags uint32

const (
	// FlagNone compiles with compiler defaults.
	FlagNone ShaderFlags = 0

	FlagDebug                        ShaderFlags = 1 << 0
	FlagSkipValidation               ShaderFlags = 1 << 1
	FlagSkipOptimization             ShaderFlags = 1 << 2
	FlagPackMatrixRowMajor           ShaderFlags = 1 << 3
	FlagPackMatrixColumnMajor        ShaderFlags = 1 << 4
	FlagPartialPrecision             ShaderFlags = 1 << 5
	FlagAvoidFlowControl             ShaderFlags = 1 << 9
	FlagPreferFlowControl            ShaderFlags = 1 << 10
	FlagEnableStrictness             ShaderFlags = 1 << 11
	FlagEnableBackwardsCompatibility ShaderFlags = 1 << 12
	FlagIEEEStrictness               ShaderFlags = 1 << 13
	FlagOptimizationLevel0           ShaderFlags = 1 << 14
	FlagOptimizationLevel3           ShaderFlags = 1 << 15
	FlagWarningsAreErrors            ShaderFlags = 1 << 18

	// FlagEffectLegacy requests the older effect-style code path. Compiler
	// implementations mask it out and translate it to their own switch.
	FlagEffectLegacy ShaderFlags = 1 << 31
)

var shaderFlagNames = []struct {
	flag ShaderFlags
	name string
}{
	{FlagDebug, "Debug"},
	{FlagSkipValidation, "SkipValidation"},
	{FlagSkipOptimization, "SkipOptimization"},
	{FlagPackMatrixRowMajor, "PackMatrixRowMajor"},
	{FlagPackMatrixColumnMajor, "PackMatrixColumnMajor"},
	{FlagPartialPrecision, "PartialPrecision"},
	{FlagAvoidFlowControl, "AvoidFlowControl"},
	{FlagPreferFlowControl, "PreferFlowControl"},
	{FlagEnableStrictness, "EnableStrictness"},
	{FlagEnableBackwardsCompatibility, "EnableBackwardsCompatibility"},
	{FlagIEEEStrictness, "IEEEStrictness"},
	{FlagOptimizationLevel0, "OptimizationLevel0"},
	{FlagOptimizationLevel3, "OptimizationLevel3"},
	{FlagWarningsAreErrors, "WarningsAreErrors"},
	{FlagEffectLegacy, "EffectLegacy"},
}

// Has returns true if the flags contain the specified flag.
func (f ShaderFlags) Has(flag ShaderFlags) bool {
	return f&flag != 0
}

// String returns a "|"-separated list of set flags.
func (f ShaderFlags) String() string {
	if f == FlagNone {
		return "none"
	}
	var names []string
	for _, n := range shaderFlagNames {
		if f.Has(n.flag) {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// ShaderFlagByName returns the flag whose String form is name, ignoring case.
func ShaderFlagByName(name string) (ShaderFlags, bool) {
	for _, n := range shaderFlagNames {
		if strings.EqualFold(n.name, name) {
			return n.flag, true
		}
	}
	return FlagNone, false
}

// EffectFlags are the D3DCOMPILE_EFFECT_* bits.
type EffectFlags uint32

const (
	EffectChildEffect  EffectFlags = 1 << 0
	EffectAllowSlowOps EffectFlags = 1 << 1
)

// StripFlags select which blobs Strip removes from bytecode.
type StripFlags uint32

const (
	StripReflection StripFlags = 1 << 0
	StripDebugInfo  StripFlags = 1 << 1
	StripTestBlobs  StripFlags = 1 << 2
)

// CompileRequest is one shader-stage compilation.
type CompileRequest struct {
	// Source is the full preprocessed effect source.
	Source string

	// SourceName is used by the compiler in diagnostics.
	SourceName string

	// EntryPoint is the HLSL function to compile.
	EntryPoint string

	// Profile is the target profile, e.g. "vs_5_0".
	Profile string

	Flags       ShaderFlags
	EffectFlags EffectFlags
	Macros      []preprocess.Macro

	// Include resolves #include directives still present in Source.
	// May be nil when Source is fully preprocessed.
	Include *preprocess.Resolver
}

// CompileResult is the outcome of a compilation. HasErrors is set when
// Bytecode is unusable; Messages carries compiler output either way.
type CompileResult struct {
	Bytecode  []byte
	HasErrors bool
	Messages  string
}

// Compiler turns HLSL source into bytecode.
type Compiler interface {
	Compile(ctx context.Context, req *CompileRequest) (*CompileResult, error)
}

// Reflector extracts signatures, constant buffers and resource bindings
// from compiled bytecode.
type Reflector interface {
	Reflect(bytecode []byte) (*Reflection, error)
}

// Stripper post-processes compiled bytecode.
type Stripper interface {
	Strip(bytecode []byte, flags StripFlags) ([]byte, error)

	// InputSignatureBlob returns a standalone container holding only the
	// input signature of a vertex shader.
	InputSignatureBlob(bytecode []byte) ([]byte, error)
}

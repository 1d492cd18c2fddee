// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "github.com/gogpu/gputypes"

// RegisterType represents the HLSL register type.
type RegisterType uint8

const (
	// RegisterTypeB is for constant buffers (cbuffer).
	RegisterTypeB RegisterType = iota

	// RegisterTypeT is for textures and shader resource views.
	RegisterTypeT

	// RegisterTypeS is for samplers.
	RegisterTypeS

	// RegisterTypeU is for unordered access views (UAV).
	RegisterTypeU
)

// String returns the single-character register prefix.
func (rt RegisterType) String() string {
	switch rt {
	case RegisterTypeB:
		return "b"
	case RegisterTypeT:
		return "t"
	case RegisterTypeS:
		return "s"
	case RegisterTypeU:
		return "u"
	default:
		return "b"
	}
}

// ShaderInputType is the kind of a bound resource (D3D_SHADER_INPUT_TYPE).
type ShaderInputType uint8

const (
	InputCBuffer ShaderInputType = iota
	InputTBuffer
	InputTexture
	InputSampler
	InputUAVRWTyped
	InputStructured
	InputUAVRWStructured
	InputByteAddress
	InputUAVRWByteAddress
	InputUAVAppendStructured
	InputUAVConsumeStructured
	InputUAVRWStructuredWithCounter
)

// RegisterType returns the register class the resource binds to.
func (t ShaderInputType) RegisterType() RegisterType {
	switch t {
	case InputCBuffer:
		return RegisterTypeB
	case InputSampler:
		return RegisterTypeS
	case InputUAVRWTyped, InputUAVRWStructured, InputUAVRWByteAddress,
		InputUAVAppendStructured, InputUAVConsumeStructured, InputUAVRWStructuredWithCounter:
		return RegisterTypeU
	default:
		return RegisterTypeT
	}
}

// ResourceDimension is the view dimension of a bound resource (D3D_SRV_DIMENSION).
type ResourceDimension uint8

const (
	DimensionUnknown ResourceDimension = iota
	DimensionBuffer
	DimensionTexture1D
	DimensionTexture1DArray
	DimensionTexture2D
	DimensionTexture2DArray
	DimensionTexture2DMS
	DimensionTexture2DMSArray
	DimensionTexture3D
	DimensionTextureCube
	DimensionTextureCubeArray
	DimensionBufferEx
)

// ViewDimension maps the dimension to the closest WebGPU texture view
// dimension. Buffers and unknown dimensions map to Undefined.
func (d ResourceDimension) ViewDimension() gputypes.TextureViewDimension {
	switch d {
	case DimensionTexture1D, DimensionTexture1DArray:
		return gputypes.TextureViewDimension1D
	case DimensionTexture2D, DimensionTexture2DMS:
		return gputypes.TextureViewDimension2D
	case DimensionTexture2DArray, DimensionTexture2DMSArray:
		return gputypes.TextureViewDimension2DArray
	case DimensionTexture3D:
		return gputypes.TextureViewDimension3D
	case DimensionTextureCube:
		return gputypes.TextureViewDimensionCube
	case DimensionTextureCubeArray:
		return gputypes.TextureViewDimensionCubeArray
	default:
		return gputypes.TextureViewDimensionUndefined
	}
}

// CBufferType distinguishes constant buffers from texture buffers (D3D_CBUFFER_TYPE).
type CBufferType uint8

const (
	CBufferConstant CBufferType = iota
	CBufferTexture
	CBufferInterfacePointers
	CBufferResourceBindInfo
)

// VariableClass is the class of a constant-buffer variable (D3D_SHADER_VARIABLE_CLASS).
type VariableClass uint8

const (
	ClassScalar VariableClass = iota
	ClassVector
	ClassMatrixRows
	ClassMatrixColumns
	ClassObject
	ClassStruct
	ClassInterfaceClass
	ClassInterfacePointer
)

// VariableType is the scalar/object type of a variable (D3D_SHADER_VARIABLE_TYPE).
type VariableType uint16

const (
	TypeVoid   VariableType = 0
	TypeBool   VariableType = 1
	TypeInt    VariableType = 2
	TypeFloat  VariableType = 3
	TypeString VariableType = 4
	TypeUInt   VariableType = 19
	TypeDouble VariableType = 39
)

// ComponentType is the register component type of a signature element.
type ComponentType uint8

const (
	ComponentUnknown ComponentType = iota
	ComponentUInt32
	ComponentSInt32
	ComponentFloat32
)

// SignatureParameter is one element of an input or output signature.
type SignatureParameter struct {
	SemanticName  string
	SemanticIndex uint32
	SystemValue   uint32
	ComponentType ComponentType
	Register      uint32
	Mask          uint8
	ReadWriteMask uint8
	Stream        uint32
}

// VariableDesc describes one variable inside a constant buffer.
type VariableDesc struct {
	Name         string
	StartOffset  uint32
	Size         uint32
	Flags        uint32
	Class        VariableClass
	Type         VariableType
	Rows         uint16
	Columns      uint16
	Elements     uint16
	Members      uint16
	DefaultValue []byte
}

// ConstantBufferDesc describes a reflected constant buffer.
type ConstantBufferDesc struct {
	Name      string
	Type      CBufferType
	Size      uint32
	Flags     uint32
	Variables []VariableDesc
}

// BoundResource describes a resource bound to a register slot.
type BoundResource struct {
	Name       string
	Type       ShaderInputType
	ReturnType uint32
	Dimension  ResourceDimension
	NumSamples uint32
	BindPoint  uint32
	BindCount  uint32
	Flags      uint32
}

// Reflection is the structural metadata extracted from compiled bytecode.
type Reflection struct {
	Inputs          []SignatureParameter
	Outputs         []SignatureParameter
	ConstantBuffers []ConstantBufferDesc
	Resources       []BoundResource
	Creator         string
}

// ConstantBuffer returns the constant buffer with the given name.
func (r *Reflection) ConstantBuffer(name string) (*ConstantBufferDesc, bool) {
	for i := range r.ConstantBuffers {
		if r.ConstantBuffers[i].Name == name {
			return &r.ConstantBuffers[i], true
		}
	}
	return nil, false
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "strings"

// reservedKeywords are the FXC language keywords, effect state object types
// and the C++ words the compiler reserves. An entry point cannot use any of them.
var reservedKeywords = func() map[string]struct{} {
	words := []string{
		// FXC keywords
		"AppendStructuredBuffer", "asm", "asm_fragment", "BlendState", "bool", "break",
		"Buffer", "ByteAddressBuffer", "case", "cbuffer", "centroid", "class",
		"column_major", "compile", "compile_fragment", "CompileShader", "const", "continue",
		"ComputeShader", "ConsumeStructuredBuffer", "default", "DepthStencilState",
		"DepthStencilView", "discard", "do", "double", "DomainShader", "dword", "else",
		"export", "extern", "false", "float", "for", "fxgroup", "GeometryShader",
		"groupshared", "half", "Hullshader", "HullShader", "if", "in", "inline", "inout",
		"InputPatch", "int", "interface", "line", "lineadj", "linear", "LineStream",
		"matrix", "namespace", "nointerpolation", "noperspective", "NULL", "out",
		"OutputPatch", "packoffset", "pass", "pixelfragment", "PixelShader", "point",
		"PointStream", "precise", "RasterizerState", "RenderTargetView", "return",
		"register", "row_major", "RWBuffer", "RWByteAddressBuffer", "RWStructuredBuffer",
		"RWTexture1D", "RWTexture1DArray", "RWTexture2D", "RWTexture2DArray", "RWTexture3D",
		"sample", "sampler", "SamplerState", "SamplerComparisonState", "shared", "snorm",
		"stateblock", "stateblock_state", "static", "string", "struct", "switch",
		"StructuredBuffer", "tbuffer", "technique", "technique10", "technique11", "texture",
		"Texture1D", "Texture1DArray", "Texture2D", "Texture2DArray", "Texture2DMS",
		"Texture2DMSArray", "Texture3D", "TextureCube", "TextureCubeArray", "true", "typedef",
		"triangle", "triangleadj", "TriangleStream", "uint", "uniform", "unorm", "unsigned",
		"vector", "vertexfragment", "VertexShader", "void", "volatile", "while",

		// reserved C++ words
		"auto", "catch", "char", "const_cast", "delete", "dynamic_cast", "enum", "explicit",
		"friend", "goto", "long", "mutable", "new", "operator", "private", "protected",
		"public", "reinterpret_cast", "short", "signed", "sizeof", "static_cast", "template",
		"this", "throw", "try", "typename", "union", "using", "virtual",
	}

	result := make(map[string]struct{}, len(words)+512)
	for _, w := range words {
		result[w] = struct{}{}
	}

	// scalar, vector and matrix shorthands: float, float4, float4x4, ...
	bases := []string{"bool", "int", "uint", "dword", "half", "float", "double",
		"min10float", "min16float", "min12int", "min16int", "min16uint"}
	for _, base := range bases {
		result[base] = struct{}{}
		for r := '1'; r <= '4'; r++ {
			result[base+string(r)] = struct{}{}
			for c := '1'; c <= '4'; c++ {
				result[base+string(r)+"x"+string(c)] = struct{}{}
			}
		}
	}
	return result
}()

// caseInsensitiveKeywords are legacy keywords FXC matches in any case.
var caseInsensitiveKeywords = map[string]struct{}{
	"asm":         {},
	"decl":        {},
	"pass":        {},
	"technique":   {},
	"texture1d":   {},
	"texture2d":   {},
	"texture3d":   {},
	"texturecube": {},
}

// IsReserved reports whether name is an HLSL keyword or built-in type name.
func IsReserved(name string) bool {
	if _, ok := reservedKeywords[name]; ok {
		return true
	}
	_, ok := caseInsensitiveKeywords[strings.ToLower(name)]
	return ok
}

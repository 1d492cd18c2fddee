// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package hlsl describes the HLSL toolchain the effect compiler drives.
//
// It holds the shared vocabulary between the effect compiler and the
// services it consumes: pipeline stages, Direct3D feature levels and the
// shader models and profile strings they map to, compile flags, and the
// reflection records extracted from compiled bytecode.
//
// # Feature Levels and Profiles
//
// A feature level selects the shader model used for every stage:
//
//	9_1, 9_2  -> 4_0_level_9_1   (vs_4_0_level_9_1)
//	9_3       -> 4_0_level_9_3
//	10_0      -> 4_0
//	10_1      -> 4_1
//	11_0, 11_1 -> 5_0            (ps_5_0, cs_5_0, ...)
//	12_x      -> 5_1
//
// # Services
//
// Compiler, Reflector and Stripper are the external collaborators of the
// effect compiler. ExecCompiler runs an fxc-compatible executable; package
// dxbc implements Reflector and Stripper for DXBC containers.
package hlsl

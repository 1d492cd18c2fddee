// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "github.com/gogpu/gputypes"

// Stage is a programmable pipeline stage.
type Stage uint8

// Pipeline stages, in effect archive order.
const (
	StageVertex Stage = iota
	StagePixel
	StageGeometry
	StageHull
	StageDomain
	StageCompute
)

// StageCount is the number of pipeline stages a pass can bind.
const StageCount = 6

// Stages lists every stage in archive order.
var Stages = [StageCount]Stage{
	StageVertex, StagePixel, StageGeometry, StageHull, StageDomain, StageCompute,
}

// String returns the stage name used by effect directives ("Vertex", "Pixel", ...).
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "Vertex"
	case StagePixel:
		return "Pixel"
	case StageGeometry:
		return "Geometry"
	case StageHull:
		return "Hull"
	case StageDomain:
		return "Domain"
	case StageCompute:
		return "Compute"
	default:
		return "Unknown"
	}
}

// Prefix returns the profile prefix for the stage ("vs", "ps", ...).
func (s Stage) Prefix() string {
	switch s {
	case StageVertex:
		return "vs"
	case StagePixel:
		return "ps"
	case StageGeometry:
		return "gs"
	case StageHull:
		return "hs"
	case StageDomain:
		return "ds"
	case StageCompute:
		return "cs"
	default:
		return ""
	}
}

// StageFromPrefix maps a profile prefix back to its stage.
func StageFromPrefix(prefix string) (Stage, bool) {
	for _, s := range Stages {
		if s.Prefix() == prefix {
			return s, true
		}
	}
	return 0, false
}

// StageFromName maps a directive stage name ("Vertex", "Pixel", ...) to its stage.
func StageFromName(name string) (Stage, bool) {
	for _, s := range Stages {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

// Visibility returns the WebGPU-style visibility mask for resources used by
// the stage. Tessellation and geometry stages have no WebGPU equivalent and
// report an empty mask.
func (s Stage) Visibility() gputypes.ShaderStages {
	switch s {
	case StageVertex:
		return gputypes.ShaderStageVertex
	case StagePixel:
		return gputypes.ShaderStageFragment
	case StageCompute:
		return gputypes.ShaderStageCompute
	default:
		return 0
	}
}

// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import "fmt"

// FeatureLevel identifies a Direct3D hardware feature level.
// The encoding matches D3D_FEATURE_LEVEL: 0xMm00 for level M.m.
// The zero value means "no feature level set".
type FeatureLevel uint32

// Known feature levels.
const (
	LevelUnset FeatureLevel = 0
	Level9_1   FeatureLevel = 0x9100
	Level9_2   FeatureLevel = 0x9200
	Level9_3   FeatureLevel = 0x9300
	Level10_0  FeatureLevel = 0xa000
	Level10_1  FeatureLevel = 0xa100
	Level11_0  FeatureLevel = 0xb000
	Level11_1  FeatureLevel = 0xb100
	Level12_0  FeatureLevel = 0xc000
	Level12_1  FeatureLevel = 0xc100
)

var knownLevels = [...]FeatureLevel{
	Level9_1, Level9_2, Level9_3,
	Level10_0, Level10_1,
	Level11_0, Level11_1,
	Level12_0, Level12_1,
}

// NewFeatureLevel returns the feature level for a major/minor pair.
// ok is false when the pair does not name a known level.
func NewFeatureLevel(major, minor int) (FeatureLevel, bool) {
	if major < 0 || minor < 0 || major > 15 || minor > 15 {
		return LevelUnset, false
	}
	level := FeatureLevel(uint32(major)<<12 | uint32(minor)<<8)
	if !level.Valid() {
		return LevelUnset, false
	}
	return level, true
}

// Valid reports whether the level is one of the known feature levels.
func (l FeatureLevel) Valid() bool {
	for _, k := range knownLevels {
		if k == l {
			return true
		}
	}
	return false
}

// Major returns the major version of the level.
func (l FeatureLevel) Major() int { return int(l>>12) & 0xf }

// Minor returns the minor version of the level.
func (l FeatureLevel) Minor() int { return int(l>>8) & 0xf }

// String returns the level as "major_minor", e.g. "10_1", or "unset".
func (l FeatureLevel) String() string {
	if l == LevelUnset {
		return "unset"
	}
	return fmt.Sprintf("%d_%d", l.Major(), l.Minor())
}

// ShaderModel returns the shader model whose profiles target this level.
func (l FeatureLevel) ShaderModel() ShaderModel {
	switch {
	case l < Level9_3:
		return ShaderModel4_0Level9_1
	case l < Level10_0:
		return ShaderModel4_0Level9_3
	case l < Level10_1:
		return ShaderModel4_0
	case l < Level11_0:
		return ShaderModel4_1
	case l < Level12_0:
		return ShaderModel5_0
	default:
		return ShaderModel5_1
	}
}

// Profile returns the compiler profile string for a stage at this level,
// e.g. "vs_5_0" for Level11_0 or "ps_4_0_level_9_3" for Level9_3.
func (l FeatureLevel) Profile(stage Stage) string {
	return stage.Prefix() + "_" + l.ShaderModel().ProfileSuffix()
}

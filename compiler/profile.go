package compiler

import (
	"math"
	"strconv"

	"github.com/dlclark/regexp2"

	"github.com/gogpu/fxc/hlsl"
)

// profilePattern matches vs_5_0, fx_4_0, ps_4_0_level_9_3 and similar.
var profilePattern = regexp2.MustCompile(
	`^(?<prefix>[a-z]{2})_(?<major>\d{1,2})_(?<minor>\d)(?:_level_(?<lmajor>\d{1,2})_(?<lminor>\d))?$`,
	regexp2.None)

// levelForModel maps a shader model to the lowest feature level using it.
var levelForModel = map[[2]int]hlsl.FeatureLevel{
	{4, 0}: hlsl.Level10_0,
	{4, 1}: hlsl.Level10_1,
	{5, 0}: hlsl.Level11_0,
	{5, 1}: hlsl.Level12_0,
}

// ParseProfile splits a profile name into its prefix and feature level.
// The numbers after the prefix name either a feature level (fx_11_0) or a
// shader model (vs_5_0 selects 11_0); a _level_ suffix wins over both.
func ParseProfile(name string) (prefix string, level hlsl.FeatureLevel, ok bool) {
	m, err := profilePattern.FindStringMatch(name)
	if err != nil || m == nil {
		return "", hlsl.LevelUnset, false
	}
	prefix = m.GroupByName("prefix").String()

	if g := m.GroupByName("lmajor"); g.Length > 0 {
		level, ok = featureLevel(g.String(), m.GroupByName("lminor").String())
		return prefix, level, ok
	}

	major, minor := m.GroupByName("major").String(), m.GroupByName("minor").String()
	if level, ok = featureLevel(major, minor); ok {
		return prefix, level, true
	}
	maj, _ := strconv.Atoi(major)
	mnr, _ := strconv.Atoi(minor)
	level, ok = levelForModel[[2]int{maj, mnr}]
	return prefix, level, ok
}

func featureLevel(major, minor string) (hlsl.FeatureLevel, bool) {
	maj, err := strconv.Atoi(major)
	if err != nil {
		return hlsl.LevelUnset, false
	}
	mnr, err := strconv.Atoi(minor)
	if err != nil {
		return hlsl.LevelUnset, false
	}
	return hlsl.NewFeatureLevel(maj, mnr)
}

// LevelFromNumber converts a numeric profile such as 10.1 or 11 to a
// feature level by scaling it by ten.
func LevelFromNumber(v float64) (hlsl.FeatureLevel, bool) {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return hlsl.LevelUnset, false
	}
	scaled := math.Round(v * 10)
	if math.Abs(scaled-v*10) > 1e-6 {
		return hlsl.LevelUnset, false
	}
	n := int(scaled)
	return hlsl.NewFeatureLevel(n/10, n%10)
}

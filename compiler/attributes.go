package compiler

import (
	"fmt"

	"github.com/gogpu/fxc/effect"
)

// attributeKinds lists pass attributes whose value must have a fixed type.
var attributeKinds = map[string]effect.ValueKind{
	"BlendFactor":      effect.KindFloat4,
	"BlendColor":       effect.KindFloat4,
	"SampleMask":       effect.KindUInt,
	"StencilRef":       effect.KindInt,
	"StencilReference": effect.KindInt,
}

// coerceAttribute converts v to the type required by the attribute name.
// Attributes without a fixed type are returned unchanged.
func coerceAttribute(name string, v effect.Value) (effect.Value, error) {
	kind, ok := attributeKinds[name]
	if !ok || v.Kind == kind {
		return v, nil
	}

	switch kind {
	case effect.KindFloat4:
		if f, ok := v.AsFloat4(); ok {
			return effect.Float4Value(f[0], f[1], f[2], f[3]), nil
		}
	case effect.KindUInt:
		if u, ok := v.AsUInt(); ok {
			return effect.UIntValue(u), nil
		}
	case effect.KindInt:
		if i, ok := v.AsInt(); ok {
			return effect.IntValue(i), nil
		}
	}
	return v, fmt.Errorf("attribute %s expects a %s value, got %s", name, kind, v)
}

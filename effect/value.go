package effect

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"
)

// ValueKind identifies the type held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindBool
	KindInt
	KindUInt
	KindFloat
	KindString
	KindFloat2
	KindFloat3
	KindFloat4
	KindArray
)

var valueKindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindUInt:   "uint",
	KindFloat:  "float",
	KindString: "string",
	KindFloat2: "float2",
	KindFloat3: "float3",
	KindFloat4: "float4",
	KindArray:  "array",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Value is an attribute value. Only the field matching Kind is meaningful;
// Vector holds the components of the float2/3/4 kinds.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Int    int64
	UInt   uint64
	Float  float64
	Text   string
	Vector [4]float64
	Items  []Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// BoolValue returns a bool value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// IntValue returns an int value.
func IntValue(i int64) Value { return Value{Kind: KindInt, Int: i} }

// UIntValue returns a uint value.
func UIntValue(u uint64) Value { return Value{Kind: KindUInt, UInt: u} }

// FloatValue returns a float value.
func FloatValue(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{Kind: KindString, Text: s} }

// Float2Value returns a two-component vector.
func Float2Value(x, y float64) Value {
	return Value{Kind: KindFloat2, Vector: [4]float64{x, y}}
}

// Float3Value returns a three-component vector.
func Float3Value(x, y, z float64) Value {
	return Value{Kind: KindFloat3, Vector: [4]float64{x, y, z}}
}

// Float4Value returns a four-component vector.
func Float4Value(x, y, z, w float64) Value {
	return Value{Kind: KindFloat4, Vector: [4]float64{x, y, z, w}}
}

// ArrayValue returns an array of values.
func ArrayValue(items ...Value) Value {
	return Value{Kind: KindArray, Items: items}
}

// Components returns the number of vector components, 0 for non-vectors.
func (v Value) Components() int {
	switch v.Kind {
	case KindFloat2:
		return 2
	case KindFloat3:
		return 3
	case KindFloat4:
		return 4
	}
	return 0
}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// AsFloat converts a numeric or bool scalar to float64.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindFloat:
		return v.Float, true
	case KindInt:
		return float64(v.Int), true
	case KindUInt:
		return float64(v.UInt), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsInt converts a numeric or bool scalar to int64. Floats must be integral.
func (v Value) AsInt() (int64, bool) {
	switch v.Kind {
	case KindInt:
		return v.Int, true
	case KindUInt:
		return int64(v.UInt), true
	case KindFloat:
		if v.Float != float64(int64(v.Float)) {
			return 0, false
		}
		return int64(v.Float), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsUInt converts a non-negative numeric or bool scalar to uint64.
func (v Value) AsUInt() (uint64, bool) {
	switch v.Kind {
	case KindUInt:
		return v.UInt, true
	case KindInt:
		if v.Int < 0 {
			return 0, false
		}
		return uint64(v.Int), true
	case KindFloat:
		if v.Float < 0 || v.Float != float64(uint64(v.Float)) {
			return 0, false
		}
		return uint64(v.Float), true
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// AsBool converts bools and integral scalars to bool.
func (v Value) AsBool() (bool, bool) {
	switch v.Kind {
	case KindBool:
		return v.Bool, true
	case KindInt:
		return v.Int != 0, true
	case KindUInt:
		return v.UInt != 0, true
	}
	return false, false
}

// AsFloat4 widens a scalar, vector or array of up to four numbers to a
// four-component vector. Missing components are zero.
func (v Value) AsFloat4() ([4]float64, bool) {
	switch v.Kind {
	case KindFloat2, KindFloat3, KindFloat4:
		return v.Vector, true
	case KindArray:
		var out [4]float64
		if len(v.Items) == 0 || len(v.Items) > 4 {
			return out, false
		}
		for i, item := range v.Items {
			f, ok := item.AsFloat()
			if !ok {
				return out, false
			}
			out[i] = f
		}
		return out, true
	}
	if f, ok := v.AsFloat(); ok {
		return [4]float64{f, f, f, f}, true
	}
	return [4]float64{}, false
}

// Color interprets the value as an RGBA color.
func (v Value) Color() (gputypes.Color, bool) {
	c, ok := v.AsFloat4()
	if !ok {
		return gputypes.Color{}, false
	}
	return gputypes.Color{R: c[0], G: c[1], B: c[2], A: c[3]}, true
}

// Equal reports whether two values have the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.Bool == o.Bool
	case KindInt:
		return v.Int == o.Int
	case KindUInt:
		return v.UInt == o.UInt
	case KindFloat:
		return v.Float == o.Float
	case KindString:
		return v.Text == o.Text
	case KindFloat2, KindFloat3, KindFloat4:
		return v.Vector == o.Vector
	case KindArray:
		if len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// String formats the value in effect source syntax.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindUInt:
		return strconv.FormatUint(v.UInt, 10) + "u"
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.Text)
	case KindFloat2, KindFloat3, KindFloat4:
		n := v.Components()
		parts := make([]string, n)
		for i := 0; i < n; i++ {
			parts[i] = strconv.FormatFloat(v.Vector[i], 'g', -1, 64)
		}
		return fmt.Sprintf("%s(%s)", v.Kind, strings.Join(parts, ", "))
	case KindArray:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return v.Kind.String()
}

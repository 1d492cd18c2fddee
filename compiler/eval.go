package compiler

import (
	"fmt"
	"math"

	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/fx"
)

// converter builds a value from numeric method arguments, e.g. float4(...).
type converter struct {
	arity int
	build func(args []float64) (effect.Value, error)
}

// Evaluator turns value expressions into effect values. Its converter
// table is built once by NewEvaluator and never modified.
type Evaluator struct {
	converters map[string]converter
}

// NewEvaluator creates an evaluator with the built-in converters:
// float, float2, float3, float4, color, int, uint and bool.
func NewEvaluator() *Evaluator {
	floatN := func(n int) converter {
		return converter{arity: n, build: func(a []float64) (effect.Value, error) {
			switch n {
			case 1:
				return effect.FloatValue(a[0]), nil
			case 2:
				return effect.Float2Value(a[0], a[1]), nil
			case 3:
				return effect.Float3Value(a[0], a[1], a[2]), nil
			default:
				return effect.Float4Value(a[0], a[1], a[2], a[3]), nil
			}
		}}
	}

	return &Evaluator{converters: map[string]converter{
		"float":  floatN(1),
		"float2": floatN(2),
		"float3": floatN(3),
		"float4": floatN(4),
		"color":  floatN(4),
		"int": {arity: 1, build: func(a []float64) (effect.Value, error) {
			return effect.IntValue(int64(a[0])), nil
		}},
		"uint": {arity: 1, build: func(a []float64) (effect.Value, error) {
			if a[0] < 0 || a[0] > math.MaxUint32 {
				return effect.Value{}, fmt.Errorf("value %g out of uint range", a[0])
			}
			return effect.UIntValue(uint64(a[0])), nil
		}},
		"bool": {arity: 1, build: func(a []float64) (effect.Value, error) {
			return effect.BoolValue(a[0] != 0), nil
		}},
	}}
}

// ExtractValue evaluates a value expression. Literals map to their value,
// identifiers to their name as a string, arrays element-wise, and method
// calls through the converter table. Errors are *fx.Diagnostic.
func (ev *Evaluator) ExtractValue(expr fx.Expr) (effect.Value, error) {
	switch e := expr.(type) {
	case *fx.LiteralExpr:
		return literalValue(e.Value), nil
	case *fx.IdentifierExpr:
		return effect.StringValue(e.Name), nil
	case *fx.IndexedIdentifierExpr:
		return effect.StringValue(fmt.Sprintf("%s[%d]", e.Name, e.Index)), nil
	case *fx.ArrayInitializerExpr:
		items := make([]effect.Value, 0, len(e.Values))
		for _, v := range e.Values {
			item, err := ev.ExtractValue(v)
			if err != nil {
				return effect.Value{}, err
			}
			items = append(items, item)
		}
		return effect.ArrayValue(items...), nil
	case *fx.MethodExpr:
		return ev.convert(e)
	}
	return effect.Value{}, diagnostic(expr.Pos(), "only literal, identifier, array or known method expressions are valid values")
}

func (ev *Evaluator) convert(e *fx.MethodExpr) (effect.Value, error) {
	conv, ok := ev.converters[e.Name]
	if !ok {
		return effect.Value{}, diagnostic(e.Span, "unknown method %s in value expression", e.Name)
	}

	// Vector arguments contribute all of their components: float4(v.xyz, 1).
	args := make([]float64, 0, conv.arity)
	for _, a := range e.Args {
		v, err := ev.ExtractValue(a)
		if err != nil {
			return effect.Value{}, err
		}
		switch v.Kind {
		case effect.KindFloat2, effect.KindFloat3, effect.KindFloat4:
			args = append(args, v.Vector[:v.Components()]...)
		default:
			f, ok := v.AsFloat()
			if !ok {
				return effect.Value{}, diagnostic(a.Pos(), "%s expects numeric arguments, got %s", e.Name, v.Kind)
			}
			args = append(args, f)
		}
	}
	if len(args) != conv.arity {
		return effect.Value{}, diagnostic(e.Span, "%s expects %d argument(s), got %d", e.Name, conv.arity, len(args))
	}

	v, err := conv.build(args)
	if err != nil {
		return effect.Value{}, diagnostic(e.Span, "%s: %v", e.Name, err)
	}
	return v, nil
}

func literalValue(l fx.Literal) effect.Value {
	switch l.Kind {
	case fx.LiteralBool:
		return effect.BoolValue(l.Bool)
	case fx.LiteralInt:
		return effect.IntValue(l.Int)
	case fx.LiteralFloat:
		return effect.FloatValue(l.Float)
	case fx.LiteralString:
		return effect.StringValue(l.String)
	}
	return effect.Null()
}

func diagnostic(span fx.Span, format string, args ...interface{}) *fx.Diagnostic {
	return &fx.Diagnostic{Severity: fx.SeverityError, Message: fmt.Sprintf(format, args...), Span: span}
}

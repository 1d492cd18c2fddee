package compiler

import (
	"strings"

	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/fx"
	"github.com/gogpu/fxc/hlsl"
)

// Directive names recognized in pass statements.
const (
	directiveExport       = "Export"
	directiveShareBuffers = "ShareConstantBuffers"
	directiveEffectName   = "EffectName"
	directiveSubPassCount = "SubPassCount"
	directivePreprocessor = "Preprocessor"
	directiveProfile      = "Profile"
	methodCompileShader   = "CompileShader"
)

// stageAssignment maps "VertexShader" style names to their stage.
func stageAssignment(name string) (hlsl.Stage, bool) {
	base, ok := strings.CutSuffix(name, "Shader")
	if !ok {
		return 0, false
	}
	return hlsl.StageFromName(base)
}

// stageMethod maps "SetVertexShader" style names to their stage.
func stageMethod(name string) (hlsl.Stage, bool) {
	rest, ok := strings.CutPrefix(name, "Set")
	if !ok {
		return 0, false
	}
	return stageAssignment(rest)
}

func (c *Compiler) statement(pass *effect.Pass, st *fx.Statement) {
	switch e := st.Expr.(type) {
	case *fx.AssignExpr:
		c.assign(pass, e)
	case *fx.MethodExpr:
		c.method(pass, e)
	default:
		c.diags.Errorf(st.Span, "expected an assignment or a method call")
	}
}

func (c *Compiler) assign(pass *effect.Pass, e *fx.AssignExpr) {
	if e.Index < 0 {
		if stage, ok := stageAssignment(e.Name); ok {
			c.shaderStatement(pass, stage, e.Value)
			return
		}

		switch e.Name {
		case directiveExport:
			c.export(e.Value)
			return
		case directiveShareBuffers:
			v := c.value(e.Value)
			if v == nil {
				return
			}
			b, ok := v.AsBool()
			if !ok {
				c.diags.Errorf(e.Value.Pos(), "%s expects a bool, got %s", e.Name, v)
				return
			}
			c.effect.ShareConstantBuffers = b
			return
		case directiveEffectName:
			v := c.value(e.Value)
			if v == nil {
				return
			}
			if v.Kind != effect.KindString {
				c.diags.Errorf(e.Value.Pos(), "%s expects a string, got %s", e.Name, v)
				return
			}
			c.effect.Name = v.Text
			return
		case directiveSubPassCount:
			v := c.value(e.Value)
			if v == nil {
				return
			}
			n, ok := v.AsInt()
			if !ok || n < 0 {
				c.diags.Errorf(e.Value.Pos(), "%s expects a non-negative integer, got %s", e.Name, v)
				return
			}
			c.subPasses = int(n)
			return
		case directiveProfile:
			c.profile(e.Value)
			return
		case directivePreprocessor:
			v := c.value(e.Value)
			if v == nil {
				return
			}
			if v.Kind != effect.KindString {
				c.diags.Warningf(e.Value.Pos(), "%s value should be a string, got %s", e.Name, v)
			}
			pass.Attributes = append(pass.Attributes, effect.Attribute{Name: e.Name, Value: *v})
			return
		}
	}

	v := c.value(e.Value)
	if v == nil {
		return
	}
	coerced, err := coerceAttribute(e.Name, *v)
	if err != nil {
		c.report(e.Value.Pos(), err)
		return
	}
	pass.Attributes = append(pass.Attributes, effect.Attribute{Name: e.Target(), Value: coerced})
}

// method handles statement-level calls. Set<Stage>Shader binds a shader;
// any other call is kept as an attribute holding its argument list.
func (c *Compiler) method(pass *effect.Pass, e *fx.MethodExpr) {
	if stage, ok := stageMethod(e.Name); ok {
		if len(e.Args) != 1 {
			c.diags.Errorf(e.Span, "%s expects 1 argument, got %d", e.Name, len(e.Args))
			return
		}
		c.shaderStatement(pass, stage, e.Args[0])
		return
	}

	args := make([]effect.Value, 0, len(e.Args))
	for _, a := range e.Args {
		v := c.value(a)
		if v == nil {
			return
		}
		args = append(args, *v)
	}
	pass.Attributes = append(pass.Attributes, effect.Attribute{Name: e.Name, Value: effect.ArrayValue(args...)})
}

// value evaluates expr, reporting failures. It returns nil on error.
func (c *Compiler) value(expr fx.Expr) *effect.Value {
	v, err := c.eval.ExtractValue(expr)
	if err != nil {
		c.report(expr.Pos(), err)
		return nil
	}
	return &v
}

// export records the entry points named by a string or an array of strings.
func (c *Compiler) export(expr fx.Expr) {
	v := c.value(expr)
	if v == nil {
		return
	}
	names := []effect.Value{*v}
	if v.Kind == effect.KindArray {
		names = v.Items
	}
	for _, n := range names {
		if n.Kind != effect.KindString {
			c.diags.Errorf(expr.Pos(), "%s expects a string or an array of strings, got %s", directiveExport, n)
			return
		}
	}
	for _, n := range names {
		c.exports[n.Text] = true
	}
}

// profile sets the active feature level. An invalid profile is an error
// and leaves no level set.
func (c *Compiler) profile(expr fx.Expr) {
	var level hlsl.FeatureLevel
	ok := false

	switch e := expr.(type) {
	case *fx.IdentifierExpr:
		_, level, ok = ParseProfile(e.Name)
	case *fx.LiteralExpr:
		switch e.Value.Kind {
		case fx.LiteralFloat:
			level, ok = LevelFromNumber(e.Value.Float)
		case fx.LiteralInt:
			level, ok = LevelFromNumber(float64(e.Value.Int))
		case fx.LiteralString:
			_, level, ok = ParseProfile(e.Value.String)
		}
	}

	if !ok {
		c.level = hlsl.LevelUnset
		c.diags.Errorf(expr.Pos(), "invalid profile %s, expected a profile like fx_5_0 or a level like 10.1", exprText(expr))
		return
	}
	c.level = level
}

// exprText renders simple expressions for messages.
func exprText(expr fx.Expr) string {
	switch e := expr.(type) {
	case *fx.IdentifierExpr:
		return e.Name
	case *fx.LiteralExpr:
		return e.Value.Text()
	case *fx.MethodExpr:
		return e.Name + "(...)"
	}
	return "expression"
}

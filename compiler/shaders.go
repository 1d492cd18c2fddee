package compiler

import (
	"fmt"

	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/fx"
	"github.com/gogpu/fxc/hlsl"
)

// shaderStatement resolves the shader bound to a stage and stores the link
// in the pass pipeline. Failed statements leave the stage untouched, except
// for compile errors demoted to warnings, which bind NULL.
func (c *Compiler) shaderStatement(pass *effect.Pass, stage hlsl.Stage, expr fx.Expr) {
	link, ok := c.shaderLink(stage, expr)
	if ok {
		pass.Pipeline.Set(stage, link)
	}
}

func (c *Compiler) shaderLink(stage hlsl.Stage, expr fx.Expr) (effect.ShaderLink, bool) {
	switch e := expr.(type) {
	case *fx.LiteralExpr:
		if e.Value.IsZero() {
			return effect.NullLink(), true
		}
		c.diags.Errorf(e.Span, "invalid %s shader %s, expected an entry point, 0 or NULL", stage, e.Value.Text())
		return effect.ShaderLink{}, false

	case *fx.IdentifierExpr:
		if e.Indirect {
			return c.indirect(stage, e)
		}
		return c.compile(stage, e.Name, c.level, e.Span)

	case *fx.CompileExpr:
		return c.compileWithProfile(stage, e.Profile, e.Method, e.Span)

	case *fx.MethodExpr:
		if e.Name == methodCompileShader {
			if len(e.Args) != 2 {
				c.diags.Errorf(e.Span, "%s expects 2 arguments, got %d", methodCompileShader, len(e.Args))
				return effect.ShaderLink{}, false
			}
			profile, ok := e.Args[0].(*fx.IdentifierExpr)
			if !ok {
				c.diags.Errorf(e.Args[0].Pos(), "%s expects a profile name as first argument", methodCompileShader)
				return effect.ShaderLink{}, false
			}
			return c.compileWithProfile(stage, profile.Name, e.Args[1], e.Span)
		}
		entry, ok := c.entryPoint(e)
		if !ok {
			return effect.ShaderLink{}, false
		}
		return c.compile(stage, entry, c.level, e.Span)
	}

	c.diags.Errorf(expr.Pos(), "invalid %s shader expression, expected an entry point, compile or CompileShader", stage)
	return effect.ShaderLink{}, false
}

// indirect resolves <Name> against the exported entry points. The shader
// is compiled at the active level like a direct reference.
func (c *Compiler) indirect(stage hlsl.Stage, e *fx.IdentifierExpr) (effect.ShaderLink, bool) {
	if !c.exports[e.Name] {
		c.diags.Errorf(e.Span, "<%s> does not name an exported shader", e.Name)
		return effect.ShaderLink{}, false
	}
	return c.compile(stage, e.Name, c.level, e.Span)
}

// compileWithProfile compiles entry with an explicit profile, which must
// belong to stage and overrides the active level for this statement only.
// A Profile must still be active.
func (c *Compiler) compileWithProfile(stage hlsl.Stage, profile string, entry fx.Expr, span fx.Span) (effect.ShaderLink, bool) {
	if c.level == hlsl.LevelUnset {
		c.diags.Errorf(span, "set Profile before compiling a shader")
		return effect.ShaderLink{}, false
	}
	prefix, level, ok := ParseProfile(profile)
	if !ok {
		c.diags.Errorf(span, "invalid profile %s", profile)
		return effect.ShaderLink{}, false
	}
	if prefix != stage.Prefix() {
		c.diags.Errorf(span, "profile %s cannot compile a %s shader", profile, stage)
		return effect.ShaderLink{}, false
	}

	var name string
	switch e := entry.(type) {
	case *fx.MethodExpr:
		if name, ok = c.entryPoint(e); !ok {
			return effect.ShaderLink{}, false
		}
	case *fx.IdentifierExpr:
		name = e.Name
	default:
		c.diags.Errorf(entry.Pos(), "expected an entry point call after profile %s", profile)
		return effect.ShaderLink{}, false
	}
	return c.compile(stage, name, level, span)
}

// entryPoint validates an entry point call such as VS().
func (c *Compiler) entryPoint(e *fx.MethodExpr) (string, bool) {
	if len(e.Args) != 0 {
		c.diags.Errorf(e.Span, "entry point %s cannot take arguments", e.Name)
		return "", false
	}
	return e.Name, true
}

// compile produces the pool link for an entry point, compiling it unless an
// earlier statement already did so at the same level.
func (c *Compiler) compile(stage hlsl.Stage, entry string, level hlsl.FeatureLevel, span fx.Span) (effect.ShaderLink, bool) {
	if level == hlsl.LevelUnset {
		c.diags.Errorf(span, "set Profile before compiling a shader")
		return effect.ShaderLink{}, false
	}
	if !level.ShaderModel().SupportsStage(stage) {
		c.diags.Errorf(span, "%s shaders are not supported at feature level %s", stage, level)
		return effect.ShaderLink{}, false
	}
	if hlsl.IsReserved(entry) {
		c.diags.Errorf(span, "entry point %q is a reserved HLSL keyword", entry)
		return effect.ShaderLink{}, false
	}

	// Qualified with the final effect name in build.
	name := ""
	if c.exports[entry] {
		name = entry
	}

	key := cacheKey{stage: stage, level: level, entry: entry}
	if link, ok := c.cache[key]; ok {
		c.nameShader(link, name)
		return link, true
	}

	shader, ok := c.compileShader(stage, entry, level, span)
	if !ok {
		if c.opts.CompileErrors == CompileErrorsAsWarnings {
			return effect.NullLink(), true
		}
		return effect.ShaderLink{}, false
	}
	shader.Name = name

	index, reused := c.pool.Add(shader)
	link := effect.IndexLink(index)
	if reused {
		c.nameShader(link, name)
	} else if stage == hlsl.StageVertex {
		c.inputSignature(shader, span)
	}
	c.cache[key] = link

	c.log.Debug("shader", "entry", entry, "stage", stage, "level", level, "index", index, "reused", reused)
	return link, true
}

// nameShader gives an anonymous pooled shader its exported name. Pool
// entries are shared, so earlier unexported references to the same code
// see the name too.
func (c *Compiler) nameShader(link effect.ShaderLink, name string) {
	if name == "" || link.Kind != effect.LinkIndex {
		return
	}
	if s, ok := c.pool.At(link.Index); ok && s.Name == "" {
		s.Name = name
	}
}

// compileShader runs the compiler, reflector and stripper for one stage.
// Compiler failures are reported according to the CompileErrors policy.
func (c *Compiler) compileShader(stage hlsl.Stage, entry string, level hlsl.FeatureLevel, span fx.Span) (*effect.Shader, bool) {
	if c.opts.Compiler == nil {
		c.diags.Errorf(span, "no shader compiler configured to compile %s", entry)
		return nil, false
	}

	profile := level.Profile(stage)
	req := &hlsl.CompileRequest{
		Source:      c.source,
		SourceName:  c.file,
		EntryPoint:  entry,
		Profile:     profile,
		Flags:       c.opts.ShaderFlags,
		EffectFlags: c.opts.EffectFlags,
		Macros:      c.opts.Macros,
		Include:     c.resolver,
	}
	res, err := c.opts.Compiler.Compile(c.ctx, req)
	switch {
	case err != nil:
		c.compileFailed(span, entry, profile, err.Error())
		return nil, false
	case res.HasErrors || len(res.Bytecode) == 0:
		c.compileFailed(span, entry, profile, res.Messages)
		return nil, false
	}

	refl, err := c.opts.Reflector.Reflect(res.Bytecode)
	if err != nil {
		c.diags.Errorf(span, "cannot reflect %s shader %s: %v", stage, entry, err)
		return nil, false
	}

	shader := &effect.Shader{Stage: stage, Level: level}
	shader.FromReflection(refl)

	if shader.Bytecode, err = c.opts.Stripper.Strip(res.Bytecode, hlsl.StripReflection); err != nil {
		c.diags.Errorf(span, "cannot strip %s shader %s: %v", stage, entry, err)
		return nil, false
	}
	bare, err := c.opts.Stripper.Strip(shader.Bytecode, hlsl.StripTestBlobs|hlsl.StripDebugInfo)
	if err != nil {
		c.diags.Errorf(span, "cannot strip %s shader %s: %v", stage, entry, err)
		return nil, false
	}
	shader.Hash = effect.ComputeHash(bare)
	return shader, true
}

func (c *Compiler) inputSignature(shader *effect.Shader, span fx.Span) {
	blob, err := c.opts.Stripper.InputSignatureBlob(shader.Bytecode)
	if err != nil {
		c.diags.Warningf(span, "cannot extract input signature: %v", err)
		return
	}
	shader.InputSignatureBlob = blob
	shader.InputSignatureHash = effect.ComputeHash(blob)
}

func (c *Compiler) compileFailed(span fx.Span, entry, profile, messages string) {
	msg := fmt.Sprintf("failed to compile %s (%s)", entry, profile)
	if messages != "" {
		msg += ": " + messages
	}
	if c.opts.CompileErrors == CompileErrorsAsWarnings {
		c.diags.Warningf(span, "%s", msg)
		c.log.Warn("shader compile failed", "entry", entry, "profile", profile)
		return
	}
	c.diags.Errorf(span, "%s", msg)
}

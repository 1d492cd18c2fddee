// Package compiler turns effect source into effect data: it preprocesses
// and parses the source, walks its techniques and passes, compiles every
// referenced shader through an hlsl.Compiler, reflects and deduplicates the
// results, and collects pass attributes.
package compiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/gogpu/fxc/dxbc"
	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/fx"
	"github.com/gogpu/fxc/hlsl"
	"github.com/gogpu/fxc/preprocess"
)

// DefaultSourceName names in-memory sources compiled without a file name.
const DefaultSourceName = "effect.fx"

// ErrAlreadyUsed is returned when Compile is called twice on one Compiler.
var ErrAlreadyUsed = errors.New("compiler: Compile may only be called once")

// State is the phase a compilation is in.
type State uint8

const (
	StateIdle State = iota
	StateParsing
	StateAborted
	StateBuildingEffect
	StateTechnique
	StatePass
	StateStatement
	StateFinalized
)

var stateNames = [...]string{
	StateIdle:           "Idle",
	StateParsing:        "Parsing",
	StateAborted:        "Aborted",
	StateBuildingEffect: "BuildingEffectModel",
	StateTechnique:      "PerTechnique",
	StatePass:           "PerPass",
	StateStatement:      "PerStatement",
	StateFinalized:      "Finalized",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// CompileErrorPolicy selects how a failed shader compile is reported.
type CompileErrorPolicy uint8

const (
	// CompileErrorsFatal reports the failure as an error; no data is produced.
	CompileErrorsFatal CompileErrorPolicy = iota

	// CompileErrorsAsWarnings reports a warning and binds no shader to
	// the stage, as if it had been set to NULL.
	CompileErrorsAsWarnings
)

// Options configures a compilation.
type Options struct {
	// Preprocessor runs before parsing. Defaults to preprocess.Builtin.
	Preprocessor preprocess.Preprocessor

	// IncludeDirs are searched after the including file's directory.
	IncludeDirs []string

	// IncludeHandler is asked for includes not found on disk.
	IncludeHandler preprocess.IncludeHandler

	// Macros are predefined for the preprocessor and the shader compiler.
	Macros []preprocess.Macro

	// Compiler compiles individual shader stages. Compiling a shader
	// without one is an error.
	Compiler hlsl.Compiler

	// Reflector and Stripper default to dxbc.Service.
	Reflector hlsl.Reflector
	Stripper  hlsl.Stripper

	ShaderFlags hlsl.ShaderFlags
	EffectFlags hlsl.EffectFlags

	// EffectName replaces the default effect name, the source base name.
	EffectName string

	// DefaultLevel is the feature level every technique starts with.
	DefaultLevel hlsl.FeatureLevel

	CompileErrors CompileErrorPolicy

	// Logger receives progress at debug level. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns options that compile with the fxc executable
// found in PATH.
func DefaultOptions() Options {
	return Options{
		Preprocessor: &preprocess.Builtin{},
		Compiler:     &hlsl.ExecCompiler{},
		Reflector:    dxbc.Service{},
		Stripper:     dxbc.Service{},
	}
}

// Result is the outcome of a compilation. Data is nil when Diagnostics
// hold an error.
type Result struct {
	Data         *effect.Data
	Diagnostics  fx.Diagnostics
	Dependencies []string

	// Preprocessed is the source the parser and shader compiler saw.
	Preprocessed string
}

type cacheKey struct {
	stage hlsl.Stage
	level hlsl.FeatureLevel
	entry string
}

// Compiler compiles one effect source. It is not reusable.
type Compiler struct {
	opts  Options
	log   *slog.Logger
	eval  *Evaluator
	state State
	diags fx.Diagnostics

	ctx      context.Context
	file     string
	source   string
	resolver *preprocess.Resolver

	data    *effect.Data
	effect  *effect.Effect
	pool    *effect.ShaderPool
	cache   map[cacheKey]effect.ShaderLink
	exports map[string]bool

	// level is the active feature level; subPasses counts passes still
	// to be marked as sub-passes.
	level     hlsl.FeatureLevel
	subPasses int
}

// New creates a compiler. Nil services in opts are replaced by defaults.
func New(opts Options) *Compiler {
	if opts.Preprocessor == nil {
		opts.Preprocessor = &preprocess.Builtin{}
	}
	if opts.Reflector == nil {
		opts.Reflector = dxbc.Service{}
	}
	if opts.Stripper == nil {
		opts.Stripper = dxbc.Service{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Compiler{
		opts:    opts,
		log:     log,
		eval:    NewEvaluator(),
		pool:    effect.NewShaderPool(),
		cache:   make(map[cacheKey]effect.ShaderLink, 8),
		exports: make(map[string]bool),
	}
}

// State returns the phase the compiler reached.
func (c *Compiler) State() State {
	return c.state
}

// Compile preprocesses, parses and compiles source. file names the source
// in diagnostics and anchors relative includes. On failure the returned
// Result still carries the diagnostics, and err is the fx.Diagnostics list
// or the context error.
func (c *Compiler) Compile(ctx context.Context, source, file string) (*Result, error) {
	if c.state != StateIdle {
		return nil, ErrAlreadyUsed
	}
	if file == "" {
		file = DefaultSourceName
	}
	c.ctx = ctx
	c.file = file
	c.state = StateParsing
	res := &Result{}

	c.resolver = preprocess.NewResolver(file, c.opts.IncludeDirs, c.opts.IncludeHandler)
	text, err := c.opts.Preprocessor.Preprocess(ctx, source, file, c.opts.Macros, c.resolver)
	if err != nil {
		if ctx.Err() != nil {
			c.state = StateAborted
			return nil, ctx.Err()
		}
		var diags fx.Diagnostics
		if errors.As(err, &diags) {
			c.diags.Append(diags)
		} else {
			c.diags.Errorf(fx.Span{File: file}, "preprocessor: %v", err)
		}
	}
	res.Dependencies = c.resolver.Dependencies()

	if !c.diags.HasErrors() {
		if text, err = preprocess.RewriteLineDirectives(text, c.resolver); err != nil {
			c.diags.Errorf(fx.Span{File: file}, "rewrite #line directives: %v", err)
		}
		c.source = text
		res.Preprocessed = text
		parsed := fx.Parse(text, file)
		c.diags.Append(parsed.Diagnostics)
		if !c.diags.HasErrors() {
			err = c.build(parsed.Shader)
		}
	}

	c.diags.WithSource(file, source)
	res.Diagnostics = c.diags
	if err != nil {
		c.state = StateAborted
		return res, err
	}
	if c.diags.HasErrors() {
		c.state = StateAborted
		c.log.Debug("effect compilation failed", "file", file, "errors", len(c.diags.Errors()))
		return res, c.diags
	}

	c.state = StateFinalized
	res.Data = c.data
	c.log.Debug("effect compiled", "file", file, "techniques", len(c.effect.Techniques), "shaders", c.pool.Len())
	return res, nil
}

// build walks the AST. Only context cancellation stops it early.
func (c *Compiler) build(shader *fx.Shader) error {
	c.state = StateBuildingEffect

	name := c.opts.EffectName
	if name == "" {
		base := filepath.Base(c.file)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	c.effect = &effect.Effect{Name: name}
	c.data = &effect.Data{Effects: []*effect.Effect{c.effect}}

	for _, t := range shader.Techniques {
		if err := c.ctx.Err(); err != nil {
			return err
		}
		if err := c.technique(t); err != nil {
			return err
		}
	}

	c.data.Shaders = c.pool.All()
	for _, s := range c.data.Shaders {
		if s.Name != "" {
			s.Name = c.effect.Name + "::" + s.Name
		}
	}
	return nil
}

func (c *Compiler) technique(t *fx.Technique) error {
	c.state = StateTechnique
	c.log.Debug("technique", "name", t.Name, "passes", len(t.Passes))

	if t.Name != "" {
		if _, exists := c.effect.Technique(t.Name); exists {
			// Reported, but the technique is still compiled.
			c.diags.Errorf(t.Span, "technique with same name %q already exists", t.Name)
		}
	}
	tech := &effect.Technique{Name: t.Name}
	c.effect.Techniques = append(c.effect.Techniques, tech)

	c.level = c.opts.DefaultLevel
	c.subPasses = 0

	for _, p := range t.Passes {
		if err := c.pass(tech, p); err != nil {
			return err
		}
	}
	return nil
}

func (c *Compiler) pass(tech *effect.Technique, p *fx.Pass) error {
	c.state = StatePass

	if p.Name != "" {
		if _, exists := tech.Pass(p.Name); exists {
			c.diags.Errorf(p.Span, "pass with same name %q already exists in technique %q", p.Name, tech.Name)
			return nil
		}
	}
	pass := &effect.Pass{Name: p.Name}
	if c.subPasses > 0 {
		pass.IsSubPass = true
		c.subPasses--
	}
	tech.Passes = append(tech.Passes, pass)
	c.log.Debug("pass", "technique", tech.Name, "name", p.Name, "subpass", pass.IsSubPass)

	for _, st := range p.Statements {
		if err := c.ctx.Err(); err != nil {
			return err
		}
		c.state = StateStatement
		c.statement(pass, st)
	}
	c.state = StatePass
	return nil
}

// report records err as a diagnostic, keeping the span of *fx.Diagnostic errors.
func (c *Compiler) report(span fx.Span, err error) {
	var d *fx.Diagnostic
	if errors.As(err, &d) {
		c.diags.Add(d)
		return
	}
	c.diags.Errorf(span, "%v", err)
}

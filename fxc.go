// Package fxc compiles toolkit effect (.fx) files.
//
// An effect file is HLSL source plus technique blocks describing passes:
// which shader runs at each pipeline stage, and which fixed-function state
// the pass sets. fxc preprocesses the file, parses the techniques, compiles
// every referenced entry point with an external HLSL compiler, and produces
// effect data: the techniques and a deduplicated pool of shader bytecode
// with reflection records.
//
// Example usage:
//
//	source := `
//	float4 VS(float4 pos : POSITION) : SV_Position { return pos; }
//	float4 PS() : SV_Target { return 1; }
//
//	technique Basic {
//	    pass P0 {
//	        Profile = 10.0;
//	        VertexShader = VS();
//	        PixelShader = PS();
//	    }
//	}
//	`
//	res, err := fxc.Compile(ctx, source, "basic.fx")
//	if err != nil {
//	    log.Fatal(res.Diagnostics.FormatAll())
//	}
//	archive := effect.Marshal(res.Data)
//
// The stages can also be run one at a time with Preprocess and Parse, and
// the compiler package exposes the semantic driver directly.
package fxc

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/gogpu/fxc/compiler"
	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/fx"
	"github.com/gogpu/fxc/preprocess"
)

// Options configures effect compilation.
type Options = compiler.Options

// DefaultOptions returns options that compile shaders with the fxc
// executable found in PATH.
func DefaultOptions() Options {
	return compiler.DefaultOptions()
}

// Compile compiles effect source using default options. file names the
// source in diagnostics and anchors relative includes; it may be empty.
func Compile(ctx context.Context, source, file string) (*compiler.Result, error) {
	return CompileWithOptions(ctx, source, file, DefaultOptions())
}

// CompileWithOptions compiles effect source with custom options.
//
// The compilation pipeline is:
//  1. Preprocess, resolving includes and macros
//  2. Parse techniques and passes
//  3. Compile, reflect and deduplicate every referenced shader
//  4. Collect pass attributes into effect data
//
// The returned Result carries diagnostics even when err is non-nil,
// except for context cancellation.
func CompileWithOptions(ctx context.Context, source, file string, opts Options) (*compiler.Result, error) {
	if opts.Logger == nil {
		opts.Logger = Logger()
	}
	return compiler.New(opts).Compile(ctx, source, file)
}

// CompileFile reads and compiles an effect file. The file may be UTF-8 or,
// with a byte order mark, UTF-16.
func CompileFile(ctx context.Context, path string, opts Options) (*compiler.Result, error) {
	source, err := ReadSource(path)
	if err != nil {
		return nil, err
	}
	return CompileWithOptions(ctx, source, path, opts)
}

// ReadSource reads an effect file and decodes it to UTF-8.
func ReadSource(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text, err := preprocess.Decode(raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return string(text), nil
}

// Preprocess runs only the preprocessor. It returns the expanded source
// and the files it read, the root file first.
func Preprocess(ctx context.Context, source, file string, opts Options) (string, []string, error) {
	pp := opts.Preprocessor
	if pp == nil {
		pp = &preprocess.Builtin{}
	}
	if file == "" {
		file = compiler.DefaultSourceName
	}
	resolver := preprocess.NewResolver(file, opts.IncludeDirs, opts.IncludeHandler)
	text, err := pp.Preprocess(ctx, source, file, opts.Macros, resolver)
	if err != nil {
		return "", resolver.Dependencies(), err
	}
	text, err = preprocess.RewriteLineDirectives(text, resolver)
	if err != nil {
		return "", resolver.Dependencies(), fmt.Errorf("rewrite #line directives: %w", err)
	}
	return text, resolver.Dependencies(), nil
}

// Parse parses preprocessed effect source to its technique AST.
//
// Errors are returned as fx.Diagnostics; use FormatAll for source context.
func Parse(source, file string) (*fx.Shader, error) {
	res := fx.Parse(source, file)
	res.Diagnostics.WithSource(file, source)
	if err := res.Diagnostics.Err(); err != nil {
		return nil, err
	}
	return res.Shader, nil
}

// Validate checks the pipeline links of effect data.
func Validate(data *effect.Data) error {
	return effect.Validate(data)
}

// WriteArchive stores effect data in its binary archive form.
func WriteArchive(path string, data *effect.Data) error {
	return os.WriteFile(path, effect.Marshal(data), 0o644)
}

// ReadArchive loads effect data written by WriteArchive.
func ReadArchive(path string) (*effect.Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return effect.Read(bytes.NewReader(raw))
}

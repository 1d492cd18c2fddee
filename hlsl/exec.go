// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hlsl

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// DefaultCompilerPath is the executable ExecCompiler runs when Path is empty.
const DefaultCompilerPath = "fxc"

// fxc command-line switch for each compile flag.
var flagSwitches = []struct {
	flag   ShaderFlags
	option string
}{
	{FlagDebug, "/Zi"},
	{FlagSkipValidation, "/Vd"},
	{FlagSkipOptimization, "/Od"},
	{FlagPackMatrixRowMajor, "/Zpr"},
	{FlagPackMatrixColumnMajor, "/Zpc"},
	{FlagPartialPrecision, "/Gpp"},
	{FlagAvoidFlowControl, "/Gfa"},
	{FlagPreferFlowControl, "/Gfp"},
	{FlagEnableStrictness, "/Ges"},
	{FlagEnableBackwardsCompatibility, "/Gec"},
	{FlagIEEEStrictness, "/Gis"},
	{FlagOptimizationLevel0, "/O0"},
	{FlagOptimizationLevel3, "/O3"},
	{FlagWarningsAreErrors, "/WX"},
}

// ExecCompiler compiles shaders by running an external fxc-compatible
// executable. Each call writes the source to a temporary directory.
type ExecCompiler struct {
	// Path is the compiler executable, looked up in PATH when not absolute.
	Path string

	// ExtraArgs are appended to every invocation.
	ExtraArgs []string
}

var _ Compiler = (*ExecCompiler)(nil)

// Compile runs the compiler for one entry point. A non-zero exit status is
// reported through CompileResult.HasErrors; err is reserved for failures to
// run the compiler at all.
func (c *ExecCompiler) Compile(ctx context.Context, req *CompileRequest) (*CompileResult, error) {
	path := c.Path
	if path == "" {
		path = DefaultCompilerPath
	}
	bin, err := exec.LookPath(path)
	if err != nil {
		return nil, &Error{Kind: ErrCompilerNotFound, Message: err.Error(), EntryPoint: req.EntryPoint, Profile: req.Profile, Err: err}
	}

	dir, err := os.MkdirTemp("", "fxc-*")
	if err != nil {
		return nil, &Error{Kind: ErrInternalError, Message: "create temp dir: " + err.Error(), Err: err}
	}
	defer os.RemoveAll(dir)

	name := filepath.Base(req.SourceName)
	if name == "." || name == string(filepath.Separator) || name == "" {
		name = "effect.fx"
	}
	srcPath := filepath.Join(dir, name)
	outPath := filepath.Join(dir, "out.cso")
	if err := os.WriteFile(srcPath, []byte(req.Source), 0o600); err != nil {
		return nil, &Error{Kind: ErrInternalError, Message: "write source: " + err.Error(), Err: err}
	}

	args := append(c.args(req, outPath), srcPath)
	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec // G204: binary and paths come from the caller's configuration
	out, runErr := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return &CompileResult{HasErrors: true, Messages: string(out)}, nil
		}
		return nil, &Error{Kind: ErrInternalError, Message: runErr.Error(), EntryPoint: req.EntryPoint, Profile: req.Profile, Err: runErr}
	}

	code, err := os.ReadFile(outPath)
	if err != nil {
		return nil, &Error{
			Kind:       ErrInternalError,
			Message:    fmt.Sprintf("compiler produced no output: %v", err),
			EntryPoint: req.EntryPoint,
			Profile:    req.Profile,
			Err:        err,
		}
	}
	return &CompileResult{Bytecode: code, Messages: string(out)}, nil
}

// args builds the command line, without the trailing source path.
// FlagEffectLegacy is masked out and becomes /Gec.
func (c *ExecCompiler) args(req *CompileRequest, outPath string) []string {
	args := []string{"/nologo", "/T", req.Profile, "/E", req.EntryPoint, "/Fo", outPath}

	flags := req.Flags
	if flags.Has(FlagEffectLegacy) {
		flags &^= FlagEffectLegacy
		flags |= FlagEnableBackwardsCompatibility
	}
	for _, s := range flagSwitches {
		if flags.Has(s.flag) {
			args = append(args, s.option)
		}
	}

	for _, m := range req.Macros {
		args = append(args, "/D", m.String())
	}
	if req.Include != nil {
		for _, dir := range req.Include.SearchDirs {
			args = append(args, "/I", dir)
		}
	}
	return append(args, c.ExtraArgs...)
}

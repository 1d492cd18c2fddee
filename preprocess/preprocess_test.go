package preprocess

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/text/encoding/unicode"

	"github.com/gogpu/fxc/fx"
)

func preprocess(t *testing.T, source string) string {
	t.Helper()
	var b Builtin
	out, err := b.Preprocess(context.Background(), source, "test.fx", nil, nil)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	return out
}

func preprocessError(t *testing.T, source string) string {
	t.Helper()
	var b Builtin
	_, err := b.Preprocess(context.Background(), source, "test.fx", nil, nil)
	if err == nil {
		t.Fatal("expected preprocess error, got none")
	}
	return err.Error()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestParseMacro(t *testing.T) {
	tests := []struct {
		input   string
		want    Macro
		wantErr bool
	}{
		{"DEBUG", Macro{"DEBUG", "1"}, false},
		{"LEVEL=3", Macro{"LEVEL", "3"}, false},
		{"EMPTY=", Macro{"EMPTY", ""}, false},
		{"EXPR=a=b", Macro{"EXPR", "a=b"}, false},
		{"1BAD=2", Macro{}, true},
		{"", Macro{}, true},
	}

	for _, tt := range tests {
		got, err := ParseMacro(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseMacro(%q): expected error, got %v", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMacro(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseMacro(%q): expected %v, got %v", tt.input, tt.want, got)
		}
	}
}

func TestBuiltinObjectMacro(t *testing.T) {
	out := preprocess(t, "#define SCALE 2\nfloat x = SCALE * 3;\n")
	if out != "\nfloat x = 2 * 3;\n" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestBuiltinPredefinedMacros(t *testing.T) {
	var b Builtin
	out, err := b.Preprocess(context.Background(), "int q = QUALITY;", "test.fx", []Macro{{Name: "QUALITY", Value: "4"}}, nil)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	if out != "int q = 4;" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestBuiltinFunctionMacros(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"params", "#define MUL(a, b) ((a) * (b))\nMUL(x, 2)", "\n((x) * (2))"},
		{"nested args", "#define ID(a) a\nID(f(1, 2))", "\nf(1, 2)"},
		{"stringize", "#define STR(x) #x\nSTR(hello)", "\n\"hello\""},
		{"paste", "#define CAT(a, b) a ## b\nCAT(Tex, 0)", "\nTex0"},
		{"no call", "#define F(a) a\nint F;", "\nint F;"},
		{"rescan", "#define TWO 2\n#define DOUBLE(x) (x * TWO)\nDOUBLE(3)", "\n\n(3 * 2)"},
		{"strings untouched", "#define A 1\n\"A\" A", "\n\"A\" 1"},
		{"float suffix", "#define f 9\n1.0f", "\n1.0f"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocess(t, tt.source); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestBuiltinConditionals(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []string
	}{
		{"if elif else", "#define LEVEL 2\n#if LEVEL > 1 && defined(LEVEL)\nyes\n#elif LEVEL == 1\none\n#else\nzero\n#endif", []string{"yes"}},
		{"elif taken", "#define LEVEL 1\n#if LEVEL > 1\nyes\n#elif LEVEL == 1\none\n#else\nzero\n#endif", []string{"one"}},
		{"else taken", "#if UNDEFINED\nyes\n#else\nzero\n#endif", []string{"zero"}},
		{"ifdef", "#define X\n#ifdef X\na\n#endif\n#ifndef X\nb\n#endif", []string{"a"}},
		{"nested inactive", "#if 0\n#if 1\nbad\n#endif\n#else\ngood\n#endif", []string{"good"}},
		{"undef", "#define X 1\n#undef X\n#ifdef X\nbad\n#endif\nok", []string{"ok"}},
		{"defined without parens", "#define X\n#if defined X && !defined Y\nok\n#endif", []string{"ok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := strings.Fields(preprocess(t, tt.source))
			if strings.Join(got, " ") != strings.Join(tt.want, " ") {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestBuiltinKeepsLineNumbers(t *testing.T) {
	source := "#define LONG 1 + \\\n 2\n#ifdef LONG\n// comment\n#endif\nLONG"
	out := preprocess(t, source)

	lines := strings.Split(out, "\n")
	if len(lines) != 6 {
		t.Fatalf("expected 6 lines, got %d: %q", len(lines), out)
	}
	if lines[3] != "// comment" {
		t.Errorf("expected comment on line 4, got %q", lines[3])
	}
	if lines[5] != "1 +  2" {
		t.Errorf("expected expanded macro on line 6, got %q", lines[5])
	}
}

func TestBuiltinPassesThroughPragma(t *testing.T) {
	out := preprocess(t, "#pragma pack_matrix(row_major)\nx")
	if out != "#pragma pack_matrix(row_major)\nx" {
		t.Errorf("unexpected output %q", out)
	}
}

func TestBuiltinDirectivesInsideBlockComment(t *testing.T) {
	out := preprocess(t, "/*\n#error not a directive\n*/\nok")
	if !strings.Contains(out, "#error not a directive") {
		t.Errorf("expected commented directive to be kept, got %q", out)
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		message string
	}{
		{"error directive", "#error stop here", "#error stop here"},
		{"unterminated", "#ifdef X\nfoo", "unterminated conditional directive"},
		{"stray endif", "#endif", "#endif without #if"},
		{"unknown", "#frobnicate", "unknown preprocessor directive #frobnicate"},
		{"bad expression", "#if 1 +\n#endif", "#if"},
		{"arity", "#define F(a, b) a\nF(1)", "expects 2 arguments"},
		{"recursion", "#define A B\n#define B A\nA", "recursive macro expansion"},
		{"missing include", "#include \"missing.fxh\"", "unable to find local include file \"missing.fxh\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := preprocessError(t, tt.source)
			if !strings.Contains(msg, tt.message) {
				t.Errorf("expected error containing %q, got %q", tt.message, msg)
			}
		})
	}
}

func TestBuiltinErrorIsDiagnostics(t *testing.T) {
	var b Builtin
	_, err := b.Preprocess(context.Background(), "ok\n#error boom", "file.fx", nil, nil)
	var diags fx.Diagnostics
	if !errors.As(err, &diags) {
		t.Fatalf("expected fx.Diagnostics, got %T", err)
	}
	if len(diags) != 1 || diags[0].Span.Line != 2 || diags[0].Span.File != "file.fx" {
		t.Errorf("expected one diagnostic at file.fx(2), got %v", diags)
	}
}

func TestBuiltinInclude(t *testing.T) {
	dir := t.TempDir()
	mainPath := filepath.Join(dir, "main.fx")
	libPath := filepath.Join(dir, "common.fxh")
	writeFile(t, libPath, "float4 Common;\n")

	source := "#include \"common.fxh\"\ntechnique T { pass P { } }"
	resolver := NewResolver(mainPath, nil, nil)

	var b Builtin
	out, err := b.Preprocess(context.Background(), source, mainPath, nil, resolver)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}

	want := "#line 1 \"" + libPath + "\"\nfloat4 Common;\n\n#line 2 \"" + mainPath + "\"\ntechnique T { pass P { } }"
	if out != want {
		t.Errorf("expected\n%q\ngot\n%q", want, out)
	}

	result := fx.Parse(out, mainPath)
	if result.Diagnostics.HasErrors() {
		t.Fatalf("parse error: %v", result.Diagnostics)
	}
	span := result.Shader.Techniques[0].Span
	if span.File != mainPath || span.Line != 2 {
		t.Errorf("expected technique at %s(2), got %s", mainPath, span)
	}

	deps := resolver.Dependencies()
	if len(deps) != 2 || deps[0] != mainPath || deps[1] != libPath {
		t.Errorf("expected dependencies [%s %s], got %v", mainPath, libPath, deps)
	}
	if resolver.Depth() != 0 {
		t.Errorf("expected directory stack to unwind, depth %d", resolver.Depth())
	}
}

func TestBuiltinIncludeGuardAndNesting(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "a.fxh"), "#ifndef A_FXH\n#define A_FXH\n#include \"b.fxh\"\n#endif\n")
	writeFile(t, filepath.Join(dir, "sub", "b.fxh"), "int fromB;\n")

	source := "#include \"sub/a.fxh\"\n#include \"sub/a.fxh\"\n"
	resolver := NewResolver(filepath.Join(dir, "main.fx"), nil, nil)

	var b Builtin
	out, err := b.Preprocess(context.Background(), source, filepath.Join(dir, "main.fx"), nil, resolver)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	if n := strings.Count(out, "int fromB;"); n != 1 {
		t.Errorf("expected b.fxh content once, got %d times in %q", n, out)
	}
}

func TestBuiltinIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "loop.fxh"), "#include \"loop.fxh\"\n")

	b := Builtin{MaxIncludeDepth: 8}
	_, err := b.Preprocess(context.Background(), "#include \"loop.fxh\"", filepath.Join(dir, "main.fx"), nil,
		NewResolver(filepath.Join(dir, "main.fx"), nil, nil))
	if err == nil || !strings.Contains(err.Error(), "nested too deeply") {
		t.Errorf("expected nesting error, got %v", err)
	}
}

func TestBuiltinCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b Builtin
	_, err := b.Preprocess(ctx, "x", "test.fx", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestResolverSearchOrder(t *testing.T) {
	root := t.TempDir()
	inc := filepath.Join(root, "include")
	writeFile(t, filepath.Join(inc, "lib.fxh"), "from include dir")
	writeFile(t, filepath.Join(root, "src", "local.fxh"), "from source dir")
	writeFile(t, filepath.Join(inc, "local.fxh"), "shadowed")

	r := NewResolver(filepath.Join(root, "src", "main.fx"), []string{inc}, nil)

	read := func(name string) string {
		t.Helper()
		rc, err := r.Open(IncludeLocal, name, fx.Span{})
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		defer r.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}

	if got := read("local.fxh"); got != "from source dir" {
		t.Errorf("expected includer directory first, got %q", got)
	}
	if got := read("lib.fxh"); got != "from include dir" {
		t.Errorf("expected search dir match, got %q", got)
	}
	if path, ok := r.ResolvedPath("lib.fxh"); !ok || path != filepath.Join(inc, "lib.fxh") {
		t.Errorf("expected resolved path %s, got %s (%v)", filepath.Join(inc, "lib.fxh"), path, ok)
	}
}

func TestResolverHandler(t *testing.T) {
	var gotKind IncludeType
	var gotParent string
	handler := IncludeFunc(func(kind IncludeType, name, parentDir string) (io.ReadCloser, error) {
		gotKind, gotParent = kind, parentDir
		if name != "virtual.fxh" {
			return nil, os.ErrNotExist
		}
		return io.NopCloser(strings.NewReader("#define FROM_HANDLER 1\n")), nil
	})

	dir := t.TempDir()
	r := NewResolver(filepath.Join(dir, "main.fx"), nil, handler)

	var b Builtin
	out, err := b.Preprocess(context.Background(), "#include <virtual.fxh>\n#ifdef FROM_HANDLER\nok\n#endif",
		filepath.Join(dir, "main.fx"), nil, r)
	if err != nil {
		t.Fatalf("Preprocess error: %v", err)
	}
	if !strings.Contains(out, "ok") {
		t.Errorf("expected handler macro to be defined, got %q", out)
	}
	if gotKind != IncludeSystem {
		t.Errorf("expected system include, got %v", gotKind)
	}
	if gotParent != dir {
		t.Errorf("expected parent dir %s, got %s", dir, gotParent)
	}
	if deps := r.Dependencies(); len(deps) != 1 {
		t.Errorf("expected virtual include to stay out of dependencies, got %v", deps)
	}
}

func TestResolverDecodesUTF16(t *testing.T) {
	encoded, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("int a;")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "wide.fxh"), encoded)
	writeFile(t, filepath.Join(dir, "bom.fxh"), "\xef\xbb\xbfint b;")

	r := NewResolver(filepath.Join(dir, "main.fx"), nil, nil)
	for name, want := range map[string]string{"wide.fxh": "int a;", "bom.fxh": "int b;"} {
		rc, err := r.Open(IncludeLocal, name, fx.Span{})
		if err != nil {
			t.Fatalf("Open(%q): %v", name, err)
		}
		data, _ := io.ReadAll(rc)
		r.Close()
		if string(data) != want {
			t.Errorf("%s: expected %q, got %q", name, want, data)
		}
	}
}

func TestResolverNotFound(t *testing.T) {
	r := NewResolver("", nil, nil)
	span := fx.Span{File: "main.fx", Line: 3, Column: 1}
	_, err := r.Open(IncludeLocal, "nope.fxh", span)
	if !errors.Is(err, ErrIncludeNotFound) {
		t.Fatalf("expected ErrIncludeNotFound, got %v", err)
	}
	if len(r.Diagnostics) != 1 || r.Diagnostics[0].Span != span {
		t.Errorf("expected one diagnostic at %s, got %v", span, r.Diagnostics)
	}
}

func TestEvalCondition(t *testing.T) {
	tests := []struct {
		expr string
		want int64
	}{
		{"1 + 2 * 3", 7},
		{"(1 + 2) * 3", 9},
		{"!0", 1},
		{"~0", -1},
		{"1 << 4", 16},
		{"0x10 | 1", 17},
		{"5 % 3", 2},
		{"1 ? 2 : 3", 2},
		{"0 ? 2 : 3", 3},
		{"UNDEFINED", 0},
		{"3 > 2 && 2 >= 2", 1},
		{"-1 < 0", 1},
		{"10u == 10", 1},
	}

	for _, tt := range tests {
		got, err := evalCondition(tt.expr)
		if err != nil {
			t.Errorf("%q: unexpected error: %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("%q: expected %d, got %d", tt.expr, tt.want, got)
		}
	}

	for _, expr := range []string{"1 / 0", "(1", "", "1 $", "1 ? 2"} {
		if _, err := evalCondition(expr); err == nil {
			t.Errorf("%q: expected error", expr)
		}
	}
}

func TestRewriteLineDirectives(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "lib.fxh"), "x")
	r := NewResolver(filepath.Join(dir, "main.fx"), nil, nil)
	if _, err := r.Open(IncludeLocal, "lib.fxh", fx.Span{}); err != nil {
		t.Fatal(err)
	}
	r.Close()

	text := "#line 1 \"lib.fxh\"\nx\n  # line 7 \"other.fx\"\n"
	got, err := RewriteLineDirectives(text, r)
	if err != nil {
		t.Fatal(err)
	}
	want := "#line 1 \"" + filepath.Join(dir, "lib.fxh") + "\"\nx\n  # line 7 \"other.fx\"\n"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

package compiler

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gogpu/fxc/dxbc"
	"github.com/gogpu/fxc/effect"
	"github.com/gogpu/fxc/fx"
	"github.com/gogpu/fxc/hlsl"
)

// fakeCompiler builds a small DXBC container per request. The shader body
// is the entry point name unless bodies maps it to something else, so two
// entry points can be made to produce identical code.
type fakeCompiler struct {
	calls  []string
	bodies map[string]string
	fail   map[string]string
}

func (f *fakeCompiler) Compile(_ context.Context, req *hlsl.CompileRequest) (*hlsl.CompileResult, error) {
	f.calls = append(f.calls, req.EntryPoint+" "+req.Profile)
	if msg, ok := f.fail[req.EntryPoint]; ok {
		return &hlsl.CompileResult{HasErrors: true, Messages: msg}, nil
	}

	body := req.EntryPoint
	if b, ok := f.bodies[req.EntryPoint]; ok {
		body = b
	}
	chunks := []dxbc.Chunk{
		{Tag: dxbc.TagShaderEx, Data: []byte(body + "|" + req.Profile)},
		{Tag: dxbc.TagStatistics, Data: []byte{1, 2, 3, 4}},
		{Tag: dxbc.TagPrivate, Data: []byte(req.SourceName)},
	}
	if strings.HasPrefix(req.Profile, "vs") {
		chunks = append(chunks, dxbc.BuildSignature(dxbc.TagInputSig, []hlsl.SignatureParameter{
			{SemanticName: "POSITION", ComponentType: hlsl.ComponentFloat32, Mask: 0xF, ReadWriteMask: 0xF},
		}))
	}
	return &hlsl.CompileResult{Bytecode: (&dxbc.Container{Chunks: chunks}).Bytes()}, nil
}

func compileSource(t *testing.T, fake *fakeCompiler, opts Options, source string) (*Result, error) {
	t.Helper()
	opts.Compiler = fake
	return New(opts).Compile(context.Background(), source, "test.fx")
}

func mustCompile(t *testing.T, fake *fakeCompiler, source string) *effect.Data {
	t.Helper()
	res, err := compileSource(t, fake, Options{}, source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := effect.Validate(res.Data); err != nil {
		t.Fatalf("invalid effect data: %v", err)
	}
	return res.Data
}

func mustFail(t *testing.T, fake *fakeCompiler, source, want string) *Result {
	t.Helper()
	res, err := compileSource(t, fake, Options{}, source)
	if err == nil {
		t.Fatalf("expected error containing %q", want)
	}
	if res.Data != nil {
		t.Error("expected no data on failure")
	}
	if !strings.Contains(res.Diagnostics.Error(), want) && !strings.Contains(res.Diagnostics.FormatAll(), want) {
		t.Errorf("expected diagnostic containing %q, got:\n%s", want, res.Diagnostics.FormatAll())
	}
	return res
}

func TestCompileSingleVertexShader(t *testing.T) {
	fake := &fakeCompiler{}
	data := mustCompile(t, fake, `
float4 VS(float4 pos : POSITION) : SV_Position { return pos; }

technique T {
	pass P {
		Profile = 10.0;
		VertexShader = VS();
	}
}
`)

	if len(data.Effects) != 1 || data.Effects[0].Name != "test" {
		t.Fatalf("expected one effect named test, got %v", data.Effects)
	}
	fxe := data.Effects[0]
	if len(fxe.Techniques) != 1 || fxe.Techniques[0].Name != "T" {
		t.Fatalf("expected technique T, got %v", fxe.Techniques)
	}
	pass, ok := fxe.Techniques[0].Pass("P")
	if !ok {
		t.Fatal("expected pass P")
	}
	link := pass.Pipeline.Get(hlsl.StageVertex)
	if link.Kind != effect.LinkIndex || link.Index != 0 {
		t.Fatalf("expected vertex link to index 0, got %+v", link)
	}

	if len(data.Shaders) != 1 {
		t.Fatalf("expected 1 shader, got %d", len(data.Shaders))
	}
	s := data.Shaders[0]
	if s.Stage != hlsl.StageVertex || s.Level != hlsl.Level10_0 || s.Name != "" {
		t.Errorf("expected anonymous vertex shader at 10_0, got %q %v %v", s.Name, s.Stage, s.Level)
	}
	if len(fake.calls) != 1 || fake.calls[0] != "VS vs_4_0" {
		t.Errorf("expected one call for VS vs_4_0, got %v", fake.calls)
	}

	c, err := dxbc.Parse(s.Bytecode)
	if err != nil {
		t.Fatalf("stored bytecode: %v", err)
	}
	if _, ok := c.Chunk(dxbc.TagStatistics); ok {
		t.Error("expected reflection chunks stripped from stored bytecode")
	}
	if _, ok := c.Chunk(dxbc.TagPrivate); !ok {
		t.Error("expected private data kept in stored bytecode")
	}

	bare, _ := dxbc.Service{}.Strip(s.Bytecode, hlsl.StripTestBlobs|hlsl.StripDebugInfo)
	if s.Hash != effect.ComputeHash(bare) {
		t.Error("expected hash of the fully stripped bytecode")
	}
	if len(s.InputSignature) != 1 || s.InputSignature[0].SemanticName != "POSITION" {
		t.Errorf("expected POSITION input, got %v", s.InputSignature)
	}
	if len(s.InputSignatureBlob) == 0 || s.InputSignatureHash != effect.ComputeHash(s.InputSignatureBlob) {
		t.Error("expected input signature blob and hash")
	}
}

func TestProfileGating(t *testing.T) {
	tests := []struct {
		name      string
		statement string
	}{
		{"entry point", `VertexShader = VS();`},
		{"compile", `VertexShader = compile vs_5_0 VS();`},
		{"CompileShader", `SetVertexShader(CompileShader(vs_5_0, VS()));`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompiler{}
			mustFail(t, fake, "technique T { pass P { "+tt.statement+" } }", "set Profile before compiling a shader")
			if len(fake.calls) != 0 {
				t.Errorf("expected no compiler calls, got %v", fake.calls)
			}
		})
	}
}

func TestProfileScope(t *testing.T) {
	fake := &fakeCompiler{}
	res := mustFail(t, fake, `
technique A {
	pass P0 { Profile = 11.0; }
	pass P1 { VertexShader = VS(); }
}
technique B {
	pass P { VertexShader = VS(); }
}
`, "set Profile before compiling a shader")

	if len(fake.calls) != 1 || fake.calls[0] != "VS vs_5_0" {
		t.Errorf("expected only technique A to compile VS, got %v", fake.calls)
	}
	if n := len(res.Diagnostics.Errors()); n != 1 {
		t.Errorf("expected 1 error, got %d", n)
	}

	fake = &fakeCompiler{}
	_, err := compileSource(t, fake, Options{DefaultLevel: hlsl.Level9_3}, `technique B { pass P { PixelShader = PS(); } }`)
	if err != nil {
		t.Fatalf("expected default level to apply, got %v", err)
	}
	if fake.calls[0] != "PS ps_4_0_level_9_3" {
		t.Errorf("expected ps_4_0_level_9_3, got %v", fake.calls)
	}
}

func TestInvalidProfileResetsLevel(t *testing.T) {
	fake := &fakeCompiler{}
	res := mustFail(t, fake, `
technique T {
	pass P {
		Profile = 11.0;
		Profile = fx_3_0;
		VertexShader = VS();
	}
}
`, "invalid profile fx_3_0")

	if n := len(res.Diagnostics.Errors()); n != 2 {
		t.Errorf("expected invalid profile and missing profile errors, got %d:\n%s", n, res.Diagnostics.FormatAll())
	}
}

func TestShaderDeduplication(t *testing.T) {
	fake := &fakeCompiler{bodies: map[string]string{"VSCopy": "VS"}}
	data := mustCompile(t, fake, `
technique T {
	pass A { Profile = 10.0; VertexShader = compile vs_4_0 VS(); }
	pass B { VertexShader = compile vs_4_0 VS(); }
	pass C { SetVertexShader(CompileShader(vs_4_0, VSCopy())); }
	pass D { Profile = 11.0; VertexShader = VS(); }
}
`)

	if len(fake.calls) != 3 {
		t.Errorf("expected VS compiled once per level plus VSCopy, got %v", fake.calls)
	}
	if len(data.Shaders) != 2 {
		t.Fatalf("expected 2 distinct shaders, got %d", len(data.Shaders))
	}

	passes := data.Effects[0].Techniques[0].Passes
	first := passes[0].Pipeline.Get(hlsl.StageVertex)
	for _, p := range passes[1:3] {
		if got := p.Pipeline.Get(hlsl.StageVertex); got != first {
			t.Errorf("pass %s: expected shared link %+v, got %+v", p.Name, first, got)
		}
	}
	if got := passes[3].Pipeline.Get(hlsl.StageVertex); got.Index != 1 {
		t.Errorf("expected 11_0 shader at index 1, got %+v", got)
	}
}

func TestExportQualifiesNames(t *testing.T) {
	fake := &fakeCompiler{}
	data := mustCompile(t, fake, `
technique T {
	pass P {
		EffectName = "Scene";
		Export = { "VS", "GS" };
		Profile = 11.0;
		VertexShader = VS();
		PixelShader = PS();
	}
}
`)

	if data.Effects[0].Name != "Scene" {
		t.Errorf("expected effect name Scene, got %q", data.Effects[0].Name)
	}
	names := map[hlsl.Stage]string{}
	for _, s := range data.Shaders {
		names[s.Stage] = s.Name
	}
	if names[hlsl.StageVertex] != "Scene::VS" {
		t.Errorf("expected exported vertex shader Scene::VS, got %q", names[hlsl.StageVertex])
	}
	if names[hlsl.StagePixel] != "" {
		t.Errorf("expected anonymous pixel shader, got %q", names[hlsl.StagePixel])
	}
}

func TestExportAfterAnonymousCompile(t *testing.T) {
	fake := &fakeCompiler{}
	data := mustCompile(t, fake, `
technique T {
	pass A { Profile = 11.0; VertexShader = VS(); }
	pass B { Export = "VS"; VertexShader = VS(); }
}
`)
	if len(data.Shaders) != 1 || data.Shaders[0].Name != "test::VS" {
		t.Errorf("expected the pooled shader to take the exported name, got %v", data.Shaders)
	}
}

func TestEffectNameAfterExport(t *testing.T) {
	fake := &fakeCompiler{}
	data := mustCompile(t, fake, `
technique T {
	pass A { Export = "VS"; Profile = 11.0; VertexShader = VS(); }
	pass B { EffectName = "Scene"; }
}
`)
	if data.Effects[0].Name != "Scene" {
		t.Errorf("expected effect name Scene, got %q", data.Effects[0].Name)
	}
	if len(data.Shaders) != 1 || data.Shaders[0].Name != "Scene::VS" {
		t.Errorf("expected shader qualified with the final effect name, got %v", data.Shaders)
	}
}

func TestIndirectShaderReference(t *testing.T) {
	fake := &fakeCompiler{}
	data := mustCompile(t, fake, `
technique T {
	pass P {
		Export = "VS";
		Profile = 11.0;
		SetVertexShader(<VS>);
	}
}
`)
	if len(fake.calls) != 1 || fake.calls[0] != "VS vs_5_0" {
		t.Errorf("expected one call for VS vs_5_0, got %v", fake.calls)
	}
	link := data.Effects[0].Techniques[0].Passes[0].Pipeline.Get(hlsl.StageVertex)
	if link.Kind != effect.LinkIndex || data.Shaders[link.Index].Name != "test::VS" {
		t.Errorf("expected link to exported test::VS, got %+v in %v", link, data.Shaders)
	}
}

func TestDuplicateNames(t *testing.T) {
	fake := &fakeCompiler{}
	res := mustFail(t, fake, `
technique Main { pass P { Profile = 11.0; VertexShader = VS(); } }
technique Main { pass P { Profile = 11.0; PixelShader = PS(); } }
`, "technique with same name")

	// The duplicate technique is reported but still processed.
	if len(fake.calls) != 2 {
		t.Errorf("expected both techniques compiled, got %v", fake.calls)
	}
	if n := len(res.Diagnostics.Errors()); n != 1 {
		t.Errorf("expected 1 error, got %d", n)
	}

	mustFail(t, &fakeCompiler{}, `technique T { pass P { } pass P { } }`, "pass with same name")
}

func TestSubPassCount(t *testing.T) {
	data := mustCompile(t, &fakeCompiler{}, `
technique T {
	pass P0 { SubPassCount = 2; }
	pass P1 { }
	pass P2 { }
	pass P3 { }
}
`)

	want := []bool{false, true, true, false}
	for i, p := range data.Effects[0].Techniques[0].Passes {
		if p.IsSubPass != want[i] {
			t.Errorf("pass %s: expected IsSubPass %v, got %v", p.Name, want[i], p.IsSubPass)
		}
	}
}

func TestNullShaders(t *testing.T) {
	fake := &fakeCompiler{}
	data := mustCompile(t, fake, `
technique T {
	pass P {
		PixelShader = NULL;
		GeometryShader = 0;
		SetHullShader(NULL);
	}
}
`)

	p := data.Effects[0].Techniques[0].Passes[0]
	for _, stage := range []hlsl.Stage{hlsl.StagePixel, hlsl.StageGeometry, hlsl.StageHull} {
		if got := p.Pipeline.Get(stage).Kind; got != effect.LinkNull {
			t.Errorf("%s: expected null link, got %v", stage, got)
		}
	}
	if got := p.Pipeline.Get(hlsl.StageVertex).Kind; got != effect.LinkNone {
		t.Errorf("expected unset vertex link, got %v", got)
	}
	if len(data.Shaders) != 0 || len(fake.calls) != 0 {
		t.Errorf("expected no shaders, got %d shaders and calls %v", len(data.Shaders), fake.calls)
	}
}

func TestShaderStatementErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"wrong profile stage", `Profile = 11.0; VertexShader = compile ps_4_0 PS();`, "cannot compile a Vertex shader"},
		{"bad compile profile", `Profile = 11.0; VertexShader = compile vs_9_9 VS();`, "invalid profile vs_9_9"},
		{"unexported indirect", `Profile = 11.0; SetVertexShader(<VS>);`, "<VS> does not name an exported shader"},
		{"entry arguments", `Profile = 11.0; VertexShader = VS(true);`, "entry point VS cannot take arguments"},
		{"literal shader", `Profile = 11.0; VertexShader = 1;`, "invalid Vertex shader 1"},
		{"reserved entry", `Profile = 11.0; PixelShader = float4;`, "reserved HLSL keyword"},
		{"unsupported stage", `Profile = 10.0; HullShader = HS();`, "Hull shaders are not supported at feature level 10_0"},
		{"set arity", `Profile = 11.0; SetPixelShader(PS, PS);`, "SetPixelShader expects 1 argument"},
		{"compile shader arity", `SetPixelShader(CompileShader(ps_5_0));`, "CompileShader expects 2 arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeCompiler{}
			mustFail(t, fake, "technique T { pass P { "+tt.source+" } }", tt.want)
			if len(fake.calls) != 0 {
				t.Errorf("expected no compiler calls, got %v", fake.calls)
			}
		})
	}
}

func TestCompileErrorPolicy(t *testing.T) {
	source := `technique T { pass P { Profile = 11.0; VertexShader = VS(); PixelShader = PS(); } }`

	fake := &fakeCompiler{fail: map[string]string{"PS": "test.fx(1,5): error X3004: undeclared identifier"}}
	mustFail(t, fake, source, "X3004")

	fake = &fakeCompiler{fail: map[string]string{"PS": "error X3004"}}
	res, err := compileSource(t, fake, Options{CompileErrors: CompileErrorsAsWarnings}, source)
	if err != nil {
		t.Fatalf("expected demoted compile error, got %v", err)
	}
	if len(res.Diagnostics.Warnings()) != 1 {
		t.Errorf("expected 1 warning, got %d", len(res.Diagnostics.Warnings()))
	}
	p := res.Data.Effects[0].Techniques[0].Passes[0]
	if got := p.Pipeline.Get(hlsl.StagePixel).Kind; got != effect.LinkNull {
		t.Errorf("expected failed pixel shader bound as null, got %v", got)
	}
	if got := p.Pipeline.Get(hlsl.StageVertex).Kind; got != effect.LinkIndex {
		t.Errorf("expected vertex shader compiled, got %v", got)
	}
}

func TestMissingCompiler(t *testing.T) {
	res, err := New(Options{}).Compile(context.Background(),
		`technique T { pass P { Profile = 11.0; VertexShader = VS(); } }`, "test.fx")
	if err == nil || !strings.Contains(res.Diagnostics.Error(), "no shader compiler configured") {
		t.Errorf("expected missing compiler error, got %v", err)
	}
}

func TestAttributes(t *testing.T) {
	data := mustCompile(t, &fakeCompiler{}, `
technique T {
	pass P {
		FillMode = Solid;
		BlendFactor = (1, 0.5);
		SampleMask = 0xFFFFFFFF;
		StencilRef = 2.0;
		BlendEnable[1] = TRUE;
		DepthBias = -3;
		Preprocessor = "USE_FOG";
		SetBlendState(Additive, float4(0, 0, 0, 0), 0xFFFFFFFF);
	}
}
`)

	p := data.Effects[0].Techniques[0].Passes[0]
	tests := []struct {
		name string
		want effect.Value
	}{
		{"FillMode", effect.StringValue("Solid")},
		{"BlendFactor", effect.Float4Value(1, 0.5, 0, 0)},
		{"SampleMask", effect.UIntValue(0xFFFFFFFF)},
		{"StencilRef", effect.IntValue(2)},
		{"BlendEnable[1]", effect.BoolValue(true)},
		{"DepthBias", effect.IntValue(-3)},
		{"Preprocessor", effect.StringValue("USE_FOG")},
		{"SetBlendState", effect.ArrayValue(
			effect.StringValue("Additive"),
			effect.Float4Value(0, 0, 0, 0),
			effect.IntValue(0xFFFFFFFF),
		)},
	}
	for _, tt := range tests {
		got, ok := p.Attribute(tt.name)
		if !ok {
			t.Errorf("missing attribute %s", tt.name)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s: expected %s, got %s", tt.name, tt.want, got)
		}
	}
}

func TestAttributeErrors(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{`SampleMask = "all";`, "attribute SampleMask expects a uint value"},
		{`StencilRef = 1.5;`, "attribute StencilRef expects a int value"},
		{`BlendFactor = float4(1, 2, 3);`, "float4 expects 4 argument(s), got 3"},
		{`Color = lerp(1, 2);`, "unknown method lerp"},
		{`Shader = compile vs_5_0 VS();`, "only literal, identifier, array or known method expressions are valid values"},
		{`SubPassCount = -1;`, "SubPassCount expects a non-negative integer"},
		{`Export = 3;`, "Export expects a string or an array of strings"},
		{`ShareConstantBuffers = "yes";`, "ShareConstantBuffers expects a bool"},
	}

	for _, tt := range tests {
		mustFail(t, &fakeCompiler{}, "technique T { pass P { "+tt.source+" } }", tt.want)
	}
}

func TestPreprocessorWarning(t *testing.T) {
	res, err := compileSource(t, &fakeCompiler{}, Options{}, `technique T { pass P { Preprocessor = 1; } }`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Diagnostics.Warnings()) != 1 {
		t.Errorf("expected a warning for a non-string Preprocessor value, got %v", res.Diagnostics)
	}
}

func TestDeterministicOutput(t *testing.T) {
	source := `
#define ENTRY VS
technique T {
	pass P0 { Export = "VS"; Profile = 11.0; VertexShader = ENTRY(); PixelShader = PS(); }
	pass P1 { Profile = 10.1; VertexShader = VS(); GeometryShader = GS(); BlendFactor = 0.5; }
}
`
	var archives [][]byte
	for i := 0; i < 2; i++ {
		res, err := compileSource(t, &fakeCompiler{}, Options{}, source)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		archives = append(archives, effect.Marshal(res.Data))
	}
	if !bytes.Equal(archives[0], archives[1]) {
		t.Error("expected identical archives for identical input")
	}
}

func TestParseErrorsAbort(t *testing.T) {
	fake := &fakeCompiler{}
	c := New(Options{Compiler: fake})
	res, err := c.Compile(context.Background(), `technique T { pass P { Profile = 11.0; VertexShader = VS() } }`, "test.fx")

	var diags fx.Diagnostics
	if !errors.As(err, &diags) || !diags.HasErrors() {
		t.Fatalf("expected diagnostics error, got %v", err)
	}
	if res.Data != nil || len(fake.calls) != 0 {
		t.Error("expected no data and no shader compiles after a parse error")
	}
	if c.State() != StateAborted {
		t.Errorf("expected state Aborted, got %v", c.State())
	}
}

func TestCompilerIsSingleUse(t *testing.T) {
	c := New(Options{Compiler: &fakeCompiler{}})
	if _, err := c.Compile(context.Background(), `technique T { pass P { } }`, "a.fx"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State() != StateFinalized {
		t.Errorf("expected state Finalized, got %v", c.State())
	}
	if _, err := c.Compile(context.Background(), `technique T { pass P { } }`, "a.fx"); !errors.Is(err, ErrAlreadyUsed) {
		t.Errorf("expected ErrAlreadyUsed, got %v", err)
	}
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{Compiler: &fakeCompiler{}}).Compile(ctx, `technique T { pass P { } }`, "a.fx")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestIncludesAndDependencies(t *testing.T) {
	dir := t.TempDir()
	common := filepath.Join(dir, "common.fxh")
	if err := os.WriteFile(common, []byte("#define LEVEL 11.0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "scene.fx")
	source := "#include \"common.fxh\"\ntechnique T { pass P { Profile = LEVEL; VertexShader = VS(); } }\n"

	fake := &fakeCompiler{}
	res, err := New(Options{Compiler: fake}).Compile(context.Background(), source, main)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Data.Effects[0].Name != "scene" {
		t.Errorf("expected effect named after the file, got %q", res.Data.Effects[0].Name)
	}
	if len(res.Dependencies) != 2 || res.Dependencies[1] != common {
		t.Errorf("expected dependencies [%s %s], got %v", main, common, res.Dependencies)
	}
	if fake.calls[0] != "VS vs_5_0" {
		t.Errorf("expected macro-defined profile, got %v", fake.calls)
	}
}

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		level  hlsl.FeatureLevel
		ok     bool
	}{
		{"fx_5_0", "fx", hlsl.Level11_0, true},
		{"vs_4_0", "vs", hlsl.Level10_0, true},
		{"ps_4_1", "ps", hlsl.Level10_1, true},
		{"cs_5_1", "cs", hlsl.Level12_0, true},
		{"fx_11_1", "fx", hlsl.Level11_1, true},
		{"ps_4_0_level_9_3", "ps", hlsl.Level9_3, true},
		{"vs_4_0_level_9_1", "vs", hlsl.Level9_1, true},
		{"fx_3_0", "", hlsl.LevelUnset, false},
		{"vs_5_0_level_8_0", "", hlsl.LevelUnset, false},
		{"VS_5_0", "", hlsl.LevelUnset, false},
		{"vs50", "", hlsl.LevelUnset, false},
	}

	for _, tt := range tests {
		prefix, level, ok := ParseProfile(tt.name)
		if ok != tt.ok || level != tt.level || (ok && prefix != tt.prefix) {
			t.Errorf("ParseProfile(%q): expected %q %v %v, got %q %v %v", tt.name, tt.prefix, tt.level, tt.ok, prefix, level, ok)
		}
	}
}

func TestLevelFromNumber(t *testing.T) {
	tests := []struct {
		v     float64
		level hlsl.FeatureLevel
		ok    bool
	}{
		{10.1, hlsl.Level10_1, true},
		{11, hlsl.Level11_0, true},
		{9.3, hlsl.Level9_3, true},
		{12.1, hlsl.Level12_1, true},
		{10.15, hlsl.LevelUnset, false},
		{8, hlsl.LevelUnset, false},
		{-11, hlsl.LevelUnset, false},
	}

	for _, tt := range tests {
		level, ok := LevelFromNumber(tt.v)
		if ok != tt.ok || level != tt.level {
			t.Errorf("LevelFromNumber(%v): expected %v %v, got %v %v", tt.v, tt.level, tt.ok, level, ok)
		}
	}
}

func TestExtractValue(t *testing.T) {
	ev := NewEvaluator()
	parse := func(src string) fx.Expr {
		res := fx.Parse("technique T { pass P { X = "+src+"; } }", "v.fx")
		if res.Diagnostics.HasErrors() {
			t.Fatalf("parse %q: %v", src, res.Diagnostics)
		}
		return res.Shader.Techniques[0].Passes[0].Statements[0].Expr.(*fx.AssignExpr).Value
	}

	tests := []struct {
		src  string
		want effect.Value
	}{
		{"float4(float3(1, 2, 3), 1)", effect.Float4Value(1, 2, 3, 1)},
		{"color(1, 0, 0, 1)", effect.Float4Value(1, 0, 0, 1)},
		{"float2(TRUE, 2)", effect.Float2Value(1, 2)},
		{"int(2.7)", effect.IntValue(2)},
		{"uint(3)", effect.UIntValue(3)},
		{"bool(0)", effect.BoolValue(false)},
		{"Linear", effect.StringValue("Linear")},
		{"Targets[2]", effect.StringValue("Targets[2]")},
		{"{1, (2, 3)}", effect.ArrayValue(effect.IntValue(1), effect.ArrayValue(effect.IntValue(2), effect.IntValue(3)))},
		{"NULL", effect.Null()},
	}

	for _, tt := range tests {
		got, err := ev.ExtractValue(parse(tt.src))
		if err != nil {
			t.Errorf("%s: unexpected error %v", tt.src, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s: expected %s, got %s", tt.src, tt.want, got)
		}
	}

	_, err := ev.ExtractValue(parse("uint(-1)"))
	var d *fx.Diagnostic
	if !errors.As(err, &d) || d.Span.Line != 1 {
		t.Errorf("expected positioned diagnostic for uint(-1), got %v", err)
	}
	if _, err := ev.ExtractValue(parse(`float("a")`)); err == nil || !strings.Contains(err.Error(), "numeric arguments") {
		t.Errorf("expected numeric argument error, got %v", err)
	}
}

package depfile

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/fxc/hlsl"
	"github.com/gogpu/fxc/preprocess"
)

func TestTicks(t *testing.T) {
	tests := []struct {
		t     time.Time
		ticks int64
	}{
		{time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), 0},
		{time.Unix(0, 0), 621355968000000000},
		{time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), 630822816000000000},
		{time.Unix(1, 250), 621355968010000002},
	}

	for _, tt := range tests {
		if got := Ticks(tt.t); got != tt.ticks {
			t.Errorf("Ticks(%v): expected %d, got %d", tt.t, tt.ticks, got)
		}
		want := time.Unix(tt.t.Unix(), int64(tt.t.Nanosecond()/100*100))
		if got := FromTicks(tt.ticks); !got.Equal(want) {
			t.Errorf("FromTicks(%d): expected %v, got %v", tt.ticks, want, got)
		}
	}
}

func TestReadWrite(t *testing.T) {
	input := "#key abc123\n" +
		"/src/common.fxh 630822816000000000\n" +
		"\n" +
		"# comment\n" +
		"/src/my effect.fx 621355968010000000\r\n"

	rec, err := Read(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Key != "abc123" {
		t.Errorf("expected key abc123, got %q", rec.Key)
	}
	if len(rec.Files) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(rec.Files))
	}
	if got := rec.Files["/src/my effect.fx"]; !got.Equal(time.Unix(1, 0)) {
		t.Errorf("expected path with space to parse, got %v", got)
	}

	var buf bytes.Buffer
	if err := rec.Write(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "#key abc123\n" +
		"/src/common.fxh 630822816000000000\n" +
		"/src/my effect.fx 621355968010000000\n"
	if buf.String() != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, buf.String())
	}
}

func TestReadMalformed(t *testing.T) {
	tests := []string{
		"noticks\n",
		"/a.fx abc\n",
		"/a.fx -5\n",
		" 123\n",
	}
	for _, input := range tests {
		if _, err := Read(strings.NewReader(input)); !errors.Is(err, ErrMalformed) {
			t.Errorf("%q: expected ErrMalformed, got %v", input, err)
		}
	}
}

func TestStale(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.fx")
	b := filepath.Join(dir, "b.fxh")
	for _, p := range []string{a, b} {
		if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	m, err := FromFiles([]string{a, b})
	if err != nil {
		t.Fatalf("FromFiles: %v", err)
	}
	if p, stale := m.Stale(); stale {
		t.Fatalf("expected fresh map, %s is stale", p)
	}

	rec := &Record{Key: "k", Files: m}
	if _, stale := rec.Stale("k"); stale {
		t.Error("expected matching key to be fresh")
	}
	if p, stale := rec.Stale("other"); !stale || p != "cache key" {
		t.Errorf("expected key mismatch, got %q %v", p, stale)
	}

	later := m[b].Add(2 * time.Second)
	if err := os.Chtimes(b, later, later); err != nil {
		t.Fatal(err)
	}
	if p, stale := m.Stale(); !stale || p != b {
		t.Errorf("expected %s stale after touch, got %q %v", b, p, stale)
	}

	if err := os.Remove(a); err != nil {
		t.Fatal(err)
	}
	if p, stale := m.Stale(); !stale || p != a {
		t.Errorf("expected missing %s to be stale, got %q %v", a, p, stale)
	}

	if _, err := FromFiles([]string{a}); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.deps")
	rec := &Record{Key: "ff", Files: Map{"/x.fx": time.Unix(100, 500)}}
	if err := rec.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Key != "ff" || !got.Files["/x.fx"].Equal(time.Unix(100, 500)) {
		t.Errorf("expected record to survive save/load, got %+v", got)
	}
}

func TestCacheKey(t *testing.T) {
	base := CacheKey("technique T {}", []preprocess.Macro{{Name: "A", Value: "1"}}, hlsl.FlagDebug)
	if len(base) != 64 {
		t.Fatalf("expected 64 hex digits, got %d", len(base))
	}
	if again := CacheKey("technique T {}", []preprocess.Macro{{Name: "A", Value: "1"}}, hlsl.FlagDebug); again != base {
		t.Error("expected stable key")
	}

	variants := []string{
		CacheKey("technique U {}", []preprocess.Macro{{Name: "A", Value: "1"}}, hlsl.FlagDebug),
		CacheKey("technique T {}", []preprocess.Macro{{Name: "A", Value: "2"}}, hlsl.FlagDebug),
		CacheKey("technique T {}", []preprocess.Macro{{Name: "A1", Value: ""}}, hlsl.FlagDebug),
		CacheKey("technique T {}", nil, hlsl.FlagDebug),
		CacheKey("technique T {}", []preprocess.Macro{{Name: "A", Value: "1"}}, hlsl.FlagNone),
	}
	for i, k := range variants {
		if k == base {
			t.Errorf("variant %d: expected a different key", i)
		}
	}
}

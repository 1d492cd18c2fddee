package preprocess

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/gogpu/fxc/fx"
)

// ErrIncludeNotFound is returned by Resolver.Open when no strategy could
// locate the requested file.
var ErrIncludeNotFound = errors.New("include file not found")

// IncludeType distinguishes "file" from <file> includes.
type IncludeType uint8

const (
	IncludeLocal IncludeType = iota
	IncludeSystem
)

func (k IncludeType) String() string {
	if k == IncludeSystem {
		return "system"
	}
	return "local"
}

// IncludeHandler supplies includes that are not found on disk, such as
// files embedded in an application.
type IncludeHandler interface {
	Open(kind IncludeType, name, parentDir string) (io.ReadCloser, error)
}

// IncludeFunc adapts a function to IncludeHandler.
type IncludeFunc func(kind IncludeType, name, parentDir string) (io.ReadCloser, error)

// Open calls f.
func (f IncludeFunc) Open(kind IncludeType, name, parentDir string) (io.ReadCloser, error) {
	return f(kind, name, parentDir)
}

// Resolver locates include files. It searches, in order, the directory of
// the file currently being processed, each of SearchDirs, and Handler.
//
// Every successful Open pushes the directory of the resolved file; Close
// pops it, so nested includes resolve relative to their includer.
type Resolver struct {
	SearchDirs []string
	Handler    IncludeHandler

	// Diagnostics receives an error for every include that could not be
	// resolved.
	Diagnostics fx.Diagnostics

	dirs     []string
	resolved map[string]string
	deps     []string
	seen     map[string]bool
}

// NewResolver creates a resolver for the root source file. file may be
// empty for in-memory sources, in which case the working directory is the
// first search location.
func NewResolver(file string, searchDirs []string, handler IncludeHandler) *Resolver {
	r := &Resolver{
		SearchDirs: searchDirs,
		Handler:    handler,
		resolved:   make(map[string]string),
		seen:       make(map[string]bool),
	}
	dir := "."
	if file != "" {
		dir = filepath.Dir(file)
		if abs, err := filepath.Abs(file); err == nil {
			r.addDependency(abs)
			dir = filepath.Dir(abs)
		}
	}
	r.dirs = append(r.dirs, dir)
	return r
}

// Depth returns the number of includes currently open.
func (r *Resolver) Depth() int {
	return len(r.dirs) - 1
}

// CurrentDir returns the directory of the file being processed.
func (r *Resolver) CurrentDir() string {
	return r.dirs[len(r.dirs)-1]
}

// Open resolves and reads an include. The returned text is decoded to UTF-8;
// a UTF-8 or UTF-16 byte order mark is honored and removed.
func (r *Resolver) Open(kind IncludeType, name string, span fx.Span) (io.ReadCloser, error) {
	candidates := make([]string, 0, len(r.SearchDirs)+1)
	if filepath.IsAbs(name) {
		candidates = append(candidates, name)
	} else {
		candidates = append(candidates, filepath.Join(r.CurrentDir(), name))
		for _, dir := range r.SearchDirs {
			candidates = append(candidates, filepath.Join(dir, name))
		}
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		text, err := Decode(data)
		if err != nil {
			r.Diagnostics.Errorf(span, "cannot decode include %q: %v", path, err)
			return nil, err
		}
		r.push(name, path)
		r.addDependency(path)
		return io.NopCloser(bytes.NewReader(text)), nil
	}

	if r.Handler != nil {
		rc, err := r.Handler.Open(kind, name, r.CurrentDir())
		if err == nil && rc != nil {
			defer rc.Close()
			raw, err := io.ReadAll(rc)
			if err != nil {
				r.Diagnostics.Errorf(span, "cannot read include %q: %v", name, err)
				return nil, err
			}
			text, err := Decode(raw)
			if err != nil {
				r.Diagnostics.Errorf(span, "cannot decode include %q: %v", name, err)
				return nil, err
			}
			r.push(name, name)
			return io.NopCloser(bytes.NewReader(text)), nil
		}
	}

	r.Diagnostics.Errorf(span, "unable to find %s include file %q", kind, name)
	return nil, ErrIncludeNotFound
}

// Close pops the directory pushed by the last successful Open.
func (r *Resolver) Close() {
	if len(r.dirs) > 1 {
		r.dirs = r.dirs[:len(r.dirs)-1]
	}
}

// ResolvedPath returns the path the requested include name last resolved to.
func (r *Resolver) ResolvedPath(requested string) (string, bool) {
	path, ok := r.resolved[requested]
	return path, ok
}

// Dependencies returns the absolute paths of the root file and every
// include read from disk, in first-open order.
func (r *Resolver) Dependencies() []string {
	return append([]string(nil), r.deps...)
}

func (r *Resolver) push(requested, path string) {
	r.resolved[requested] = path
	dir := filepath.Dir(path)
	if !filepath.IsAbs(path) {
		// Virtual include; keep resolving relative to the includer.
		dir = r.CurrentDir()
	}
	r.dirs = append(r.dirs, dir)
}

func (r *Resolver) addDependency(path string) {
	if !r.seen[path] {
		r.seen[path] = true
		r.deps = append(r.deps, path)
	}
}

// Decode converts source bytes to UTF-8 text, honoring a UTF-8 or UTF-16
// byte order mark.
func Decode(data []byte) ([]byte, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(dec, data)
	return out, err
}
